// Package server wires the demo backend: chi routes, the CSRF guard in front
// of the item API, the JSON error layer and metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JeanGrijp/csrfguard/csrf"
	"github.com/JeanGrijp/csrfguard/internal/config"
	"github.com/JeanGrijp/csrfguard/internal/httpx"
	"github.com/JeanGrijp/csrfguard/internal/logger"
	"github.com/JeanGrijp/csrfguard/internal/metrics"
	"github.com/JeanGrijp/csrfguard/internal/store"
)

// Server owns the HTTP handler and its dependencies.
type Server struct {
	store *store.Store
	guard *csrf.Protector
	log   *zap.Logger
	http  *http.Server
}

// NewGuard builds the CSRF guard from configuration.
func NewGuard(c config.CSRF, log *zap.Logger) (*csrf.Protector, error) {
	key, err := c.SecretKey()
	if err != nil {
		return nil, err
	}
	sameSite, err := c.SameSite()
	if err != nil {
		return nil, err
	}
	if key == nil {
		log.Warn("csrf.secret not set; tokens will not survive a restart")
	}
	return csrf.New(csrf.Config{
		CookieName:         c.CookieName,
		HeaderName:         c.HeaderName,
		BodyField:          c.BodyField,
		CookieSecure:       c.CookieSecure,
		CookieSameSite:     sameSite,
		CookieMaxAge:       c.CookieMaxAge,
		SecretKey:          key,
		EnforceOriginCheck: c.EnforceOrigin,
		AllowedOrigin:      c.AllowedOrigin,
		Logger:             log,
		Reporter:           metrics.CSRFReporter{},
		ErrorHandler:       httpx.CSRFErrorHandler,
	}), nil
}

// New builds a Server. st is owned by the caller.
func New(cfg *config.Config, st *store.Store, guard *csrf.Protector, log *zap.Logger) *Server {
	s := &Server{store: st, guard: guard, log: log}
	s.http = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Routes returns the full handler tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, Logging(s.log), Recover(s.log))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.ErrMethodNotAllowed)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.guard.Protect)

		r.Get("/health", s.handle(s.health))
		r.Get("/csrf-token", s.guard.TokenHandler().ServeHTTP)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handle(s.listItems))
			r.Post("/", s.handle(s.createItem))
			r.Get("/{id}", s.handle(s.getItem))
			r.Put("/{id}", s.handle(s.updateItem))
			r.Delete("/{id}", s.handle(s.deleteItem))
		})
	})
	return r
}

// handlerFunc is an http handler that reports failures as errors.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		if apiErr := httpx.Classify(err); apiErr.Status >= http.StatusInternalServerError {
			logger.From(r.Context(), s.log).Error("request failed", logger.Err(err))
		}
		httpx.WriteError(w, err)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
