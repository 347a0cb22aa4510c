package csrf

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Methods exempt from token validation
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Protect wraps the given next http.Handler and enforces CSRF protection.
//
// Behavior:
//   - For "safe" methods (GET/HEAD/OPTIONS): makes sure the client holds a valid
//     token cookie (minting one when absent or stale), injects the token into the
//     request context, then calls next.
//   - For every other method: optionally validates Origin/Referer (when
//     EnforceOriginCheck is true), extracts the client token from the header or the
//     body field, verifies its HMAC signature in constant time, and only then calls next.
//
// Params:
// - next: downstream handler to be executed after CSRF checks pass.
//
// Returns:
// - An http.Handler that performs the CSRF logic before delegating to next.
func (p *Protector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := p.cfg

		// 1) safe methods pass, with lazy issuance
		if safeMethods[r.Method] {
			tok, minted, err := p.ensureCookieToken(w, r)
			if err != nil {
				p.log.Error("csrf token generation failed", zap.Error(err))
				p.reject(w, r, errGeneration)
				return
			}
			r = r.WithContext(contextWithToken(r.Context(), tok, minted))
			next.ServeHTTP(w, r)
			return
		}

		// 2) Origin/Referer validation (if enabled)
		if cfg.EnforceOriginCheck {
			if err := validateOriginOrReferer(r, cfg.AllowedOrigin); err != nil {
				p.fail(w, r, errOriginNotAllowed, err.Error())
				return
			}
		}

		// 3) extract client-provided token (header or body)
		clientToken := extractClientToken(r, cfg.HeaderName, cfg.BodyField)
		if clientToken == "" {
			p.fail(w, r, ErrTokenMissing, "no token in header or body")
			return
		}

		// 4) format and signature
		if err := p.Verify(clientToken); err != nil {
			var cerr *Error
			if !errors.As(err, &cerr) {
				cerr = ErrTokenInvalid
			}
			p.fail(w, r, cerr, "token verification failed")
			return
		}

		p.rep.RequestAllowed(r.Method)
		r = r.WithContext(contextWithToken(r.Context(), clientToken, false))
		next.ServeHTTP(w, r)
	})
}

func (p *Protector) fail(w http.ResponseWriter, r *http.Request, err *Error, reason string) {
	p.log.Debug("csrf request rejected",
		zap.String("code", err.Code),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("reason", reason),
	)
	p.rep.RequestRejected(r.Method, err.Code)
	p.reject(w, r, err)
}

// ensureCookieToken returns the token from the request cookie when it verifies.
// Otherwise it mints a new token and sets it as a cookie on the response.
//
// Params:
// - w: response writer used to set the cookie when needed.
// - r: incoming request to inspect cookies from.
//
// Returns:
// - the token, whether it was minted for this request, and an error if generation failed.
func (p *Protector) ensureCookieToken(w http.ResponseWriter, r *http.Request) (string, bool, error) {
	if c, err := r.Cookie(p.cfg.CookieName); err == nil && p.Verify(c.Value) == nil {
		return c.Value, false, nil
	}

	tok, err := p.IssueToken(w)
	if err != nil {
		return "", false, err
	}
	return tok, true, nil
}

// IssueToken mints a token and sets it as the configured cookie on w.
//
// Params:
// - w: response writer receiving the Set-Cookie header.
//
// Returns:
// - the issued token, or an error if the random source failed.
func (p *Protector) IssueToken(w http.ResponseWriter) (string, error) {
	cfg := p.cfg

	tok, err := p.NewToken()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    tok,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   cfg.CookieMaxAge,
		SameSite: cfg.CookieSameSite,
		Secure:   cfg.CookieSecure,
		HttpOnly: cfg.CookieHTTPOnly,
	})
	p.rep.TokenIssued()

	return tok, nil
}

type tokenBody struct {
	Success bool          `json:"success"`
	Data    tokenResponse `json:"data"`
}

type tokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// TokenHandler returns an HTTP handler that issues a fresh CSRF token.
// The token is set as a cookie and echoed as {"success":true,"data":{"csrfToken":"..."}}.
// When mounted behind Protect and the middleware already minted a token for this
// request, that token is reused so the response carries a single Set-Cookie.
//
// Returns:
// - http.Handler writing the JSON envelope with status 200.
func (p *Protector) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := ""
		if t, ok := tokenFromContext(r.Context()); ok && t.minted {
			tok = t.value
		} else {
			var err error
			if tok, err = p.IssueToken(w); err != nil {
				p.log.Error("csrf token generation failed", zap.Error(err))
				p.reject(w, r, errGeneration)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(tokenBody{
			Success: true,
			Data:    tokenResponse{CSRFToken: tok},
		})
	})
}

// validateOriginOrReferer checks whether the request is same-site according to
// the allowed host policy. When allowed is empty, it falls back to r.Host.
// It prefers the Origin header; if empty, it falls back to Referer.
//
// Params:
//   - r: the incoming request containing Origin/Referer headers.
//   - allowed: the allowed host (domain[:port]) to be considered same-site;
//     if empty, r.Host is used.
//
// Returns:
// - nil when origin/referrer is acceptable; otherwise an error describing the issue.
func validateOriginOrReferer(r *http.Request, allowed string) error {
	host := allowed
	if host == "" {
		host = r.Host
	}

	origin := r.Header.Get("Origin")
	ref := r.Header.Get("Referer")

	switch {
	case origin != "":
		if !sameSite(origin, host) {
			return errors.New("bad origin")
		}
	case ref != "":
		if !sameSite(ref, host) {
			return errors.New("bad referer")
		}
	default:
		return errors.New("no origin/referer")
	}
	return nil
}
