package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JeanGrijp/csrfguard/internal/httpx"
	"github.com/JeanGrijp/csrfguard/internal/metrics"
	"github.com/JeanGrijp/csrfguard/internal/store"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Ping(r.Context()); err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) error {
	items, err := s.store.ListItems(r.Context())
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, items)
	return nil
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) error {
	it, err := s.store.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, it)
	return nil
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) error {
	var in store.ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		return err
	}
	it, err := s.store.CreateItem(r.Context(), in)
	if err != nil {
		return err
	}
	s.refreshItemGauge(r)
	httpx.WriteJSON(w, http.StatusCreated, it)
	return nil
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) error {
	var in store.ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		return err
	}
	it, err := s.store.UpdateItem(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, it)
	return nil
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteItem(r.Context(), id); err != nil {
		return err
	}
	s.refreshItemGauge(r)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
	return nil
}

func (s *Server) refreshItemGauge(r *http.Request) {
	if n, err := s.store.CountItems(r.Context()); err == nil {
		metrics.ItemsTotal.Set(float64(n))
	}
}
