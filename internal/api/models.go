package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/store"
)

var validEfforts = map[string]bool{"": true, "minimal": true, "low": true, "medium": true, "high": true}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.store.ListModels(r.Context())
	if err != nil {
		s.logger.Error("list models", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list models")
		return
	}
	if models == nil {
		models = []*model.Model{}
	}
	s.writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var m model.Model
	if err := decodeJSON(w, r, &m); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch {
	case m.ID == "":
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	case m.Provider == "":
		s.writeError(w, http.StatusBadRequest, "provider is required")
		return
	case m.Name == "":
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	case !validEfforts[m.ReasoningEffort]:
		s.writeError(w, http.StatusBadRequest, "reasoning_effort must be one of minimal, low, medium, high")
		return
	case m.MaxOutputTokens < 0 || m.InputCostPerMTok < 0 || m.OutputCostPerMTok < 0:
		s.writeError(w, http.StatusBadRequest, "limits and prices must not be negative")
		return
	}
	m.CreatedAt = time.Now().UTC()

	err := s.store.CreateModel(r.Context(), &m)
	if errors.Is(err, store.ErrConflict) {
		s.writeError(w, http.StatusConflict, "model already exists")
		return
	}
	if err != nil {
		s.logger.Error("create model", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create model")
		return
	}

	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetModel(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		s.logger.Error("get model", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get model")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteModel(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		s.logger.Error("delete model", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete model")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
