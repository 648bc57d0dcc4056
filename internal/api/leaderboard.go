package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/frontier/internal/store"
)

func (s *Server) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.providers.List())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.leaderboard.Get(r.Context())
	if err != nil {
		s.logger.Error("get leaderboard", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleGetRecord looks up an evaluation record by its trace id, which has
// the form {sweep_id}/{model_id}.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "*")
	if traceID == "" {
		s.writeError(w, http.StatusBadRequest, "trace id is required")
		return
	}

	rec, err := s.store.GetEvalRecord(r.Context(), traceID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		s.logger.Error("get eval record", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get record")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}
