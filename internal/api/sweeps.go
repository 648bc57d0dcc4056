package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/frontier/internal/control"
	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/sweep"
)

// launchResponse is the JSON response for POST /v1/sweeps.
type launchResponse struct {
	SweepID string `json:"sweep_id"`
}

// configErrorResponse names the model that failed launch validation.
type configErrorResponse struct {
	Error   string `json:"error"`
	ModelID string `json:"model_id,omitempty"`
}

// controlErrorResponse names the rejected transition.
type controlErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action"`
	From   string `json:"from"`
}

func (s *Server) handleLaunchSweep(w http.ResponseWriter, r *http.Request) {
	var req sweep.LaunchRequest
	// An empty body sweeps every registered model with default limits.
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Concurrency < 0 || req.ProviderConcurrency < 0 {
		s.writeError(w, http.StatusBadRequest, "concurrency must not be negative")
		return
	}
	for _, id := range req.ModelIDs {
		if id == "" {
			s.writeError(w, http.StatusBadRequest, "model_ids must not contain empty ids")
			return
		}
	}

	id, err := s.scheduler.Launch(r.Context(), req)
	var cfgErr *sweep.ConfigurationError
	if errors.As(err, &cfgErr) {
		s.writeJSON(w, http.StatusBadRequest, configErrorResponse{Error: cfgErr.Error(), ModelID: cfgErr.ModelID})
		return
	}
	if err != nil {
		s.logger.Error("launch sweep", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to launch sweep: "+err.Error())
		return
	}

	w.Header().Set("Location", "/v1/sweeps/"+id)
	s.writeJSON(w, http.StatusAccepted, launchResponse{SweepID: id})
}

func (s *Server) handleListSweeps(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scheduler.List())
}

func (s *Server) handleGetSweep(w http.ResponseWriter, r *http.Request) {
	snap, err := s.scheduler.Snapshot(chi.URLParam(r, "id"))
	if errors.Is(err, sweep.ErrUnknownSweep) {
		s.writeError(w, http.StatusNotFound, "sweep not found")
		return
	}
	if err != nil {
		s.logger.Error("get sweep", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get sweep")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// handleControl returns the handler for a pause, resume or cancel action.
func (s *Server) handleControl(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var (
			snap model.Snapshot
			err  error
		)
		switch action {
		case model.ActionPause:
			snap, err = s.scheduler.Pause(id)
		case model.ActionResume:
			snap, err = s.scheduler.Resume(id)
		case model.ActionCancel:
			snap, err = s.scheduler.Cancel(id)
		}

		var stateErr *control.StateError
		switch {
		case errors.As(err, &stateErr):
			s.writeJSON(w, http.StatusConflict, controlErrorResponse{
				Error:  stateErr.Error(),
				Action: stateErr.Action,
				From:   stateErr.From,
			})
		case errors.Is(err, sweep.ErrUnknownSweep):
			s.writeError(w, http.StatusNotFound, "sweep not found")
		case err != nil:
			s.logger.Error("sweep control", "action", action, "sweep_id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to "+action+" sweep")
		default:
			s.writeJSON(w, http.StatusOK, snap)
		}
	}
}

func (s *Server) handleListSweepRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListEvalRecords(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("list eval records", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []*model.EvalRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleStreamSweep streams snapshots as SSE "snapshot" events and ends
// with a "done" event once the sweep is terminal and fully drained.
func (s *Server) handleStreamSweep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.scheduler.Snapshot(id); err != nil {
		s.writeError(w, http.StatusNotFound, "sweep not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// A sweep that already finished yields its final snapshot and a closed
	// channel, so the loop below emits one event and exits.
	ch, unsub := s.scheduler.Publisher().Subscribe(id)
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", `{"sweep_id":"`+id+`"}`)
				if canFlush {
					flusher.Flush()
				}
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error("encode snapshot", "sweep_id", id, "error", err)
				return
			}
			if err := writeSSEEvent(w, "snapshot", string(data)); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}
