package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/store"
)

// Invalidator drops a downstream aggregate cache.
type Invalidator interface {
	Invalidate()
}

// ResultWriter persists completed model runs and invalidates the leaderboard
// cache once per terminal sweep.
type ResultWriter struct {
	store  store.EvalStore
	cache  Invalidator
	logger *slog.Logger

	mu   sync.Mutex
	done map[string]bool
}

// NewResultWriter creates a writer. cache may be nil.
func NewResultWriter(s store.EvalStore, cache Invalidator, logger *slog.Logger) *ResultWriter {
	return &ResultWriter{
		store:  s,
		cache:  cache,
		logger: logger,
		done:   make(map[string]bool),
	}
}

// WriteRun stores the evaluation record of a completed model run.
func (w *ResultWriter) WriteRun(ctx context.Context, job *model.SweepJob, m *model.Model, run *model.ModelRun, suiteDigest string) (*model.EvalRecord, error) {
	rec := &model.EvalRecord{
		ID:            model.NewRecordID(),
		TraceID:       model.TraceID(job.ID, m.ID),
		SweepID:       job.ID,
		ModelID:       m.ID,
		Provider:      m.Provider,
		Visibility:    model.VisibilityPublic,
		Status:        run.Status,
		ScenarioCount: run.Total,
		Correct:       run.Correct,
		Errors:        run.Errors,
		Accuracy:      run.Accuracy(),
		AvgLatencyMS:  run.AvgLatencyMS(),
		InputTokens:   run.InputTokens,
		OutputTokens:  run.OutputTokens,
		CostUSD:       m.Cost(run.InputTokens, run.OutputTokens),
		Seed:          job.Seed,
		SuiteDigest:   suiteDigest,
		CreatedAt:     time.Now().UTC(),
	}
	if err := w.store.InsertEvalRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("write eval record %s: %w", rec.TraceID, err)
	}
	w.logger.Info("eval record written",
		"trace_id", rec.TraceID,
		"accuracy", rec.Accuracy,
		"cost_usd", rec.CostUSD,
	)
	return rec, nil
}

// SweepDone invalidates the cache for a sweep that reached a terminal state.
// Repeated calls for the same sweep are no-ops.
func (w *ResultWriter) SweepDone(sweepID string) {
	w.mu.Lock()
	if w.done[sweepID] {
		w.mu.Unlock()
		return
	}
	w.done[sweepID] = true
	w.mu.Unlock()

	if w.cache != nil {
		w.cache.Invalidate()
	}
	w.logger.Info("leaderboard cache invalidated", "sweep_id", sweepID)
}
