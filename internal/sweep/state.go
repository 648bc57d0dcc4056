package sweep

import (
	"sync"
	"time"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/scenario"
)

// sweepState is the scheduler's mutable view of one sweep. runs[i] belongs
// to models[i] and is written only by that model's worker, under mu.
type sweepState struct {
	job    model.SweepJob
	models []model.Model
	set    *scenario.Set

	mu        sync.Mutex
	runs      []*model.ModelRun
	updatedAt time.Time

	pubMu sync.Mutex
}

func newSweepState(job model.SweepJob, models []model.Model, set *scenario.Set) *sweepState {
	runs := make([]*model.ModelRun, len(models))
	for i, m := range models {
		runs[i] = &model.ModelRun{ModelID: m.ID, Provider: m.Provider, Status: model.RunPending}
	}
	return &sweepState{
		job:       job,
		models:    models,
		set:       set,
		runs:      runs,
		updatedAt: job.CreatedAt,
	}
}

// update applies fn to run i under the sweep lock.
func (sw *sweepState) update(i int, fn func(r *model.ModelRun)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	fn(sw.runs[i])
	sw.updatedAt = time.Now().UTC()
}

// run returns a copy of run i.
func (sw *sweepState) run(i int) model.ModelRun {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return *sw.runs[i]
}

// snapshot builds an immutable view of the sweep.
func (sw *sweepState) snapshot(controlStatus string) model.Snapshot {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	snap := model.Snapshot{
		SweepID:       sw.job.ID,
		Total:         len(sw.runs),
		ControlStatus: controlStatus,
		Seed:          sw.job.Seed,
		SuiteDigest:   sw.set.Digest,
		Models:        make([]model.ModelProgress, len(sw.runs)),
		CreatedAt:     sw.job.CreatedAt,
		UpdatedAt:     sw.updatedAt,
	}
	for i, r := range sw.runs {
		switch r.Status {
		case model.RunCompleted:
			snap.Completed++
		case model.RunFailed:
			snap.Failed++
		case model.RunRunning:
			snap.Running++
		default:
			snap.Pending++
		}
		snap.Models[i] = model.ModelProgress{
			ModelID:       r.ModelID,
			Provider:      r.Provider,
			Status:        r.Status,
			Accuracy:      r.Accuracy(),
			ScenariosDone: r.Total,
			Correct:       r.Correct,
			Errors:        r.Errors,
			AvgLatencyMS:  r.AvgLatencyMS(),
			Error:         r.Error,
		}
	}
	return snap
}
