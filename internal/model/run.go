package model

import "time"

// Model run status constants.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ScenarioResult is the outcome of one scenario call for one model.
type ScenarioResult struct {
	ScenarioID   string
	Correct      bool
	LatencyMS    int64
	InputTokens  int
	OutputTokens int
	// Err is set when the scenario could not be answered after retries.
	Err error
}

// ModelRun holds the running tallies of one model within a sweep.
type ModelRun struct {
	ModelID      string     `json:"model_id"`
	Provider     string     `json:"provider"`
	Status       string     `json:"status"`
	Correct      int        `json:"correct"`
	Total        int        `json:"total"`
	Errors       int        `json:"errors"`
	LatencyMS    int64      `json:"latency_ms"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	Error        string     `json:"error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Record folds a scenario outcome into the run's tallies.
func (r *ModelRun) Record(res ScenarioResult) {
	r.Total++
	if res.Err != nil {
		r.Errors++
		return
	}
	if res.Correct {
		r.Correct++
	}
	r.LatencyMS += res.LatencyMS
	r.InputTokens += res.InputTokens
	r.OutputTokens += res.OutputTokens
}

// Accuracy is the fraction of scenario outcomes answered correctly, in [0,1].
func (r *ModelRun) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// AvgLatencyMS is the mean latency over scenarios that produced an answer.
func (r *ModelRun) AvgLatencyMS() float64 {
	answered := r.Total - r.Errors
	if answered <= 0 {
		return 0
	}
	return float64(r.LatencyMS) / float64(answered)
}

// Terminal reports whether the run has completed or failed.
func (r *ModelRun) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}
