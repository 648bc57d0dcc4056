package model

import "time"

// Snapshot is an immutable point-in-time view of a sweep's progress.
// Values are never mutated after publication; Models is a fresh slice per snapshot.
type Snapshot struct {
	SweepID       string          `json:"sweep_id"`
	Total         int             `json:"total"`
	Completed     int             `json:"completed"`
	Failed        int             `json:"failed"`
	Pending       int             `json:"pending"`
	Running       int             `json:"running"`
	ControlStatus string          `json:"control_status"`
	Seed          int64           `json:"seed"`
	SuiteDigest   string          `json:"suite_digest"`
	Models        []ModelProgress `json:"models"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ModelProgress is the per-model part of a Snapshot.
type ModelProgress struct {
	ModelID       string  `json:"model_id"`
	Provider      string  `json:"provider"`
	Status        string  `json:"status"`
	Accuracy      float64 `json:"accuracy"`
	ScenariosDone int     `json:"scenarios_done"`
	Correct       int     `json:"correct"`
	Errors        int     `json:"errors"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	Error         string  `json:"error,omitempty"`
}

// Terminal reports whether the snapshot describes a sweep that will publish no further state.
func (s Snapshot) Terminal() bool {
	return IsTerminal(s.ControlStatus)
}
