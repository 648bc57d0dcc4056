package model

import "time"

// Sweep status constants.
const (
	SweepPending   = "pending"
	SweepRunning   = "running"
	SweepPaused    = "paused"
	SweepCancelled = "cancelled"
	SweepFinished  = "finished"
)

// Control actions an operator may request against a sweep.
const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionCancel = "cancel"
)

// validTransitions maps each sweep status to the set of statuses it may transition to.
// pending, cancelled and finished accept no operator action.
var validTransitions = map[string]map[string]bool{
	SweepPending: {
		SweepRunning: true,
	},
	SweepRunning: {
		SweepPaused:    true,
		SweepCancelled: true,
		SweepFinished:  true,
	},
	SweepPaused: {
		SweepRunning:   true,
		SweepCancelled: true,
	},
}

// actionTargets maps a control action to the status it moves a sweep to.
var actionTargets = map[string]string{
	ActionPause:  SweepPaused,
	ActionResume: SweepRunning,
	ActionCancel: SweepCancelled,
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// ActionTarget returns the sweep status a control action leads to.
func ActionTarget(action string) (string, bool) {
	to, ok := actionTargets[action]
	return to, ok
}

// IsTerminal reports whether a sweep status is final.
func IsTerminal(status string) bool {
	return status == SweepCancelled || status == SweepFinished
}

// SweepJob is one orchestrated benchmark run across a set of registered models.
type SweepJob struct {
	ID                  string     `json:"id"`
	ModelIDs            []string   `json:"model_ids"`
	GlobalConcurrency   int        `json:"global_concurrency"`
	ProviderConcurrency int        `json:"provider_concurrency"`
	Seed                int64      `json:"seed"`
	ScenarioCount       int        `json:"scenario_count"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
}
