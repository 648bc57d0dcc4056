package store

import (
	"context"
	"errors"
	"time"

	"github.com/seantiz/frontier/internal/model"
)

var (
	// ErrNotFound is returned when a model or evaluation record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a row with the same identity already exists.
	ErrConflict = errors.New("already exists")
)

// LeaderboardEntry aggregates every public evaluation record of one model.
type LeaderboardEntry struct {
	ModelID        string    `json:"model_id"`
	Provider       string    `json:"provider"`
	Runs           int       `json:"runs"`
	BestAccuracy   float64   `json:"best_accuracy"`
	LatestAccuracy float64   `json:"latest_accuracy"`
	MeanLatencyMS  float64   `json:"mean_latency_ms"`
	TotalCostUSD   float64   `json:"total_cost_usd"`
	LatestSweepID  string    `json:"latest_sweep_id"`
	LatestAt       time.Time `json:"latest_at"`
}

// ModelRegistry stores provider+model configurations.
type ModelRegistry interface {
	CreateModel(ctx context.Context, m *model.Model) error
	GetModel(ctx context.Context, id string) (*model.Model, error)
	ListModels(ctx context.Context) ([]*model.Model, error)
	DeleteModel(ctx context.Context, id string) error
}

// EvalStore persists evaluation records. Records are append-only.
type EvalStore interface {
	InsertEvalRecord(ctx context.Context, r *model.EvalRecord) error
	GetEvalRecord(ctx context.Context, traceID string) (*model.EvalRecord, error)
	ListEvalRecords(ctx context.Context, sweepID string) ([]*model.EvalRecord, error)
	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	ModelRegistry
	EvalStore
	Close() error
}
