package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seantiz/frontier/internal/model"

	_ "modernc.org/sqlite"
)

const createModelsTable = `
CREATE TABLE IF NOT EXISTS models (
    id                   TEXT PRIMARY KEY,
    provider             TEXT NOT NULL,
    name                 TEXT NOT NULL,
    reasoning            INTEGER NOT NULL DEFAULT 0,
    reasoning_effort     TEXT NOT NULL DEFAULT '',
    temperature          REAL,
    max_output_tokens    INTEGER NOT NULL DEFAULT 0,
    input_cost_per_mtok  REAL NOT NULL DEFAULT 0,
    output_cost_per_mtok REAL NOT NULL DEFAULT 0,
    created_at           DATETIME NOT NULL
)`

const createEvalRecordsTable = `
CREATE TABLE IF NOT EXISTS eval_records (
    id             TEXT PRIMARY KEY,
    trace_id       TEXT NOT NULL UNIQUE,
    sweep_id       TEXT NOT NULL,
    model_id       TEXT NOT NULL,
    provider       TEXT NOT NULL,
    visibility     TEXT NOT NULL,
    status         TEXT NOT NULL,
    scenario_count INTEGER NOT NULL,
    correct        INTEGER NOT NULL,
    errors         INTEGER NOT NULL,
    accuracy       REAL NOT NULL,
    avg_latency_ms REAL NOT NULL,
    input_tokens   INTEGER NOT NULL,
    output_tokens  INTEGER NOT NULL,
    cost_usd       REAL NOT NULL,
    seed           INTEGER NOT NULL,
    suite_digest   TEXT NOT NULL,
    created_at     DATETIME NOT NULL
)`

const createEvalRecordsSweepIndex = `
CREATE INDEX IF NOT EXISTS idx_eval_records_sweep ON eval_records(sweep_id)`

const evalRecordColumns = `id, trace_id, sweep_id, model_id, provider, visibility, status,
	scenario_count, correct, errors, accuracy, avg_latency_ms,
	input_tokens, output_tokens, cost_usd, seed, suite_digest, created_at`

const modelColumns = `id, provider, name, reasoning, reasoning_effort, temperature,
	max_output_tokens, input_cost_per_mtok, output_cost_per_mtok, created_at`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createModelsTable, createEvalRecordsTable, createEvalRecordsSweepIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateModel inserts a model configuration.
func (s *SQLiteStore) CreateModel(ctx context.Context, m *model.Model) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (`+modelColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Provider, m.Name, m.Reasoning, m.ReasoningEffort, m.Temperature,
		m.MaxOutputTokens, m.InputCostPerMTok, m.OutputCostPerMTok, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("model %s: %w", m.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

func scanModel(r rowScanner) (*model.Model, error) {
	m := &model.Model{}
	err := r.Scan(
		&m.ID, &m.Provider, &m.Name, &m.Reasoning, &m.ReasoningEffort, &m.Temperature,
		&m.MaxOutputTokens, &m.InputCostPerMTok, &m.OutputCostPerMTok, &m.CreatedAt,
	)
	return m, err
}

// GetModel retrieves a model by ID.
func (s *SQLiteStore) GetModel(ctx context.Context, id string) (*model.Model, error) {
	m, err := scanModel(s.db.QueryRowContext(ctx,
		`SELECT `+modelColumns+` FROM models WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// ListModels returns all registered models ordered by provider, then id.
func (s *SQLiteStore) ListModels(ctx context.Context) ([]*model.Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models ORDER BY provider, id`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []*model.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return models, nil
}

// DeleteModel removes a model configuration. Evaluation records that
// reference it are kept.
func (s *SQLiteStore) DeleteModel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM models WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertEvalRecord appends an evaluation record. A second record with the
// same trace id is rejected with ErrConflict.
func (s *SQLiteStore) InsertEvalRecord(ctx context.Context, r *model.EvalRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO eval_records (`+evalRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TraceID, r.SweepID, r.ModelID, r.Provider, r.Visibility, r.Status,
		r.ScenarioCount, r.Correct, r.Errors, r.Accuracy, r.AvgLatencyMS,
		r.InputTokens, r.OutputTokens, r.CostUSD, r.Seed, r.SuiteDigest, r.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("eval record %s: %w", r.TraceID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert eval record: %w", err)
	}
	return nil
}

func scanEvalRecord(sc rowScanner) (*model.EvalRecord, error) {
	r := &model.EvalRecord{}
	err := sc.Scan(
		&r.ID, &r.TraceID, &r.SweepID, &r.ModelID, &r.Provider, &r.Visibility, &r.Status,
		&r.ScenarioCount, &r.Correct, &r.Errors, &r.Accuracy, &r.AvgLatencyMS,
		&r.InputTokens, &r.OutputTokens, &r.CostUSD, &r.Seed, &r.SuiteDigest, &r.CreatedAt,
	)
	return r, err
}

// GetEvalRecord retrieves an evaluation record by trace id.
func (s *SQLiteStore) GetEvalRecord(ctx context.Context, traceID string) (*model.EvalRecord, error) {
	r, err := scanEvalRecord(s.db.QueryRowContext(ctx,
		`SELECT `+evalRecordColumns+` FROM eval_records WHERE trace_id = ?`, traceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get eval record: %w", err)
	}
	return r, nil
}

// ListEvalRecords returns the records written for one sweep ordered by model id.
func (s *SQLiteStore) ListEvalRecords(ctx context.Context, sweepID string) ([]*model.EvalRecord, error) {
	return s.queryEvalRecords(ctx,
		`SELECT `+evalRecordColumns+` FROM eval_records WHERE sweep_id = ? ORDER BY model_id`, sweepID)
}

func (s *SQLiteStore) queryEvalRecords(ctx context.Context, query string, args ...any) ([]*model.EvalRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eval records: %w", err)
	}
	defer rows.Close()

	var records []*model.EvalRecord
	for rows.Next() {
		r, err := scanEvalRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eval record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eval records: %w", err)
	}
	return records, nil
}

// Leaderboard aggregates public evaluation records per model, best accuracy first.
func (s *SQLiteStore) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	records, err := s.queryEvalRecords(ctx,
		`SELECT `+evalRecordColumns+` FROM eval_records
		WHERE visibility = ? ORDER BY created_at, id`, model.VisibilityPublic)
	if err != nil {
		return nil, err
	}

	byModel := make(map[string]*LeaderboardEntry)
	latencySum := make(map[string]float64)
	for _, r := range records {
		e, ok := byModel[r.ModelID]
		if !ok {
			e = &LeaderboardEntry{ModelID: r.ModelID}
			byModel[r.ModelID] = e
		}
		e.Runs++
		e.Provider = r.Provider
		e.BestAccuracy = max(e.BestAccuracy, r.Accuracy)
		e.LatestAccuracy = r.Accuracy
		e.TotalCostUSD += r.CostUSD
		e.LatestSweepID = r.SweepID
		e.LatestAt = r.CreatedAt
		latencySum[r.ModelID] += r.AvgLatencyMS
	}

	entries := make([]LeaderboardEntry, 0, len(byModel))
	for id, e := range byModel {
		e.MeanLatencyMS = latencySum[id] / float64(e.Runs)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BestAccuracy != entries[j].BestAccuracy {
			return entries[i].BestAccuracy > entries[j].BestAccuracy
		}
		return entries[i].ModelID < entries[j].ModelID
	})
	return entries, nil
}
