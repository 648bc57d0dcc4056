package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/frontier/internal/control"
	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/progress"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/retry"
	"github.com/seantiz/frontier/internal/scenario"
	"github.com/seantiz/frontier/internal/store"
)

// Default concurrency caps.
const (
	DefaultGlobalConcurrency   = 3
	DefaultProviderConcurrency = 1
)

// ErrUnknownSweep is returned for sweep ids this process has not launched.
var ErrUnknownSweep = control.ErrUnknownSweep

// Resolver checks that a provider can be called.
type Resolver interface {
	Resolve(name string) (provider.Adapter, provider.Provider, error)
}

// Caller performs one scenario call against a model.
type Caller interface {
	Complete(ctx context.Context, m model.Model, prompt string) (provider.Response, error)
}

// Options wires a Scheduler. Models, Providers, Caller, Loader, Writer and
// Logger are required.
type Options struct {
	Models    store.ModelRegistry
	Providers Resolver
	Caller    Caller
	Loader    *scenario.Loader
	Writer    *ResultWriter
	Publisher *progress.Publisher
	Control   *control.Store
	Logger    *slog.Logger

	GlobalConcurrency   int
	ProviderConcurrency int
	Seed                int64
	// ScenarioCount defaults to scenario.SuiteSize.
	ScenarioCount int
	// Retry defaults to retry.DefaultPolicy when zero.
	Retry        retry.Policy
	RetryOptions []retry.Option
	// Scorer defaults to scenario.Score.
	Scorer scenario.Scorer
}

// LaunchRequest selects the models and limits of a new sweep. Zero values
// take the scheduler defaults; an empty ModelIDs sweeps every registered model.
type LaunchRequest struct {
	ModelIDs            []string `json:"model_ids,omitempty"`
	Concurrency         int      `json:"concurrency,omitempty"`
	ProviderConcurrency int      `json:"provider_concurrency,omitempty"`
	Seed                *int64   `json:"seed,omitempty"`
}

// Scheduler orchestrates sweeps. It is safe for concurrent use.
type Scheduler struct {
	opts      Options
	models    store.ModelRegistry
	providers Resolver
	caller    Caller
	loader    *scenario.Loader
	writer    *ResultWriter
	publisher *progress.Publisher
	control   *control.Store
	logger    *slog.Logger
	scorer    scenario.Scorer

	// ctx bounds provider calls. It is cancelled only by Shutdown, never by
	// a sweep cancel, so in-flight calls run to completion.
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	sweeps map[string]*sweepState
}

// NewScheduler creates a scheduler.
func NewScheduler(o Options) *Scheduler {
	if o.GlobalConcurrency <= 0 {
		o.GlobalConcurrency = DefaultGlobalConcurrency
	}
	if o.ProviderConcurrency <= 0 {
		o.ProviderConcurrency = DefaultProviderConcurrency
	}
	if o.ScenarioCount <= 0 {
		o.ScenarioCount = scenario.SuiteSize
	}
	if o.Scorer == nil {
		o.Scorer = scenario.Score
	}
	if o.Retry == (retry.Policy{}) {
		o.Retry = retry.DefaultPolicy()
	}
	if o.Publisher == nil {
		o.Publisher = progress.NewPublisher(o.Logger)
	}
	if o.Control == nil {
		o.Control = control.NewStore()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		opts:      o,
		models:    o.Models,
		providers: o.Providers,
		caller:    o.Caller,
		loader:    o.Loader,
		writer:    o.Writer,
		publisher: o.Publisher,
		control:   o.Control,
		logger:    o.Logger,
		scorer:    o.Scorer,
		ctx:       ctx,
		stop:      stop,
		sweeps:    make(map[string]*sweepState),
	}
}

// Publisher returns the scheduler's progress publisher for push subscriptions.
func (s *Scheduler) Publisher() *progress.Publisher {
	return s.publisher
}

// Launch validates the request, loads the scenario set and starts the sweep
// in the background. Validation failures return *ConfigurationError and
// create nothing.
func (s *Scheduler) Launch(ctx context.Context, req LaunchRequest) (string, error) {
	models, err := s.resolveModels(ctx, req.ModelIDs)
	if err != nil {
		return "", err
	}
	for _, m := range models {
		if _, _, err := s.providers.Resolve(m.Provider); err != nil {
			return "", &ConfigurationError{ModelID: m.ID, Reason: err.Error(), Err: err}
		}
	}

	seed := s.opts.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	set, err := s.loader.Load(seed, s.opts.ScenarioCount)
	if err != nil {
		return "", fmt.Errorf("load scenario set: %w", err)
	}

	job := model.SweepJob{
		ID:                  model.NewID(),
		ModelIDs:            make([]string, len(models)),
		GlobalConcurrency:   positiveOr(req.Concurrency, s.opts.GlobalConcurrency),
		ProviderConcurrency: positiveOr(req.ProviderConcurrency, s.opts.ProviderConcurrency),
		Seed:                seed,
		ScenarioCount:       set.Len(),
		Status:              model.SweepPending,
		CreatedAt:           time.Now().UTC(),
	}
	for i, m := range models {
		job.ModelIDs[i] = m.ID
	}

	sw := newSweepState(job, models, set)
	if err := s.control.Create(job.ID); err != nil {
		return "", fmt.Errorf("register sweep: %w", err)
	}
	s.mu.Lock()
	s.sweeps[job.ID] = sw
	s.mu.Unlock()

	s.publish(sw)
	if err := s.control.Start(job.ID); err != nil {
		return "", fmt.Errorf("start sweep: %w", err)
	}
	s.publish(sw)

	s.logger.Info("sweep launched",
		"sweep_id", job.ID,
		"models", len(models),
		"scenarios", set.Len(),
		"seed", seed,
		"global_concurrency", job.GlobalConcurrency,
		"provider_concurrency", job.ProviderConcurrency,
	)

	s.wg.Go(func() {
		s.run(sw)
	})
	return job.ID, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// resolveModels looks up the requested models, or every registered model
// when ids is empty.
func (s *Scheduler) resolveModels(ctx context.Context, ids []string) ([]model.Model, error) {
	if len(ids) == 0 {
		all, err := s.models.ListModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		if len(all) == 0 {
			return nil, &ConfigurationError{Reason: "no models are registered"}
		}
		out := make([]model.Model, len(all))
		for i, m := range all {
			out[i] = *m
		}
		return out, nil
	}

	seen := make(map[string]bool, len(ids))
	out := make([]model.Model, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, &ConfigurationError{ModelID: id, Reason: "model is listed more than once"}
		}
		seen[id] = true

		m, err := s.models.GetModel(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ConfigurationError{ModelID: id, Reason: "model is not registered", Err: err}
		}
		if err != nil {
			return nil, fmt.Errorf("get model %s: %w", id, err)
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *Scheduler) lookup(sweepID string) (*sweepState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.sweeps[sweepID]
	if !ok {
		return nil, ErrUnknownSweep
	}
	return sw, nil
}

// Pause asks every worker of the sweep to stop before its next scenario.
func (s *Scheduler) Pause(sweepID string) (model.Snapshot, error) {
	return s.request(sweepID, model.ActionPause)
}

// Resume lets a paused sweep continue.
func (s *Scheduler) Resume(sweepID string) (model.Snapshot, error) {
	return s.request(sweepID, model.ActionResume)
}

// Cancel stops the sweep: no new model or scenario starts afterwards.
func (s *Scheduler) Cancel(sweepID string) (model.Snapshot, error) {
	return s.request(sweepID, model.ActionCancel)
}

func (s *Scheduler) request(sweepID, action string) (model.Snapshot, error) {
	sw, err := s.lookup(sweepID)
	if err != nil {
		return model.Snapshot{}, err
	}
	if _, err := s.control.Request(sweepID, action); err != nil {
		return model.Snapshot{}, err
	}
	s.logger.Info("sweep control", "sweep_id", sweepID, "action", action)
	return s.publish(sw), nil
}

// Snapshot returns the latest published snapshot of a sweep.
func (s *Scheduler) Snapshot(sweepID string) (model.Snapshot, error) {
	snap, ok := s.publisher.Latest(sweepID)
	if !ok {
		return model.Snapshot{}, ErrUnknownSweep
	}
	return snap, nil
}

// List returns the latest snapshot of every sweep, newest first.
func (s *Scheduler) List() []model.Snapshot {
	return s.publisher.List()
}

// Job returns a copy of the sweep's job description with its current status.
func (s *Scheduler) Job(sweepID string) (model.SweepJob, error) {
	sw, err := s.lookup(sweepID)
	if err != nil {
		return model.SweepJob{}, err
	}
	st, err := s.control.Read(sweepID)
	if err != nil {
		return model.SweepJob{}, err
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	job := sw.job
	job.ModelIDs = append([]string(nil), sw.job.ModelIDs...)
	job.Status = st.Status
	return job, nil
}

// Wait blocks until every launched sweep has reached a terminal state.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Shutdown aborts in-flight provider calls and waits for sweeps to wind
// down or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish builds a snapshot of the sweep and hands it to the publisher.
// pubMu keeps snapshots of one sweep in build order.
func (s *Scheduler) publish(sw *sweepState) model.Snapshot {
	sw.pubMu.Lock()
	defer sw.pubMu.Unlock()

	status := model.SweepPending
	if st, err := s.control.Read(sw.job.ID); err == nil {
		status = st.Status
	}
	snap := sw.snapshot(status)
	s.publisher.Publish(snap)
	return snap
}
