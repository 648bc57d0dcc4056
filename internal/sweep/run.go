package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/retry"
)

// errCancelled is recorded on a model run interrupted by a sweep cancel.
const errCancelled = "sweep cancelled"

var errRetryCancelled = errors.New(errCancelled)

// lane queues the models of one provider behind that provider's slots.
type lane struct {
	provider string
	queue    []int
	slots    *semaphore.Weighted
}

// lanes groups model indexes by provider in order of first appearance.
func lanes(models []model.Model, perProvider int) []*lane {
	var out []*lane
	byName := make(map[string]*lane)
	for i, m := range models {
		l, ok := byName[m.Provider]
		if !ok {
			l = &lane{provider: m.Provider, slots: semaphore.NewWeighted(int64(perProvider))}
			byName[m.Provider] = l
			out = append(out, l)
		}
		l.queue = append(l.queue, i)
	}
	return out
}

// run dispatches the sweep's models and finalizes the sweep once every
// dispatched run is terminal.
//
// Dispatch is round-robin across providers: each free global slot goes to
// the next provider (after the last one served) that has queued models and a
// free provider slot, so one provider's backlog cannot starve the others.
func (s *Scheduler) run(sw *sweepState) {
	id := sw.job.ID
	defer s.publisher.Close(id)

	global := semaphore.NewWeighted(int64(sw.job.GlobalConcurrency))
	ls := lanes(sw.models, sw.job.ProviderConcurrency)
	freed := make(chan struct{}, len(sw.models))
	remaining := len(sw.models)
	next := 0

	var workers sync.WaitGroup
dispatch:
	for remaining > 0 {
		if cancelled, err := s.control.Await(s.ctx, id); cancelled || err != nil {
			break
		}
		if err := global.Acquire(s.ctx, 1); err != nil {
			break
		}

		var picked *lane
		for k := range ls {
			l := ls[(next+k)%len(ls)]
			if len(l.queue) > 0 && l.slots.TryAcquire(1) {
				picked = l
				next = (next + k + 1) % len(ls)
				break
			}
		}
		if picked == nil {
			global.Release(1)
			select {
			case <-freed:
				continue
			case <-s.ctx.Done():
				break dispatch
			}
		}

		// A cancel that landed while waiting for slots must still keep
		// the model from starting.
		if s.control.Cancelled(id) {
			picked.slots.Release(1)
			global.Release(1)
			break
		}

		idx := picked.queue[0]
		picked.queue = picked.queue[1:]
		remaining--

		workers.Go(func() {
			defer func() {
				picked.slots.Release(1)
				global.Release(1)
				freed <- struct{}{}
			}()
			s.runModel(sw, idx)
		})
	}
	workers.Wait()

	s.finish(sw)
}

// finish marks the sweep terminal, publishes the final snapshot and
// invalidates downstream caches once.
func (s *Scheduler) finish(sw *sweepState) {
	id := sw.job.ID
	final, err := s.control.Complete(id)
	if err != nil {
		s.logger.Error("failed to complete sweep", "sweep_id", id, "error", err)
		final = model.SweepFinished
	}

	now := time.Now().UTC()
	sw.mu.Lock()
	sw.job.Status = final
	sw.job.FinishedAt = &now
	sw.mu.Unlock()

	snap := s.publish(sw)
	s.writer.SweepDone(id)
	sweepsTotal.WithLabelValues(final).Inc()

	s.logger.Info("sweep finished",
		"sweep_id", id,
		"status", final,
		"completed", snap.Completed,
		"failed", snap.Failed,
		"pending", snap.Pending,
	)
}

// runModel drives one model through the scenario set.
func (s *Scheduler) runModel(sw *sweepState, idx int) {
	id := sw.job.ID
	m := sw.models[idx]
	logger := s.logger.With("sweep_id", id, "model_id", m.ID, "provider", m.Provider)

	activeModelRuns.WithLabelValues(m.Provider).Inc()
	defer activeModelRuns.WithLabelValues(m.Provider).Dec()

	start := time.Now().UTC()
	sw.update(idx, func(r *model.ModelRun) {
		r.Status = model.RunRunning
		r.StartedAt = &start
	})
	s.publish(sw)
	logger.Info("model run started")

	retryOpts := append(slices.Clone(s.opts.RetryOptions),
		retry.WithObserver(func(attempt int, delay time.Duration, perr *provider.Error) {
			providerRetriesTotal.WithLabelValues(m.Provider, string(perr.Class)).Inc()
			logger.Warn("retrying provider call", "attempt", attempt, "delay", delay.String(), "error", perr)
		}))
	retrier := retry.New(s.opts.Retry, retryOpts...)

	// Backoff sleeps end on cancel; provider calls run on the scheduler
	// context so an in-flight call is never abandoned.
	backoffCtx, stopBackoff := s.control.CancelContext(s.ctx, id)
	defer stopBackoff()

	for _, sc := range sw.set.Scenarios {
		cancelled, err := s.control.Await(s.ctx, id)
		if err != nil {
			s.failModel(sw, idx, fmt.Sprintf("sweep interrupted: %v", err))
			return
		}
		if cancelled {
			s.failModel(sw, idx, errCancelled)
			return
		}

		attempts := 0
		resp, err := retrier.Execute(backoffCtx, func(ctx context.Context) (provider.Response, error) {
			attempts++
			if attempts > 1 {
				// Retries honour pause and cancel like scenario boundaries.
				cancelled, err := s.control.Await(ctx, id)
				if err != nil {
					return provider.Response{}, err
				}
				if cancelled {
					return provider.Response{}, errRetryCancelled
				}
			}
			return s.caller.Complete(s.ctx, m, sc.Prompt)
		})
		if errors.Is(err, errRetryCancelled) || (errors.Is(err, context.Canceled) && s.control.Cancelled(id)) {
			logger.Info("model run cancelled during retry", "scenario_id", sc.ID)
			s.failModel(sw, idx, errCancelled)
			return
		}

		res := model.ScenarioResult{ScenarioID: sc.ID}
		var exhausted *retry.ExhaustedError
		switch {
		case err == nil:
			res.Correct = s.scorer(sc, resp.Answer)
			res.LatencyMS = resp.Latency.Milliseconds()
			res.InputTokens = resp.Usage.InputTokens
			res.OutputTokens = resp.Usage.OutputTokens
			scenarioLatency.WithLabelValues(m.Provider).Observe(resp.Latency.Seconds())
			if res.Correct {
				scenarioCallsTotal.WithLabelValues(m.Provider, outcomeCorrect).Inc()
			} else {
				scenarioCallsTotal.WithLabelValues(m.Provider, outcomeIncorrect).Inc()
			}
		case errors.As(err, &exhausted):
			res.Err = err
			scenarioCallsTotal.WithLabelValues(m.Provider, outcomeError).Inc()
			logger.Warn("scenario failed after retries", "scenario_id", sc.ID, "reason", exhausted.Reason)
		default:
			scenarioCallsTotal.WithLabelValues(m.Provider, outcomeTerminal).Inc()
			logger.Error("model run failed", "scenario_id", sc.ID, "error", err)
			s.failModel(sw, idx, err.Error())
			return
		}

		sw.update(idx, func(r *model.ModelRun) {
			r.Record(res)
		})
		s.publish(sw)
	}

	s.completeModel(sw, idx, logger)
}

func (s *Scheduler) completeModel(sw *sweepState, idx int, logger *slog.Logger) {
	now := time.Now().UTC()
	sw.update(idx, func(r *model.ModelRun) {
		r.Status = model.RunCompleted
		r.FinishedAt = &now
	})
	run := sw.run(idx)

	// Only full-suite runs are persisted.
	if run.Total == sw.job.ScenarioCount {
		if _, err := s.writer.WriteRun(s.ctx, &sw.job, &sw.models[idx], &run, sw.set.Digest); err != nil {
			logger.Error("failed to persist model run", "error", err)
		}
	}
	s.publish(sw)
	logger.Info("model run completed", "accuracy", run.Accuracy(), "errors", run.Errors)
}

func (s *Scheduler) failModel(sw *sweepState, idx int, msg string) {
	now := time.Now().UTC()
	sw.update(idx, func(r *model.ModelRun) {
		r.Status = model.RunFailed
		r.Error = msg
		r.FinishedAt = &now
	})
	s.publish(sw)
}
