// Package control holds the ephemeral pause/cancel intent of each sweep.
//
// A Store is the only state written concurrently by operators and sweep
// workers. Every read and write of one sweep's record happens under a single
// mutex, so a worker's boundary check never observes a half-applied request.
// Records live in process memory and are lost on restart.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/seantiz/frontier/internal/model"
)

// ErrUnknownSweep is returned for sweep ids the store has never seen.
var ErrUnknownSweep = errors.New("unknown sweep")

// StateError rejects a control action that is invalid for the sweep's
// current status. The state is left unchanged.
type StateError struct {
	SweepID string
	Action  string
	From    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s sweep %s: sweep is %s", e.Action, e.SweepID, e.From)
}

// State is a consistent read of one sweep's control record.
type State struct {
	Status          string `json:"status"`
	PauseRequested  bool   `json:"pause_requested"`
	CancelRequested bool   `json:"cancel_requested"`
}

type record struct {
	state State
	// changed is closed and replaced on every mutation so waiters wake up.
	changed chan struct{}
}

func (r *record) set(status string) {
	r.state.Status = status
	close(r.changed)
	r.changed = make(chan struct{})
}

// Store is a mutex-guarded map of per-sweep control records.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewStore creates an empty control store.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Create registers a sweep in the pending state.
func (s *Store) Create(sweepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[sweepID]; ok {
		return fmt.Errorf("sweep %s already registered", sweepID)
	}
	s.records[sweepID] = &record{
		state:   State{Status: model.SweepPending},
		changed: make(chan struct{}),
	}
	return nil
}

// Read returns the sweep's current control state.
func (s *Store) Read(sweepID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[sweepID]
	if !ok {
		return State{}, ErrUnknownSweep
	}
	return r.state, nil
}

// Request applies an operator action (pause, resume or cancel) and returns
// the resulting state. Actions that the current status does not allow fail
// with *StateError.
func (s *Store) Request(sweepID, action string) (State, error) {
	to, ok := model.ActionTarget(action)
	if !ok {
		return State{}, fmt.Errorf("unknown control action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[sweepID]
	if !ok {
		return State{}, ErrUnknownSweep
	}
	if !model.ValidTransition(r.state.Status, to) {
		return r.state, &StateError{SweepID: sweepID, Action: action, From: r.state.Status}
	}

	switch action {
	case model.ActionPause:
		r.state.PauseRequested = true
	case model.ActionResume:
		r.state.PauseRequested = false
	case model.ActionCancel:
		r.state.CancelRequested = true
		r.state.PauseRequested = false
	}
	r.set(to)
	return r.state, nil
}

// Start moves a pending sweep to running.
func (s *Store) Start(sweepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[sweepID]
	if !ok {
		return ErrUnknownSweep
	}
	if r.state.Status != model.SweepPending {
		return fmt.Errorf("start sweep %s: sweep is %s", sweepID, r.state.Status)
	}
	r.set(model.SweepRunning)
	return nil
}

// Complete marks a sweep whose model runs have all reached a terminal state.
// A cancelled sweep stays cancelled; otherwise the sweep becomes finished,
// including one that was paused after its last scenario. The final status is
// returned.
func (s *Store) Complete(sweepID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[sweepID]
	if !ok {
		return "", ErrUnknownSweep
	}
	if model.IsTerminal(r.state.Status) {
		return r.state.Status, nil
	}
	r.state.PauseRequested = false
	r.set(model.SweepFinished)
	return r.state.Status, nil
}

// Cancelled reports whether cancel has been requested for the sweep.
func (s *Store) Cancelled(sweepID string) bool {
	st, err := s.Read(sweepID)
	return err == nil && st.CancelRequested
}

// Await blocks while the sweep is paused. It returns true when the sweep has
// been cancelled and false when work may proceed. Workers call it at every
// scenario boundary.
func (s *Store) Await(ctx context.Context, sweepID string) (bool, error) {
	for {
		s.mu.Lock()
		r, ok := s.records[sweepID]
		if !ok {
			s.mu.Unlock()
			return false, ErrUnknownSweep
		}
		if r.state.CancelRequested {
			s.mu.Unlock()
			return true, nil
		}
		if !r.state.PauseRequested {
			s.mu.Unlock()
			return false, nil
		}
		changed := r.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// CancelContext returns a context derived from parent that is also cancelled
// once cancel is requested for the sweep. Call the returned CancelFunc when
// done to release its watcher.
func (s *Store) CancelContext(parent context.Context, sweepID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		for {
			s.mu.Lock()
			r, ok := s.records[sweepID]
			if !ok || r.state.CancelRequested {
				s.mu.Unlock()
				cancel()
				return
			}
			changed := r.changed
			s.mu.Unlock()

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ctx, cancel
}
