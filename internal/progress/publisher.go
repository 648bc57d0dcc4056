package progress

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/seantiz/frontier/internal/model"
)

// Sink receives a copy of every published snapshot.
type Sink interface {
	Publish(snap model.Snapshot) error
}

// Publisher fans snapshots out to per-sweep subscribers. It is safe for
// concurrent use; callers serialize Publish calls for one sweep.
//
// Closed topics are kept with their final snapshot so late subscribers and
// pull reads still see the terminal state.
type Publisher struct {
	mu      sync.Mutex
	topics  map[string]*topic
	mirrors []*mirror
	logger  *slog.Logger
	wg      sync.WaitGroup
	stopped bool
}

// mirror feeds one sink from its own goroutine. Pending holds the newest
// unsent snapshot per sweep, so a slow sink sees fewer intermediate states
// but always the last one.
type mirror struct {
	sink    Sink
	mu      sync.Mutex
	pending map[string]model.Snapshot
	order   []string
	wake    chan struct{}
	done    chan struct{}
}

type topic struct {
	latest model.Snapshot
	has    bool
	subs   map[int]chan model.Snapshot
	nextID int
	closed bool
}

// NewPublisher creates a publisher that mirrors snapshots to sinks. Each sink
// runs on its own goroutine until Stop.
func NewPublisher(logger *slog.Logger, sinks ...Sink) *Publisher {
	p := &Publisher{
		topics: make(map[string]*topic),
		logger: logger,
	}
	for _, s := range sinks {
		m := &mirror{
			sink:    s,
			pending: make(map[string]model.Snapshot),
			wake:    make(chan struct{}, 1),
			done:    make(chan struct{}),
		}
		p.mirrors = append(p.mirrors, m)
		p.wg.Go(func() { p.drain(m) })
	}
	return p
}

// Stop flushes pending snapshots to the sinks and waits for their goroutines
// to exit. Later snapshots are no longer mirrored.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, m := range p.mirrors {
		close(m.done)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (m *mirror) offer(snap model.Snapshot) {
	m.mu.Lock()
	if _, ok := m.pending[snap.SweepID]; !ok {
		m.order = append(m.order, snap.SweepID)
	}
	m.pending[snap.SweepID] = snap
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mirror) take() []model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Snapshot, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.pending[id])
	}
	clear(m.pending)
	m.order = m.order[:0]
	return out
}

func (p *Publisher) drain(m *mirror) {
	send := func() {
		for _, snap := range m.take() {
			if err := m.sink.Publish(snap); err != nil {
				p.logger.Warn("snapshot sink failed", "sweep_id", snap.SweepID, "error", err)
			}
		}
	}
	for {
		select {
		case <-m.wake:
			send()
		case <-m.done:
			send()
			return
		}
	}
}

func (p *Publisher) topicLocked(sweepID string) *topic {
	t, ok := p.topics[sweepID]
	if !ok {
		t = &topic{subs: make(map[int]chan model.Snapshot)}
		p.topics[sweepID] = t
	}
	return t
}

// Publish records snap as the sweep's latest state and offers it to every
// subscriber and sink, replacing any snapshot not yet delivered. It never
// waits on a sink. Snapshots for a closed sweep are ignored.
func (p *Publisher) Publish(snap model.Snapshot) {
	p.mu.Lock()
	t := p.topicLocked(snap.SweepID)
	if t.closed {
		p.mu.Unlock()
		return
	}
	t.latest = snap
	t.has = true
	for _, ch := range t.subs {
		offer(ch, snap)
	}
	if !p.stopped {
		for _, m := range p.mirrors {
			m.offer(snap)
		}
	}
	p.mu.Unlock()
}

// offer delivers snap into a one-slot channel, evicting a stale value.
// Only the publisher sends on subscriber channels and it holds the lock, so
// the second send cannot block.
func offer(ch chan model.Snapshot, snap model.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// Subscribe returns a channel of snapshots for the sweep and an unsubscribe
// function. The latest snapshot, if any, is delivered immediately. For a
// closed sweep the channel yields the final snapshot and is then closed.
func (p *Publisher) Subscribe(sweepID string) (<-chan model.Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.topicLocked(sweepID)
	ch := make(chan model.Snapshot, 1)
	if t.has {
		ch <- t.latest
	}
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(t.subs, id)
	}
}

// Latest returns the most recent snapshot of a sweep.
func (p *Publisher) Latest(sweepID string) (model.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.topics[sweepID]
	if !ok || !t.has {
		return model.Snapshot{}, false
	}
	return t.latest, true
}

// List returns the latest snapshot of every known sweep, newest first.
func (p *Publisher) List() []model.Snapshot {
	p.mu.Lock()
	out := make([]model.Snapshot, 0, len(p.topics))
	for _, t := range p.topics {
		if t.has {
			out = append(out, t.latest)
		}
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SweepID > out[j].SweepID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Close ends the sweep's stream. Subscribers receive whatever snapshot is
// still buffered and then see the channel closed.
func (p *Publisher) Close(sweepID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.topicLocked(sweepID)
	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
