// Package session keeps independent simulations apart: every Session owns its
// own Registry and Engine, and the Manager indexes sessions by id.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/priosim/internal/engine"
	"github.com/me/priosim/internal/registry"
	"github.com/me/priosim/pkg/model"
)

// subscriberBuffer bounds how many events a slow subscriber may lag behind.
const subscriberBuffer = 64

// Session is one simulation with its event history of the current run.
// All methods are safe for concurrent use.
type Session struct {
	ID         string
	WorkloadID string
	CreatedAt  time.Time

	mu     sync.Mutex
	reg    *registry.Registry
	eng    *engine.Engine
	events []model.Event
	subs   map[chan model.Event]struct{}
	closed bool
	logger *slog.Logger

	lastActive atomic.Int64 // unix nanoseconds
}

func newSession(id, workloadID string, reg *registry.Registry, logger *slog.Logger) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:         id,
		WorkloadID: workloadID,
		CreatedAt:  now,
		reg:        reg,
		subs:       make(map[chan model.Event]struct{}),
		logger:     logger.With("session_id", id),
	}
	s.lastActive.Store(now.UnixNano())
	s.eng = engine.New(reg, s.logger, engine.WithObserver(s.record))
	return s
}

// record runs under s.mu (the engine only steps inside Step/Run).
func (s *Session) record(ev model.Event) {
	s.events = append(s.events, ev)
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("subscriber lagging, dropping event", "seq", ev.Seq)
		}
	}
}

// Start begins a run.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.Start(); err != nil {
		return err
	}
	s.events = nil
	return nil
}

// Step performs one scheduling decision.
func (s *Session) Step() (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Step()
}

// Run starts the session if needed and steps until the run completes or ctx
// is done.
func (s *Session) Run(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng.State() == model.EngineStateIdle {
		s.events = nil
	}
	return s.eng.Run(ctx)
}

// Reset returns the session to IDLE and clears its event history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.Reset()
	s.events = nil
}

// Metrics computes the run metrics of a completed run.
func (s *Session) Metrics() (*model.RunMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.ComputeMetrics()
}

// Snapshot returns the current engine view.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Snapshot()
}

// Events returns the events of the current run with Seq greater than after.
func (s *Session) Events(after int) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, ev := range s.events {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out
}

// Info summarises the session.
func (s *Session) Info() model.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionInfo{
		ID:         s.ID,
		WorkloadID: s.WorkloadID,
		State:      s.eng.State(),
		Time:       s.eng.Time(),
		Completed:  s.eng.Completed(),
		Total:      s.reg.Len(),
		CreatedAt:  s.CreatedAt,
	}
}

// Subscribe returns a channel receiving every subsequent event, plus a cancel
// function that must be called to release it. The channel is closed when the
// subscription is cancelled or the session is deleted.
func (s *Session) Subscribe() (<-chan model.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan model.Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

// expired reports whether the session has been untouched since before cutoff
// and has no live subscribers. A session whose lock is held is in use and
// never expired, so the check does not wait behind a running simulation.
func (s *Session) expired(cutoff time.Time) bool {
	if s.lastActive.Load() >= cutoff.UnixNano() {
		return false
	}
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	return len(s.subs) == 0
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
