// Package engine implements the non-preemptive priority scheduling state
// machine. Each call to Step performs exactly one action: advance the clock by
// one idle tick, run one process to completion, or signal run completion.
package engine

import (
	"context"
	"log/slog"

	"github.com/me/priosim/internal/registry"
	"github.com/me/priosim/pkg/model"
)

// Observer is notified synchronously after every successful step.
type Observer func(model.Event)

// Option configures optional Engine behaviour.
type Option func(*Engine)

// WithObserver registers an observer for step events.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, obs)
	}
}

// Engine owns the time cursor and completed count of one simulation and
// mutates the run-state of the processes held by its registry.
// An Engine is not safe for concurrent use.
type Engine struct {
	reg       *registry.Registry
	logger    *slog.Logger
	observers []Observer

	state     model.EngineState
	clock     int
	completed int
	idle      int
	seq       int
	timeline  []model.Slice
}

// New creates an Engine in the IDLE state over reg.
func New(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		logger: logger.With("component", "engine"),
		state:  model.EngineStateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() model.EngineState { return e.state }

// Time returns the current time cursor.
func (e *Engine) Time() int { return e.clock }

// Completed returns how many processes have finished in the current run.
func (e *Engine) Completed() int { return e.completed }

// Start moves IDLE to STEPPING and resets the registry, clock and counters.
func (e *Engine) Start() error {
	if !e.state.CanTransitionTo(model.EngineStateStepping) {
		return &model.InvalidStateError{Op: "start", State: e.state}
	}
	e.clear()
	e.state = model.EngineStateStepping
	e.logger.Debug("run started", "processes", e.reg.Len())
	return nil
}

// Reset returns the engine to IDLE from any state and clears all run-state. Idempotent.
func (e *Engine) Reset() {
	e.clear()
	e.state = model.EngineStateIdle
}

func (e *Engine) clear() {
	e.reg.Reset()
	e.clock = 0
	e.completed = 0
	e.idle = 0
	e.seq = 0
	e.timeline = nil
}

// Step performs one scheduling decision. It is only valid in STEPPING.
func (e *Engine) Step() (model.Event, error) {
	if e.state != model.EngineStateStepping {
		return model.Event{}, &model.InvalidStateError{Op: "step", State: e.state}
	}

	var ev model.Event
	switch {
	case e.reg.AllDone():
		e.state = model.EngineStateCompleted
		ev = model.Event{Kind: model.EventRunComplete, Time: e.clock, RunComplete: true}

	default:
		ready := e.reg.Eligible(e.clock)
		if len(ready) == 0 {
			e.clock++
			e.idle++
			ev = model.Event{Kind: model.EventTimeAdvanced, Time: e.clock}
			break
		}
		ev = e.execute(ready[0])
	}

	e.seq++
	ev.Seq = e.seq
	e.logger.Debug("step", "seq", ev.Seq, "kind", ev.Kind, "time", ev.Time, "process_id", ev.ProcessID)
	if ev.RunComplete {
		e.logger.Info("run complete", "time", e.clock, "processes", e.completed, "idle_ticks", e.idle)
	}
	for _, obs := range e.observers {
		obs(ev)
	}
	return ev, nil
}

// execute runs p to completion starting at the current clock.
func (e *Engine) execute(p *model.Process) model.Event {
	start := e.clock
	end := start + p.Burst
	p.Start = &start
	p.Completion = &end
	p.Done = true

	e.clock = end
	e.completed++
	e.timeline = append(e.timeline, model.Slice{ProcessID: p.ID, Start: start, End: end})

	ev := model.Event{
		Kind:      model.EventProcessExecuted,
		Time:      end,
		ProcessID: p.ID,
		Start:     start,
		End:       end,
	}
	if e.completed == e.reg.Len() {
		e.state = model.EngineStateCompleted
		ev.RunComplete = true
	}
	return ev
}

// Run starts the engine if it is IDLE and steps until COMPLETED,
// returning every event produced. If ctx is done first, Run stops between
// steps and returns the events so far with ctx.Err(); the engine stays in
// STEPPING and may be resumed.
func (e *Engine) Run(ctx context.Context) ([]model.Event, error) {
	if e.state == model.EngineStateIdle {
		if err := e.Start(); err != nil {
			return nil, err
		}
	}
	var events []model.Event
	for !e.state.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		ev, err := e.Step()
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Timeline returns the executed slices in execution order.
func (e *Engine) Timeline() []model.Slice {
	out := make([]model.Slice, len(e.timeline))
	copy(out, e.timeline)
	return out
}

// ReadyQueue returns the eligible processes at the current time, in selection order.
func (e *Engine) ReadyQueue() []model.ReadyEntry {
	if e.state != model.EngineStateStepping {
		return []model.ReadyEntry{}
	}
	ready := e.reg.Eligible(e.clock)
	out := make([]model.ReadyEntry, len(ready))
	for i, p := range ready {
		out[i] = model.ReadyEntry{ProcessID: p.ID, Priority: p.Priority, Arrival: p.Arrival}
	}
	return out
}

// Snapshot returns a copy of the engine and registry state.
func (e *Engine) Snapshot() model.Snapshot {
	return model.Snapshot{
		State:      e.state,
		Time:       e.clock,
		Completed:  e.completed,
		Total:      e.reg.Len(),
		IdleTicks:  e.idle,
		ReadyQueue: e.ReadyQueue(),
		Timeline:   e.Timeline(),
		Processes:  e.reg.Copy(),
	}
}
