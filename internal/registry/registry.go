// Package registry holds the process set of one simulation: the immutable
// scheduling inputs and the run-state the engine mutates.
package registry

import (
	"fmt"
	"sort"

	"github.com/me/priosim/pkg/model"
)

// DefaultMaxProcesses bounds the size of a process set when no limit is configured.
const DefaultMaxProcesses = 100

// MaxHorizon is the latest tick a run may reach. Every arrival and burst, and
// the latest possible completion max(arrival)+sum(burst), must not exceed it.
const MaxHorizon = 100000

// Registry owns an ordered process collection. Ids are assigned sequentially
// from 1 in input order and never change.
type Registry struct {
	procs []*model.Process
}

// New validates specs and builds a Registry with every process in its initial
// run-state. maxSize <= 0 means DefaultMaxProcesses. On failure it returns a
// VALIDATION_ERROR *model.APIError listing every offending field; nothing is built.
func New(specs []model.ProcessSpec, maxSize int) (*Registry, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxProcesses
	}
	if len(specs) == 0 {
		return nil, model.NewValidationError("process set is empty",
			model.FieldError{Field: "processes", Message: "at least one process is required"})
	}
	if len(specs) > maxSize {
		return nil, model.NewValidationError(
			fmt.Sprintf("process set has %d processes, maximum is %d", len(specs), maxSize),
			model.FieldError{Field: "processes", Message: fmt.Sprintf("at most %d processes allowed", maxSize)})
	}

	if details := Validate(specs); len(details) > 0 {
		return nil, model.NewValidationError("invalid process set", details...)
	}

	procs := make([]*model.Process, len(specs))
	for i, spec := range specs {
		procs[i] = &model.Process{ID: i + 1, ProcessSpec: spec}
	}
	return &Registry{procs: procs}, nil
}

// Validate checks the range of every field and returns one FieldError per violation.
func Validate(specs []model.ProcessSpec) []model.FieldError {
	var details []model.FieldError
	inRange := true
	latestArrival, totalBurst := 0, 0
	for i, spec := range specs {
		switch {
		case spec.Arrival < 0:
			details = append(details, model.FieldError{
				Field: fmt.Sprintf("processes[%d].arrival", i), Message: "must be >= 0"})
		case spec.Arrival > MaxHorizon:
			details = append(details, model.FieldError{
				Field: fmt.Sprintf("processes[%d].arrival", i), Message: fmt.Sprintf("must be <= %d", MaxHorizon)})
			inRange = false
		}
		switch {
		case spec.Burst < 1:
			details = append(details, model.FieldError{
				Field: fmt.Sprintf("processes[%d].burst", i), Message: "must be >= 1"})
		case spec.Burst > MaxHorizon:
			details = append(details, model.FieldError{
				Field: fmt.Sprintf("processes[%d].burst", i), Message: fmt.Sprintf("must be <= %d", MaxHorizon)})
			inRange = false
		}
		if spec.Priority < 1 {
			details = append(details, model.FieldError{
				Field: fmt.Sprintf("processes[%d].priority", i), Message: "must be >= 1"})
		}
		latestArrival = max(latestArrival, spec.Arrival)
		totalBurst += max(spec.Burst, 0)
	}
	// Each term is bounded above, so the sum cannot overflow.
	if inRange && latestArrival+totalBurst > MaxHorizon {
		details = append(details, model.FieldError{
			Field: "processes",
			Message: fmt.Sprintf("latest arrival plus total burst is %d, must be <= %d",
				latestArrival+totalBurst, MaxHorizon)})
	}
	return details
}

// Reset clears the run-state of every process. Idempotent.
func (r *Registry) Reset() {
	for _, p := range r.procs {
		p.ResetRun()
	}
}

// Eligible returns the processes with arrival <= at that are not done,
// ordered by ascending priority with ties broken by ascending id.
func (r *Registry) Eligible(at int) []*model.Process {
	var ready []*model.Process
	for _, p := range r.procs {
		if p.Eligible(at) {
			ready = append(ready, p)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].ID < ready[j].ID
	})
	return ready
}

// AllDone reports whether every process has been executed.
func (r *Registry) AllDone() bool {
	for _, p := range r.procs {
		if !p.Done {
			return false
		}
	}
	return true
}

// Len returns the number of processes.
func (r *Registry) Len() int {
	return len(r.procs)
}

// Get returns the process with the given id, or nil.
func (r *Registry) Get(id int) *model.Process {
	if id < 1 || id > len(r.procs) {
		return nil
	}
	return r.procs[id-1]
}

// Processes returns the live collection in id order. Callers other than the
// engine must treat the returned processes as read-only.
func (r *Registry) Processes() []*model.Process {
	return r.procs
}

// Specs returns a copy of the scheduling inputs in id order.
func (r *Registry) Specs() []model.ProcessSpec {
	specs := make([]model.ProcessSpec, len(r.procs))
	for i, p := range r.procs {
		specs[i] = p.ProcessSpec
	}
	return specs
}

// Copy returns value copies of every process in id order.
func (r *Registry) Copy() []model.Process {
	out := make([]model.Process, len(r.procs))
	for i, p := range r.procs {
		cp := *p
		if p.Start != nil {
			v := *p.Start
			cp.Start = &v
		}
		if p.Completion != nil {
			v := *p.Completion
			cp.Completion = &v
		}
		out[i] = cp
	}
	return out
}
