package model

// ProcessSpec holds the immutable scheduling inputs of one process.
// Lower Priority values are scheduled first.
type ProcessSpec struct {
	Arrival  int `json:"arrival" yaml:"arrival"`
	Burst    int `json:"burst" yaml:"burst"`
	Priority int `json:"priority" yaml:"priority"`
}

// Process is one schedulable unit: its inputs plus run-state.
// Start and Completion stay nil until the process has been executed.
type Process struct {
	ID int `json:"id"`
	ProcessSpec
	Start      *int `json:"start"`
	Completion *int `json:"completion"`
	Done       bool `json:"done"`
}

// ResetRun clears the run-state fields.
func (p *Process) ResetRun() {
	p.Start = nil
	p.Completion = nil
	p.Done = false
}

// Eligible reports whether p may be selected at time t.
func (p *Process) Eligible(t int) bool {
	return !p.Done && p.Arrival <= t
}

// Turnaround returns completion - arrival. Only meaningful once Done.
func (p *Process) Turnaround() int {
	if p.Completion == nil {
		return 0
	}
	return *p.Completion - p.Arrival
}

// Waiting returns turnaround - burst. Only meaningful once Done.
func (p *Process) Waiting() int {
	if p.Completion == nil {
		return 0
	}
	return p.Turnaround() - p.Burst
}

// Response returns start - arrival. Only meaningful once Done.
func (p *Process) Response() int {
	if p.Start == nil {
		return 0
	}
	return *p.Start - p.Arrival
}
