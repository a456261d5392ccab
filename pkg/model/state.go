package model

// EngineState represents the lifecycle state of a scheduling engine.
type EngineState string

const (
	EngineStateIdle      EngineState = "IDLE"
	EngineStateStepping  EngineState = "STEPPING"
	EngineStateCompleted EngineState = "COMPLETED"
)

// String returns the string representation of the engine state.
func (s EngineState) String() string {
	return string(s)
}

// IsTerminal returns true if no further steps can be taken.
func (s EngineState) IsTerminal() bool {
	return s == EngineStateCompleted
}

// ValidEngineTransitions defines the allowed forward transitions of an engine.
// Reset returns an engine to IDLE from any state and is not listed here.
var ValidEngineTransitions = map[EngineState][]EngineState{
	EngineStateIdle:     {EngineStateStepping},
	EngineStateStepping: {EngineStateCompleted},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s EngineState) CanTransitionTo(next EngineState) bool {
	for _, allowed := range ValidEngineTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
