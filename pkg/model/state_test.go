package model

import "testing"

func TestEngineState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    EngineState
		terminal bool
	}{
		{EngineStateIdle, false},
		{EngineStateStepping, false},
		{EngineStateCompleted, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("EngineState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestEngineState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  EngineState
		to    EngineState
		valid bool
	}{
		// Valid transitions
		{EngineStateIdle, EngineStateStepping, true},
		{EngineStateStepping, EngineStateCompleted, true},

		// Invalid transitions
		{EngineStateIdle, EngineStateCompleted, false},
		{EngineStateStepping, EngineStateIdle, false},
		{EngineStateStepping, EngineStateStepping, false},
		{EngineStateCompleted, EngineStateStepping, false},
		{EngineStateCompleted, EngineStateIdle, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("EngineState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}
