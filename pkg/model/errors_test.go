package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrNotFound, Message: "session 'sess_123' not found"}
	want := "NOT_FOUND: session 'sess_123' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("workload", "wl_abc")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "workload 'wl_abc' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "workload 'wl_abc' not found")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("invalid process set",
		FieldError{Field: "processes[0].burst", Message: "must be >= 1"},
		FieldError{Field: "processes[1].priority", Message: "not an integer"},
	)
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
}

func TestIsValidation(t *testing.T) {
	wrapped := fmt.Errorf("create registry: %w", NewValidationError("bad"))
	if !IsValidation(wrapped) {
		t.Error("IsValidation(wrapped validation error) = false, want true")
	}
	if IsValidation(NewNotFoundError("session", "x")) {
		t.Error("IsValidation(not found) = true, want false")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("IsValidation(plain error) = true, want false")
	}
}

func TestInvalidStateError(t *testing.T) {
	err := &InvalidStateError{Op: "step", State: EngineStateCompleted}
	want := "cannot step in state COMPLETED"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	var target *InvalidStateError
	if !errors.As(fmt.Errorf("wrap: %w", err), &target) {
		t.Fatal("errors.As did not find InvalidStateError")
	}
	if target.Op != "step" {
		t.Errorf("Op = %q, want step", target.Op)
	}
}
