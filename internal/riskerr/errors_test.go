package riskerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestTaxonomy_IsAndAs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"Input", NewInput("turbine_count", "must be positive, got %d", 0), ErrInput},
		{"Fit", NewFitFailure("LogNormal", "no positive values"), ErrFit},
		{"Division", &DivisionError{Value: 0}, ErrDivision},
		{"Simulation", &SimulationError{Field: "trial_count", Value: -1}, ErrSimulation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("engine: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}
			for _, other := range []error{ErrInput, ErrFit, ErrDivision, ErrSimulation} {
				if other != tt.sentinel && errors.Is(wrapped, other) {
					t.Errorf("%v unexpectedly matches %v", wrapped, other)
				}
			}
		})
	}

	var div *DivisionError
	if !errors.As(fmt.Errorf("wrap: %w", &DivisionError{Value: -3}), &div) || div.Value != -3 {
		t.Errorf("errors.As did not recover DivisionError")
	}
}

func TestInputError_Message(t *testing.T) {
	err := NewInput("", "sample is empty")
	if err.Error() != "input error: sample is empty" {
		t.Errorf("unexpected message %q", err.Error())
	}
	err = NewInput("month", "out of range: %d", 13)
	if err.Error() != "input error: month: out of range: 13" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
