// Package riskerr defines the failure taxonomy shared by the engine packages.
//
// Data-integrity and configuration failures (InputError, DivisionError,
// SimulationError) always propagate to the caller. FitFailure is recorded per
// candidate by the fitter and never aborts a pipeline on its own.
package riskerr

import (
	"errors"
	"fmt"
)

// Sentinels matched through errors.Is by the typed errors below.
var (
	ErrInput      = errors.New("input error")
	ErrFit        = errors.New("fit failure")
	ErrDivision   = errors.New("division error")
	ErrSimulation = errors.New("simulation error")
)

// InputError reports a missing or out-of-bound field in caller-supplied data.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("input error: %s", e.Reason)
	}
	return fmt.Sprintf("input error: %s: %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInput }

// NewInput builds an InputError with a formatted reason.
func NewInput(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FitFailure reports that a candidate family could not be fitted to a sample.
type FitFailure struct {
	Family string
	Reason string
}

func (e *FitFailure) Error() string {
	return fmt.Sprintf("fit failure: %s: %s", e.Family, e.Reason)
}

func (e *FitFailure) Is(target error) bool { return target == ErrFit }

// NewFitFailure builds a FitFailure with a formatted reason.
func NewFitFailure(family, format string, args ...any) error {
	return &FitFailure{Family: family, Reason: fmt.Sprintf(format, args...)}
}

// DivisionError reports a non-positive mean availability handed to the
// financial formula.
type DivisionError struct {
	Value float64
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("division error: mean availability must be positive, got %g", e.Value)
}

func (e *DivisionError) Is(target error) bool { return target == ErrDivision }

// SimulationError reports an invalid simulation configuration. It is raised
// before any sampling begins.
type SimulationError struct {
	Field string
	Value int
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation error: %s must be positive, got %d", e.Field, e.Value)
}

func (e *SimulationError) Is(target error) bool { return target == ErrSimulation }
