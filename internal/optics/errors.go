package optics

import (
	"errors"
	"fmt"
)

// Domain errors for the scattering pipeline.
var (
	// ErrInvalidConfig indicates non-physical geometry, wavelength or indices.
	ErrInvalidConfig = errors.New("optics: invalid configuration")

	// ErrNoModeFound indicates the dispersion relation has fewer than l roots in (0, V).
	ErrNoModeFound = errors.New("optics: no guided mode found")

	// ErrRootBracket indicates a sign-change bracket failed to refine.
	ErrRootBracket = errors.New("optics: root bracket did not converge")

	// ErrDegenerateField indicates a zero-magnitude field reached the polarization stage.
	ErrDegenerateField = errors.New("optics: degenerate (zero) field")

	// ErrFitDidNotConverge indicates the optimizer exhausted its budget.
	ErrFitDidNotConverge = errors.New("optics: fit did not converge")
)

// ModeError wraps a solver failure with the mode it was asked for.
type ModeError struct {
	V       float64
	N       int
	L       int
	Found   int
	Wrapped error
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("%s: mode n=%d l=%d, V=%.6g, %d root(s) in (0, V)",
		e.Wrapped.Error(), e.N, e.L, e.V, e.Found)
}

func (e *ModeError) Unwrap() error {
	return e.Wrapped
}

// FitError wraps a fitter failure with the optimizer state at termination.
type FitError struct {
	Status      string
	Iterations  int
	Evaluations int
	Alpha       float64
	Wrapped     error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s: status %s after %d iterations (%d evaluations, last alpha %.6g)",
		e.Wrapped.Error(), e.Status, e.Iterations, e.Evaluations, e.Alpha)
}

func (e *FitError) Unwrap() error {
	return e.Wrapped
}

// Kind names the domain error wrapped by err, or "" when err is not one of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return "InvalidConfig"
	case errors.Is(err, ErrNoModeFound):
		return "NoModeFound"
	case errors.Is(err, ErrRootBracket):
		return "RootBracketDidNotConverge"
	case errors.Is(err, ErrDegenerateField):
		return "DegenerateField"
	case errors.Is(err, ErrFitDidNotConverge):
		return "FitDidNotConverge"
	}
	return ""
}
