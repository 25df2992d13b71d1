// Package scatter predicts the polarization of light scattered at the fiber
// surface: the guided-mode field at (R = a, T = α) is the scattered field,
// which is then reduced to Stokes parameters and an analyzer trace.
package scatter

import (
	"fmt"

	"github.com/san-kum/fiberpol/internal/fiber"
	"github.com/san-kum/fiberpol/internal/jones"
	"github.com/san-kum/fiberpol/internal/optics"
)

// Result is the prediction for one scatterer angle.
type Result struct {
	Alpha  float64            `json:"alpha"`
	Field  optics.FieldVector `json:"-"`
	Stokes optics.Stokes      `json:"stokes"`
	Trace  optics.Trace       `json:"trace"`
}

// Model is the forward model α → (Stokes, trace) for one solved mode.
type Model struct {
	mode     fiber.Mode
	analyzer *jones.Analyzer
}

func New(mode fiber.Mode, analyzer *jones.Analyzer) *Model {
	return &Model{mode: mode, analyzer: analyzer}
}

func (m *Model) Mode() fiber.Mode { return m.mode }

func (m *Model) Analyzer() *jones.Analyzer { return m.analyzer }

// FieldAt returns the field on the fiber surface at azimuth alpha.
func (m *Model) FieldAt(alpha float64) optics.FieldVector {
	return m.mode.Field(m.mode.Guide.Radius, alpha)
}

// Forward evaluates the full prediction at alpha.
func (m *Model) Forward(alpha float64) (Result, error) {
	f := m.FieldAt(alpha)

	st, err := jones.StateOf(f.Y, f.Z)
	if err != nil {
		return Result{}, fmt.Errorf("alpha %g: %w", alpha, err)
	}
	tr, err := m.analyzer.Trace(f.Y, f.Z)
	if err != nil {
		return Result{}, fmt.Errorf("alpha %g: %w", alpha, err)
	}

	return Result{Alpha: alpha, Field: f, Stokes: st, Trace: tr}, nil
}

// Intensity returns only the normalized trace intensities at alpha.
func (m *Model) Intensity(alpha float64) ([]float64, error) {
	f := m.FieldAt(alpha)
	tr, err := m.analyzer.Trace(f.Y, f.Z)
	if err != nil {
		return nil, fmt.Errorf("alpha %g: %w", alpha, err)
	}
	return tr.Intensity, nil
}

// Sweep evaluates Forward over many angles in parallel, preserving order.
func (m *Model) Sweep(alphas []float64) ([]Result, error) {
	out := make([]Result, len(alphas))
	errs := make([]error, len(alphas))
	optics.ParallelFor(len(alphas), 8, func(start, end int) {
		for i := start; i < end; i++ {
			out[i], errs[i] = m.Forward(alphas[i])
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
