// Package fiber solves the hybrid-mode eigenvalue problem of a step-index
// circular waveguide and evaluates the resulting vector field.
//
// A [Waveguide] describes the fiber and the requested mode. [Solver] finds
// the eigenvalue U of the dispersion relation, [ModeCache] memoizes it per
// input tuple, and [Mode] evaluates the electric field inside and outside the
// core.
package fiber

import (
	"fmt"
	"math"

	"github.com/san-kum/fiberpol/internal/optics"
)

// Waveguide is a step-index fiber plus the mode and excitation of interest.
type Waveguide struct {
	Radius     float64          // core radius a, metres
	CoreIndex  float64          // n_co
	CladIndex  float64          // n_cl
	Azimuthal  int              // n
	Radial     int              // l, 1-indexed
	Wavelength float64          // λ, metres
	Phase      float64          // ψ, radians
	Direction  optics.Direction // sign of β
}

// DefaultWaveguide is a 200 nm silica nanofiber in vacuum at 785 nm, HE11
// quasi-linearly polarized along y.
func DefaultWaveguide() Waveguide {
	return Waveguide{
		Radius:     200e-9,
		CoreIndex:  1.45,
		CladIndex:  1.0,
		Azimuthal:  1,
		Radial:     1,
		Wavelength: 785e-9,
		Phase:      math.Pi / 2,
		Direction:  optics.Forward,
	}
}

// Validate rejects non-physical geometry before any solve.
func (w Waveguide) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	switch {
	case !finite(w.Radius) || w.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive, got %g", optics.ErrInvalidConfig, w.Radius)
	case !finite(w.Wavelength) || w.Wavelength <= 0:
		return fmt.Errorf("%w: wavelength must be positive, got %g", optics.ErrInvalidConfig, w.Wavelength)
	case !finite(w.CladIndex) || w.CladIndex <= 0:
		return fmt.Errorf("%w: cladding index must be positive, got %g", optics.ErrInvalidConfig, w.CladIndex)
	case !finite(w.CoreIndex) || w.CoreIndex <= w.CladIndex:
		return fmt.Errorf("%w: core index %g must exceed cladding index %g", optics.ErrInvalidConfig, w.CoreIndex, w.CladIndex)
	case w.Azimuthal < 0:
		return fmt.Errorf("%w: azimuthal order must be non-negative, got %d", optics.ErrInvalidConfig, w.Azimuthal)
	case w.Radial < 1:
		return fmt.Errorf("%w: radial order is 1-indexed, got %d", optics.ErrInvalidConfig, w.Radial)
	case !finite(w.Phase):
		return fmt.Errorf("%w: phase must be finite", optics.ErrInvalidConfig)
	}
	return nil
}

// K is the vacuum wavenumber 2π/λ.
func (w Waveguide) K() float64 {
	return 2 * math.Pi / w.Wavelength
}

// V is the normalized frequency k·a·√(n_co²−n_cl²).
func (w Waveguide) V() float64 {
	return w.K() * w.Radius * math.Sqrt(w.CoreIndex*w.CoreIndex-w.CladIndex*w.CladIndex)
}

// ModeKey identifies one eigenvalue problem. Two guides with equal keys share
// the same root set.
type ModeKey struct {
	V         float64
	N         int
	L         int
	CoreIndex float64
	CladIndex float64
}

func (w Waveguide) Key() ModeKey {
	return ModeKey{
		V:         w.V(),
		N:         w.Azimuthal,
		L:         w.Radial,
		CoreIndex: w.CoreIndex,
		CladIndex: w.CladIndex,
	}
}
