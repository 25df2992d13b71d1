package jones

import (
	"fmt"
	"math"

	"github.com/san-kum/fiberpol/internal/optics"
)

// minIntensity is the S0 below which a field carries no polarization.
const minIntensity = 1e-300

// Rotation returns the analyzer frame rotation
//
//	R(θ) = [[sin θ, −cos θ], [cos θ, sin θ]]
//
// which is a proper rotation by θ − π/2. The quarter-wave-plate trace and
// every stored measurement are expressed in this convention.
func Rotation(theta float64) Matrix {
	s, c := math.Sincos(theta)
	return Matrix{
		{complex(s, 0), complex(-c, 0)},
		{complex(c, 0), complex(s, 0)},
	}
}

// QuarterWavePlate is diag(1, −i) with the fast axis along y and diag(1, +i)
// with it along z.
func QuarterWavePlate(axis optics.FastAxis) Matrix {
	if axis == optics.FastAxisZ {
		return Matrix{{1, 0}, {0, 1i}}
	}
	return Matrix{{1, 0}, {0, -1i}}
}

// Rotated returns R(θ)·m·R(θ)⁻¹.
func Rotated(m Matrix, theta float64) Matrix {
	r := Rotation(theta)
	return r.Mul(m).Mul(r.Inverse())
}

// StateOf returns the Stokes parameters of the field (ey, ez) from the
// density matrix ρ = v v† with v = (Ez, Ey):
//
//	S0 = tr ρ, s1 = tr(ρσz)/S0, s2 = tr(ρσx)/S0, s3 = tr(ρσy)/S0.
func StateOf(ey, ez complex128) (optics.Stokes, error) {
	rho := Outer(Column(ey, ez))
	s0 := real(rho.Trace())
	if !(s0 > minIntensity) || math.IsInf(s0, 0) {
		return optics.Stokes{}, fmt.Errorf("%w: S0=%g", optics.ErrDegenerateField, s0)
	}

	return optics.Stokes{
		S0: s0,
		S1: real(rho.Mul(PauliZ).Trace()) / s0,
		S2: real(rho.Mul(PauliX).Trace()) / s0,
		S3: real(rho.Mul(PauliY).Trace()) / s0,
	}, nil
}
