// Package jones implements the Jones calculus used to turn a transverse field
// into Stokes parameters and a rotating quarter-wave-plate intensity trace.
//
// Fields enter as the column (Ez, Ey): index 0 is the fiber axis z, index 1
// is y, the axis the analyzer detects.
package jones

import "math/cmplx"

// Vector is a Jones column (Ez, Ey).
type Vector [2]complex128

// Column builds the Jones vector for a field with components ey and ez.
func Column(ey, ez complex128) Vector {
	return Vector{ez, ey}
}

// Intensity is |v₀|² + |v₁|².
func (v Vector) Intensity() float64 {
	a, b := cmplx.Abs(v[0]), cmplx.Abs(v[1])
	return a*a + b*b
}

// Matrix is a 2×2 complex matrix, row-major.
type Matrix [2][2]complex128

var (
	Identity = Matrix{{1, 0}, {0, 1}}
	PauliX   = Matrix{{0, 1}, {1, 0}}
	PauliY   = Matrix{{0, -1i}, {1i, 0}}
	PauliZ   = Matrix{{1, 0}, {0, -1}}
)

func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j]
		}
	}
	return r
}

func (m Matrix) Apply(v Vector) Vector {
	return Vector{
		m[0][0]*v[0] + m[0][1]*v[1],
		m[1][0]*v[0] + m[1][1]*v[1],
	}
}

func (m Matrix) Trace() complex128 {
	return m[0][0] + m[1][1]
}

func (m Matrix) Det() complex128 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

// Inverse returns m⁻¹. A singular matrix yields Inf/NaN entries.
func (m Matrix) Inverse() Matrix {
	d := m.Det()
	return Matrix{
		{m[1][1] / d, -m[0][1] / d},
		{-m[1][0] / d, m[0][0] / d},
	}
}

// Adjoint is the conjugate transpose.
func (m Matrix) Adjoint() Matrix {
	return Matrix{
		{cmplx.Conj(m[0][0]), cmplx.Conj(m[1][0])},
		{cmplx.Conj(m[0][1]), cmplx.Conj(m[1][1])},
	}
}

// Outer is the density matrix v v†.
func Outer(v Vector) Matrix {
	return Matrix{
		{v[0] * cmplx.Conj(v[0]), v[0] * cmplx.Conj(v[1])},
		{v[1] * cmplx.Conj(v[0]), v[1] * cmplx.Conj(v[1])},
	}
}
