package optics

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DefaultTraceSamples is the analyzer sweep length used when none is configured.
const DefaultTraceSamples = 1000

// Direction selects the sign of the propagation constant β.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Sign is +1 for Forward and -1 for Backward.
func (d Direction) Sign() float64 {
	if d == Backward {
		return -1
	}
	return 1
}

// ParseDirection accepts "forward"/"+z" and "backward"/"-z".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward", "+z", "plus":
		return Forward, nil
	case "backward", "-z", "minus":
		return Backward, nil
	}
	return Forward, fmt.Errorf("%w: unknown propagation direction %q", ErrInvalidConfig, s)
}

// FastAxis selects which analyzer axis of the quarter-wave plate is fast.
type FastAxis int

const (
	FastAxisY FastAxis = iota
	FastAxisZ
)

func (a FastAxis) String() string {
	if a == FastAxisZ {
		return "z"
	}
	return "y"
}

// ParseFastAxis accepts "y" or "z".
func ParseFastAxis(s string) (FastAxis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "y":
		return FastAxisY, nil
	case "z":
		return FastAxisZ, nil
	}
	return FastAxisY, fmt.Errorf("%w: unknown fast axis %q", ErrInvalidConfig, s)
}

// FieldVector is the complex electric field at one point in Cartesian form.
// The harmonic time dependence is factored out.
type FieldVector struct {
	X, Y, Z complex128
}

// IsValid reports whether every component is finite.
func (f FieldVector) IsValid() bool {
	for _, c := range [3]complex128{f.X, f.Y, f.Z} {
		if cmplx.IsNaN(c) || cmplx.IsInf(c) {
			return false
		}
	}
	return true
}

// Norm is the Euclidean norm √(|Ex|²+|Ey|²+|Ez|²).
func (f FieldVector) Norm() float64 {
	sum := 0.0
	for _, c := range [3]complex128{f.X, f.Y, f.Z} {
		a := cmplx.Abs(c)
		sum += a * a
	}
	return math.Sqrt(sum)
}

// PolarField is the field in the local polar frame at azimuth T.
type PolarField struct {
	R, Theta, Z complex128
}

// Cartesian rotates the polar components by the azimuth t.
func (p PolarField) Cartesian(t float64) FieldVector {
	s, c := math.Sincos(t)
	cs, cc := complex(s, 0), complex(c, 0)
	return FieldVector{
		X: p.R*cc - p.Theta*cs,
		Y: p.R*cs + p.Theta*cc,
		Z: p.Z,
	}
}

// Stokes holds normalized Stokes parameters; S0 is the total intensity.
type Stokes struct {
	S0 float64 `json:"s0"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
	S3 float64 `json:"s3"`
}

// DegreeOfPolarization is √(s1²+s2²+s3²); 1 for a pure state.
func (s Stokes) DegreeOfPolarization() float64 {
	return math.Sqrt(s.S1*s.S1 + s.S2*s.S2 + s.S3*s.S3)
}

// Trace is a normalized analyzer intensity curve sampled at Theta.
type Trace struct {
	Theta     []float64 `json:"theta"`
	Intensity []float64 `json:"intensity"`
}

func (t Trace) Len() int { return len(t.Intensity) }

// Clone returns an independent copy.
func (t Trace) Clone() Trace {
	c := Trace{
		Theta:     make([]float64, len(t.Theta)),
		Intensity: make([]float64, len(t.Intensity)),
	}
	copy(c.Theta, t.Theta)
	copy(c.Intensity, t.Intensity)
	return c
}

// ThetaDegrees returns the sample angles in degrees.
func (t Trace) ThetaDegrees() []float64 {
	deg := make([]float64, len(t.Theta))
	copy(deg, t.Theta)
	floats.Scale(180/math.Pi, deg)
	return deg
}

// AngleGrid returns n uniformly spaced analyzer angles on [0, 2π).
func AngleGrid(n int) []float64 {
	if n <= 0 {
		return nil
	}
	grid := floats.Span(make([]float64, n+1), 0, 2*math.Pi)
	return grid[:n]
}

// FitResult is the best-fit scatterer angle and the state predicted there.
type FitResult struct {
	Alpha       float64 `json:"alpha"`
	Stokes      Stokes  `json:"stokes"`
	Trace       Trace   `json:"trace"`
	Residual    float64 `json:"residual"`
	Iterations  int     `json:"iterations"`
	Evaluations int     `json:"evaluations"`
}
