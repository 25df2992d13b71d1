package fiber

import (
	"fmt"
	"math"

	"github.com/san-kum/fiberpol/internal/optics"
	"github.com/san-kum/fiberpol/internal/special"
)

// Mode is a solved hybrid mode: the guide plus its eigenvalue and the derived
// constants the field expressions need.
type Mode struct {
	Guide Waveguide
	U     float64 // core transverse parameter
	W     float64 // cladding decay parameter, √(V²−U²)
	V     float64
	Beta  float64 // propagation constant, signed by direction (1/m)
	S     float64 // shape-correction coefficient

	edge float64 // J_n(U)/K_n(W), Ez continuity at R = a
}

// NewMode derives W, β and s for an eigenvalue U of guide w. It assumes U was
// produced by the solver for that guide.
func NewMode(w Waveguide, u float64) Mode {
	v := w.V()
	k := w.K()
	n := w.Azimuthal
	nf := float64(n)

	wp := math.Sqrt(v*v - u*u)
	beta := w.Direction.Sign() * math.Sqrt(k*k*w.CoreIndex*w.CoreIndex-(u/w.Radius)*(u/w.Radius))

	jn := special.Jn(n, u)
	km, kn, kp := special.KnTriple(n, wp)
	jRatio := special.JnPrime(n, u) / (u * jn)
	kRatio := -0.5 * (km + kp) / (wp * kn)
	s := nf * (1/(u*u) + 1/(wp*wp)) / (jRatio + kRatio)

	return Mode{
		Guide: w,
		U:     u,
		W:     wp,
		V:     v,
		Beta:  beta,
		S:     s,
		edge:  jn / kn,
	}
}

// EffectiveIndex is β/k, between n_cl and n_co for a guided mode.
func (m Mode) EffectiveIndex() float64 {
	return math.Abs(m.Beta) / m.Guide.K()
}

func (m Mode) angular(t float64) (cosA, sinA float64) {
	sinA, cosA = math.Sincos(float64(m.Guide.Azimuthal)*t + m.Guide.Phase)
	return cosA, sinA
}

// core is the closed form for R < a.
func (m Mode) core(r, t float64) optics.PolarField {
	n := m.Guide.Azimuthal
	a := m.Guide.Radius
	x := m.U / a * r
	cosA, sinA := m.angular(t)

	jm, jn, jp := special.Jn(n-1, x), special.Jn(n, x), special.Jn(n+1, x)
	amp := m.Beta * a / m.U
	lo, hi := (1-m.S)/2*jm, (1+m.S)/2*jp

	return optics.PolarField{
		R:     complex(0, -amp*(lo-hi)*cosA),
		Theta: complex(0, amp*(lo+hi)*sinA),
		Z:     complex(jn*cosA, 0),
	}
}

// cladding is the closed form for R ≥ a, scaled so Ez is continuous at R = a.
func (m Mode) cladding(r, t float64) optics.PolarField {
	n := m.Guide.Azimuthal
	a := m.Guide.Radius
	x := m.W / a * r
	cosA, sinA := m.angular(t)

	km, kn, kp := special.KnTriple(n, x)
	amp := m.Beta * a * m.edge / m.W
	lo, hi := (1-m.S)/2*km, (1+m.S)/2*kp

	return optics.PolarField{
		R:     complex(0, -amp*(lo+hi)*cosA),
		Theta: complex(0, amp*(lo-hi)*sinA),
		Z:     complex(m.edge*kn*cosA, 0),
	}
}

// Polar evaluates the field in the local polar frame at radius r, azimuth t.
// Both closed forms are computed and the region picked element-wise, so a
// NaN radius yields a NaN field instead of an arbitrary branch.
func (m Mode) Polar(r, t float64) optics.PolarField {
	in := m.core(r, t)
	out := m.cladding(r, t)
	return where(r < m.Guide.Radius, in, out)
}

// Field evaluates the Cartesian field (Ex, Ey, Ez) at radius r, azimuth t.
func (m Mode) Field(r, t float64) optics.FieldVector {
	return m.Polar(r, t).Cartesian(t)
}

// FieldGrid evaluates the field over paired samples. r and t must have equal
// length, or one of them length 1 to broadcast against the other. Results
// keep input order.
func (m Mode) FieldGrid(r, t []float64) ([]optics.FieldVector, error) {
	n := len(r)
	switch {
	case len(r) == len(t):
	case len(r) == 1:
		n = len(t)
	case len(t) == 1:
	default:
		return nil, fmt.Errorf("%w: cannot broadcast %d radii against %d angles", optics.ErrInvalidConfig, len(r), len(t))
	}

	at := func(s []float64, i int) float64 {
		if len(s) == 1 {
			return s[0]
		}
		return s[i]
	}

	out := make([]optics.FieldVector, n)
	optics.ParallelFor(n, 256, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = m.Field(at(r, i), at(t, i))
		}
	})
	return out, nil
}

func where(cond bool, a, b optics.PolarField) optics.PolarField {
	if cond {
		return a
	}
	return b
}
