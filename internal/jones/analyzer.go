package jones

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fiberpol/internal/optics"
)

// Analyzer is a rotating quarter-wave plate followed by a y-axis detector,
// with the rotated plate matrices precomputed for a fixed angle grid.
// An Analyzer is immutable after construction and safe for concurrent use.
type Analyzer struct {
	axis   optics.FastAxis
	thetas []float64
	plates []Matrix
}

// NewAnalyzer precomputes R(θ)·QWP·R(θ)⁻¹ for every angle in thetas.
func NewAnalyzer(thetas []float64, axis optics.FastAxis) *Analyzer {
	qwp := QuarterWavePlate(axis)

	a := &Analyzer{
		axis:   axis,
		thetas: append([]float64(nil), thetas...),
		plates: make([]Matrix, len(thetas)),
	}
	for i, th := range a.thetas {
		a.plates[i] = Rotated(qwp, th)
	}
	return a
}

// NewUniformAnalyzer builds an analyzer on n angles uniformly covering [0, 2π).
func NewUniformAnalyzer(n int, axis optics.FastAxis) *Analyzer {
	return NewAnalyzer(optics.AngleGrid(n), axis)
}

func (a *Analyzer) FastAxis() optics.FastAxis { return a.axis }

func (a *Analyzer) Len() int { return len(a.thetas) }

// Thetas returns a copy of the angle grid.
func (a *Analyzer) Thetas() []float64 {
	return append([]float64(nil), a.thetas...)
}

// Raw returns the un-normalized detected intensity |(M(θ)·v)_y|² per angle.
func (a *Analyzer) Raw(ey, ez complex128) []float64 {
	v := Column(ey, ez)
	out := make([]float64, len(a.plates))
	for i, m := range a.plates {
		y := cmplx.Abs(m.Apply(v)[1])
		out[i] = y * y
	}
	return out
}

// Trace returns the intensity trace normalized so its maximum is 1.
func (a *Analyzer) Trace(ey, ez complex128) (optics.Trace, error) {
	if len(a.plates) == 0 {
		return optics.Trace{}, fmt.Errorf("%w: analyzer has no angles", optics.ErrInvalidConfig)
	}

	raw := a.Raw(ey, ez)
	peak := floats.Max(raw)
	if !(peak > minIntensity) || floats.HasNaN(raw) {
		return optics.Trace{}, fmt.Errorf("%w: peak analyzer intensity %g", optics.ErrDegenerateField, peak)
	}
	for i := range raw {
		raw[i] /= peak
	}

	return optics.Trace{Theta: a.Thetas(), Intensity: raw}, nil
}

// Pair is one transverse field sample for batch evaluation.
type Pair struct {
	Ey, Ez complex128
}

// TraceMany evaluates a trace per field in parallel. Output order matches
// input order; the first failing field's error is returned.
func (a *Analyzer) TraceMany(fields []Pair) ([]optics.Trace, error) {
	out := make([]optics.Trace, len(fields))
	errs := make([]error, len(fields))

	optics.ParallelFor(len(fields), 16, func(start, end int) {
		for i := start; i < end; i++ {
			out[i], errs[i] = a.Trace(fields[i].Ey, fields[i].Ez)
		}
	})

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
	}
	return out, nil
}
