package jones

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/fiberpol/internal/optics"
)

// MinSpectrumSamples is the shortest uniform trace that resolves the 4θ
// harmonic without aliasing.
const MinSpectrumSamples = 9

// gridTolerance bounds the deviation of a trace angle from the uniform grid.
const gridTolerance = 1e-9

// Harmonics are the Fourier coefficients of an analyzer trace
//
//	I(θ) = A0 + B2·sin 2θ + C4·cos 4θ + D4·sin 4θ
//
// which is the complete spectrum of a rotating quarter-wave plate followed
// by a fixed detector.
type Harmonics struct {
	A0, B2, C4, D4 float64
}

// TraceHarmonics extracts the trace spectrum with an FFT. The trace must be
// sampled on the uniform grid 2πk/n, k = 0..n-1, as every Analyzer trace is.
func TraceHarmonics(tr optics.Trace) (Harmonics, error) {
	n := tr.Len()
	if n < MinSpectrumSamples || len(tr.Theta) != n {
		return Harmonics{}, fmt.Errorf("%w: need a uniform trace of at least %d samples, got %d angles and %d intensities",
			optics.ErrInvalidConfig, MinSpectrumSamples, len(tr.Theta), n)
	}
	step := 2 * math.Pi / float64(n)
	for k, th := range tr.Theta {
		if math.Abs(th-float64(k)*step) > gridTolerance {
			return Harmonics{}, fmt.Errorf("%w: trace angle %d is %g, want %g",
				optics.ErrInvalidConfig, k, th, float64(k)*step)
		}
	}

	x := fft.FFTReal(tr.Intensity)
	scale := 2 / float64(n)
	return Harmonics{
		A0: real(x[0]) / float64(n),
		B2: -imag(x[2]) * scale,
		C4: real(x[4]) * scale,
		D4: -imag(x[4]) * scale,
	}, nil
}

// StokesFromTrace recovers the polarization state from an analyzer trace.
// S0 is in the trace's own units, so only the normalized s1..s3 compare
// across traces.
func StokesFromTrace(tr optics.Trace, axis optics.FastAxis) (optics.Stokes, error) {
	h, err := TraceHarmonics(tr)
	if err != nil {
		return optics.Stokes{}, err
	}

	s0 := 2 * (h.A0 - h.C4)
	if !(s0 > minIntensity) || math.IsInf(s0, 0) {
		return optics.Stokes{}, fmt.Errorf("%w: trace mean %g carries no intensity", optics.ErrDegenerateField, h.A0)
	}

	s3 := 2 * h.B2 / s0
	if axis == optics.FastAxisZ {
		s3 = -s3
	}
	return optics.Stokes{
		S0: s0,
		S1: -4 * h.C4 / s0,
		S2: 4 * h.D4 / s0,
		S3: s3,
	}, nil
}
