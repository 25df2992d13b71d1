package jones

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/san-kum/fiberpol/internal/optics"
)

func matClose(a, b Matrix, tol float64) bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(a[i][j]-b[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

func TestPauliAlgebra(t *testing.T) {
	for name, p := range map[string]Matrix{"x": PauliX, "y": PauliY, "z": PauliZ} {
		if !matClose(p.Mul(p), Identity, 0) {
			t.Errorf("σ%s² should be identity", name)
		}
		if !matClose(p.Adjoint(), p, 0) {
			t.Errorf("σ%s should be Hermitian", name)
		}
	}
	if !matClose(PauliX.Mul(PauliY), PauliZ.Mul(Matrix{{1i, 0}, {0, 1i}}), 0) {
		t.Error("σxσy should equal iσz")
	}
}

func TestRotationInverse(t *testing.T) {
	for _, th := range []float64{0, 0.4, math.Pi / 2, 2.9, 5.5} {
		r := Rotation(th)
		if !matClose(r.Mul(r.Inverse()), Identity, 1e-15) {
			t.Errorf("R(%g)·R⁻¹ is not identity", th)
		}
		if !matClose(r.Inverse(), r.Adjoint(), 1e-15) {
			t.Errorf("R(%g) should be orthogonal", th)
		}
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name       string
		ey, ez     complex128
		s1, s2, s3 float64
	}{
		{"circular", 1, 1i, 0, 0, -1},
		{"opposite circular", 1, -1i, 0, 0, 1},
		{"y linear", 1, 0, -1, 0, 0},
		{"z linear", 0, 2, 1, 0, 0},
		{"diagonal", 1, 1, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StateOf(tt.ey, tt.ez)
			if err != nil {
				t.Fatalf("state failed: %v", err)
			}
			if math.Abs(s.S1-tt.s1) > 1e-12 || math.Abs(s.S2-tt.s2) > 1e-12 || math.Abs(s.S3-tt.s3) > 1e-12 {
				t.Errorf("expected (%g, %g, %g), got (%g, %g, %g)", tt.s1, tt.s2, tt.s3, s.S1, s.S2, s.S3)
			}
		})
	}
}

func TestStateOfUnitNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		ey := complex(rng.NormFloat64(), rng.NormFloat64())
		ez := complex(rng.NormFloat64(), rng.NormFloat64())
		s, err := StateOf(ey, ez)
		if err != nil {
			t.Fatalf("state failed: %v", err)
		}
		if math.Abs(s.DegreeOfPolarization()-1) > 1e-12 {
			t.Fatalf("pure state should have unit degree of polarization, got %.15f", s.DegreeOfPolarization())
		}
	}
}

func TestStateOfDegenerate(t *testing.T) {
	if _, err := StateOf(0, 0); !errors.Is(err, optics.ErrDegenerateField) {
		t.Errorf("expected ErrDegenerateField, got %v", err)
	}
	if _, err := StateOf(cmplx.NaN(), 0); !errors.Is(err, optics.ErrDegenerateField) {
		t.Errorf("expected ErrDegenerateField for NaN, got %v", err)
	}
}

func TestAnalyzerTrace(t *testing.T) {
	a := NewUniformAnalyzer(optics.DefaultTraceSamples, optics.FastAxisY)
	tr, err := a.Trace(0.3+0.8i, -0.5+0.1i)
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if tr.Len() != optics.DefaultTraceSamples || len(tr.Theta) != tr.Len() {
		t.Fatalf("unexpected trace length %d/%d", tr.Len(), len(tr.Theta))
	}

	peak := 0.0
	for _, v := range tr.Intensity {
		if v < 0 {
			t.Fatalf("negative intensity %g", v)
		}
		peak = math.Max(peak, v)
	}
	if peak != 1 {
		t.Errorf("trace should peak at exactly 1, got %.17g", peak)
	}

	// R(θ+π) = −R(θ), so the plate matrix has period π.
	half := tr.Len() / 2
	for i := 0; i < half; i++ {
		if math.Abs(tr.Intensity[i]-tr.Intensity[i+half]) > 1e-12 {
			t.Fatalf("trace not π-periodic at %d: %g vs %g", i, tr.Intensity[i], tr.Intensity[i+half])
		}
	}
}

func TestAnalyzerAtZeroPassesY(t *testing.T) {
	a := NewAnalyzer([]float64{0}, optics.FastAxisY)
	ey := 0.6 - 0.2i
	raw := a.Raw(ey, 3+1i)
	want := cmplx.Abs(ey) * cmplx.Abs(ey)
	if math.Abs(raw[0]-want) > 1e-14 {
		t.Errorf("at θ=0 the detector should see |Ey|²=%g, got %g", want, raw[0])
	}
}

func TestAnalyzerFastAxisMirror(t *testing.T) {
	thetas := optics.AngleGrid(90)
	y := NewAnalyzer(thetas, optics.FastAxisY)
	z := NewAnalyzer(thetas, optics.FastAxisZ)

	ey, ez := complex128(0.7+0.2i), complex128(0.1-0.9i)
	tz, err := z.Trace(ey, ez)
	if err != nil {
		t.Fatal(err)
	}
	ty, err := y.Trace(cmplx.Conj(ey), cmplx.Conj(ez))
	if err != nil {
		t.Fatal(err)
	}
	for i := range thetas {
		if math.Abs(tz.Intensity[i]-ty.Intensity[i]) > 1e-12 {
			t.Fatalf("fast-axis z should mirror fast-axis y on the conjugate field at %d", i)
		}
	}
}

func TestAnalyzerDegenerate(t *testing.T) {
	a := NewUniformAnalyzer(32, optics.FastAxisY)
	if _, err := a.Trace(0, 0); !errors.Is(err, optics.ErrDegenerateField) {
		t.Errorf("expected ErrDegenerateField, got %v", err)
	}

	empty := NewAnalyzer(nil, optics.FastAxisY)
	if _, err := empty.Trace(1, 0); !errors.Is(err, optics.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty grid, got %v", err)
	}
}

func TestAnalyzerTraceMany(t *testing.T) {
	a := NewUniformAnalyzer(100, optics.FastAxisY)
	fields := make([]Pair, 64)
	for i := range fields {
		fields[i] = Pair{Ey: complex(1, float64(i)/10), Ez: complex(float64(i)/20, -1)}
	}

	traces, err := a.TraceMany(fields)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	for i, f := range fields {
		single, _ := a.Trace(f.Ey, f.Ez)
		for j := range single.Intensity {
			if single.Intensity[j] != traces[i].Intensity[j] {
				t.Fatalf("batch result %d out of order", i)
			}
		}
	}

	fields[10] = Pair{}
	if _, err := a.TraceMany(fields); !errors.Is(err, optics.ErrDegenerateField) {
		t.Errorf("expected batch to surface ErrDegenerateField, got %v", err)
	}
}

func TestAnalyzerThetasIsCopy(t *testing.T) {
	a := NewUniformAnalyzer(8, optics.FastAxisY)
	th := a.Thetas()
	th[0] = 42
	if a.Thetas()[0] == 42 {
		t.Error("Thetas must not expose internal state")
	}
}

func BenchmarkAnalyzerTrace(b *testing.B) {
	a := NewUniformAnalyzer(optics.DefaultTraceSamples, optics.FastAxisY)
	for i := 0; i < b.N; i++ {
		_, _ = a.Trace(0.3+0.8i, -0.5+0.1i)
	}
}
