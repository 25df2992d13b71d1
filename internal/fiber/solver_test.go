package fiber

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fiberpol/internal/optics"
)

func TestDefaultWaveguideV(t *testing.T) {
	w := DefaultWaveguide()
	v := w.V()
	if v < 1.5 || v > 1.9 {
		t.Errorf("expected V near 1.7 for the default nanofiber, got %f", v)
	}
}

func TestSolveFundamentalMode(t *testing.T) {
	w := DefaultWaveguide()
	v := w.V()

	u, err := NewSolver().Solve(v, 1, 1, w.CoreIndex, w.CladIndex)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if u <= 0 || u >= v {
		t.Fatalf("expected 0 < U < V=%f, got %f", v, u)
	}

	lo := Dispersion(u-1e-7, v, 1, w.CoreIndex, w.CladIndex)
	hi := Dispersion(u+1e-7, v, 1, w.CoreIndex, w.CladIndex)
	if lo*hi > 0 {
		t.Errorf("dispersion does not change sign around U=%f (%g, %g)", u, lo, hi)
	}
}

func TestSolveNoModeFound(t *testing.T) {
	w := DefaultWaveguide()
	v := w.V()

	tests := []struct {
		name string
		n, l int
	}{
		{"TE/TM below cutoff", 0, 1},
		{"second HE1 mode below cutoff", 1, 2},
	}

	s := NewSolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := s.Solve(v, tt.n, tt.l, w.CoreIndex, w.CladIndex)
			if !errors.Is(err, optics.ErrNoModeFound) {
				t.Fatalf("expected ErrNoModeFound, got U=%f err=%v", u, err)
			}
			var me *optics.ModeError
			if !errors.As(err, &me) {
				t.Fatalf("expected *ModeError, got %T", err)
			}
			if me.N != tt.n || me.L != tt.l {
				t.Errorf("mode error reports n=%d l=%d, want n=%d l=%d", me.N, me.L, tt.n, tt.l)
			}
			if u == v {
				t.Error("solver must not substitute V for a missing root")
			}
		})
	}
}

func TestSolveRejectsZeroRadialOrder(t *testing.T) {
	_, err := NewSolver().Solve(1.7, 1, 0, 1.45, 1.0)
	if !errors.Is(err, optics.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRootsSortedAndInRange(t *testing.T) {
	// A thicker guide supports several HE1l modes.
	v := 12.0
	roots := NewSolver().Roots(v, 1, 1.45, 1.0)
	if len(roots) < 2 {
		t.Fatalf("expected several roots at V=%g, got %d", v, len(roots))
	}
	for i, r := range roots {
		if r <= 0 || r >= v {
			t.Errorf("root %d = %f outside (0, V)", i, r)
		}
		if i > 0 && roots[i-1] >= r {
			t.Errorf("roots not increasing: %f then %f", roots[i-1], r)
		}
	}
}

func TestSolverSampleDensityStable(t *testing.T) {
	w := DefaultWaveguide()
	v := w.V()

	dense, err := NewSolver().Solve(v, 1, 1, w.CoreIndex, w.CladIndex)
	if err != nil {
		t.Fatal(err)
	}
	coarse, err := NewSolver(WithSamples(2000)).Solve(v, 1, 1, w.CoreIndex, w.CladIndex)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dense-coarse) > 1e-9 {
		t.Errorf("root depends on scan density: %.12f vs %.12f", dense, coarse)
	}
}

func TestSolverOptions(t *testing.T) {
	s := NewSolver(WithSamples(1), WithMaxIter(-1), WithTolerance(-1, -1), WithLogger(nil))
	if s.Samples() != DefaultSamples {
		t.Errorf("invalid sample count should be ignored, got %d", s.Samples())
	}
	if s.maxIter != DefaultMaxIter || s.xtol != DefaultXTol || s.rtol != DefaultRTol {
		t.Error("invalid options should keep defaults")
	}
	if s.log == nil {
		t.Error("nil logger should keep the no-op logger")
	}
}

func TestBrentRoot(t *testing.T) {
	root, evals, err := brentRoot(math.Cos, 1, 2, DefaultXTol, DefaultRTol, DefaultMaxIter)
	if err != nil {
		t.Fatalf("brent failed: %v", err)
	}
	if math.Abs(root-math.Pi/2) > 1e-11 {
		t.Errorf("expected π/2, got %.15f", root)
	}
	if evals < 3 {
		t.Errorf("expected several evaluations, got %d", evals)
	}

	cubic := func(x float64) float64 { return x*x*x - 2*x - 5 }
	root, _, err = brentRoot(cubic, 2, 3, DefaultXTol, DefaultRTol, DefaultMaxIter)
	if err != nil {
		t.Fatalf("brent failed: %v", err)
	}
	if math.Abs(cubic(root)) > 1e-9 {
		t.Errorf("residual too large at %f: %g", root, cubic(root))
	}
}

func TestBrentRootErrors(t *testing.T) {
	tests := []struct {
		name    string
		f       func(float64) float64
		a, b    float64
		maxIter int
	}{
		{"no sign change", func(x float64) float64 { return x*x + 1 }, -1, 1, 100},
		{"nan endpoint", func(x float64) float64 { return math.NaN() }, 0, 1, 100},
		{"iteration budget", math.Cos, 0, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := brentRoot(tt.f, tt.a, tt.b, DefaultXTol, DefaultRTol, tt.maxIter)
			if !errors.Is(err, optics.ErrRootBracket) {
				t.Errorf("expected ErrRootBracket, got %v", err)
			}
		})
	}
}

func TestDispersionNonFiniteAtV(t *testing.T) {
	f := Dispersion(1.7, 1.7, 1, 1.45, 1.0)
	if !math.IsNaN(f) && !math.IsInf(f, 0) {
		t.Errorf("expected a non-finite value at U=V, got %g", f)
	}
}

func BenchmarkSolve(b *testing.B) {
	w := DefaultWaveguide()
	s := NewSolver()
	v := w.V()
	for i := 0; i < b.N; i++ {
		_, _ = s.Solve(v, 1, 1, w.CoreIndex, w.CladIndex)
	}
}
