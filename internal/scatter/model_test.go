package scatter

import (
	"math"
	"testing"

	"github.com/san-kum/fiberpol/internal/fiber"
	"github.com/san-kum/fiberpol/internal/jones"
	"github.com/san-kum/fiberpol/internal/optics"
)

func newModel(t testing.TB, n int) *Model {
	t.Helper()
	mode, err := fiber.NewModeCache(nil).Mode(fiber.DefaultWaveguide())
	if err != nil {
		t.Fatalf("mode failed: %v", err)
	}
	return New(mode, jones.NewUniformAnalyzer(n, optics.FastAxisY))
}

func TestForward(t *testing.T) {
	m := newModel(t, optics.DefaultTraceSamples)

	res, err := m.Forward(0.3)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if res.Alpha != 0.3 {
		t.Errorf("expected alpha 0.3, got %f", res.Alpha)
	}
	if res.Trace.Len() != optics.DefaultTraceSamples {
		t.Errorf("expected %d samples, got %d", optics.DefaultTraceSamples, res.Trace.Len())
	}
	if math.Abs(res.Stokes.DegreeOfPolarization()-1) > 1e-12 {
		t.Errorf("scattered light should be fully polarized, got %f", res.Stokes.DegreeOfPolarization())
	}

	again, _ := m.Forward(0.3)
	for i := range res.Trace.Intensity {
		if again.Trace.Intensity[i] != res.Trace.Intensity[i] {
			t.Fatal("forward model not deterministic")
		}
	}
}

func TestForwardAtZeroIsYPolarized(t *testing.T) {
	m := newModel(t, 64)
	res, err := m.Forward(0)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	// Ez vanishes at T=0 for ψ=π/2, leaving pure y polarization.
	if math.Abs(res.Stokes.S1+1) > 1e-9 {
		t.Errorf("expected s1 = -1 at alpha 0, got %f", res.Stokes.S1)
	}
}

func TestIntensityMatchesForward(t *testing.T) {
	m := newModel(t, 200)
	res, err := m.Forward(-0.7)
	if err != nil {
		t.Fatal(err)
	}
	in, err := m.Intensity(-0.7)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != res.Trace.Intensity[i] {
			t.Fatalf("intensity differs from forward trace at %d", i)
		}
	}
}

func TestTraceDependsOnAlpha(t *testing.T) {
	m := newModel(t, 200)
	a, _ := m.Intensity(0.1)
	b, _ := m.Intensity(0.9)

	diff := 0.0
	for i := range a {
		diff += math.Abs(a[i] - b[i])
	}
	if diff < 1e-3 {
		t.Errorf("traces for different alphas should differ, total diff %g", diff)
	}
}

func TestSweep(t *testing.T) {
	m := newModel(t, 50)
	alphas := []float64{-1, -0.5, 0, 0.5, 1}

	results, err := m.Sweep(alphas)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	for i, r := range results {
		if r.Alpha != alphas[i] {
			t.Errorf("sweep result %d has alpha %f, want %f", i, r.Alpha, alphas[i])
		}
	}
}

func BenchmarkForward(b *testing.B) {
	m := newModel(b, optics.DefaultTraceSamples)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Forward(0.3)
	}
}
