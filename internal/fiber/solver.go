package fiber

import (
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/fiberpol/internal/optics"
)

const (
	DefaultSamples = 10000
	DefaultXTol    = 2e-12
	DefaultRTol    = 4 * 2.220446049250313e-16
	DefaultMaxIter = 100

	// samples per worker chunk in the dispersion scan
	scanChunk = 512
)

// Solver locates the eigenvalues U of the hybrid-mode dispersion relation by
// sign-change bracketing on a uniform grid followed by Brent refinement.
type Solver struct {
	samples int
	xtol    float64
	rtol    float64
	maxIter int
	log     *zap.Logger
}

type Option func(*Solver)

// WithSamples sets the scan density. Too few samples can miss close roots.
func WithSamples(n int) Option {
	return func(s *Solver) {
		if n >= 3 {
			s.samples = n
		}
	}
}

func WithTolerance(xtol, rtol float64) Option {
	return func(s *Solver) {
		if xtol > 0 {
			s.xtol = xtol
		}
		if rtol > 0 {
			s.rtol = rtol
		}
	}
}

func WithMaxIter(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxIter = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		samples: DefaultSamples,
		xtol:    DefaultXTol,
		rtol:    DefaultRTol,
		maxIter: DefaultMaxIter,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) Samples() int { return s.samples }

// Roots returns every converged root of the dispersion relation in (0, V),
// in increasing order. Brackets that fail to refine are logged and skipped.
func (s *Solver) Roots(v float64, n int, nco, ncl float64) []float64 {
	f := func(u float64) float64 { return Dispersion(u, v, n, nco, ncl) }

	us := make([]float64, s.samples)
	fs := make([]float64, s.samples)
	step := v / float64(s.samples-1)
	optics.ParallelFor(s.samples, scanChunk, func(start, end int) {
		for i := start; i < end; i++ {
			us[i] = float64(i) * step
			fs[i] = f(us[i])
		}
	})
	us[s.samples-1] = v

	roots := make([]float64, 0, 4)
	prev := -1
	for i := range fs {
		if math.IsNaN(fs[i]) || math.IsInf(fs[i], 0) {
			continue
		}
		if prev >= 0 && fs[prev]*fs[i] < 0 {
			root, evals, err := brentRoot(f, us[prev], us[i], s.xtol, s.rtol, s.maxIter)
			if err != nil {
				s.log.Warn("skipping root bracket",
					zap.Float64("lo", us[prev]),
					zap.Float64("hi", us[i]),
					zap.Int("evaluations", evals),
					zap.Error(err))
			} else {
				roots = append(roots, root)
			}
		}
		prev = i
	}

	return roots
}

// Solve returns the l-th root (1-indexed) of the dispersion relation for
// azimuthal order n. Fewer than l roots yields a *optics.ModeError wrapping
// optics.ErrNoModeFound; V is never substituted for a missing root.
func (s *Solver) Solve(v float64, n, l int, nco, ncl float64) (float64, error) {
	if l < 1 {
		return 0, &optics.ModeError{V: v, N: n, L: l, Wrapped: optics.ErrInvalidConfig}
	}

	roots := s.Roots(v, n, nco, ncl)
	s.log.Debug("dispersion scan complete",
		zap.Float64("V", v),
		zap.Int("n", n),
		zap.Int("samples", s.samples),
		zap.Int("roots", len(roots)))

	if len(roots) < l {
		return 0, &optics.ModeError{V: v, N: n, L: l, Found: len(roots), Wrapped: optics.ErrNoModeFound}
	}
	return roots[l-1], nil
}
