// Package experiment wires the solver, field evaluator, analyzer and fitter
// into the three end-user operations: evaluate a measured field, simulate a
// scatterer angle, and fit the angle to a measured trace.
package experiment

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/fiberpol/internal/fiber"
	"github.com/san-kum/fiberpol/internal/jones"
	"github.com/san-kum/fiberpol/internal/monitor"
	"github.com/san-kum/fiberpol/internal/optics"
	"github.com/san-kum/fiberpol/internal/optim"
	"github.com/san-kum/fiberpol/internal/scatter"
)

type FitOptions struct {
	MaxIterations  int
	MaxEvaluations int
	Tolerance      float64
	// SeedPoints > 1 runs a coarse grid over the bounds and starts the local
	// fit from the better of the grid optimum and the caller's guess.
	SeedPoints int
}

type Config struct {
	Guide         fiber.Waveguide
	TraceSamples  int
	FastAxis      optics.FastAxis
	Bounds        optim.Bounds
	SolverSamples int
	Fit           FitOptions
}

func DefaultConfig() Config {
	return Config{
		Guide:         fiber.DefaultWaveguide(),
		TraceSamples:  optics.DefaultTraceSamples,
		FastAxis:      optics.FastAxisY,
		Bounds:        optim.DefaultBounds(),
		SolverSamples: fiber.DefaultSamples,
		Fit: FitOptions{
			MaxIterations:  optim.DefaultMaxIterations,
			MaxEvaluations: optim.DefaultMaxEvaluations,
			Tolerance:      optim.DefaultFuncTolerance,
		},
	}
}

func (c Config) Validate() error {
	if err := c.Guide.Validate(); err != nil {
		return err
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	switch {
	case c.TraceSamples < 2:
		return fmt.Errorf("%w: trace needs at least 2 samples, got %d", optics.ErrInvalidConfig, c.TraceSamples)
	case c.SolverSamples != 0 && c.SolverSamples < 3:
		return fmt.Errorf("%w: solver needs at least 3 samples, got %d", optics.ErrInvalidConfig, c.SolverSamples)
	case c.FastAxis != optics.FastAxisY && c.FastAxis != optics.FastAxisZ:
		return fmt.Errorf("%w: unknown fast axis %d", optics.ErrInvalidConfig, c.FastAxis)
	case c.Fit.MaxIterations < 0 || c.Fit.MaxEvaluations < 0 || c.Fit.Tolerance < 0 || c.Fit.SeedPoints < 0:
		return fmt.Errorf("%w: negative fit option", optics.ErrInvalidConfig)
	}
	return nil
}

// thetaTolerance bounds the mismatch between a measured angle grid and the
// analyzer's.
const thetaTolerance = 1e-9

// Outcome is a polarization state and its analyzer trace. Alpha is the
// scatterer angle for simulated outcomes and zero for measured ones.
type Outcome struct {
	Alpha  float64
	Stokes optics.Stokes
	Trace  optics.Trace
}

// Experiment owns its mode cache, so separate Experiments never share state.
// Methods are safe for concurrent use.
type Experiment struct {
	cfg      Config
	cache    *fiber.ModeCache
	analyzer *jones.Analyzer
	fitter   *optim.Fitter
	log      *zap.Logger
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.log = l
		}
	}
}

// New validates cfg and prepares the analyzer; the mode is solved lazily on
// first use.
func New(cfg Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	e.cache = fiber.NewModeCache(fiber.NewSolver(
		fiber.WithSamples(cfg.SolverSamples),
		fiber.WithLogger(e.log),
	))
	e.analyzer = jones.NewUniformAnalyzer(cfg.TraceSamples, cfg.FastAxis)
	e.fitter = optim.NewFitter(
		optim.WithMaxIterations(cfg.Fit.MaxIterations),
		optim.WithMaxEvaluations(cfg.Fit.MaxEvaluations),
		optim.WithTolerance(cfg.Fit.Tolerance),
		optim.WithLogger(e.log),
	)
	return e, nil
}

func (e *Experiment) Config() Config { return e.cfg }

// Thetas is the analyzer angle grid shared by every trace this Experiment returns.
func (e *Experiment) Thetas() []float64 { return e.analyzer.Thetas() }

// Mode solves (or recalls) the configured guided mode.
func (e *Experiment) Mode() (fiber.Mode, error) {
	return e.cache.Mode(e.cfg.Guide)
}

// Model returns the forward model for the configured mode.
func (e *Experiment) Model() (*scatter.Model, error) {
	mode, err := e.Mode()
	if err != nil {
		return nil, err
	}
	return scatter.New(mode, e.analyzer), nil
}

// EvaluateMeasured reduces a measured transverse field to its state and trace.
func (e *Experiment) EvaluateMeasured(ey, ez complex128) (Outcome, error) {
	st, err := jones.StateOf(ey, ez)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := e.analyzer.Trace(ey, ez)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Stokes: st, Trace: tr}, nil
}

// EvaluateSample evaluates a field extracted from monitor exports.
func (e *Experiment) EvaluateSample(s monitor.Sample) (Outcome, error) {
	out, err := e.EvaluateMeasured(s.Ey, s.Ez)
	if err != nil {
		return Outcome{}, fmt.Errorf("monitor point (%d, %d): %w", s.Row, s.Col, err)
	}
	return out, nil
}

// RecoverStokes reads the polarization state back out of a measured trace
// from its Fourier harmonics, using this Experiment's fast axis.
func (e *Experiment) RecoverStokes(tr optics.Trace) (optics.Stokes, error) {
	return jones.StokesFromTrace(tr, e.cfg.FastAxis)
}

// Simulate predicts the state and trace scattered at angle alpha (radians).
func (e *Experiment) Simulate(alpha float64) (Outcome, error) {
	model, err := e.Model()
	if err != nil {
		return Outcome{}, err
	}
	res, err := model.Forward(alpha)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Alpha: alpha, Stokes: res.Stokes, Trace: res.Trace}, nil
}

// FitAngle finds the α within the configured bounds whose predicted trace
// best matches measured, starting from initial (radians). measured must be
// sampled on this Experiment's angle grid.
func (e *Experiment) FitAngle(ctx context.Context, measured optics.Trace, initial float64) (optics.FitResult, error) {
	if measured.Len() != e.analyzer.Len() {
		return optics.FitResult{}, fmt.Errorf("%w: measured trace has %d samples, analyzer has %d",
			optics.ErrInvalidConfig, measured.Len(), e.analyzer.Len())
	}
	if len(measured.Theta) != measured.Len() {
		return optics.FitResult{}, fmt.Errorf("%w: measured trace has %d angles for %d samples",
			optics.ErrInvalidConfig, len(measured.Theta), measured.Len())
	}
	for i, th := range e.analyzer.Thetas() {
		if math.Abs(measured.Theta[i]-th) > thetaTolerance {
			return optics.FitResult{}, fmt.Errorf("%w: measured angle %d is %g, analyzer has %g",
				optics.ErrInvalidConfig, i, measured.Theta[i], th)
		}
	}

	model, err := e.Model()
	if err != nil {
		return optics.FitResult{}, err
	}

	start := initial
	if e.cfg.Fit.SeedPoints > 1 {
		start, err = e.seed(ctx, model, measured.Intensity, initial)
		if err != nil {
			return optics.FitResult{}, err
		}
	}

	res, err := e.fitter.Fit(ctx, model, measured.Intensity, start, e.cfg.Bounds)
	if err != nil {
		return optics.FitResult{}, err
	}

	best, err := model.Forward(res.Alpha)
	if err != nil {
		return optics.FitResult{}, err
	}

	e.log.Info("angle fitted",
		zap.Float64("alpha", res.Alpha),
		zap.Float64("residual", res.Residual),
		zap.Int("evaluations", res.Evaluations))

	return optics.FitResult{
		Alpha:       res.Alpha,
		Stokes:      best.Stokes,
		Trace:       best.Trace,
		Residual:    res.Residual,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
	}, nil
}

func (e *Experiment) seed(ctx context.Context, model *scatter.Model, measured []float64, initial float64) (float64, error) {
	b := e.cfg.Bounds
	score := func(alpha float64) float64 {
		pred, err := model.Intensity(alpha)
		if err != nil {
			return math.Inf(1)
		}
		return optim.Residual(pred, measured)
	}

	grid := optim.NewGridSearch(
		[]string{"alpha"},
		[][]float64{optim.Span(b.Lo, b.Hi, e.cfg.Fit.SeedPoints)},
	)
	best, bestScore, err := grid.Search(ctx, func(_ context.Context, p map[string]float64) (float64, error) {
		return score(p["alpha"]), nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed fit: %w", err)
	}

	clamped := math.Min(b.Hi, math.Max(b.Lo, initial))
	if score(clamped) <= bestScore {
		return clamped, nil
	}
	e.log.Debug("fit seeded from grid", zap.Float64("seed", best["alpha"]), zap.Float64("initial", initial))
	return best["alpha"], nil
}
