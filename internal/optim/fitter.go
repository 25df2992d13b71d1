// Package optim fits the scatterer angle to a measured analyzer trace.
package optim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/fiberpol/internal/optics"
)

const (
	DefaultMaxIterations  = 500
	DefaultMaxEvaluations = 2000
	DefaultFuncTolerance  = 1e-14
	// iterations without improvement before the fit is declared converged
	DefaultStallIterations = 20
)

// TraceModel predicts the normalized analyzer trace for a scatterer angle.
type TraceModel interface {
	Intensity(alpha float64) ([]float64, error)
}

// Bounds is the closed interval the fitted angle must stay in.
type Bounds struct {
	Lo float64 `yaml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" json:"hi"`
}

// DefaultBounds is [−π/2, π/2].
func DefaultBounds() Bounds {
	return Bounds{Lo: -math.Pi / 2, Hi: math.Pi / 2}
}

func (b Bounds) Validate() error {
	if math.IsNaN(b.Lo) || math.IsNaN(b.Hi) || math.IsInf(b.Lo, 0) || math.IsInf(b.Hi, 0) || b.Lo >= b.Hi {
		return fmt.Errorf("%w: bounds [%g, %g]", optics.ErrInvalidConfig, b.Lo, b.Hi)
	}
	return nil
}

func (b Bounds) Contains(x float64) bool {
	return x >= b.Lo && x <= b.Hi
}

// The optimizer works on an unconstrained u with α = mid + half·sin(u), so
// every trial angle lies inside the bounds.
func (b Bounds) toAlpha(u float64) float64 {
	mid, half := (b.Lo+b.Hi)/2, (b.Hi-b.Lo)/2
	a := mid + half*math.Sin(u)
	return math.Min(b.Hi, math.Max(b.Lo, a))
}

func (b Bounds) toInternal(alpha float64) float64 {
	mid, half := (b.Lo+b.Hi)/2, (b.Hi-b.Lo)/2
	x := (alpha - mid) / half
	return math.Asin(math.Min(1, math.Max(-1, x)))
}

// Result is the outcome of a converged fit.
type Result struct {
	Alpha       float64
	Residual    float64 // sum of squared trace differences
	Iterations  int
	Evaluations int
	Status      string
}

// Fitter minimizes the squared trace residual over α with Nelder–Mead.
type Fitter struct {
	maxIter  int
	maxEvals int
	ftol     float64
	stall    int
	log      *zap.Logger
}

type Option func(*Fitter)

func WithMaxIterations(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.maxIter = n
		}
	}
}

func WithMaxEvaluations(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.maxEvals = n
		}
	}
}

// WithTolerance sets the absolute objective improvement below which an
// iteration counts as stalled.
func WithTolerance(tol float64) Option {
	return func(f *Fitter) {
		if tol > 0 {
			f.ftol = tol
		}
	}
}

func WithStallIterations(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.stall = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Fitter) {
		if l != nil {
			f.log = l
		}
	}
}

func NewFitter(opts ...Option) *Fitter {
	f := &Fitter{
		maxIter:  DefaultMaxIterations,
		maxEvals: DefaultMaxEvaluations,
		ftol:     DefaultFuncTolerance,
		stall:    DefaultStallIterations,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Residual is Σ(model − measured)². Length mismatch is +Inf.
func Residual(model, measured []float64) float64 {
	if len(model) != len(measured) {
		return math.Inf(1)
	}
	d := floats.Distance(model, measured, 2)
	return d * d
}

// Fit minimizes the residual between model.Intensity(α) and measured over
// α ∈ b, starting from initial (clamped into b). A fit that stops on an
// iteration, evaluation or runtime limit, or fails, returns a *optics.FitError
// wrapping optics.ErrFitDidNotConverge.
func (f *Fitter) Fit(ctx context.Context, model TraceModel, measured []float64, initial float64, b Bounds) (Result, error) {
	if err := b.Validate(); err != nil {
		return Result{}, err
	}
	if len(measured) == 0 {
		return Result{}, fmt.Errorf("%w: empty measured trace", optics.ErrInvalidConfig)
	}
	if math.IsNaN(initial) || math.IsInf(initial, 0) {
		return Result{}, fmt.Errorf("%w: initial angle %g", optics.ErrInvalidConfig, initial)
	}

	var lastAlpha float64
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			lastAlpha = b.toAlpha(x[0])
			pred, err := model.Intensity(lastAlpha)
			if err != nil {
				return math.Inf(1)
			}
			return Residual(pred, measured)
		},
	}

	settings := &optimize.Settings{
		MajorIterations: f.maxIter,
		FuncEvaluations: f.maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   f.ftol,
			Iterations: f.stall,
		},
	}

	f.log.Debug("fit start",
		zap.Float64("initial", initial),
		zap.Float64("lo", b.Lo),
		zap.Float64("hi", b.Hi),
		zap.Int("samples", len(measured)))

	res, err := optimize.Minimize(problem, []float64{b.toInternal(initial)}, settings, &optimize.NelderMead{})

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	if res == nil || err != nil || res.Status.Err() != nil || math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		fe := &optics.FitError{Status: "Failure", Alpha: lastAlpha, Wrapped: optics.ErrFitDidNotConverge}
		if res != nil {
			fe.Status = res.Status.String()
			fe.Iterations = res.Stats.MajorIterations
			fe.Evaluations = res.Stats.FuncEvaluations
			fe.Alpha = b.toAlpha(res.X[0])
		}
		f.log.Debug("fit failed", zap.Error(fe))
		return Result{}, fe
	}

	out := Result{
		Alpha:       b.toAlpha(res.X[0]),
		Residual:    res.F,
		Iterations:  res.Stats.MajorIterations,
		Evaluations: res.Stats.FuncEvaluations,
		Status:      res.Status.String(),
	}

	f.log.Debug("fit done",
		zap.Float64("alpha", out.Alpha),
		zap.Float64("residual", out.Residual),
		zap.Int("iterations", out.Iterations),
		zap.Int("evaluations", out.Evaluations),
		zap.String("status", out.Status))

	return out, nil
}
