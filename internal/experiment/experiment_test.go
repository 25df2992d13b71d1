package experiment_test

import (
	"context"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fiberpol/internal/experiment"
	"github.com/san-kum/fiberpol/internal/monitor"
	"github.com/san-kum/fiberpol/internal/optics"
)

var _ = Describe("Experiment", func() {
	var (
		cfg experiment.Config
		exp *experiment.Experiment
	)

	BeforeEach(func() {
		cfg = experiment.DefaultConfig()
	})

	JustBeforeEach(func() {
		var err error
		exp, err = experiment.New(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("configuration", func() {
		It("rejects non-physical guides up front", func() {
			bad := experiment.DefaultConfig()
			bad.Guide.CoreIndex = 0.9
			_, err := experiment.New(bad)
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})

		It("rejects empty bounds", func() {
			bad := experiment.DefaultConfig()
			bad.Bounds.Lo, bad.Bounds.Hi = 1, 1
			_, err := experiment.New(bad)
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})

		It("rejects a degenerate angle grid", func() {
			bad := experiment.DefaultConfig()
			bad.TraceSamples = 1
			_, err := experiment.New(bad)
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})

		It("solves a fundamental mode inside (0, V)", func() {
			mode, err := exp.Mode()
			Expect(err).NotTo(HaveOccurred())
			Expect(mode.U).To(BeNumerically(">", 0))
			Expect(mode.U).To(BeNumerically("<", mode.V))
			Expect(mode.V).To(BeNumerically("~", 1.7, 0.1))
		})
	})

	Describe("EvaluateMeasured", func() {
		It("reports circular polarization for Ey=1, Ez=i", func() {
			out, err := exp.EvaluateMeasured(1, 1i)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Stokes.S1).To(BeNumerically("~", 0, 1e-12))
			Expect(out.Stokes.S2).To(BeNumerically("~", 0, 1e-12))
			Expect(out.Stokes.S3).To(BeNumerically("~", -1, 1e-12))
			Expect(out.Trace.Len()).To(Equal(optics.DefaultTraceSamples))
		})

		It("fails on a zero field", func() {
			_, err := exp.EvaluateMeasured(0, 0)
			Expect(err).To(MatchError(optics.ErrDegenerateField))
		})

		It("accepts monitor samples", func() {
			out, err := exp.EvaluateSample(monitor.Sample{Ey: 1, Ez: 1i})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Stokes.S3).To(BeNumerically("~", -1, 1e-12))
		})
	})

	Describe("RecoverStokes", func() {
		It("reads a simulated state back out of its trace", func() {
			out, err := exp.Simulate(0.7)
			Expect(err).NotTo(HaveOccurred())

			got, err := exp.RecoverStokes(out.Trace)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.S1).To(BeNumerically("~", out.Stokes.S1, 1e-9))
			Expect(got.S2).To(BeNumerically("~", out.Stokes.S2, 1e-9))
			Expect(got.S3).To(BeNumerically("~", out.Stokes.S3, 1e-9))
		})

		It("rejects a trace too short to resolve", func() {
			_, err := exp.RecoverStokes(optics.Trace{Theta: optics.AngleGrid(4), Intensity: make([]float64, 4)})
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})
	})

	Describe("Simulate", func() {
		It("returns a unit-peak trace and a pure state", func() {
			out, err := exp.Simulate(0.3)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Alpha).To(Equal(0.3))
			Expect(out.Trace.Len()).To(Equal(optics.DefaultTraceSamples))

			peak := 0.0
			for _, v := range out.Trace.Intensity {
				peak = math.Max(peak, v)
			}
			Expect(peak).To(Equal(1.0))
			Expect(out.Stokes.DegreeOfPolarization()).To(BeNumerically("~", 1, 1e-12))
		})

		It("is deterministic across goroutines", func() {
			want, err := exp.Simulate(0.7)
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			results := make([]experiment.Outcome, 8)
			errs := make([]error, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = exp.Simulate(0.7)
				}(i)
			}
			wg.Wait()

			for i := range results {
				Expect(errs[i]).NotTo(HaveOccurred())
				Expect(results[i].Trace.Intensity).To(Equal(want.Trace.Intensity))
				Expect(results[i].Stokes).To(Equal(want.Stokes))
			}
		})

		Context("when the requested mode is cut off", func() {
			BeforeEach(func() {
				cfg.Guide.Azimuthal = 0
			})

			It("returns ErrNoModeFound instead of a fallback", func() {
				_, err := exp.Simulate(0.3)
				Expect(err).To(MatchError(optics.ErrNoModeFound))
			})
		})
	})

	Describe("FitAngle", func() {
		It("recovers the angle that produced the trace", func() {
			truth, err := exp.Simulate(0.3)
			Expect(err).NotTo(HaveOccurred())

			res, err := exp.FitAngle(context.Background(), truth.Trace, 0.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Alpha).To(BeNumerically("~", 0.3, 1e-4))
			Expect(res.Residual).To(BeNumerically("<", 1e-6))
			Expect(res.Trace.Len()).To(Equal(truth.Trace.Len()))
			Expect(res.Stokes.S3).To(BeNumerically("~", truth.Stokes.S3, 1e-3))
		})

		It("rejects a trace on a different grid", func() {
			short := optics.Trace{Theta: optics.AngleGrid(10), Intensity: make([]float64, 10)}
			_, err := exp.FitAngle(context.Background(), short, 0)
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})

		It("rejects a trace sampled on shifted angles", func() {
			truth, err := exp.Simulate(0.3)
			Expect(err).NotTo(HaveOccurred())

			shifted := truth.Trace.Clone()
			for i := range shifted.Theta {
				shifted.Theta[i] += 0.01
			}
			_, err = exp.FitAngle(context.Background(), shifted, 0)
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})

		It("rejects a trace without its angles", func() {
			truth, err := exp.Simulate(0.3)
			Expect(err).NotTo(HaveOccurred())

			bare := optics.Trace{Intensity: truth.Trace.Intensity}
			_, err = exp.FitAngle(context.Background(), bare, 0)
			Expect(err).To(MatchError(optics.ErrInvalidConfig))
		})

		It("stops when the context is cancelled", func() {
			truth, err := exp.Simulate(0.3)
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = exp.FitAngle(ctx, truth.Trace, 0)
			Expect(err).To(MatchError(context.Canceled))
		})

		Context("with grid seeding", func() {
			BeforeEach(func() {
				cfg.TraceSamples = 360
				cfg.Fit.SeedPoints = 19
			})

			It("recovers an angle far from the initial guess", func() {
				truth, err := exp.Simulate(1.2)
				Expect(err).NotTo(HaveOccurred())

				res, err := exp.FitAngle(context.Background(), truth.Trace, -1.2)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Alpha).To(BeNumerically("~", 1.2, 1e-4))
			})
		})

		Context("with a tiny iteration budget", func() {
			BeforeEach(func() {
				cfg.Fit.MaxIterations = 1
			})

			It("reports non-convergence", func() {
				truth, err := exp.Simulate(0.9)
				Expect(err).NotTo(HaveOccurred())

				_, err = exp.FitAngle(context.Background(), truth.Trace, -0.9)
				Expect(err).To(MatchError(optics.ErrFitDidNotConverge))
			})
		})
	})
})
