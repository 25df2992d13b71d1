package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/fiberpol/internal/config"
	"github.com/san-kum/fiberpol/internal/experiment"
	"github.com/san-kum/fiberpol/internal/logging"
	"github.com/san-kum/fiberpol/internal/metrics"
	"github.com/san-kum/fiberpol/internal/monitor"
	"github.com/san-kum/fiberpol/internal/optics"
	"github.com/san-kum/fiberpol/internal/server"
	"github.com/san-kum/fiberpol/internal/storage"
	"github.com/san-kum/fiberpol/internal/viz"
)

var (
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	// waveguide
	radiusNM     float64
	wavelengthNM float64
	coreIndex    float64
	cladIndex    float64
	azimuthal    int
	radial       int
	phaseDeg     float64
	direction    string
	// analyzer and fit
	fastAxis   string
	samples    int
	alphaDeg   float64
	initialDeg float64
	seedPoints int
	// monitor
	divisions int
	side      string
	// output
	noSave    bool
	plotOut   string
	outFile   string
	plotWidth int
	fromRun   string
	theme     string
	fitToo    bool
	envFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fiberpol",
		Short:         "nanofiber scattering polarization analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "start from a named waveguide preset")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "run directory")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.Float64Var(&radiusNM, "radius", config.DefaultRadiusNM, "fiber radius (nm)")
	pf.Float64Var(&wavelengthNM, "wavelength", config.DefaultWavelengthNM, "free-space wavelength (nm)")
	pf.Float64Var(&coreIndex, "n1", config.DefaultCoreIndex, "core refractive index")
	pf.Float64Var(&cladIndex, "n2", config.DefaultCladIndex, "cladding refractive index")
	pf.IntVar(&azimuthal, "azimuthal", 1, "azimuthal mode order n")
	pf.IntVar(&radial, "radial", 1, "radial mode order l")
	pf.Float64Var(&phaseDeg, "phase", config.DefaultPhaseDeg, "polarization phase reference (deg)")
	pf.StringVar(&direction, "direction", "forward", "propagation direction (forward, backward)")
	pf.StringVar(&fastAxis, "fast-axis", "y", "quarter-wave plate fast axis (y, z)")
	pf.IntVar(&samples, "samples", optics.DefaultTraceSamples, "analyzer angles per trace")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve the guided mode eigenvalue",
		RunE:  runSolve,
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "predict the scattered polarization at a scatterer angle",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&alphaDeg, "alpha", 0, "scatterer angle (deg)")
	simulateCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")
	simulateCmd.Flags().IntVar(&plotWidth, "width", viz.DefaultPlotWidth, "plot width")

	measureCmd := &cobra.Command{
		Use:   "measure [monitor_dir]",
		Short: "evaluate the on-axis state of FDTD monitor exports",
		Args:  cobra.ExactArgs(1),
		RunE:  runMeasure,
	}
	measureCmd.Flags().IntVar(&divisions, "div", monitor.DefaultDivisions, "monitor divisions per side")
	measureCmd.Flags().StringVar(&side, "side", "", "monitor side (opposite, same)")
	measureCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")
	measureCmd.Flags().IntVar(&plotWidth, "width", viz.DefaultPlotWidth, "plot width")

	fitCmd := &cobra.Command{
		Use:   "fit [monitor_dir]",
		Short: "fit the scatterer angle to measured data",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFit,
	}
	fitCmd.Flags().Float64Var(&initialDeg, "initial", 0, "initial scatterer angle (deg)")
	fitCmd.Flags().IntVar(&seedPoints, "seed-points", 0, "coarse grid points tried before refining (0 disables)")
	fitCmd.Flags().IntVar(&divisions, "div", monitor.DefaultDivisions, "monitor divisions per side")
	fitCmd.Flags().StringVar(&side, "side", "", "monitor side (opposite, same)")
	fitCmd.Flags().StringVar(&fromRun, "run", "", "fit the trace of a recorded measure run instead of a monitor dir")
	fitCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")
	fitCmd.Flags().IntVar(&plotWidth, "width", viz.DefaultPlotWidth, "plot width")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [trace.csv]",
		Short: "recover the polarization state from a recorded analyzer trace",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().BoolVar(&fitToo, "fit", false, "also fit the scatterer angle")
	analyzeCmd.Flags().Float64Var(&initialDeg, "initial", 0, "initial scatterer angle (deg)")
	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")
	analyzeCmd.Flags().IntVar(&plotWidth, "width", viz.DefaultPlotWidth, "plot width")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVar(&plotWidth, "width", viz.DefaultPlotWidth, "plot width")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportPlotCmd := &cobra.Command{
		Use:   "export-plot [run_id...]",
		Short: "render one or more run traces to an image",
		Args:  cobra.MinimumNArgs(1),
		RunE:  exportPlot,
	}
	exportPlotCmd.Flags().StringVarP(&plotOut, "out", "o", "trace.png", "output image (png, svg, pdf)")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "interactively sweep the scatterer angle",
		RunE:  runExplore,
	}
	exploreCmd.Flags().Float64Var(&alphaDeg, "alpha", 0, "starting scatterer angle (deg)")
	exploreCmd.Flags().StringVar(&fromRun, "run", "", "overlay the trace of a recorded run")
	exploreCmd.Flags().StringVar(&theme, "theme", viz.ThemeLab.Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&envFile, "env", ".env", "dotenv file read before serving")
	serveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record served analyses")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list waveguide presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRADIUS\tWAVELENGTH\tN1\tN2\tPHASE\tDIRECTION")
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Fprintf(w, "%s\t%.0fnm\t%.0fnm\t%.4g\t%.4g\t%.0f°\t%s\n",
					name, p.RadiusNM, p.WavelengthNM, p.CoreIndex, p.CladIndex, p.PhaseDeg, p.Direction)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(solveCmd, simulateCmd, measureCmd, fitCmd, analyzeCmd, listCmd, showCmd,
		exportJSONCmd, exportCSVCmd, exportPlotCmd, exploreCmd, serveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.ErrorText.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, a preset waveguide and then
// any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if preset != "" {
		wg, ok := config.Presets[preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Waveguide = wg
	}

	f := cmd.Flags()
	if f.Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if f.Changed("radius") {
		cfg.Waveguide.RadiusNM = radiusNM
	}
	if f.Changed("wavelength") {
		cfg.Waveguide.WavelengthNM = wavelengthNM
	}
	if f.Changed("n1") {
		cfg.Waveguide.CoreIndex = coreIndex
	}
	if f.Changed("n2") {
		cfg.Waveguide.CladIndex = cladIndex
	}
	if f.Changed("azimuthal") {
		cfg.Waveguide.Azimuthal = azimuthal
	}
	if f.Changed("radial") {
		cfg.Waveguide.Radial = radial
	}
	if f.Changed("phase") {
		cfg.Waveguide.PhaseDeg = phaseDeg
	}
	if f.Changed("direction") {
		cfg.Waveguide.Direction = direction
	}
	if f.Changed("fast-axis") {
		cfg.Analyzer.FastAxis = fastAxis
	}
	if f.Changed("samples") {
		cfg.Analyzer.Samples = samples
	}
	if f.Lookup("initial") != nil && f.Changed("initial") {
		cfg.Fit.InitialDeg = initialDeg
	}
	if f.Lookup("seed-points") != nil && f.Changed("seed-points") {
		cfg.Fit.SeedPoints = seedPoints
	}
	if f.Lookup("div") != nil && f.Changed("div") {
		cfg.Monitor.Divisions = divisions
	}
	if f.Lookup("side") != nil && f.Changed("side") {
		cfg.Monitor.Side = side
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log)
}

func newExperiment(cfg *config.Config, log *zap.Logger) (*experiment.Experiment, error) {
	ec, err := cfg.Experiment()
	if err != nil {
		return nil, err
	}
	return experiment.New(ec, experiment.WithLogger(log))
}

func store(cfg *config.Config) (*storage.Store, error) {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
func rad(deg float64) float64 { return deg * math.Pi / 180 }

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	exp, err := newExperiment(cfg, log)
	if err != nil {
		return err
	}
	mode, err := exp.Mode()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "mode\tHE%d%d (%s)\n", mode.Guide.Azimuthal, mode.Guide.Radial, mode.Guide.Direction)
	fmt.Fprintf(w, "V\t%.9f\n", mode.V)
	fmt.Fprintf(w, "U\t%.9f\n", mode.U)
	fmt.Fprintf(w, "W\t%.9f\n", mode.W)
	fmt.Fprintf(w, "beta\t%.6e rad/m\n", mode.Beta)
	fmt.Fprintf(w, "n_eff\t%.9f\n", mode.EffectiveIndex())
	fmt.Fprintf(w, "s\t%.9f\n", mode.S)
	return w.Flush()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	exp, err := newExperiment(cfg, log)
	if err != nil {
		return err
	}
	out, err := exp.Simulate(rad(alphaDeg))
	if err != nil {
		return err
	}

	fmt.Println(viz.Report("simulate", out.Stokes, viz.AngleRow("alpha", out.Alpha)))
	fmt.Println(viz.PlotTrace(out.Trace, viz.PlotOptions{Width: plotWidth, Caption: "predicted trace"}))

	if noSave {
		return nil
	}
	mode, err := exp.Mode()
	if err != nil {
		return err
	}
	guide := storage.GuideInfoOf(mode.Guide, mode.U)
	return saveRun(cfg, storage.RunMetadata{
		Kind:     storage.KindSimulate,
		Guide:    &guide,
		FastAxis: cfg.Analyzer.FastAxis,
		Alpha:    &out.Alpha,
		Stokes:   out.Stokes,
		Source:   "cli",
	}, out.Trace)
}

// measured loads monitor exports from dir and evaluates the on-axis point,
// using the monitor side to pick the propagation direction.
func measured(cfg *config.Config, log *zap.Logger, dir string) (*experiment.Experiment, experiment.Outcome, error) {
	sd, err := cfg.MonitorSide()
	if err != nil {
		return nil, experiment.Outcome{}, err
	}
	cfg.Waveguide.Direction = sd.Direction().String()

	grid, err := monitor.LoadDir(dir, cfg.Monitor.Files, cfg.Monitor.Divisions)
	if err != nil {
		return nil, experiment.Outcome{}, err
	}
	exp, err := newExperiment(cfg, log)
	if err != nil {
		return nil, experiment.Outcome{}, err
	}
	out, err := exp.EvaluateSample(grid.OnAxis())
	if err != nil {
		return nil, experiment.Outcome{}, err
	}
	log.Info("monitor evaluated",
		zap.String("dir", dir),
		zap.Int("divisions", grid.D),
		zap.String("side", sd.String()))
	return exp, out, nil
}

func runMeasure(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	_, out, err := measured(cfg, log, args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.Report("measure", out.Stokes, viz.Row{Label: "source", Value: args[0]}))
	fmt.Println(viz.PlotTrace(out.Trace, viz.PlotOptions{Width: plotWidth, Caption: "measured trace"}))

	if noSave {
		return nil
	}
	return saveRun(cfg, storage.RunMetadata{
		Kind:     storage.KindMeasure,
		FastAxis: cfg.Analyzer.FastAxis,
		Stokes:   out.Stokes,
		Source:   args[0],
	}, out.Trace)
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	var (
		exp    *experiment.Experiment
		target optics.Trace
		source string
	)
	switch {
	case fromRun != "" && len(args) > 0:
		return fmt.Errorf("give either a monitor dir or --run, not both")
	case fromRun != "":
		st, err := store(cfg)
		if err != nil {
			return err
		}
		if target, err = st.LoadTrace(fromRun); err != nil {
			return err
		}
		if exp, err = newExperiment(cfg, log); err != nil {
			return err
		}
		source = fromRun
	case len(args) == 1:
		var out experiment.Outcome
		if exp, out, err = measured(cfg, log, args[0]); err != nil {
			return err
		}
		target, source = out.Trace, args[0]
	default:
		return fmt.Errorf("fit needs a monitor dir or --run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fit, err := exp.FitAngle(ctx, target, cfg.InitialAlpha())
	if err != nil {
		return err
	}

	rows := append([]viz.Row{{Label: "source", Value: source}}, viz.FitRows(fit)...)
	fmt.Println(viz.Report("fit", fit.Stokes, rows...))
	fmt.Println(viz.PlotTraces(viz.PlotOptions{Width: plotWidth, Caption: "measured vs fitted", Theme: &viz.ThemeLab},
		target, fit.Trace))

	if noSave {
		return nil
	}
	mode, err := exp.Mode()
	if err != nil {
		return err
	}
	guide := storage.GuideInfoOf(mode.Guide, mode.U)
	return saveRun(cfg, storage.RunMetadata{
		Kind:     storage.KindFit,
		Guide:    &guide,
		FastAxis: cfg.Analyzer.FastAxis,
		Alpha:    &fit.Alpha,
		Stokes:   fit.Stokes,
		Fit: &storage.FitStats{
			InitialAlpha: cfg.InitialAlpha(),
			Residual:     fit.Residual,
			Iterations:   fit.Iterations,
			Evaluations:  fit.Evaluations,
		},
		Source: source,
	}, fit.Trace)
}

func saveRun(cfg *config.Config, meta storage.RunMetadata, tr optics.Trace) error {
	st, err := store(cfg)
	if err != nil {
		return err
	}
	id, err := st.Save(meta, tr)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", id)
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Logs would tear the alternate screen.
	exp, err := newExperiment(cfg, logging.Nop())
	if err != nil {
		return err
	}
	if _, err := exp.Mode(); err != nil {
		return err
	}

	opts := []viz.ExplorerOption{viz.WithTheme(theme)}
	if fromRun != "" {
		st := storage.New(cfg.DataDir)
		tr, err := st.LoadTrace(fromRun)
		if err != nil {
			return err
		}
		if tr.Len() != len(exp.Thetas()) {
			return fmt.Errorf("run %s has %d samples, analyzer has %d", fromRun, tr.Len(), len(exp.Thetas()))
		}
		opts = append(opts, viz.WithMeasured(tr), viz.WithTitle("fiberpol explorer · "+fromRun))
	}
	return viz.NewExplorer(exp, rad(alphaDeg), opts...).Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := server.LoadEnv(cfg, envFile); err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []server.Option{server.WithLogger(log), server.WithMetrics(metrics.New())}
	if !noSave {
		st, err := store(cfg)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithStore(st))
	}
	srv, err := server.New(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}

// runAnalyze treats a trace CSV as a lab measurement: the analyzer grid
// follows the file unless --samples is given.
func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	tr, err := storage.ReadTraceCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if !cmd.Flags().Changed("samples") {
		cfg.Analyzer.Samples = tr.Len()
	}

	exp, err := newExperiment(cfg, log)
	if err != nil {
		return err
	}
	st, err := exp.RecoverStokes(tr)
	if err != nil {
		return err
	}

	fmt.Println(viz.Report("analyze", st, viz.Row{Label: "source", Value: args[0]}))
	if !fitToo {
		fmt.Println(viz.PlotTrace(tr, viz.PlotOptions{Width: plotWidth, Caption: "recorded trace"}))
		if noSave {
			return nil
		}
		return saveRun(cfg, storage.RunMetadata{
			Kind:     storage.KindMeasure,
			FastAxis: cfg.Analyzer.FastAxis,
			Stokes:   st,
			Source:   args[0],
		}, tr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fit, err := exp.FitAngle(ctx, tr, cfg.InitialAlpha())
	if err != nil {
		return err
	}
	fmt.Println(viz.Report("fit", fit.Stokes, viz.FitRows(fit)...))
	fmt.Println(viz.PlotTraces(viz.PlotOptions{Width: plotWidth, Caption: "recorded vs fitted", Theme: &viz.ThemeLab},
		tr, fit.Trace))

	if noSave {
		return nil
	}
	mode, err := exp.Mode()
	if err != nil {
		return err
	}
	guide := storage.GuideInfoOf(mode.Guide, mode.U)
	return saveRun(cfg, storage.RunMetadata{
		Kind:     storage.KindFit,
		Guide:    &guide,
		FastAxis: cfg.Analyzer.FastAxis,
		Alpha:    &fit.Alpha,
		Stokes:   fit.Stokes,
		Fit: &storage.FitStats{
			InitialAlpha: cfg.InitialAlpha(),
			Residual:     fit.Residual,
			Iterations:   fit.Iterations,
			Evaluations:  fit.Evaluations,
		},
		Source: args[0],
	}, fit.Trace)
}
