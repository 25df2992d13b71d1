package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fiberpol/internal/experiment"
	"github.com/san-kum/fiberpol/internal/fiber"
	"github.com/san-kum/fiberpol/internal/logging"
	"github.com/san-kum/fiberpol/internal/monitor"
	"github.com/san-kum/fiberpol/internal/optics"
	"github.com/san-kum/fiberpol/internal/optim"
)

const (
	DefaultRadiusNM     = 200.0
	DefaultWavelengthNM = 785.0
	DefaultCoreIndex    = 1.45
	DefaultCladIndex    = 1.0
	DefaultPhaseDeg     = 90.0
	DefaultAddr         = ":8000"
	DefaultDataDir      = "./runs"
)

var DefaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Config is the on-disk configuration. Lengths are in nanometres and angles
// in degrees; conversion to SI and radians happens in Experiment.
type Config struct {
	Waveguide WaveguideConfig `yaml:"waveguide"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Solver    SolverConfig    `yaml:"solver"`
	Fit       FitConfig       `yaml:"fit"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Log       logging.Config  `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	DataDir   string          `yaml:"data_dir"`
}

type WaveguideConfig struct {
	RadiusNM     float64 `yaml:"radius_nm"`
	CoreIndex    float64 `yaml:"core_index"`
	CladIndex    float64 `yaml:"clad_index"`
	Azimuthal    int     `yaml:"azimuthal"`
	Radial       int     `yaml:"radial"`
	WavelengthNM float64 `yaml:"wavelength_nm"`
	PhaseDeg     float64 `yaml:"phase_deg"`
	Direction    string  `yaml:"direction"`
}

type AnalyzerConfig struct {
	Samples  int    `yaml:"samples"`
	FastAxis string `yaml:"fast_axis"`
}

type SolverConfig struct {
	Samples int `yaml:"samples"`
}

type FitConfig struct {
	LoDeg          float64 `yaml:"lo_deg"`
	HiDeg          float64 `yaml:"hi_deg"`
	InitialDeg     float64 `yaml:"initial_deg"`
	MaxIterations  int     `yaml:"max_iterations"`
	MaxEvaluations int     `yaml:"max_evaluations"`
	Tolerance      float64 `yaml:"tolerance"`
	SeedPoints     int     `yaml:"seed_points"`
}

type MonitorConfig struct {
	Divisions int               `yaml:"divisions"`
	Side      string            `yaml:"side"`
	Files     monitor.FileNames `yaml:"files"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

func DefaultConfig() *Config {
	return &Config{
		Waveguide: WaveguideConfig{
			RadiusNM:     DefaultRadiusNM,
			CoreIndex:    DefaultCoreIndex,
			CladIndex:    DefaultCladIndex,
			Azimuthal:    1,
			Radial:       1,
			WavelengthNM: DefaultWavelengthNM,
			PhaseDeg:     DefaultPhaseDeg,
			Direction:    optics.Forward.String(),
		},
		Analyzer: AnalyzerConfig{
			Samples:  optics.DefaultTraceSamples,
			FastAxis: optics.FastAxisY.String(),
		},
		Solver: SolverConfig{Samples: fiber.DefaultSamples},
		Fit: FitConfig{
			LoDeg:          -90,
			HiDeg:          90,
			MaxIterations:  optim.DefaultMaxIterations,
			MaxEvaluations: optim.DefaultMaxEvaluations,
			Tolerance:      optim.DefaultFuncTolerance,
		},
		Monitor: MonitorConfig{
			Divisions: monitor.DefaultDivisions,
			Side:      monitor.Opposite.String(),
			Files:     monitor.DefaultFileNames(),
		},
		Log: logging.DefaultConfig(),
		Server: ServerConfig{
			Addr:        DefaultAddr,
			CORSOrigins: append([]string(nil), DefaultCORSOrigins...),
		},
		DataDir: DefaultDataDir,
	}
}

// Load reads a YAML file over the defaults, so a file only needs the keys
// it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func deg(d float64) float64 { return d * math.Pi / 180 }

// Guide converts the waveguide section to SI units.
func (c *Config) Guide() (fiber.Waveguide, error) {
	dir, err := optics.ParseDirection(c.Waveguide.Direction)
	if err != nil {
		return fiber.Waveguide{}, err
	}
	w := fiber.Waveguide{
		Radius:     c.Waveguide.RadiusNM * 1e-9,
		CoreIndex:  c.Waveguide.CoreIndex,
		CladIndex:  c.Waveguide.CladIndex,
		Azimuthal:  c.Waveguide.Azimuthal,
		Radial:     c.Waveguide.Radial,
		Wavelength: c.Waveguide.WavelengthNM * 1e-9,
		Phase:      deg(c.Waveguide.PhaseDeg),
		Direction:  dir,
	}
	return w, w.Validate()
}

// MonitorSide parses the monitor section's side.
func (c *Config) MonitorSide() (monitor.Side, error) {
	return monitor.ParseSide(c.Monitor.Side)
}

// InitialAlpha is the configured fit start in radians.
func (c *Config) InitialAlpha() float64 {
	return deg(c.Fit.InitialDeg)
}

// Experiment builds a validated orchestrator configuration.
func (c *Config) Experiment() (experiment.Config, error) {
	guide, err := c.Guide()
	if err != nil {
		return experiment.Config{}, err
	}
	axis, err := optics.ParseFastAxis(c.Analyzer.FastAxis)
	if err != nil {
		return experiment.Config{}, err
	}

	ec := experiment.Config{
		Guide:         guide,
		TraceSamples:  c.Analyzer.Samples,
		FastAxis:      axis,
		Bounds:        optim.Bounds{Lo: deg(c.Fit.LoDeg), Hi: deg(c.Fit.HiDeg)},
		SolverSamples: c.Solver.Samples,
		Fit: experiment.FitOptions{
			MaxIterations:  c.Fit.MaxIterations,
			MaxEvaluations: c.Fit.MaxEvaluations,
			Tolerance:      c.Fit.Tolerance,
			SeedPoints:     c.Fit.SeedPoints,
		},
	}
	return ec, ec.Validate()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.Experiment(); err != nil {
		return err
	}
	if _, err := c.MonitorSide(); err != nil {
		return err
	}
	if c.Monitor.Divisions < 1 {
		return fmt.Errorf("%w: monitor divisions must be positive, got %d", optics.ErrInvalidConfig, c.Monitor.Divisions)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data_dir is empty", optics.ErrInvalidConfig)
	}
	return nil
}
