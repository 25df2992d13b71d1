package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fiberpol/internal/monitor"
	"github.com/san-kum/fiberpol/internal/optics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Analyzer.Samples != optics.DefaultTraceSamples {
		t.Errorf("expected %d samples, got %d", optics.DefaultTraceSamples, cfg.Analyzer.Samples)
	}
	if cfg.Monitor.Divisions != monitor.DefaultDivisions {
		t.Errorf("expected %d divisions, got %d", monitor.DefaultDivisions, cfg.Monitor.Divisions)
	}
}

func TestGuideConversion(t *testing.T) {
	w, err := DefaultConfig().Guide()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(w.Radius-200e-9) > 1e-18 || math.Abs(w.Wavelength-785e-9) > 1e-18 {
		t.Errorf("unit conversion wrong: a=%g λ=%g", w.Radius, w.Wavelength)
	}
	if math.Abs(w.Phase-math.Pi/2) > 1e-15 {
		t.Errorf("expected ψ=π/2, got %g", w.Phase)
	}
}

func TestExperimentConversion(t *testing.T) {
	ec, err := DefaultConfig().Experiment()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ec.Bounds.Lo+math.Pi/2) > 1e-15 || math.Abs(ec.Bounds.Hi-math.Pi/2) > 1e-15 {
		t.Errorf("expected ±π/2 bounds, got %+v", ec.Bounds)
	}
	if ec.FastAxis != optics.FastAxisY {
		t.Errorf("expected fast axis y, got %v", ec.FastAxis)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad direction", func(c *Config) { c.Waveguide.Direction = "sideways" }},
		{"bad axis", func(c *Config) { c.Analyzer.FastAxis = "x" }},
		{"inverted indices", func(c *Config) { c.Waveguide.CoreIndex = 0.5 }},
		{"inverted bounds", func(c *Config) { c.Fit.LoDeg = 10; c.Fit.HiDeg = -10 }},
		{"zero divisions", func(c *Config) { c.Monitor.Divisions = 0 }},
		{"bad side", func(c *Config) { c.Monitor.Side = "left" }},
		{"no data dir", func(c *Config) { c.DataDir = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, optics.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiberpol.yaml")

	cfg := DefaultConfig()
	cfg.Waveguide.WavelengthNM = 850
	cfg.Fit.SeedPoints = 12
	cfg.Server.CORSOrigins = []string{"https://lab.example"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Waveguide.WavelengthNM != 850 || loaded.Fit.SeedPoints != 12 {
		t.Errorf("round trip lost values: %+v", loaded.Waveguide)
	}
	if len(loaded.Server.CORSOrigins) != 1 || loaded.Server.CORSOrigins[0] != "https://lab.example" {
		t.Errorf("origins not restored: %v", loaded.Server.CORSOrigins)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "waveguide:\n  radius_nm: 250\nanalyzer:\n  fast_axis: z\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Waveguide.RadiusNM != 250 {
		t.Errorf("expected radius 250, got %f", cfg.Waveguide.RadiusNM)
	}
	if cfg.Waveguide.WavelengthNM != DefaultWavelengthNM {
		t.Errorf("unset keys should keep defaults, wavelength %f", cfg.Waveguide.WavelengthNM)
	}
	if cfg.Analyzer.FastAxis != "z" || cfg.Analyzer.Samples != optics.DefaultTraceSamples {
		t.Errorf("analyzer section not merged: %+v", cfg.Analyzer)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("waveguide: [1, 2"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("nanofiber-850")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Waveguide.WavelengthNM != 850 {
		t.Errorf("expected wavelength 850, got %f", cfg.Waveguide.WavelengthNM)
	}

	cfg.Waveguide.RadiusNM = 1
	if GetPreset("nanofiber-850").Waveguide.RadiusNM == 1 {
		t.Error("presets must not be mutated through returned configs")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
