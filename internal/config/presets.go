package config

import "sort"

// Presets are named waveguide setups. Only the waveguide section differs from
// the defaults.
var Presets = map[string]WaveguideConfig{
	"nanofiber-785": {
		RadiusNM: 200, CoreIndex: 1.45, CladIndex: 1.0, Azimuthal: 1, Radial: 1,
		WavelengthNM: 785, PhaseDeg: 90, Direction: "forward",
	},
	"nanofiber-850": {
		RadiusNM: 250, CoreIndex: 1.4525, CladIndex: 1.0, Azimuthal: 1, Radial: 1,
		WavelengthNM: 850, PhaseDeg: 90, Direction: "forward",
	},
	"nanofiber-633": {
		RadiusNM: 150, CoreIndex: 1.457, CladIndex: 1.0, Azimuthal: 1, Radial: 1,
		WavelengthNM: 633, PhaseDeg: 90, Direction: "forward",
	},
	"x-polarized": {
		RadiusNM: 200, CoreIndex: 1.45, CladIndex: 1.0, Azimuthal: 1, Radial: 1,
		WavelengthNM: 785, PhaseDeg: 0, Direction: "forward",
	},
	"backward": {
		RadiusNM: 200, CoreIndex: 1.45, CladIndex: 1.0, Azimuthal: 1, Radial: 1,
		WavelengthNM: 785, PhaseDeg: 90, Direction: "backward",
	},
	"water-clad": {
		RadiusNM: 250, CoreIndex: 1.45, CladIndex: 1.33, Azimuthal: 1, Radial: 1,
		WavelengthNM: 785, PhaseDeg: 90, Direction: "forward",
	},
}

// GetPreset returns the default configuration with the named waveguide, or
// nil when no such preset exists.
func GetPreset(name string) *Config {
	wg, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Waveguide = wg
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
