package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/fiberpol/internal/optics"
)

// ExportData is a self-contained JSON rendering of one run.
type ExportData struct {
	Run       RunMetadata `json:"run"`
	Theta     []float64   `json:"theta"`
	ThetaDeg  []float64   `json:"theta_deg"`
	Intensity []float64   `json:"intensity"`
}

func ExportJSON(w io.Writer, meta RunMetadata, trace optics.Trace) error {
	data := ExportData{
		Run:       meta,
		Theta:     trace.Theta,
		ThetaDeg:  trace.ThetaDegrees(),
		Intensity: trace.Intensity,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
