// Package storage keeps analysis runs on disk: one directory per run holding
// metadata.json and trace.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/fiberpol/internal/fiber"
	"github.com/san-kum/fiberpol/internal/optics"
)

// ErrRunNotFound indicates an unknown run ID.
var ErrRunNotFound = errors.New("storage: run not found")

type Kind string

const (
	KindSimulate Kind = "simulate"
	KindMeasure  Kind = "measure"
	KindFit      Kind = "fit"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// GuideInfo is the waveguide as recorded with a run, in lab units.
type GuideInfo struct {
	RadiusNM     float64 `json:"radius_nm"`
	CoreIndex    float64 `json:"core_index"`
	CladIndex    float64 `json:"clad_index"`
	Azimuthal    int     `json:"azimuthal"`
	Radial       int     `json:"radial"`
	WavelengthNM float64 `json:"wavelength_nm"`
	PhaseRad     float64 `json:"phase_rad"`
	Direction    string  `json:"direction"`
	V            float64 `json:"v"`
	U            float64 `json:"u,omitempty"`
}

// GuideInfoOf records w and, when known, its eigenvalue u.
func GuideInfoOf(w fiber.Waveguide, u float64) GuideInfo {
	return GuideInfo{
		RadiusNM:     w.Radius * 1e9,
		CoreIndex:    w.CoreIndex,
		CladIndex:    w.CladIndex,
		Azimuthal:    w.Azimuthal,
		Radial:       w.Radial,
		WavelengthNM: w.Wavelength * 1e9,
		PhaseRad:     w.Phase,
		Direction:    w.Direction.String(),
		V:            w.V(),
		U:            u,
	}
}

type FitStats struct {
	InitialAlpha float64 `json:"initial_alpha"`
	Residual     float64 `json:"residual"`
	Iterations   int     `json:"iterations"`
	Evaluations  int     `json:"evaluations"`
}

type RunMetadata struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	Guide     *GuideInfo    `json:"guide,omitempty"`
	FastAxis  string        `json:"fast_axis"`
	Samples   int           `json:"samples"`
	Alpha     *float64      `json:"alpha,omitempty"`
	Stokes    optics.Stokes `json:"stokes"`
	Fit       *FitStats     `json:"fit,omitempty"`
	Source    string        `json:"source,omitempty"`
}

// Save writes a run and returns its ID, "<kind>_<8 hex chars>". ID and
// Timestamp in meta are filled in.
func (s *Store) Save(meta RunMetadata, trace optics.Trace) (string, error) {
	if meta.Kind == "" {
		return "", fmt.Errorf("storage: run kind is required")
	}

	runID := fmt.Sprintf("%s_%s", meta.Kind, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now().UTC()
	meta.Samples = trace.Len()

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteTraceCSV(csvFile, trace); err != nil {
		return "", err
	}

	return runID, nil
}

// WriteTraceCSV writes a theta,intensity table with full float precision.
func WriteTraceCSV(out io.Writer, trace optics.Trace) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"theta", "intensity"}); err != nil {
		return err
	}
	for i := range trace.Intensity {
		row := []string{
			strconv.FormatFloat(trace.Theta[i], 'g', -1, 64),
			strconv.FormatFloat(trace.Intensity[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadTraceCSV parses the format written by WriteTraceCSV.
func ReadTraceCSV(in io.Reader) (optics.Trace, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return optics.Trace{}, err
	}

	tr := optics.Trace{Theta: []float64{}, Intensity: []float64{}}
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			continue
		}
		th, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return optics.Trace{}, fmt.Errorf("trace row %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return optics.Trace{}, fmt.Errorf("trace row %d: %w", i, err)
		}
		tr.Theta = append(tr.Theta, th)
		tr.Intensity = append(tr.Intensity, v)
	}
	return tr, nil
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(runID), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadTrace(runID string) (optics.Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, filepath.Base(runID), "trace.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return optics.Trace{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return optics.Trace{}, err
	}
	defer file.Close()

	return ReadTraceCSV(file)
}
