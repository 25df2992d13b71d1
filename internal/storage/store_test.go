package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/san-kum/fiberpol/internal/fiber"
	"github.com/san-kum/fiberpol/internal/optics"
)

func sampleTrace() optics.Trace {
	th := optics.AngleGrid(4)
	return optics.Trace{Theta: th, Intensity: []float64{1, 0.123456789012345, 0, 0.5}}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	alpha := 0.3
	guide := GuideInfoOf(fiber.DefaultWaveguide(), 1.2)
	meta := RunMetadata{
		Kind:     KindFit,
		Guide:    &guide,
		FastAxis: "y",
		Alpha:    &alpha,
		Stokes:   optics.Stokes{S0: 1, S1: 0.1, S2: 0.2, S3: -0.97},
		Fit:      &FitStats{InitialAlpha: 0, Residual: 1e-9, Iterations: 30, Evaluations: 61},
	}

	runID, err := st.Save(meta, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !regexp.MustCompile(`^fit_[0-9a-f]{8}$`).MatchString(runID) {
		t.Errorf("unexpected run id %q", runID)
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Kind != KindFit {
		t.Errorf("expected kind fit, got %s", loaded.Kind)
	}
	if loaded.Alpha == nil || *loaded.Alpha != 0.3 {
		t.Errorf("expected alpha 0.3, got %v", loaded.Alpha)
	}
	if loaded.Stokes.S3 != -0.97 {
		t.Errorf("expected s3 -0.97, got %f", loaded.Stokes.S3)
	}
	if loaded.Fit == nil || loaded.Fit.Evaluations != 61 {
		t.Errorf("fit stats not restored: %+v", loaded.Fit)
	}
	if loaded.Samples != 4 {
		t.Errorf("expected 4 samples, got %d", loaded.Samples)
	}
	if loaded.Guide == nil || loaded.Guide.WavelengthNM < 784.9 || loaded.Guide.WavelengthNM > 785.1 {
		t.Errorf("guide not restored: %+v", loaded.Guide)
	}

	tr, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	want := sampleTrace()
	if tr.Len() != want.Len() {
		t.Fatalf("expected %d samples, got %d", want.Len(), tr.Len())
	}
	for i := range want.Intensity {
		if tr.Intensity[i] != want.Intensity[i] || tr.Theta[i] != want.Theta[i] {
			t.Errorf("sample %d not restored exactly", i)
		}
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for _, k := range []Kind{KindSimulate, KindMeasure} {
		if _, err := st.Save(RunMetadata{Kind: k}, sampleTrace()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	// stray files are ignored
	_ = os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755)

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].Timestamp.After(runs[1].Timestamp) && !runs[0].Timestamp.Equal(runs[1].Timestamp) {
		t.Error("runs should be listed newest first")
	}
}

func TestStoreListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "nope")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Kind: KindSimulate}, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "trace.csv")); os.IsNotExist(err) {
		t.Error("trace.csv not created")
	}
}

func TestStoreErrors(t *testing.T) {
	st := New(t.TempDir())

	if _, err := st.Save(RunMetadata{}, sampleTrace()); err == nil {
		t.Error("expected an error for a run without kind")
	}
	if _, err := st.Load("fit_deadbeef"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadTrace("fit_deadbeef"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestReadTraceCSVBadRow(t *testing.T) {
	_, err := ReadTraceCSV(bytes.NewBufferString("theta,intensity\n0,abc\n"))
	if err == nil {
		t.Error("expected a parse error")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	alpha := 0.5
	if err := ExportJSON(&buf, RunMetadata{ID: "simulate_01234567", Kind: KindSimulate, Alpha: &alpha}, sampleTrace()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Run.ID != "simulate_01234567" || len(data.Intensity) != 4 {
		t.Errorf("unexpected export: %+v", data)
	}
	if math.Abs(data.ThetaDeg[2]-180) > 1e-9 {
		t.Errorf("expected 180°, got %f", data.ThetaDeg[2])
	}
}
