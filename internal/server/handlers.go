package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/san-kum/fiberpol/internal/experiment"
	"github.com/san-kum/fiberpol/internal/monitor"
	"github.com/san-kum/fiberpol/internal/optics"
	"github.com/san-kum/fiberpol/internal/storage"
)

// maxBody caps /calculate uploads; four 201×201 exports are a few MB.
const maxBody = 64 << 20

type DefaultValues struct {
	DivNo        int     `json:"divNo"`
	EsRealName   string  `json:"EsRealName"`
	EsImagName   string  `json:"EsImagName"`
	EpRealName   string  `json:"EpRealName"`
	EpImagName   string  `json:"EpImagName"`
	SimpleSim    bool    `json:"simpleSim"`
	Alpha        float64 `json:"alpha"`
	Fitting      bool    `json:"fitting"`
	InitialAlpha float64 `json:"initialAlpha"`
	MonitorSide  string  `json:"monitorSide"`
}

// CalculationRequest carries the four monitor exports inline. Angles are in
// degrees.
type CalculationRequest struct {
	DivNo         int     `json:"divNo"`
	EsRealContent string  `json:"EsRealContent"`
	EsImagContent string  `json:"EsImagContent"`
	EpRealContent string  `json:"EpRealContent"`
	EpImagContent string  `json:"EpImagContent"`
	SimpleSim     bool    `json:"simpleSim"`
	Alpha         float64 `json:"alpha"`
	Fitting       bool    `json:"fitting"`
	InitialAlpha  float64 `json:"initialAlpha"`
	MonitorSide   string  `json:"monitorSide,omitempty"`
}

// PolarizationResult is one state and trace; Theta is in degrees and Alpha
// is null for measured data.
type PolarizationResult struct {
	S1        float64   `json:"s1"`
	S2        float64   `json:"s2"`
	S3        float64   `json:"s3"`
	Theta     []float64 `json:"theta"`
	Alpha     *float64  `json:"alpha"`
	Intensity []float64 `json:"intensity"`
}

type CalculationResponse struct {
	FDTD      PolarizationResult  `json:"fdtd"`
	SimpleSim *PolarizationResult `json:"simpleSim"`
	Fitting   *PolarizationResult `json:"fitting"`
	Runs      []string            `json:"runs,omitempty"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind"`
}

func resultOf(st optics.Stokes, tr optics.Trace, alphaDeg *float64) PolarizationResult {
	return PolarizationResult{
		S1:        st.S1,
		S2:        st.S2,
		S3:        st.S3,
		Theta:     tr.ThetaDegrees(),
		Alpha:     alphaDeg,
		Intensity: tr.Intensity,
	}
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

// writeJSON sends v with the given status. Encoding failures happen after
// the header is out, so they are only logged.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("response not written", zap.Int("code", code), zap.Error(err))
	}
}

// errorKind names err for clients; "" means an internal failure.
func errorKind(err error) string {
	if errors.Is(err, monitor.ErrMalformed) {
		return "MalformedMonitor"
	}
	return optics.Kind(err)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errorKind(err)
	if kind == "" {
		s.log.Error("calculation failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal error", Kind: "Internal"})
		return
	}
	s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: err.Error(), Kind: kind})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) DefaultValuesHandler(w http.ResponseWriter, r *http.Request) {
	m := s.cfg.Monitor
	s.writeJSON(w, http.StatusOK, DefaultValues{
		DivNo:        m.Divisions,
		EsRealName:   m.Files.EsReal,
		EsImagName:   m.Files.EsImag,
		EpRealName:   m.Files.EpReal,
		EpImagName:   m.Files.EpImag,
		Alpha:        0,
		InitialAlpha: s.cfg.Fit.InitialDeg,
		MonitorSide:  m.Side,
	})
}

func (s *Server) CalculateHandler(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: err.Error(), Kind: "InvalidRequest"})
		return
	}
	if req.DivNo < 1 {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: fmt.Sprintf("divNo must be positive, got %d", req.DivNo), Kind: "InvalidRequest"})
		return
	}

	resp, err := s.calculate(r, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) calculate(r *http.Request, req CalculationRequest) (*CalculationResponse, error) {
	sideName := req.MonitorSide
	if sideName == "" {
		sideName = s.cfg.Monitor.Side
	}
	side, err := monitor.ParseSide(sideName)
	if err != nil {
		return nil, err
	}

	grid, err := monitor.ParseContents(monitor.Contents{
		EsReal: req.EsRealContent,
		EsImag: req.EsImagContent,
		EpReal: req.EpRealContent,
		EpImag: req.EpImagContent,
	}, req.DivNo)
	if err != nil {
		return nil, err
	}

	ec, err := s.cfg.Experiment()
	if err != nil {
		return nil, err
	}
	ec.Guide.Direction = side.Direction()

	exp, err := experiment.New(ec, experiment.WithLogger(s.log))
	if err != nil {
		return nil, err
	}

	sample := grid.OnAxis()
	fdtd, err := exp.EvaluateSample(sample)
	s.observe("measure", err)
	if err != nil {
		return nil, err
	}

	resp := &CalculationResponse{FDTD: resultOf(fdtd.Stokes, fdtd.Trace, nil)}
	s.record(storage.RunMetadata{Kind: storage.KindMeasure, Stokes: fdtd.Stokes, FastAxis: ec.FastAxis.String(), Source: "http"}, fdtd.Trace, resp)

	if req.SimpleSim {
		sim, err := exp.Simulate(rad(req.Alpha))
		s.observe("simulate", err)
		if err != nil {
			return nil, err
		}
		a := req.Alpha
		res := resultOf(sim.Stokes, sim.Trace, &a)
		resp.SimpleSim = &res

		guide := storage.GuideInfoOf(ec.Guide, 0)
		s.record(storage.RunMetadata{Kind: storage.KindSimulate, Guide: &guide, Alpha: &sim.Alpha, Stokes: sim.Stokes, FastAxis: ec.FastAxis.String(), Source: "http"}, sim.Trace, resp)
	}

	if req.Fitting {
		fit, err := exp.FitAngle(r.Context(), fdtd.Trace, rad(req.InitialAlpha))
		s.observe("fit", err)
		if err != nil {
			return nil, err
		}
		s.stats.ObserveFit(fit.Evaluations)
		a := deg(fit.Alpha)
		res := resultOf(fit.Stokes, fit.Trace, &a)
		resp.Fitting = &res

		guide := storage.GuideInfoOf(ec.Guide, 0)
		s.record(storage.RunMetadata{
			Kind:     storage.KindFit,
			Guide:    &guide,
			Alpha:    &fit.Alpha,
			Stokes:   fit.Stokes,
			FastAxis: ec.FastAxis.String(),
			Fit: &storage.FitStats{
				InitialAlpha: rad(req.InitialAlpha),
				Residual:     fit.Residual,
				Iterations:   fit.Iterations,
				Evaluations:  fit.Evaluations,
			},
			Source: "http",
		}, fit.Trace, resp)
	}

	return resp, nil
}

func (s *Server) observe(kind string, err error) {
	outcome := "ok"
	if err != nil {
		if outcome = errorKind(err); outcome == "" {
			outcome = "error"
		}
	}
	s.stats.ObserveAnalysis(kind, outcome)
}

// record saves a run when a store is configured. Storage failures are logged
// and do not fail the request.
func (s *Server) record(meta storage.RunMetadata, tr optics.Trace, resp *CalculationResponse) {
	if s.store == nil {
		return
	}
	id, err := s.store.Save(meta, tr)
	if err != nil {
		s.log.Warn("run not saved", zap.String("kind", string(meta.Kind)), zap.Error(err))
		return
	}
	resp.Runs = append(resp.Runs, id)
}
