package viz

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/fiberpol/internal/optics"
)

// Series is one named trace of an exported figure.
type Series struct {
	Name  string
	Trace optics.Trace
}

const (
	FigureWidth  = 6 * vg.Inch
	FigureHeight = 4 * vg.Inch
)

func newFigure(title string, series []Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("viz: no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "analyzer angle θ (deg)"
	p.Y.Label.Text = "normalized intensity"
	p.X.Min, p.X.Max = 0, 360
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Add(plotter.NewGrid())

	lines := make([]interface{}, 0, 2*len(series))
	for _, s := range series {
		if len(s.Trace.Theta) != len(s.Trace.Intensity) {
			return nil, fmt.Errorf("viz: series %q has %d angles and %d intensities",
				s.Name, len(s.Trace.Theta), len(s.Trace.Intensity))
		}
		deg := s.Trace.ThetaDegrees()
		pts := make(plotter.XYs, len(deg))
		for i := range deg {
			pts[i].X = deg[i]
			pts[i].Y = s.Trace.Intensity[i]
		}
		lines = append(lines, s.Name, pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// SavePlot writes the traces as a figure; the format follows the file
// extension (png, svg, pdf, ...).
func SavePlot(path, title string, series ...Series) error {
	p, err := newFigure(title, series)
	if err != nil {
		return err
	}
	return p.Save(FigureWidth, FigureHeight, path)
}

// WritePlot renders the figure in the given format ("png", "svg", ...) to w.
func WritePlot(w io.Writer, format, title string, series ...Series) error {
	p, err := newFigure(title, series)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(FigureWidth, FigureHeight, strings.TrimPrefix(format, "."))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// FormatOf returns the figure format implied by path, defaulting to png.
func FormatOf(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "png"
	}
	return ext
}
