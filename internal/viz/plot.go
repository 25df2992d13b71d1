package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fiberpol/internal/optics"
)

const (
	DefaultPlotWidth  = 72
	DefaultPlotHeight = 12
)

// PlotOptions sizes a terminal plot. Zero fields take the defaults.
type PlotOptions struct {
	Width   int
	Height  int
	Caption string
	Theme   *Theme
}

func (o PlotOptions) graphOptions(series int) []asciigraph.Option {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultPlotWidth
	}
	if h <= 0 {
		h = DefaultPlotHeight
	}
	opts := []asciigraph.Option{
		asciigraph.Width(w),
		asciigraph.Height(h),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
	}
	if o.Caption != "" {
		opts = append(opts, asciigraph.Caption(o.Caption))
	}
	if o.Theme != nil {
		colors := make([]asciigraph.AnsiColor, series)
		for i := range colors {
			colors[i] = o.Theme.Series[i%len(o.Theme.Series)]
		}
		opts = append(opts, asciigraph.SeriesColors(colors...))
	}
	return opts
}

// PlotTrace draws one normalized trace against analyzer angle.
func PlotTrace(tr optics.Trace, o PlotOptions) string {
	if tr.Len() == 0 {
		return ""
	}
	return asciigraph.Plot(tr.Intensity, o.graphOptions(1)...)
}

// PlotTraces overlays traces on a shared [0, 1] axis, typically the measured
// trace followed by the fitted one. Empty traces are skipped.
func PlotTraces(o PlotOptions, traces ...optics.Trace) string {
	series := make([][]float64, 0, len(traces))
	for _, tr := range traces {
		if tr.Len() > 0 {
			series = append(series, tr.Intensity)
		}
	}
	switch len(series) {
	case 0:
		return ""
	case 1:
		return asciigraph.Plot(series[0], o.graphOptions(1)...)
	}
	return asciigraph.PlotMany(series, o.graphOptions(len(series))...)
}
