package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fiberpol/internal/optics"
)

// Row is one labelled line of a report panel.
type Row struct {
	Label string
	Value string
}

// AngleRow formats an angle given in radians as degrees.
func AngleRow(label string, rad float64) Row {
	return Row{Label: label, Value: fmt.Sprintf("%.3f°", rad*180/math.Pi)}
}

// FitRows summarizes a fit result.
func FitRows(r optics.FitResult) []Row {
	return []Row{
		AngleRow("alpha", r.Alpha),
		{Label: "residual", Value: fmt.Sprintf("%.3e", r.Residual)},
		{Label: "iterations", Value: fmt.Sprintf("%d", r.Iterations)},
		{Label: "evaluations", Value: fmt.Sprintf("%d", r.Evaluations)},
	}
}

// Shape classifies a polarization state by its circular component.
func Shape(s optics.Stokes) string {
	a := math.Abs(s.S3)
	switch {
	case a < 0.02:
		return "linear"
	case a > 0.98:
		return "circular"
	}
	return "elliptical"
}

// Report renders a bordered panel: title, the extra rows, then the Stokes
// parameters as signed bars with the degree of polarization and shape.
func Report(title string, s optics.Stokes, rows ...Row) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title))
	b.WriteByte('\n')

	for _, r := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			MetricLabel.Render(r.Label), MetricValue.Render(r.Value)))
		b.WriteByte('\n')
	}
	if len(rows) > 0 {
		b.WriteString(Separator(36))
		b.WriteByte('\n')
	}

	for _, c := range []struct {
		name string
		v    float64
	}{{"s1", s.S1}, {"s2", s.S2}, {"s3", s.S3}} {
		fmt.Fprintf(&b, "%s %s %s\n",
			MetricLabel.Render(c.name),
			MetricValue.Render(fmt.Sprintf("%+.4f", c.v)),
			Bar(c.v, 10))
	}
	fmt.Fprintf(&b, "%s %s %s",
		MetricLabel.Render("DoP"),
		MetricValue.Render(fmt.Sprintf("%.4f", s.DegreeOfPolarization())),
		Subtle.Render(Shape(s)))

	return Panel.Render(b.String())
}
