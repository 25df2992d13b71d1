package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(12)

	ErrorText = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values on [0, 1] as a one-line bar chart of the given
// width, resampling by nearest index. Values outside [0, 1] are clamped.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		v := values[i*len(values)/width]
		switch {
		case v != v || v < 0:
			v = 0
		case v > 1:
			v = 1
		}
		c := string(sparkChars[int(v*float64(len(sparkChars)-1)+0.5)])
		switch {
		case v > 0.7:
			b.WriteString(SparkHigh.Render(c))
		case v > 0.3:
			b.WriteString(SparkMid.Render(c))
		default:
			b.WriteString(SparkLow.Render(c))
		}
	}
	return b.String()
}

// Separator is a muted horizontal rule with a center mark.
func Separator(width int) string {
	if width < 8 {
		width = 8
	}
	mid := width / 2
	return Subtle.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}

// Bar draws a signed bar for a Stokes component on [-1, 1]; half is the
// number of cells on each side of the center.
func Bar(v float64, half int) string {
	if v != v {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	n := int(v*float64(half) + 0.5*sign(v))
	left := strings.Repeat(" ", half)
	right := strings.Repeat(" ", half)
	if n < 0 {
		left = strings.Repeat(" ", half+n) + strings.Repeat("█", -n)
	} else if n > 0 {
		right = strings.Repeat("█", n) + strings.Repeat(" ", half-n)
	}
	return left + Subtle.Render("│") + right
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
