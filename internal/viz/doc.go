// Package viz renders polarization results in the terminal and to image
// files.
//
//   - [PlotTrace] and [PlotTraces]: asciigraph plots of analyzer traces
//   - [Report]: a lipgloss panel with the Stokes parameters and fit summary
//   - [Explorer]: a Bubble Tea program that sweeps the scatterer angle
//   - [Ellipse]: the polarization ellipse drawn on a Braille [Canvas]
//   - [SavePlot]: PNG/SVG/PDF export through gonum/plot
//
// # Explorer keys
//
//	←/→ or h/l  - step α by the current increment
//	↑/↓ or k/j  - grow or shrink the increment
//	0           - reset α to zero
//	t           - cycle color themes
//	q           - quit
package viz
