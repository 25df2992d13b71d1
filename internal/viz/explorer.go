package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fiberpol/internal/experiment"
	"github.com/san-kum/fiberpol/internal/optics"
)

// Simulator predicts the outcome at a scatterer angle in radians.
type Simulator interface {
	Simulate(alpha float64) (experiment.Outcome, error)
}

// increments of α in degrees, selected with up/down.
var increments = []float64{0.1, 1, 5, 15, 45}

// Explorer is a Bubble Tea model that recomputes the predicted state as
// the user steps the scatterer angle. An optional measured trace is drawn
// under the prediction.
type Explorer struct {
	sim      Simulator
	title    string
	alpha    float64
	stepIdx  int
	theme    Theme
	measured optics.Trace
	outcome  experiment.Outcome
	err      error
	width    int
}

type ExplorerOption func(*Explorer)

// WithMeasured overlays a measured trace.
func WithMeasured(tr optics.Trace) ExplorerOption {
	return func(e *Explorer) { e.measured = tr.Clone() }
}

func WithTheme(name string) ExplorerOption {
	return func(e *Explorer) { e.theme = ThemeByName(name) }
}

func WithTitle(title string) ExplorerOption {
	return func(e *Explorer) { e.title = title }
}

// NewExplorer starts at alpha (radians) and evaluates it immediately.
func NewExplorer(sim Simulator, alpha float64, opts ...ExplorerOption) *Explorer {
	e := &Explorer{
		sim:     sim,
		title:   "fiberpol explorer",
		stepIdx: 1,
		theme:   ThemeLab,
		width:   DefaultPlotWidth + 12,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.setAlpha(alpha)
	return e
}

// Alpha is the current scatterer angle in radians, wrapped to [-π, π].
func (e *Explorer) Alpha() float64 { return e.alpha }

// Outcome is the prediction at Alpha, valid when Err is nil.
func (e *Explorer) Outcome() experiment.Outcome { return e.outcome }

func (e *Explorer) Err() error { return e.err }

func (e *Explorer) Theme() Theme { return e.theme }

// Step is the current α increment in degrees.
func (e *Explorer) Step() float64 { return increments[e.stepIdx] }

func (e *Explorer) setAlpha(alpha float64) {
	e.alpha = math.Remainder(alpha, 2*math.Pi)
	e.outcome, e.err = e.sim.Simulate(e.alpha)
}

func (e *Explorer) Init() tea.Cmd { return nil }

func (e *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = msg.Width
	case tea.KeyMsg:
		step := increments[e.stepIdx] * math.Pi / 180
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return e, tea.Quit
		case "right", "l":
			e.setAlpha(e.alpha + step)
		case "left", "h":
			e.setAlpha(e.alpha - step)
		case "up", "k":
			if e.stepIdx < len(increments)-1 {
				e.stepIdx++
			}
		case "down", "j":
			if e.stepIdx > 0 {
				e.stepIdx--
			}
		case "0":
			e.setAlpha(0)
		case "t":
			e.theme = e.theme.next()
		}
	}
	return e, nil
}

func (e *Explorer) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(e.theme.Primary).Render(e.title)
	status := lipgloss.NewStyle().Foreground(e.theme.Accent).Render(
		fmt.Sprintf("α = %+.2f°   step %.1f°", e.alpha*180/math.Pi, e.Step()))

	var b strings.Builder
	b.WriteString(title + "  " + status + "\n\n")

	if e.err != nil {
		b.WriteString(ErrorText.Render("error: "+e.err.Error()) + "\n")
	} else {
		report := Report("state", e.outcome.Stokes, AngleRow("alpha", e.alpha))
		ellipse := Panel.Render(Ellipse(e.outcome.Stokes, 16, 8))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, report, " ", ellipse))
		b.WriteString("\n\n")

		w := e.width - 12
		if w < 20 {
			w = 20
		}
		opts := PlotOptions{Width: w, Height: DefaultPlotHeight, Theme: &e.theme,
			Caption: "normalized intensity vs analyzer angle 0..360°"}
		b.WriteString(PlotTraces(opts, e.measured, e.outcome.Trace))
		b.WriteByte('\n')
	}

	b.WriteString("\n" + lipgloss.NewStyle().Foreground(e.theme.Muted).Italic(true).Render(
		"←/→ alpha  ↑/↓ step  0 reset  t theme  q quit"))
	return b.String()
}

// Run blocks until the user quits.
func (e *Explorer) Run() error {
	_, err := tea.NewProgram(e, tea.WithAltScreen()).Run()
	return err
}
