package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/metrics"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	panelWidth    = 38

	// canvas padding, matches canvasStyle
	padX = 2
	padY = 1

	historyCapacity = 120
)

var canvasStyle = lipgloss.NewStyle().Padding(padY, padX)

type TickMsg time.Time

type Options struct {
	Engine  *engine.Engine
	Pointer *input.Pointer
	// Hand is driven from the keyboard when set. Leave nil when the engine
	// has another hand source, such as a replay script.
	Hand *input.Hand
	FPS  int
}

// Model is the live terminal viewer. It ticks the engine itself, so the
// engine must not also be driven by Run.
type Model struct {
	eng     *engine.Engine
	pointer *input.Pointer
	hand    *input.Hand
	proj    *Projector
	canvas  *Canvas

	fps      int
	t        float64
	paused   bool
	showHelp bool
	theme    int

	fingers int
	pinch   bool

	frame       *engine.Frame
	drawn       int
	convergence []float64

	width, height int
}

func NewModel(opts Options) Model {
	fps := opts.FPS
	if fps <= 0 {
		fps = opts.Engine.Config().Render.FPS
	}
	pointer := opts.Pointer
	if pointer == nil {
		pointer = input.NewPointer()
	}

	m := Model{
		eng:         opts.Engine,
		pointer:     pointer,
		hand:        opts.Hand,
		proj:        NewProjector(opts.Engine.Camera(), opts.Engine.Buffer().Colors),
		fps:         fps,
		convergence: make([]float64, 0, historyCapacity),
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Run starts the viewer in the alternate screen with mouse tracking.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err := p.Run()
	return err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if !m.paused {
			m.step()
		}
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.MouseMsg:
		m.mouse(msg)
	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	cw := max(w-panelWidth-2*padX-1, 10)
	ch := max(h-2*padY, 5)
	m.canvas = NewCanvas(cw, ch)
	m.eng.Resize(m.canvas.DotsWide(), m.canvas.DotsHigh())
}

func (m *Model) mouse(msg tea.MouseMsg) {
	cx := float64(msg.X-padX) + 0.5
	cy := float64(msg.Y-padY) + 0.5
	if cx < 0 || cy < 0 || cx > float64(m.canvas.Width) || cy > float64(m.canvas.Height) {
		m.pointer.Leave()
		return
	}
	m.pointer.Move(input.ScreenToNDC(cx, cy, m.canvas.Width, m.canvas.Height))

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.pointer.Press(true)
		}
	case tea.MouseActionRelease:
		m.pointer.Press(false)
	}
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k := msg.String(); k {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.paused = !m.paused
	case "s", "tab":
		m.eng.NextShape()
	case "m":
		if m.eng.Mode() == interact.Pointer {
			m.eng.SetMode(interact.Hand)
		} else {
			m.eng.SetMode(interact.Pointer)
		}
	case "p":
		m.pinch = !m.pinch
	case "t":
		m.theme = NextTheme(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	case "0", "1", "2", "3", "4", "5":
		m.fingers = int(k[0] - '0')
	}
	return m, nil
}

// step publishes the keyboard hand, ticks the engine and redraws.
func (m *Model) step() {
	if m.hand != nil && m.eng.Mode() == interact.Hand {
		sample, _ := m.pointer.Pointer()
		m.hand.Publish(interact.HandSample{
			FingerCount:        m.fingers,
			IsPinching:         m.pinch,
			NormalizedPosition: [2]float64{(sample.NDC[0] + 1) / 2, (1 - sample.NDC[1]) / 2},
			Detected:           true,
		})
	}

	m.t += 1 / float64(m.fps)
	m.frame = m.eng.Tick(m.t)

	theme := Themes[m.theme]
	m.drawn = m.proj.Draw(m.canvas, m.frame, theme.MarkerColor(m.frame.Interaction.Attracting))

	if len(m.convergence) == historyCapacity {
		copy(m.convergence, m.convergence[1:])
		m.convergence = m.convergence[:historyCapacity-1]
	}
	m.convergence = append(m.convergence, metrics.MeanTargetDistance(m.frame.Positions, m.frame.Targets))
}

func (m Model) View() string {
	theme := Themes[m.theme]
	st := newStyles(theme)

	canvasView := canvasStyle.Render(m.canvas.Render())

	var s strings.Builder
	s.WriteString(st.header.Render("MORPHCLOUD") + "\n")

	status := "RUNNING"
	if m.paused {
		status = "PAUSED"
	}
	s.WriteString(st.accent.Render(status) + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}

	if m.frame == nil {
		row("Shape", m.eng.Shape().String())
	} else {
		f := m.frame
		row("Shape", f.Shape.String())
		row("Mode", f.Interaction.Mode.String())
		row("Interact", interactionLabel(f.Interaction))
		row("Intensity", IntensityBar(f.Intensity, 16))
		row("Pulled", fmt.Sprintf("%d", f.Stats.Attracted))
		row("Pushed", fmt.Sprintf("%d", f.Stats.Repelled))
		row("Time", fmt.Sprintf("%.1fs", f.Time))
	}

	if m.eng.Mode() == interact.Hand {
		s.WriteString("\n")
		if m.hand != nil {
			pinch := "open"
			if m.pinch {
				pinch = "pinch"
			}
			row("Hand", fmt.Sprintf("%d fingers, %s", m.fingers, pinch))
		}
		row("Gesture", WindowStrip(m.eng.GestureWindow(), m.eng.Config().Gesture.Capacity))
		if k, ok := gesture.ShapeFor(m.fingers); ok && m.hand != nil {
			row("Target", k.String())
		}
	}

	s.WriteString("\n")
	perf := m.eng.Perf()
	row("Particles", fmt.Sprintf("%d/%d", m.drawn, m.eng.Buffer().N))
	row("Tick", fmt.Sprintf("%dµs", perf.AvgTickDuration.Microseconds()))
	row("Theme", theme.Name)

	if len(m.convergence) > 1 {
		chart := asciigraph.Plot(m.convergence,
			asciigraph.Height(4),
			asciigraph.Width(panelWidth-12),
			asciigraph.Caption("distance to target"))
		s.WriteString("\n" + st.graph.Render(chart) + "\n")
	}

	help := "SP:Pause S:Shape M:Mode Q:Quit\n0-5:Fingers P:Pinch T:Theme"
	if m.showHelp {
		help = helpText
	}
	s.WriteString(st.help.Render(help))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
}

func interactionLabel(st interact.State) string {
	switch {
	case !st.Active:
		return "idle"
	case st.Attracting:
		return fmt.Sprintf("attract (%.0f, %.0f)", st.Point.X(), st.Point.Y())
	default:
		return fmt.Sprintf("repel (%.0f, %.0f)", st.Point.X(), st.Point.Y())
	}
}

const helpText = `mouse    move to repel, hold to attract
space    pause / resume
s, tab   next shape
m        pointer / hand mode
0-5      held finger count (hand)
p        toggle pinch (hand)
t        cycle theme
?        toggle this help
q        quit`
