package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/live"
	"github.com/san-kum/linesim/internal/sim"
	"github.com/san-kum/linesim/internal/track"
)

const (
	width         = 60
	height        = 30
	frameInterval = time.Second / 60
	speedCapacity = 120
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model renders a live session and forwards key presses to it.
type Model struct {
	session    *live.Session
	name       string
	view       Viewport
	background *Canvas
	canvas     *Canvas

	// ticks per frame, so the robot keeps pace with wall time
	ticksPerFrame int
	buttons       []int
	held          map[int]bool
	selected      int
	showTrail     bool
	speeds        []float64
	err           error
}

// NewModel prepares the track background once; m.Bitmap should be cached.
func NewModel(session *live.Session, m *track.Map, name string) Model {
	bg := NewCanvas(width, height)
	DrawTrack(bg, m.Bitmap)

	ticks := int(math.Round(float64(frameInterval) / float64(session.Interval())))
	return Model{
		session:       session,
		name:          name,
		view:          NewViewport(bg, m.Size),
		background:    bg,
		canvas:        NewCanvas(width, height),
		ticksPerFrame: max(ticks, 1),
		buttons:       session.Simulator().Buttons(),
		held:          make(map[int]bool),
		speeds:        make([]float64, 0, speedCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.session.Dispose()
			return m, tea.Quit
		case " ":
			if err := m.session.Toggle(); err != nil {
				m.err = err
			}
		case "tab":
			if len(m.buttons) > 0 {
				m.selected = (m.selected + 1) % len(m.buttons)
			}
		case "b", "enter":
			m.toggleButton()
		case "t":
			m.showTrail = !m.showTrail
		}
	case TickMsg:
		m.step()
		return m, tick()
	}
	return m, nil
}

// toggleButton holds or releases the selected button. Terminals report no
// key releases, so a button stays down until toggled again.
func (m *Model) toggleButton() {
	if len(m.buttons) == 0 {
		return
	}
	pin := m.buttons[m.selected]
	down := !m.held[pin]
	if err := m.session.SetButton(pin, down); err != nil {
		m.err = err
		return
	}
	m.held[pin] = down
}

func (m *Model) step() {
	s := m.session.Simulator()
	for i := 0; i < m.ticksPerFrame; i++ {
		before := s.Pose()
		stepped, err := m.session.Tick()
		if err != nil {
			m.err = err
		}
		if !stepped {
			return
		}
		v := kinematics.Distance(before, s.Pose()) / m.session.Interval().Seconds()
		m.speeds = append(m.speeds, v)
		if len(m.speeds) > speedCapacity {
			m.speeds = m.speeds[1:]
		}
	}
}

func (m *Model) draw() {
	s := m.session.Simulator()
	m.canvas.CopyFrom(m.background)
	if m.showTrail {
		hist := s.History()
		points := make([]sim.Point, len(hist))
		for i, h := range hist {
			points[i] = sim.Point{X: h.Pose.X, Y: h.Pose.Y}
		}
		DrawPath(m.canvas, m.view, points)
	}
	DrawRobot(m.canvas, m.view, s)
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return statusFault.Render("FAULT")
	case m.session.Running():
		return statusRunning.Render("RUNNING")
	default:
		return statusPaused.Render("PAUSED")
	}
}

func (m Model) sensors() string {
	s := m.session.Simulator()
	first := s.Robot().FirstSensorPin()
	var b strings.Builder
	for i := 0; i < hardware.SensorCount; i++ {
		if s.PinStatus(first + i) {
			b.WriteString(sensorWhite.Render("○"))
		} else {
			b.WriteString(sensorBlack.Render("●"))
		}
	}
	return b.String()
}

func (m Model) pins() string {
	s := m.session.Simulator()
	var b strings.Builder
	for _, pin := range s.Leds() {
		style := ledOff
		if s.PinStatus(pin) {
			style = ledOn
		}
		b.WriteString("LED " + style.Render(pinLabel(pin, s.PinStatus(pin))) + "\n")
	}
	for i, pin := range m.buttons {
		label := "BTN " + pinLabel(pin, s.PinStatus(pin))
		if i == m.selected {
			label = selected.Render("> " + label)
		} else {
			label = "  " + label
		}
		b.WriteString(label + "\n")
	}
	return b.String()
}

func (m Model) View() string {
	m.draw()
	s := m.session.Simulator()
	p := s.Pose()

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	b.WriteString(m.status() + "\n\n")
	b.WriteString(row("Time", fmt.Sprintf("%.2fs", float64(s.Time())/1000)))
	b.WriteString(row("Position", fmt.Sprintf("%.1f, %.1f", p.X, p.Y)))
	b.WriteString(row("Rotation", fmt.Sprintf("%.2f rad", p.Rotation)))
	b.WriteString(labelStyle.Render("Sensors") + m.sensors() + "\n\n")
	b.WriteString(m.pins())

	if d, ok := s.Robot().(hardware.Describer); ok {
		b.WriteString("\n" + valueStyle.Render(d.InternalState()) + "\n")
	}
	if len(m.speeds) > 1 {
		chart := asciigraph.Plot(m.speeds, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Speed px/s"))
		b.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + statusFault.Render(m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("SPACE run/pause  TAB select  B button  T trail  Q quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.canvas.String()), panelStyle.Render(b.String()))
}
