package viz

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	canvasStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466"))

	panelStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Width(48)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff")).
			MarginBottom(1)

	statusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusFault   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff"))

	ledOn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#ffc0cb")).Padding(0, 1)
	ledOff   = lipgloss.NewStyle().Foreground(lipgloss.Color("#cccccc")).Padding(0, 1)
	selected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff00ff"))

	sensorWhite = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	sensorBlack = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))

	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true).MarginTop(1)
)

func pinLabel(pin int, high bool) string {
	if high {
		return fmt.Sprintf("pin %d HIGH", pin)
	}
	return fmt.Sprintf("pin %d LOW", pin)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}
