package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles derived from a theme for one render
type styles struct {
	panel  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	accent lipgloss.Style
	help   lipgloss.Style
	graph  lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(panelWidth),
		header: lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		accent: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		help:   lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		graph:  lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// IntensityBar renders v in [0,1] as a filled bar.
func IntensityBar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// WindowStrip renders the gesture window as digits, padded to capacity.
func WindowStrip(window []int, capacity int) string {
	var b strings.Builder
	for i := 0; i < capacity; i++ {
		if i < len(window) {
			b.WriteByte(byte('0' + window[i]))
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
