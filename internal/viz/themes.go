package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the colours of the side panel and interaction marker.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Attract lipgloss.Color
	Repel   lipgloss.Color
}

var (
	ThemeNebula = Theme{
		Name:    "nebula",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff66cc"),
		Muted:   lipgloss.Color("#666688"),
		Text:    lipgloss.Color("#e0e0ff"),
		Attract: lipgloss.Color("#ffee55"),
		Repel:   lipgloss.Color("#ff5555"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#cccccc"),
		Muted:   lipgloss.Color("#777777"),
		Text:    lipgloss.Color("#dddddd"),
		Attract: lipgloss.Color("#ffffff"),
		Repel:   lipgloss.Color("#999999"),
	}

	ThemeEmber = Theme{
		Name:    "ember",
		Primary: lipgloss.Color("#ff8800"),
		Accent:  lipgloss.Color("#ffcc00"),
		Muted:   lipgloss.Color("#663300"),
		Text:    lipgloss.Color("#ffe0c0"),
		Attract: lipgloss.Color("#ffff88"),
		Repel:   lipgloss.Color("#ff3300"),
	}
)

var Themes = []Theme{ThemeNebula, ThemeMono, ThemeEmber}

func NextTheme(cur int) int {
	return (cur + 1) % len(Themes)
}

// MarkerColor is the interaction marker colour for the current state.
func (t Theme) MarkerColor(attracting bool) string {
	if attracting {
		return string(t.Attract)
	}
	return string(t.Repel)
}
