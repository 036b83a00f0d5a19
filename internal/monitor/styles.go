package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ldash/internal/series"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent    = lipgloss.Color("#FF2E97")
	ColorAccentDim = lipgloss.Color("#BF40FF")

	ColorGraph = lipgloss.Color("#00FFFF")
)

// lineColors tell apart the lines of a multi-line chart.
var lineColors = []lipgloss.Color{ColorGraph, ColorAccent, ColorAccentDim, ColorHealthy, ColorWarning}

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	CardSelectedStyle = CardStyle.
				BorderForeground(ColorAccent)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorAccent).
			Bold(true).
			Padding(0, 1)
)

// Status indicator characters
const (
	StatusConnected    = "◉"
	StatusDisconnected = "◌"
	StatusNegotiating  = "◐"
)

// ConnectingSpinnerFrames animate the negotiation screen.
var ConnectingSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// LevelColor maps a chart level to its line color.
func LevelColor(l series.Level) lipgloss.Color {
	switch l {
	case series.LevelAlert:
		return ColorCritical
	case series.LevelWarning:
		return ColorWarning
	}
	return ColorHealthy
}

// SectionHeader renders a title on the left and a value on the right,
// separated by a rule: Title ───────── Value
func SectionHeader(title, value string, width int) string {
	fill := width - lipgloss.Width(title) - lipgloss.Width(value) - 2
	if fill < 1 {
		fill = 1
	}
	return TitleStyle.Render(title) + " " +
		lipgloss.NewStyle().Foreground(ColorBorder).Render(strings.Repeat("─", fill)) + " " +
		lipgloss.NewStyle().Foreground(ColorGraph).Bold(true).Render(value)
}
