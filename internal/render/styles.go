package render

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#5c6470", Dark: "#8a93a3"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#dce0e5", Dark: "#2a3850"}
	colorAccent  = lipgloss.Color("#2196F3")
	colorError   = lipgloss.Color("#e53935")
)

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Label    lipgloss.Style
	Card     lipgloss.Style
	Selected lipgloss.Style
	Question lipgloss.Style
	Answer   lipgloss.Style
	FollowUp lipgloss.Style
	Error    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true),
		Muted: lipgloss.NewStyle().
			Foreground(colorMuted),
		Label: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1),
		Question: lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true),
		Answer: lipgloss.NewStyle().
			PaddingLeft(2),
		FollowUp: lipgloss.NewStyle().
			Foreground(colorMuted).
			PaddingLeft(4),
		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),
	}
}
