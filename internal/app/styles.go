package app

import "charm.land/lipgloss/v2"

var (
	tabStyle          = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("247"))
	activeTabStyle    = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("212"))
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	paneTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle        = lipgloss.NewStyle().Faint(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	agentStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	customerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("221"))
	suggestionStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("150"))
	confirmTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	confirmBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("203")).Padding(0, 1)
	buttonStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("247")).Padding(0, 2)
	selectedStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("212")).Padding(0, 2)
)

var noteColors = map[string]string{
	"yellow": "228",
	"blue":   "117",
	"green":  "120",
	"pink":   "218",
}
