package ui

import "github.com/charmbracelet/lipgloss"

const (
	bubblePaddingVertical   = 0
	bubblePaddingHorizontal = 1
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	userBubbleStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	agentBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	stepGroupStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("245")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	stepDoneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	stepErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	stepRunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	confirmBubbleStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("179")).Foreground(lipgloss.Color("230")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	artifactChipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Bold(true).Underline(true)
	canvasBorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)
	sidebarStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	sidebarActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	toastInfoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
