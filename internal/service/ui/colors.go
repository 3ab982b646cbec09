package ui

import "github.com/charmbracelet/lipgloss"

// ANSI palette colors render consistently across terminals.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// MemoryStyle dims recalled-conversation summaries in search output.
	MemoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)
