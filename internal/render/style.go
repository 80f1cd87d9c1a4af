package render

import (
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "green":
		return lipgloss.Color("10")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}
