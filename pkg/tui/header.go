package tui

import (
	"github.com/charmbracelet/lipgloss"
)

const logo = "▌ ▛▀ ▞▖ ▛▖ ▛▖ ▞▖ ▞▖ ▛▖ ▛▖\n▙▖▙▄ ▛▌ ▙▘ ▛▌ ▚▘ ▛▌ ▛▖ ▙▘"

var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// renderHeader puts the title and status line on the left and the logo on
// the right. The title sits on the logo's last row.
func renderHeader(width int, title, status string) string {
	headerPadding := lipgloss.NewStyle().
		PaddingLeft(1).
		PaddingRight(1).
		Width(width)

	logoRendered := logoStyle.Render(logo)
	contentWidth := width - 2

	left := titleStyle.Render(title)
	if status != "" {
		left = DescriptionStyle.Render(status) + "\n" + left
	} else {
		left = "\n" + left
	}

	gap := contentWidth - lipgloss.Width(left) - lipgloss.Width(logoRendered)
	if gap < 1 {
		// Too narrow for the logo
		return headerPadding.Render(left)
	}

	return headerPadding.Render(lipgloss.JoinHorizontal(
		lipgloss.Top,
		left,
		lipgloss.NewStyle().Width(gap).Render(""),
		logoRendered,
	))
}
