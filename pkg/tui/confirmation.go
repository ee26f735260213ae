package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmationType defines the visual style of the confirmation
type ConfirmationType int

const (
	ConfirmTypeInline ConfirmationType = iota // one line in the status area
	ConfirmTypeDialog                         // bordered, centered box
)

// ConfirmationConfig holds the configuration for a confirmation prompt
type ConfirmationConfig struct {
	Title       string
	Message     string
	Warning     string
	Details     []string
	Destructive bool // Yes is red, No is green
	Type        ConfirmationType
	YesLabel    string
	NoLabel     string
	Width       int
}

// ConfirmationModel asks a yes/no question and runs a callback
type ConfirmationModel struct {
	active    bool
	config    ConfirmationConfig
	onConfirm func() tea.Cmd
	onCancel  func() tea.Cmd
}

func NewConfirmation() *ConfirmationModel {
	return &ConfirmationModel{}
}

// Show activates the confirmation. Either callback may be nil.
func (m *ConfirmationModel) Show(config ConfirmationConfig, onConfirm, onCancel func() tea.Cmd) {
	m.active = true
	m.config = config
	m.onConfirm = onConfirm
	m.onCancel = onCancel

	if m.config.YesLabel == "" {
		m.config.YesLabel = "Yes"
	}
	if m.config.NoLabel == "" {
		m.config.NoLabel = "No"
	}
}

// ShowInline is Show with a one-line prompt
func (m *ConfirmationModel) ShowInline(message string, destructive bool, onConfirm, onCancel func() tea.Cmd) {
	m.Show(ConfirmationConfig{
		Message:     message,
		Destructive: destructive,
		Type:        ConfirmTypeInline,
	}, onConfirm, onCancel)
}

func (m *ConfirmationModel) Hide() {
	m.active = false
}

func (m *ConfirmationModel) Active() bool {
	return m.active
}

// Update handles y/n/esc. Other keys are swallowed while active.
func (m *ConfirmationModel) Update(msg tea.KeyMsg) tea.Cmd {
	if !m.active {
		return nil
	}

	switch msg.String() {
	case "y", "Y":
		m.active = false
		if m.onConfirm != nil {
			return m.onConfirm()
		}
	case "n", "N", "esc":
		m.active = false
		if m.onCancel != nil {
			return m.onCancel()
		}
	}
	return nil
}

func (m *ConfirmationModel) View() string {
	if !m.active {
		return ""
	}
	if m.config.Type == ConfirmTypeDialog {
		return m.renderDialog()
	}
	return m.renderInline()
}

func (m *ConfirmationModel) renderInline() string {
	return fmt.Sprintf("%s %s", m.config.Message, formatConfirmOptions(m.config.Destructive))
}

func (m *ConfirmationModel) renderDialog() string {
	width := m.config.Width
	if width == 0 {
		width = 60
	}
	contentWidth := width - 4
	center := lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center)

	var b strings.Builder
	if m.config.Title != "" {
		b.WriteString(center.Render(HeaderStyle.Render(m.config.Title)))
		b.WriteString("\n\n")
	}
	if m.config.Message != "" {
		b.WriteString(center.Render(m.config.Message))
		b.WriteString("\n")
	}
	if m.config.Warning != "" {
		b.WriteString("\n")
		b.WriteString(center.Render(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render(m.config.Warning)))
		b.WriteString("\n")
	}
	if len(m.config.Details) > 0 {
		b.WriteString("\n")
		for _, detail := range m.config.Details {
			b.WriteString(NormalStyle.Render("  • " + detail))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	labels := fmt.Sprintf("(%s / %s)", strings.ToLower(m.config.YesLabel), strings.ToLower(m.config.NoLabel))
	b.WriteString(center.Render(formatConfirmOptions(m.config.Destructive) + "  " + labels))

	return ActiveBorderStyle.Width(width).Render(b.String())
}

// formatConfirmOptions renders [Y/n] with the safe choice in green
func formatConfirmOptions(destructive bool) string {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDanger)).Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Bold(true)
	if destructive {
		return "[" + red.Render("y") + "/" + green.Render("N") + "]"
	}
	return "[" + green.Render("Y") + "/" + red.Render("n") + "]"
}
