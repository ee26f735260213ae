package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestConfirmationModel(t *testing.T) {
	tests := []struct {
		name          string
		key           tea.KeyMsg
		wantConfirmed bool
		wantCancelled bool
		wantActive    bool
	}{
		{name: "y confirms", key: key("y"), wantConfirmed: true},
		{name: "Y confirms", key: key("Y"), wantConfirmed: true},
		{name: "n cancels", key: key("n"), wantCancelled: true},
		{name: "esc cancels", key: key("esc"), wantCancelled: true},
		{name: "other keys are ignored", key: key("x"), wantActive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var confirmed, cancelled bool
			m := NewConfirmation()
			m.ShowInline("Delete it?", true,
				func() tea.Cmd { confirmed = true; return nil },
				func() tea.Cmd { cancelled = true; return nil })

			m.Update(tt.key)

			if confirmed != tt.wantConfirmed {
				t.Errorf("confirmed = %v, want %v", confirmed, tt.wantConfirmed)
			}
			if cancelled != tt.wantCancelled {
				t.Errorf("cancelled = %v, want %v", cancelled, tt.wantCancelled)
			}
			if m.Active() != tt.wantActive {
				t.Errorf("Active() = %v, want %v", m.Active(), tt.wantActive)
			}
		})
	}
}

func TestConfirmationModel_Inactive(t *testing.T) {
	m := NewConfirmation()
	if cmd := m.Update(key("y")); cmd != nil {
		t.Error("inactive confirmation should not return a command")
	}
	if m.View() != "" {
		t.Error("inactive confirmation should render nothing")
	}
}

func TestConfirmationModel_Views(t *testing.T) {
	m := NewConfirmation()
	m.ShowInline("Unassign seller@example.com?", true, nil, nil)
	inline := m.View()
	if !strings.Contains(inline, "Unassign seller@example.com?") || !strings.Contains(inline, "y/N") {
		t.Errorf("unexpected inline view %q", inline)
	}

	m.Show(ConfirmationConfig{
		Title:   "Delete note",
		Message: "Delete note #3?",
		Warning: "This cannot be undone",
		Details: []string{"Acme Corp"},
		Type:    ConfirmTypeDialog,
		Width:   50,
	}, nil, nil)
	dialog := m.View()
	for _, want := range []string{"Delete note", "Delete note #3?", "This cannot be undone", "• Acme Corp", "(yes / no)", "Y/n"} {
		if !strings.Contains(dialog, want) {
			t.Errorf("dialog missing %q:\n%s", want, dialog)
		}
	}

	m.Hide()
	if m.Active() {
		t.Error("Hide() should deactivate")
	}
}
