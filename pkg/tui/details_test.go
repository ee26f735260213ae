package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openCard opens the details pane on the selected card and waits for it
func (ta *testApp) openCard(t *testing.T) {
	t.Helper()
	cmd := ta.press("enter")
	require.Equal(t, detailsView, ta.state)
	ta.run(t, cmd)
	require.NoError(t, ta.details.err)
	require.NotNil(t, ta.details.details)
}

func TestDetails_OpenShowsCard(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.openCard(t)

	view := ta.View()
	assert.Contains(t, view, "ACME CORP #1 · Lead")
	assert.Contains(t, view, "Acme Corp")
	assert.Contains(t, view, "Manufacturing")
	assert.Len(t, ta.details.sellers, 2)

	ta.press("esc")
	assert.Equal(t, boardView, ta.state)
}

func TestDetails_StaleLoadIgnored(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.press("enter")

	ta.Update(detailsLoadedMsg{cardID: 99})
	assert.True(t, ta.details.loading)
	assert.Nil(t, ta.details.details)
}

func TestDetails_AddNote(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.openCard(t)

	ta.press("n")
	require.Equal(t, detailsNoteInput, ta.details.mode)

	// Empty notes are refused locally
	ta.press("enter")
	assert.Equal(t, "Note is empty", ta.statusMsg)

	ta.press("Call back on Monday")
	cmd := ta.press("enter")
	assert.Equal(t, detailsBrowse, ta.details.mode)
	ta.run(t, cmd)

	assert.Equal(t, "Note added", ta.statusMsg)
	notes := ta.srv.Notes(1)
	require.Len(t, notes, 1)
	assert.Equal(t, "Call back on Monday", notes[0].Content)

	ta.run(t, ta.detailsCmd(1))
	assert.Contains(t, ta.View(), "Call back on Monday")
}

func TestDetails_DeleteNoteAsksFirst(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.srv.AddNote(1, "old note")
	newest := ta.srv.AddNote(1, "newer note")
	ta.openCard(t)

	ta.press("x")
	require.Equal(t, detailsPickNote, ta.details.mode)
	item, ok := ta.details.picker.selected()
	require.True(t, ok)
	assert.Equal(t, newest.ID, item.id, "newest note is offered first")

	ta.press("enter")
	require.True(t, ta.confirm.Active())
	assert.Contains(t, ta.View(), "Delete note")

	// Declining leaves the note alone
	ta.press("n")
	assert.False(t, ta.confirm.Active())
	assert.Len(t, ta.srv.Notes(1), 2)

	ta.press("x", "enter")
	cmd := ta.press("y")
	ta.run(t, cmd)

	notes := ta.srv.Notes(1)
	require.Len(t, notes, 1)
	assert.Equal(t, "old note", notes[0].Content)
}

func TestDetails_NoNotesToDelete(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.openCard(t)

	ta.press("x")
	assert.Equal(t, detailsBrowse, ta.details.mode)
	assert.Equal(t, "This card has no notes", ta.statusMsg)
}

func TestDetails_AssignAndUnassignSeller(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.openCard(t)

	ta.press("a")
	require.Equal(t, detailsPickSeller, ta.details.mode)
	ta.press("down")
	cmd := ta.press("enter")
	ta.run(t, cmd)

	assert.Equal(t, 8, ta.srv.AssignedSeller(1))
	assert.Equal(t, "Assigned to closer@example.com", ta.statusMsg)

	ta.run(t, ta.detailsCmd(1))
	assert.Contains(t, ta.View(), "closer@example.com")

	ta.press("u")
	require.True(t, ta.confirm.Active())
	assert.Contains(t, ta.View(), "Unassign closer@example.com?")
	ta.run(t, ta.press("y"))

	assert.Equal(t, 0, ta.srv.AssignedSeller(1))
	assert.Equal(t, "Seller unassigned", ta.statusMsg)
}

func TestDetails_SellersCannotAssign(t *testing.T) {
	ta := newTestApp(t, "seller")
	ta.openCard(t)

	ta.press("a")
	assert.Equal(t, detailsBrowse, ta.details.mode)
	assert.Equal(t, "Only admins can assign sellers", ta.statusMsg)

	ta.press("u")
	assert.Equal(t, "Only admins can unassign sellers", ta.statusMsg)
	assert.False(t, ta.confirm.Active())
}

func TestDetails_UnknownCard(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.press("enter")

	msg := ta.detailsCmd(404)()
	loaded, ok := msg.(detailsLoadedMsg)
	require.True(t, ok)
	assert.EqualError(t, loaded.err, "card 404 not found")
}
