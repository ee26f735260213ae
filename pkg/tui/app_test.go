package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboard/leadboard-cli/pkg/api"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/board/boardtest"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/session"
)

type testApp struct {
	*App
	srv *boardtest.Server
}

func newTestApp(t *testing.T, role string) *testApp {
	t.Helper()
	srv := boardtest.NewServer(t, boardtest.SamplePipeline())
	sess := session.New(models.Session{Token: srv.Token, Role: role, Email: role + "@example.com"})
	client, err := api.NewClient(srv.URL, sess)
	require.NoError(t, err)

	settings := models.DefaultSettings()
	settings.UI.MarkdownStyle = "notty"

	sync := board.New(client, sess)
	app := NewApp(Config{
		Context:  context.Background(),
		Sync:     sync,
		Details:  client,
		Session:  sess,
		Settings: settings,
	})
	app.Update(tea.WindowSizeMsg{Width: 150, Height: 45})

	ta := &testApp{App: app, srv: srv}
	ta.run(t, app.loadCmd())
	return ta
}

// key builds the message bubbletea sends for a key name
func key(name string) tea.KeyMsg {
	switch name {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
}

// press sends keys in order and returns the command of the last one
func (ta *testApp) press(keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = ta.Update(key(k))
	}
	return cmd
}

// run executes a single command and feeds its message back
func (ta *testApp) run(t *testing.T, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd, "expected a command")
	msg := cmd()
	_, next := ta.Update(msg)
	return next
}

func (ta *testApp) stageOf(t *testing.T, id int) models.Stage {
	t.Helper()
	_, stage, ok := ta.sync.FindCard(id)
	require.True(t, ok, "card %d not on the board", id)
	return stage
}

func countRequests(srv *boardtest.Server, prefix string) int {
	n := 0
	for _, r := range srv.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func TestApp_ViewBeforeWindowSize(t *testing.T) {
	app := NewApp(Config{Sync: board.New(boardtest.NewFakeBackend(models.NewPipeline()), boardtest.Admin())})
	assert.Equal(t, "Loading...", app.View())
	assert.NotNil(t, app.Init())
}

func TestApp_RendersColumnsAfterLoad(t *testing.T) {
	ta := newTestApp(t, "admin")

	view := ta.View()
	for _, want := range []string{"LEAD (2)", "QUALIFIED (1)", "CLOSED (1)", "Acme Corp", "Globex", "Stark Industries", "PIPELINE  6 cards", "full view"} {
		assert.Contains(t, view, want)
	}
	assert.NotContains(t, view, "Reload failed")

	card, ok := ta.board.Selected()
	require.True(t, ok)
	assert.Equal(t, 1, card.ID)
}

func TestApp_KeyboardDragMovesCard(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("space")
	require.True(t, ta.board.Dragging())
	active, ok := ta.sync.Active()
	require.True(t, ok)
	assert.Equal(t, 1, active)

	ta.press("right")
	assert.Contains(t, ta.View(), "drop here")

	cmd := ta.press("space")
	require.NotNil(t, cmd)
	assert.False(t, ta.board.Dragging())

	// Optimistic: the card sits in the target before the backend answers
	assert.Equal(t, models.StageQualified, ta.stageOf(t, 1))
	assert.Equal(t, models.StageLead, func() models.Stage {
		_, s, _ := ta.srv.ServerPipeline().Find(1)
		return s
	}())

	ta.run(t, cmd)
	assert.Equal(t, "Moved to Qualified!", ta.statusMsg)
	assert.NoError(t, ta.moveErr)

	_, serverStage, _ := ta.srv.ServerPipeline().Find(1)
	assert.Equal(t, models.StageQualified, serverStage)

	// The cursor follows the card and the panel shows the new hints
	card, _ := ta.board.Selected()
	assert.Equal(t, 1, card.ID)
	assert.Equal(t, models.StageQualified, ta.board.Stage())
	assert.Contains(t, ta.View(), "Schedule a discovery call")
}

func TestApp_NumberKeysChooseTarget(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("space", "5")
	cmd := ta.press("enter")
	ta.run(t, cmd)

	assert.Equal(t, models.StageClosed, ta.stageOf(t, 1))
	assert.Equal(t, "Moved to Closed!", ta.statusMsg)
}

func TestApp_DropOnSameStage(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("space")
	ta.press("space")

	assert.False(t, ta.board.Dragging())
	assert.Equal(t, "Already in Lead", ta.statusMsg)
	assert.Equal(t, 0, countRequests(ta.srv, "PATCH"))
	_, dragging := ta.sync.Active()
	assert.False(t, dragging)
}

func TestApp_CancelDrag(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("space", "right", "right", "esc")

	assert.False(t, ta.board.Dragging())
	assert.Equal(t, "Move cancelled", ta.statusMsg)
	assert.Equal(t, models.StageLead, ta.stageOf(t, 1))
	_, dragging := ta.sync.Active()
	assert.False(t, dragging)
}

func TestApp_RejectedMoveReloadsAndShowsBanner(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.srv.RejectMoves(errors.New("Invalid stage transition"))

	cmd := ta.press(">")
	require.NotNil(t, cmd)
	assert.Equal(t, models.StageQualified, ta.stageOf(t, 1))

	ta.run(t, cmd)

	var te *board.TransitionError
	require.ErrorAs(t, ta.moveErr, &te)
	assert.True(t, te.Resynced())
	assert.Equal(t, models.StageLead, ta.stageOf(t, 1), "reload restores the server state")
	assert.Contains(t, ta.View(), "rejected the move to Qualified")

	ta.press("esc")
	assert.NoError(t, ta.moveErr)
	assert.NotContains(t, ta.View(), "rejected the move")
}

func TestApp_ShiftAtLastStage(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("left")
	assert.Equal(t, models.StageClosed, ta.board.Stage())
	ta.press(">")

	assert.Equal(t, "Already in Closed", ta.statusMsg)
	assert.Equal(t, models.StageClosed, ta.stageOf(t, 6))
	assert.Equal(t, 0, countRequests(ta.srv, "PATCH"))
}

func TestApp_FilterNarrowsBoard(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("/")
	require.True(t, ta.board.Filtering())
	ta.press("globex", "enter")

	assert.False(t, ta.board.Filtering())
	assert.Equal(t, 1, ta.board.visibleCount())
	card, ok := ta.board.Selected()
	require.True(t, ok)
	assert.Equal(t, "Globex", card.Title)
	assert.Contains(t, ta.View(), "1 of 6 cards")

	ta.press("esc")
	assert.Equal(t, 6, ta.board.visibleCount())
}

func TestApp_InvalidFilterKeepsLastResult(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.press("/", "stage:lead")
	assert.Equal(t, 2, ta.board.visibleCount())

	ta.press(" stage:nowhere")
	if ta.board.filterErr != nil {
		assert.Equal(t, 2, ta.board.visibleCount())
	}
	ta.press("esc")
	assert.Equal(t, 6, ta.board.visibleCount())
	assert.NoError(t, ta.board.filterErr)
}

func TestApp_Suggestions(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.press("right")

	assert.Contains(t, ta.View(), "Press s for next-step suggestions on Initech")

	ta.run(t, ta.press("s"))

	list, ok := ta.sync.Suggestions(3)
	require.True(t, ok)
	assert.Equal(t, []string{"Schedule a discovery call"}, list)
	assert.Contains(t, ta.View(), "• Schedule a discovery call")
}

func TestApp_CopyURL(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })

	ta := newTestApp(t, "admin")
	ta.press("y")

	assert.Equal(t, "https://company1.example.com", copied)
	assert.Equal(t, "Copied https://company1.example.com", ta.statusMsg)
}

func TestApp_FailedReloadKeepsBoard(t *testing.T) {
	ta := newTestApp(t, "admin")
	ta.srv.FailLoads(errors.New("database unavailable"))

	ta.run(t, ta.press("r"))

	view := ta.View()
	assert.Contains(t, view, "Reload failed, showing the last board")
	assert.Contains(t, view, "Acme Corp")
	assert.True(t, ta.sync.Loaded())

	ta.srv.FailLoads(nil)
	ta.run(t, ta.press("r"))
	assert.NotContains(t, ta.View(), "Reload failed")
}

func TestApp_RefreshTickReloads(t *testing.T) {
	ta := newTestApp(t, "admin")
	before := countRequests(ta.srv, "GET /kanban/pipeline")

	_, cmd := ta.Update(refreshTickMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, ta.loads)

	ta.run(t, ta.loadCmd())
	assert.Equal(t, before+1, countRequests(ta.srv, "GET /kanban/pipeline"))
}

func TestApp_SessionChangeResetsBoard(t *testing.T) {
	ta := newTestApp(t, "admin")

	_, cmd := ta.Update(sessionChangedMsg{session: models.Session{Token: "x", Role: "seller"}})
	require.NotNil(t, cmd)

	assert.False(t, ta.sync.Loaded())
	assert.Equal(t, "Session changed (restricted view), reloading", ta.statusMsg)
	assert.Equal(t, boardView, ta.state)
}

func TestApp_StatusClearsOnlyLatest(t *testing.T) {
	ta := newTestApp(t, "admin")

	ta.Update(StatusMsg("first"))
	firstID := ta.statusID
	ta.Update(StatusMsg("second"))

	ta.Update(clearStatusMsg{id: firstID})
	assert.Equal(t, "second", ta.statusMsg)

	ta.Update(clearStatusMsg{id: ta.statusID})
	assert.Empty(t, ta.statusMsg)
}

func TestApp_QuitKeys(t *testing.T) {
	ta := newTestApp(t, "admin")

	cmd := ta.press("q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = ta.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
