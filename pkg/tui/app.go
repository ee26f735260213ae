// Package tui is the interactive kanban board: one column per stage,
// keyboard drag and drop, optimistic moves, periodic refresh and a details
// pane for notes and seller assignment.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/leadboard/leadboard-cli/pkg/api"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/render"
	"github.com/leadboard/leadboard-cli/pkg/session"
)

type viewState int

const (
	boardView viewState = iota
	detailsView
)

// Config wires the board to its collaborators
type Config struct {
	// Context bounds every backend call; cancel it to stop the session watch
	Context  context.Context
	Sync     *board.Synchronizer
	Details  DetailsBackend
	Session  *session.Context
	Settings *models.Settings
	Logger   *zap.Logger
}

type App struct {
	ctx      context.Context
	sync     *board.Synchronizer
	api      DetailsBackend
	session  *session.Context
	settings *models.Settings
	logger   *zap.Logger

	state   viewState
	board   *BoardModel
	details *DetailsModel
	confirm *ConfirmationModel
	spinner spinner.Model

	width  int
	height int

	loads     int // loads in flight
	statusMsg string
	statusID  int
	moveErr   error
	showHelp  bool
	sessionCh chan models.Session
}

func NewApp(cfg Config) *App {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	settings := cfg.Settings
	if settings == nil {
		settings = models.DefaultSettings()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorActive))

	return &App{
		ctx:       ctx,
		sync:      cfg.Sync,
		api:       cfg.Details,
		session:   cfg.Session,
		settings:  settings,
		logger:    logger,
		board:     NewBoardModel(cfg.Sync),
		details:   NewDetailsModel(settings.UI.MarkdownStyle),
		confirm:   NewConfirmation(),
		spinner:   sp,
		sessionCh: make(chan models.Session, 1),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadCmd(),
		a.spinner.Tick,
		a.refreshTick(),
		a.watchSession(),
		a.listenSession(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		return a, a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case StatusMsg:
		return a, a.setStatus(string(msg))

	case clearStatusMsg:
		if msg.id == a.statusID {
			a.statusMsg = ""
		}
		return a, nil

	case refreshTickMsg:
		return a, tea.Batch(a.loadCmd(), a.refreshTick())

	case boardLoadedMsg:
		return a, a.handleLoaded(msg)

	case moveSubmittedMsg:
		return a, a.handleSubmitted(msg)

	case suggestionsMsg:
		if msg.err != nil {
			return a, a.setStatus("Suggestions unavailable: " + msg.err.Error())
		}
		if a.state == detailsView && a.details.CardID() == msg.cardID {
			a.details.SetSuggestions(msg.list)
		}
		if len(msg.list) == 0 {
			return a, a.setStatus("No suggestions for this card")
		}
		return a, nil

	case detailsLoadedMsg:
		if a.state == detailsView && a.details.CardID() == msg.cardID {
			a.details.SetDetails(msg)
		}
		return a, nil

	case detailsActionMsg:
		if msg.err != nil {
			a.logger.Warn("details action failed", zap.Int("card", msg.cardID), zap.Error(msg.err))
			return a, a.setStatus("Failed: " + explain(msg.err))
		}
		cmds := []tea.Cmd{a.setStatus(msg.status)}
		if a.state == detailsView && a.details.CardID() == msg.cardID {
			cmds = append(cmds, a.detailsCmd(msg.cardID))
		}
		return a, tea.Batch(cmds...)

	case sessionChangedMsg:
		a.logger.Info("session changed, reloading", zap.String("role", msg.session.Role))
		a.sync.Reset()
		a.board.cancelDrag()
		a.board.refresh()
		a.state = boardView
		a.moveErr = nil
		a.resize()
		return a, tea.Batch(
			a.setStatus(fmt.Sprintf("Session changed (%s view), reloading", msg.session.Scope())),
			a.loadCmd(),
			a.listenSession(),
		)
	}

	return a, nil
}

func (a *App) handleLoaded(msg boardLoadedMsg) tea.Cmd {
	if a.loads > 0 {
		a.loads--
	}
	if errors.Is(msg.err, board.ErrStale) || errors.Is(msg.err, context.Canceled) {
		return nil
	}
	if msg.err != nil {
		a.logger.Warn("board load failed", zap.Error(msg.err))
	}
	a.board.refresh()
	return nil
}

func (a *App) handleSubmitted(msg moveSubmittedMsg) tea.Cmd {
	a.board.refresh()
	if msg.err != nil {
		a.moveErr = msg.err
		return nil
	}
	a.moveErr = nil
	return a.setStatus(msg.result.Notification)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.confirm.Active() {
		return a.confirm.Update(msg)
	}
	if a.state == detailsView {
		return a.handleDetailsKey(msg)
	}
	if a.board.Filtering() {
		return a.board.updateFilter(msg)
	}
	if a.board.Dragging() {
		return a.handleDragKey(msg)
	}
	return a.handleBoardKey(msg)
}

func (a *App) handleBoardKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "left", "h":
		a.board.moveColumn(-1)
	case "right", "l":
		a.board.moveColumn(1)
	case "up", "k":
		a.board.moveRow(-1)
	case "down", "j":
		a.board.moveRow(1)
	case " ", "space", "m":
		card, err := a.board.pickUp()
		if err != nil {
			return a.setStatus(err.Error())
		}
		return a.setStatus(fmt.Sprintf("Carrying %s: ←/→ to choose a stage, space to drop", card.DisplayTitle()))
	case "<", "shift+left", "H":
		return a.applyMove(a.board.shift(-1))
	case ">", "shift+right", "L":
		return a.applyMove(a.board.shift(1))
	case "enter":
		return a.openDetails()
	case "/":
		return a.board.startFilter()
	case "esc":
		if a.moveErr != nil {
			a.moveErr = nil
			return nil
		}
		if a.board.query != "" {
			a.board.setQuery("")
		}
	case "s":
		card, ok := a.board.Selected()
		if !ok {
			return nil
		}
		return a.suggestionsCmd(card.ID)
	case "y":
		card, ok := a.board.Selected()
		if !ok {
			return nil
		}
		return a.copyURL(card)
	case "r":
		return a.loadCmd()
	case "?":
		a.showHelp = !a.showHelp
	}
	return nil
}

func (a *App) handleDragKey(msg tea.KeyMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "left", "h":
		a.board.moveColumn(-1)
	case "right", "l":
		a.board.moveColumn(1)
	case "1", "2", "3", "4", "5":
		a.board.chooseTarget(int(key[0] - '0'))
	case " ", "space", "enter", "m":
		return a.applyMove(a.board.drop())
	case "esc", "q":
		a.board.cancelDrag()
		return a.setStatus("Move cancelled")
	}
	return nil
}

// applyMove reports a local move and hands it to the backend
func (a *App) applyMove(mv *board.Move, err error) tea.Cmd {
	if err != nil {
		if errors.Is(err, board.ErrSameStage) {
			return a.setStatus(fmt.Sprintf("Already in %s", a.board.Stage().Label()))
		}
		return a.setStatus(err.Error())
	}
	a.moveErr = nil
	return a.submitCmd(mv)
}

func (a *App) openDetails() tea.Cmd {
	card, ok := a.board.Selected()
	if !ok {
		return nil
	}
	if a.api == nil {
		return a.setStatus("Card details are not available")
	}
	a.state = detailsView
	a.details.Open(card, a.board.Stage())
	a.resize()
	return a.detailsCmd(card.ID)
}

func (a *App) closeDetails() {
	a.state = boardView
	a.details.endMode()
	a.board.refresh()
	a.resize()
}

func (a *App) handleDetailsKey(msg tea.KeyMsg) tea.Cmd {
	d := a.details
	id := d.CardID()

	switch d.mode {
	case detailsNoteInput:
		switch msg.String() {
		case "esc":
			d.endMode()
			return nil
		case "enter":
			content := strings.TrimSpace(d.input.Value())
			if content == "" {
				return a.setStatus("Note is empty")
			}
			d.endMode()
			return a.addNoteCmd(id, content)
		}
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return cmd

	case detailsPickNote, detailsPickSeller:
		switch msg.String() {
		case "esc", "q":
			d.endMode()
		case "up", "k":
			d.picker.move(-1)
		case "down", "j":
			d.picker.move(1)
		case "enter":
			item, ok := d.picker.selected()
			if !ok {
				return nil
			}
			mode := d.mode
			d.endMode()
			if mode == detailsPickNote {
				a.confirm.Show(ConfirmationConfig{
					Title:       "Delete note",
					Message:     fmt.Sprintf("Delete note #%d from %s?", item.id, d.card.DisplayTitle()),
					Warning:     "This cannot be undone",
					Destructive: true,
					Type:        ConfirmTypeDialog,
					Width:       56,
				}, func() tea.Cmd { return a.deleteNoteCmd(id, item.id) }, nil)
				return nil
			}
			seller, _ := d.sellerByID(item.id)
			return a.assignCmd(id, seller)
		}
		return nil
	}

	switch msg.String() {
	case "esc", "q", "backspace":
		a.closeDetails()
		return nil
	case "n":
		return d.startNote()
	case "x":
		if !d.pickNote() {
			return a.setStatus("This card has no notes")
		}
	case "a":
		if a.sync.Status().Scope != models.ScopeFull {
			return a.setStatus("Only admins can assign sellers")
		}
		if !d.pickSeller() {
			return a.setStatus("No sellers available")
		}
	case "u":
		if a.sync.Status().Scope != models.ScopeFull {
			return a.setStatus("Only admins can unassign sellers")
		}
		seller, ok := d.assignedSeller()
		if !ok {
			return a.setStatus("No seller assigned")
		}
		name := seller.Email
		if name == "" {
			name = fmt.Sprintf("seller #%d", seller.ID)
		}
		a.confirm.ShowInline(fmt.Sprintf("Unassign %s?", name), true,
			func() tea.Cmd { return a.unassignCmd(id) }, nil)
	case "y":
		return a.copyURL(d.card)
	case "r":
		d.loading = true
		return a.detailsCmd(id)
	default:
		var cmd tea.Cmd
		d.viewport, cmd = d.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) copyURL(card models.Card) tea.Cmd {
	if card.URL == "" {
		return a.setStatus("This card has no URL")
	}
	if err := writeClipboard(card.URL); err != nil {
		a.logger.Debug("clipboard unavailable", zap.Error(err))
		return a.setStatus("Failed to copy to clipboard: " + err.Error())
	}
	return a.setStatus("Copied " + card.URL)
}

func (a *App) resize() {
	a.board.SetSize(a.width, a.bodyHeight())
	a.details.SetSize(a.width, a.bodyHeight())
}

// bodyHeight is what is left for the board once the header, banner,
// suggestions, status and help lines are placed
func (a *App) bodyHeight() int {
	h := a.height - 3 - 2 - 1
	if a.settings.UI.ShowSuggestions && a.state == boardView {
		h -= suggestionLines + 1
	}
	if h < 8 {
		h = 8
	}
	return h
}

const suggestionLines = 4

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, renderHeader(a.width, a.title(), a.statusLine()))

	if banner := a.banner(); banner != "" {
		sections = append(sections, BannerStyle.Width(a.width).Render(truncate(banner, a.width-2)))
	}

	switch a.state {
	case detailsView:
		sections = append(sections, a.details.View())
	default:
		if !a.sync.Loaded() && a.sync.Err() == nil {
			sections = append(sections, ContentPaddingStyle.Render(a.spinner.View()+" Loading pipeline..."))
		} else {
			sections = append(sections, a.board.View())
		}
		if a.board.Filtering() || a.board.query != "" {
			sections = append(sections, a.filterLine())
		}
		if a.settings.UI.ShowSuggestions {
			sections = append(sections, a.suggestionsPanel())
		}
	}

	if a.confirm.Active() {
		if a.confirm.config.Type == ConfirmTypeDialog {
			dialog := lipgloss.Place(a.width, 12, lipgloss.Center, lipgloss.Center, a.confirm.View())
			sections = append(sections, dialog)
		} else {
			sections = append(sections, ContentPaddingStyle.Render(a.confirm.View()))
		}
	} else if a.statusMsg != "" {
		sections = append(sections, StatusStyle.Render(a.statusMsg))
	}

	sections = append(sections, a.helpLine())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) title() string {
	snap := a.board.snapshot
	if a.board.query != "" {
		return fmt.Sprintf("PIPELINE  %d of %d cards", a.board.visibleCount(), snap.Stats.Total)
	}
	return fmt.Sprintf("PIPELINE  %d cards", snap.Stats.Total)
}

// statusLine shows scope, refresh state and pending moves
func (a *App) statusLine() string {
	st := a.sync.Status()
	parts := []string{fmt.Sprintf("%s view", st.Scope)}
	if a.session != nil {
		if email := a.session.Current().Email; email != "" {
			parts = append(parts, email)
		}
	}
	switch {
	case a.loads > 0 || st.Loading:
		parts = append(parts, a.spinner.View()+"refreshing")
	case !st.LastLoaded.IsZero():
		parts = append(parts, "updated "+st.LastLoaded.Format("15:04:05"))
	}
	if st.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", st.Pending))
	}
	if interval := a.settings.Board.RefreshInterval.Std(); interval > 0 {
		parts = append(parts, "auto "+interval.String())
	}
	return strings.Join(parts, " · ")
}

// banner is the persistent error line: a rejected move first, then a
// failed load
func (a *App) banner() string {
	if a.moveErr != nil {
		var te *board.TransitionError
		if errors.As(a.moveErr, &te) {
			if te.Resynced() {
				return fmt.Sprintf("The backend rejected the move to %s (%v); the board was reloaded. esc to dismiss", te.Target.Label(), te.Err)
			}
			return fmt.Sprintf("The backend rejected the move to %s and the reload failed: %v", te.Target.Label(), te.ReloadErr)
		}
		return "Move failed: " + a.moveErr.Error()
	}
	if err := a.sync.Err(); err != nil {
		if a.sync.Loaded() {
			return "Reload failed, showing the last board: " + explain(err)
		}
		return "Could not load the pipeline: " + explain(err) + " (r to retry)"
	}
	return ""
}

func (a *App) filterLine() string {
	var line string
	if a.board.Filtering() {
		line = a.board.filter.View()
	} else {
		line = DescriptionStyle.Render("filter: " + a.board.query + "  (/ to edit, esc to clear)")
	}
	if a.board.filterErr != nil {
		line += "  " + ErrorStyle.Render(a.board.filterErr.Error())
	}
	return ContentPaddingStyle.Render(line)
}

func (a *App) suggestionsPanel() string {
	width := a.width - 4
	var b strings.Builder
	b.WriteString(renderHeading("NEXT STEPS", width, HeaderStyle))
	b.WriteString("\n")

	card, ok := a.board.Selected()
	if !ok {
		b.WriteString(EmptyStyle.Render("Select a card"))
		return ContentPaddingStyle.Render(b.String())
	}
	list, ok := a.sync.Suggestions(card.ID)
	if !ok {
		b.WriteString(EmptyStyle.Render("Press s for next-step suggestions on " + card.DisplayTitle()))
		return ContentPaddingStyle.Render(b.String())
	}
	if len(list) == 0 {
		b.WriteString(EmptyStyle.Render("No suggestions for " + card.DisplayTitle()))
		return ContentPaddingStyle.Render(b.String())
	}
	lines := strings.Split(strings.TrimRight(render.Bullets(list, width), "\n"), "\n")
	if len(lines) > suggestionLines {
		lines = append(lines[:suggestionLines-1], DescriptionStyle.Render("… enter for the full card"))
	}
	b.WriteString(NormalStyle.Render(strings.Join(lines, "\n")))
	return ContentPaddingStyle.Render(b.String())
}

func (a *App) helpLine() string {
	var keys []string
	switch {
	case a.confirm.Active():
		keys = []string{"y confirm", "n/esc cancel"}
	case a.state == detailsView && a.details.mode == detailsNoteInput:
		keys = []string{"enter save note", "esc cancel"}
	case a.state == detailsView && a.details.mode != detailsBrowse:
		keys = []string{"↑/↓ choose", "enter select", "esc back"}
	case a.state == detailsView:
		keys = []string{"↑/↓ scroll", "n add note", "x delete note", "a assign", "u unassign", "y copy url", "r reload", "esc back"}
		if pct := a.details.scrollPercent(); pct != "" {
			keys = append(keys, pct)
		}
	case a.board.Filtering():
		keys = []string{"type to filter", "enter keep", "esc clear"}
	case a.board.Dragging():
		keys = []string{"←/→ choose stage", "1-5 jump", "space/enter drop", "esc cancel"}
	case a.showHelp:
		keys = []string{"←/→ column", "↑/↓ card", "space pick up", "</> move", "enter details", "/ filter", "s suggest", "y copy url", "r reload", "? less", "q quit"}
	default:
		keys = []string{"space pick up", "</> move", "enter details", "/ filter", "? more", "q quit"}
	}
	return ContentPaddingStyle.Render(DescriptionStyle.Render(strings.Join(keys, " • ")))
}

// explain adds a hint for errors the user can fix
func explain(err error) string {
	if errors.Is(err, api.ErrUnauthorized) {
		return err.Error() + "; sign in with 'leadboard session set'"
	}
	return err.Error()
}
