package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadboard/leadboard-cli/pkg/api"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

// DetailsBackend is the part of the API the details pane talks to.
// *api.Client satisfies it.
type DetailsBackend interface {
	CardDetails(ctx context.Context, id int) (*models.CardDetails, error)
	AddNote(ctx context.Context, id int, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, id, noteID int) error
	Sellers(ctx context.Context) ([]models.Seller, error)
	AssignSeller(ctx context.Context, id, sellerID int) (*models.SellerAssignment, error)
	UnassignSeller(ctx context.Context, id int) error
}

// StatusMsg shows a transient message in the status bar
type StatusMsg string

type clearStatusMsg struct {
	id int
}

type refreshTickMsg struct{}

type boardLoadedMsg struct {
	err error
}

type moveSubmittedMsg struct {
	move   board.Move
	result *board.MoveResult
	err    error
}

type suggestionsMsg struct {
	cardID int
	list   []string
	err    error
}

type detailsLoadedMsg struct {
	cardID      int
	details     *models.CardDetails
	sellers     []models.Seller
	suggestions []string
	err         error
}

// detailsActionMsg reports a finished note or seller mutation
type detailsActionMsg struct {
	cardID int
	status string
	err    error
}

type sessionChangedMsg struct {
	session models.Session
}

// writeClipboard is swapped out in tests
var writeClipboard = clipboard.WriteAll

func (a *App) loadCmd() tea.Cmd {
	a.loads++
	return func() tea.Msg {
		return boardLoadedMsg{err: a.sync.Load(a.ctx)}
	}
}

func (a *App) refreshTick() tea.Cmd {
	interval := a.settings.Board.RefreshInterval.Std()
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (a *App) submitCmd(m *board.Move) tea.Cmd {
	return func() tea.Msg {
		result, err := a.sync.Submit(a.ctx, m)
		return moveSubmittedMsg{move: *m, result: result, err: err}
	}
}

func (a *App) suggestionsCmd(id int) tea.Cmd {
	return func() tea.Msg {
		list, err := a.sync.FetchSuggestions(a.ctx, id)
		return suggestionsMsg{cardID: id, list: list, err: err}
	}
}

// detailsCmd fetches the record, the seller list and the suggestions at
// once. Only the record is required.
func (a *App) detailsCmd(id int) tea.Cmd {
	return func() tea.Msg {
		msg := detailsLoadedMsg{cardID: id}

		g, gctx := errgroup.WithContext(a.ctx)
		g.Go(func() error {
			details, err := a.api.CardDetails(gctx, id)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return fmt.Errorf("card %d not found", id)
				}
				return err
			}
			msg.details = details
			return nil
		})
		g.Go(func() error {
			sellers, err := a.api.Sellers(gctx)
			if err != nil {
				a.logger.Debug("sellers unavailable", zap.Error(err))
				return nil
			}
			msg.sellers = sellers
			return nil
		})
		g.Go(func() error {
			list, err := a.sync.FetchSuggestions(gctx, id)
			if err != nil {
				a.logger.Debug("suggestions unavailable", zap.Int("card", id), zap.Error(err))
				return nil
			}
			msg.suggestions = list
			return nil
		})
		msg.err = g.Wait()
		return msg
	}
}

func (a *App) addNoteCmd(id int, content string) tea.Cmd {
	return func() tea.Msg {
		_, err := a.api.AddNote(a.ctx, id, content)
		return detailsActionMsg{cardID: id, status: "Note added", err: err}
	}
}

func (a *App) deleteNoteCmd(id, noteID int) tea.Cmd {
	return func() tea.Msg {
		err := a.api.DeleteNote(a.ctx, id, noteID)
		return detailsActionMsg{cardID: id, status: fmt.Sprintf("Note #%d deleted", noteID), err: err}
	}
}

func (a *App) assignCmd(id int, seller models.Seller) tea.Cmd {
	return func() tea.Msg {
		_, err := a.api.AssignSeller(a.ctx, id, seller.ID)
		return detailsActionMsg{cardID: id, status: "Assigned to " + seller.Email, err: err}
	}
}

func (a *App) unassignCmd(id int) tea.Cmd {
	return func() tea.Msg {
		err := a.api.UnassignSeller(a.ctx, id)
		return detailsActionMsg{cardID: id, status: "Seller unassigned", err: err}
	}
}

// watchSession follows the session file from a goroutine; changes arrive
// through listenSession
func (a *App) watchSession() tea.Cmd {
	if a.session == nil {
		return nil
	}
	return func() tea.Msg {
		go func() {
			err := a.session.Watch(a.ctx, func(s models.Session) {
				select {
				case a.sessionCh <- s:
				case <-a.ctx.Done():
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("session watch stopped", zap.Error(err))
			}
		}()
		return nil
	}
}

func (a *App) listenSession() tea.Cmd {
	if a.session == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-a.sessionCh:
			return sessionChangedMsg{session: s}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// setStatus shows msg and schedules its removal. A newer message is never
// cleared by an older timer.
func (a *App) setStatus(msg string) tea.Cmd {
	a.statusMsg = msg
	a.statusID++
	id := a.statusID
	d := a.settings.Board.NotificationTime.Std()
	if d <= 0 {
		d = 3 * time.Second
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
