package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/leadboard/leadboard-cli/cmd/commands"
	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/tui"
)

// Version is set during build with -ldflags
var version = "dev"

func main() {
	os.Exit(commands.Execute(commands.NewRootCommand(version, launchBoard)))
}

// launchBoard runs the interactive board until the user quits
func launchBoard(ctx context.Context, cc *cli.CommandContext) error {
	if !cc.Session.Current().SignedIn() {
		cli.PrintWarning("Not signed in; the board will stay empty until a session is set")
		cli.PrintInfo("Run 'leadboard session set --token <token>' in another terminal")
	}

	sync, err := cc.Synchronizer()
	if err != nil {
		return err
	}
	client, err := cc.Client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := tui.NewApp(tui.Config{
		Context:  ctx,
		Sync:     sync,
		Details:  client,
		Session:  cc.Session,
		Settings: cc.Settings,
		Logger:   cc.Logger,
	})

	cc.Logger.Info("starting board",
		zap.String("api", client.BaseURL()),
		zap.Duration("refresh", cc.Settings.Board.RefreshInterval.Std()))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("failed to start the terminal user interface: %w", err)
	}
	return nil
}
