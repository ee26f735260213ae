package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

type moveOutput struct {
	CardID      int          `json:"card_id" yaml:"card_id"`
	Title       string       `json:"title" yaml:"title"`
	From        models.Stage `json:"from" yaml:"from"`
	To          models.Stage `json:"to" yaml:"to"`
	Suggestions []string     `json:"suggestions" yaml:"suggestions"`
}

// NewMoveCommand creates the move command
func NewMoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <card-id> <stage>",
		Short: "Move a card to another stage",
		Long: `Move one card to another stage.

The stage can be given by key (lead, qualified, proposal, negotiation,
closed) or by label. When the backend rejects the move the board is
reloaded and the error is reported.

Examples:
  # Qualify a lead
  leadboard move 42 qualified

  # Close a deal and print the follow-up suggestions as JSON
  leadboard move 42 closed -o json`,
		Args: cobra.ExactArgs(2),
		RunE: runMove,
	}
	return cmd
}

func runMove(cmd *cobra.Command, args []string) error {
	id, err := cli.ParseCardID(args[0])
	if err != nil {
		return err
	}
	target, err := cli.ValidateStage(args[1])
	if err != nil {
		return err
	}

	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	sync, err := loadBoard(cmd, ctx)
	if err != nil {
		return err
	}

	move, err := sync.Move(id, target)
	if errors.Is(err, board.ErrSameStage) {
		cli.PrintInfo("Card %d is already in %s", id, target.Label())
		return nil
	}
	if err != nil {
		return err
	}

	result, err := sync.Submit(cmd.Context(), move)
	if err != nil {
		reportTransition(err)
		return err
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, moveOutput{
			CardID:      id,
			Title:       result.Move.Card.DisplayTitle(),
			From:        result.Move.From,
			To:          result.Move.To,
			Suggestions: nonNil(result.Suggestions),
		})
	}

	cli.PrintSuccess("%s: %s", result.Move.Card.DisplayTitle(), result.Notification)
	printSuggestions(cmd.OutOrStdout(), result.Suggestions)
	return nil
}

// reportTransition tells the user the board was put back in step
func reportTransition(err error) {
	var terr *board.TransitionError
	if !errors.As(err, &terr) {
		return
	}
	if terr.Resynced() {
		cli.PrintWarning("The backend rejected the move; the board was reloaded")
	} else {
		cli.PrintWarning("The backend rejected the move and reloading failed: %v", terr.ReloadErr)
	}
}

func printSuggestions(w io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSuggested next steps:")
	for _, s := range suggestions {
		fmt.Fprintf(w, "  • %s\n", s)
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
