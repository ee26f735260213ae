package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

var bulkFilter string

type bulkOutput struct {
	Stage     models.Stage `json:"stage" yaml:"stage"`
	Requested []int        `json:"requested" yaml:"requested"`
	Updated   int          `json:"updated" yaml:"updated"`
	Partial   bool         `json:"partial" yaml:"partial"`
}

// NewBulkMoveCommand creates the bulk-move command
func NewBulkMoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-move <stage> [card-id...]",
		Short: "Move several cards to one stage",
		Long: `Move up to 50 cards to one stage with a single backend call.

Cards can be listed by id (space or comma separated) or selected with
--filter using the board filter syntax. Cards already in the target stage
are skipped. The backend ignores cards you do not own; when that happens
the board is reloaded and the real count is reported.

Examples:
  # Qualify three leads
  leadboard bulk-move qualified 12 15 19

  # Close every negotiation with Acme in the title
  leadboard bulk-move closed --filter "stage:negotiation title:acme"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBulkMove,
	}

	cmd.Flags().StringVarP(&bulkFilter, "filter", "f", "", "Select cards with a board filter instead of ids")

	return cmd
}

func runBulkMove(cmd *cobra.Command, args []string) error {
	target, err := cli.ValidateStage(args[0])
	if err != nil {
		return err
	}

	var ids []int
	switch {
	case bulkFilter != "" && len(args) > 1:
		return errors.New("give card ids or --filter, not both")
	case bulkFilter == "":
		if ids, err = cli.ParseCardIDs(args[1:]); err != nil {
			return err
		}
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

	if bulkFilter != "" {
		if ids, err = idsMatching(sync.Snapshot().Pipeline, bulkFilter); err != nil {
			return err
		}
		if len(ids) == 0 {
			cli.PrintInfo("No cards match %q", bulkFilter)
			return nil
		}
	}

	if len(ids) > board.MaxBulkMove {
		return fmt.Errorf("%d cards selected, at most %d can be moved at once; narrow the selection", len(ids), board.MaxBulkMove)
	}
	if !cli.IsStructured(outputFormat) {
		ok, err := cli.Confirm(confirmBulkPrompt(len(ids), target), true)
		if err != nil {
			return err
		}
		if !ok {
			cli.PrintInfo("Cancelled")
			return nil
		}
	}

	result, err := sync.BulkMove(cmd.Context(), ids, target)
	if errors.Is(err, board.ErrSameStage) {
		cli.PrintInfo("Every card is already in %s", target.Label())
		return nil
	}
	if err != nil {
		reportTransition(err)
		return err
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, bulkOutput{
			Stage:     target,
			Requested: ids,
			Updated:   result.Updated,
			Partial:   result.Partial,
		})
	}

	cli.PrintSuccess("%s", result.Notification)
	if result.Partial {
		cli.PrintWarning("%d of %d cards were not updated (not yours?); the board was reloaded",
			len(result.Moves)-result.Updated, len(result.Moves))
	}
	return nil
}

func confirmBulkPrompt(n int, target models.Stage) string {
	if n == 1 {
		return fmt.Sprintf("Move 1 card to %s?", target.Label())
	}
	return fmt.Sprintf("Move %d cards to %s?", n, target.Label())
}
