package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
)

// NewSuggestCommand creates the suggest command
func NewSuggestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <card-id>",
		Short: "Show next-step suggestions for a card",
		Long: `Ask the backend what to do next with a card, based on its stage.

Examples:
  leadboard suggest 42
  leadboard suggest 42 -o json`,
		Aliases: []string{"next"},
		Args:    cobra.ExactArgs(1),
		RunE:    runSuggest,
	}
	return cmd
}

func runSuggest(cmd *cobra.Command, args []string) error {
	id, err := cli.ParseCardID(args[0])
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
	card, stage, ok := sync.FindCard(id)
	if !ok {
		return fmt.Errorf("card %d is not on your board", id)
	}

	suggestions, err := sync.FetchSuggestions(cmd.Context(), id)
	if err != nil {
		return err
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, map[string]interface{}{
			"card_id":     id,
			"stage":       stage,
			"suggestions": nonNil(suggestions),
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s · %s\n", card.DisplayTitle(), cli.StageName(stage))
	if len(suggestions) == 0 {
		cli.PrintInfo("No suggestions for this stage")
		return nil
	}
	printSuggestions(w, suggestions)
	return nil
}
