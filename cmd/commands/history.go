package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

var historyLimit int

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently analyzed pages",
		Long: `List the latest analyses, newest first. Sellers see their own,
admins see everyone's. The backend returns at most 100.

Examples:
  leadboard history
  leadboard history --limit 10
  leadboard history -o json`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most n entries (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("--limit cannot be negative")
	}

	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	client, err := ctx.Client()
	if err != nil {
		return err
	}
	items, err := client.History(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if historyLimit > 0 && len(items) > historyLimit {
		items = items[:historyLimit]
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, items)
	}

	if len(items) == 0 {
		cli.PrintInfo("Nothing analyzed yet; try 'leadboard analyze <url>'")
		return nil
	}
	printHistory(cmd, items)
	return nil
}

func printHistory(cmd *cobra.Command, items []models.Analysis) {
	table := cli.NewTableFormatter(cmd.OutOrStdout())
	table.Header("ID", "ANALYZED", "TITLE", "URL")
	for _, a := range items {
		table.Row(
			fmt.Sprintf("#%d", a.ID),
			cli.FormatTime(a.CreatedAt),
			cli.TruncateString(a.DisplayTitle(), 40),
			cli.TruncateString(a.URL, 48),
		)
	}
	table.Flush()
}
