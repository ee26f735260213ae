package commands

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

var (
	copyField string
	copyPrint bool
)

// NewCopyCommand creates the copy command
func NewCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <card-id>",
		Short: "Copy a card's URL or summary to the clipboard",
		Long: `Copy part of a card to the system clipboard.

Fields:
  url       the company URL (default)
  title     the card title
  summary   the analysis summary
  line      "Title <url> (Stage)", handy for chat messages

Examples:
  leadboard copy 42
  leadboard copy 42 --field summary
  leadboard copy 42 --print`,
		Aliases: []string{"clip", "yank"},
		Args:    cobra.ExactArgs(1),
		RunE:    runCopy,
	}

	cmd.Flags().StringVar(&copyField, "field", "url", "What to copy: url, title, summary, line")
	cmd.Flags().BoolVar(&copyPrint, "print", false, "Print instead of touching the clipboard")

	return cmd
}

func runCopy(cmd *cobra.Command, args []string) error {
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

	text, err := cardField(card, stage, copyField)
	if err != nil {
		return err
	}

	if copyPrint {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	cli.PrintSuccess("Copied %s of %s to clipboard", copyField, card.DisplayTitle())
	return nil
}

// cardField extracts the text copied for a field
func cardField(card models.Card, stage models.Stage, field string) (string, error) {
	switch strings.ToLower(field) {
	case "url", "":
		if card.URL == "" {
			return "", fmt.Errorf("card %d has no URL", card.ID)
		}
		return card.URL, nil
	case "title":
		return card.DisplayTitle(), nil
	case "summary":
		if card.SummaryText() == "" {
			return "", fmt.Errorf("card %d has no summary yet", card.ID)
		}
		return card.SummaryText(), nil
	case "line":
		return fmt.Sprintf("%s <%s> (%s)", card.DisplayTitle(), card.URL, stage.Label()), nil
	}
	return "", fmt.Errorf("unknown field %q (valid: url, title, summary, line)", field)
}
