package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
)

// NewNoteCommand creates the note command group
func NewNoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Add, edit or remove card notes",
		Long: `Manage the notes attached to a card.

Examples:
  leadboard note add 42 "Spoke with the CFO, budget approved"
  echo "Follow up in May" | leadboard note add 42 -
  leadboard note edit 42 7 "Budget approved for Q3"
  leadboard note rm 42 7`,
		Aliases: []string{"notes"},
	}

	cmd.AddCommand(newNoteAddCommand(), newNoteEditCommand(), newNoteRemoveCommand())
	return cmd
}

func newNoteAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <card-id> <text...|->",
		Short: "Add a note to a card",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseCardID(args[0])
			if err != nil {
				return err
			}
			content, err := noteContent(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
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

			note, err := client.AddNote(cmd.Context(), id, content)
			if err != nil {
				return fmt.Errorf("failed to add note: %w", err)
			}
			if cli.IsStructured(outputFormat) {
				return cli.OutputResults(cmd.OutOrStdout(), outputFormat, note)
			}
			cli.PrintSuccess("Added note #%d to card %d", note.ID, id)
			return nil
		},
	}
}

func newNoteEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <card-id> <note-id> <text...|->",
		Short: "Replace the text of a note",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseCardID(args[0])
			if err != nil {
				return err
			}
			noteID, err := cli.ParseCardID(args[1])
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[1])
			}
			content, err := noteContent(cmd.InOrStdin(), args[2:])
			if err != nil {
				return err
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

			note, err := client.UpdateNote(cmd.Context(), id, noteID, content)
			if err != nil {
				return fmt.Errorf("failed to update note: %w", err)
			}
			if cli.IsStructured(outputFormat) {
				return cli.OutputResults(cmd.OutOrStdout(), outputFormat, note)
			}
			cli.PrintSuccess("Updated note #%d", note.ID)
			return nil
		},
	}
}

func newNoteRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <card-id> <note-id>",
		Short:   "Delete a note",
		Aliases: []string{"delete", "remove"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseCardID(args[0])
			if err != nil {
				return err
			}
			noteID, err := cli.ParseCardID(args[1])
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[1])
			}

			ok, err := cli.Confirm(fmt.Sprintf("Delete note #%d from card %d?", noteID, id), false)
			if err != nil {
				return err
			}
			if !ok {
				cli.PrintInfo("Cancelled")
				return nil
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

			if err := client.DeleteNote(cmd.Context(), id, noteID); err != nil {
				return fmt.Errorf("failed to delete note: %w", err)
			}
			cli.PrintSuccess("Deleted note #%d", noteID)
			return nil
		},
	}
}

// noteContent joins the text arguments; a single "-" reads stdin
func noteContent(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read note from stdin: %w", err)
		}
		args = []string{string(data)}
	}
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		return "", fmt.Errorf("note text cannot be empty")
	}
	return content, nil
}
