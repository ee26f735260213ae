package commands

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

var (
	attachName string
	attachSize int64
)

// NewAttachCommand creates the attach command group
func NewAttachCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Link or unlink files on a card",
		Long: `Manage the attachments of a card. Attachments are links: upload the
file somewhere reachable and register its URL here.

Examples:
  leadboard attach add 42 https://drive.example.com/acme/proposal.pdf
  leadboard attach add 42 https://drive.example.com/x?id=9 --name "Signed NDA.pdf"
  leadboard attach rm 42 13`,
		Aliases: []string{"attachment", "attachments"},
	}

	cmd.AddCommand(newAttachAddCommand(), newAttachRemoveCommand())
	return cmd
}

func newAttachAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <card-id> <url>",
		Short: "Attach a file URL to a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseCardID(args[0])
			if err != nil {
				return err
			}
			if err := cli.ValidateURL(args[1]); err != nil {
				return err
			}
			att := newAttachment(args[1], attachName, attachSize)

			ctx, err := newContext()
			if err != nil {
				return err
			}
			defer ctx.Close()
			client, err := ctx.Client()
			if err != nil {
				return err
			}

			created, err := client.AddAttachment(cmd.Context(), id, att)
			if err != nil {
				return fmt.Errorf("failed to add attachment: %w", err)
			}
			if cli.IsStructured(outputFormat) {
				return cli.OutputResults(cmd.OutOrStdout(), outputFormat, created)
			}
			cli.PrintSuccess("Attached %s to card %d (#%d)", created.Filename, id, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&attachName, "name", "", "File name to show (default: last URL path segment)")
	cmd.Flags().Int64Var(&attachSize, "size", 0, "File size in bytes, if known")

	return cmd
}

func newAttachRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <card-id> <attachment-id>",
		Short:   "Remove an attachment",
		Aliases: []string{"delete", "remove"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cli.ParseCardID(args[0])
			if err != nil {
				return err
			}
			attID, err := cli.ParseCardID(args[1])
			if err != nil {
				return fmt.Errorf("invalid attachment id %q", args[1])
			}

			ok, err := cli.Confirm(fmt.Sprintf("Remove attachment #%d from card %d?", attID, id), false)
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

			if err := client.DeleteAttachment(cmd.Context(), id, attID); err != nil {
				return fmt.Errorf("failed to remove attachment: %w", err)
			}
			cli.PrintSuccess("Removed attachment #%d", attID)
			return nil
		},
	}
}

// newAttachment derives the name and MIME type from the URL when not given
func newAttachment(rawURL, name string, size int64) models.NewAttachment {
	att := models.NewAttachment{Filename: strings.TrimSpace(name), FileURL: strings.TrimSpace(rawURL)}
	u, err := url.Parse(att.FileURL)
	if att.Filename == "" && err == nil {
		att.Filename = path.Base(u.Path)
		if att.Filename == "." || att.Filename == "/" {
			att.Filename = u.Host
		}
	}
	if ext := path.Ext(att.Filename); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			mt, _, _ = strings.Cut(mt, ";")
			att.FileType = &mt
		}
	}
	if size > 0 {
		att.FileSize = &size
	}
	return att
}
