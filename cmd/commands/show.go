package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/api"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/render"
)

var (
	showRaw   bool
	showWidth int
)

// cardView is everything show prints about a card
type cardView struct {
	Details     *models.CardDetails `json:"details" yaml:"details"`
	Seller      *models.Seller      `json:"seller,omitempty" yaml:"seller,omitempty"`
	Suggestions []string            `json:"suggestions" yaml:"suggestions"`
}

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <card-id>",
		Short: "Display a card with notes, attachments and suggestions",
		Long: `Display the full record of a card: summary, key points, assigned
seller, next-step suggestions, notes and attachments.

The text view is rendered as markdown using the ui.markdown_style setting;
--raw prints the markdown source instead.

Examples:
  leadboard show 42
  leadboard show 42 --raw > acme.md
  leadboard show 42 -o yaml`,
		Aliases: []string{"view", "details"},
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}

	cmd.Flags().BoolVar(&showRaw, "raw", false, "Print markdown source without rendering")
	cmd.Flags().IntVar(&showWidth, "width", render.DefaultWidth, "Wrap width for rendered output")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := cli.ParseCardID(args[0])
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

	view, err := loadCardView(cmd.Context(), client, ctx.Logger, id)
	if err != nil {
		return err
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, view)
	}

	d := render.Details{
		Card:        *view.Details,
		Potential:   view.Details.Entity("sales_potential", ""),
		Industry:    view.Details.Entity("industry", ""),
		Suggestions: view.Suggestions,
	}
	if view.Seller != nil {
		d.SellerEmail = view.Seller.Email
	}
	return printCard(cmd, ctx, d, showRaw, showWidth)
}

// printCard writes the card document, rendered unless raw is set
func printCard(cmd *cobra.Command, ctx *cli.CommandContext, d render.Details, raw bool, width int) error {
	md := render.CardMarkdown(d)
	if raw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	style := ctx.Settings.UI.MarkdownStyle
	if cli.NoColor() {
		style = "notty"
	}
	out, err := render.Markdown(md, style, width)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// loadCardView fetches details, sellers and suggestions concurrently. Only
// the details are required; the other two degrade to empty.
func loadCardView(ctx context.Context, client *api.Client, logger *zap.Logger, id int) (*cardView, error) {
	view := &cardView{Suggestions: []string{}}
	var sellers []models.Seller

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		details, err := client.CardDetails(gctx, id)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				return fmt.Errorf("card %d not found", id)
			}
			return err
		}
		view.Details = details
		return nil
	})
	g.Go(func() error {
		list, err := client.Sellers(gctx)
		if err != nil {
			logger.Debug("sellers unavailable", zap.Error(err))
			return nil
		}
		sellers = list
		return nil
	})
	g.Go(func() error {
		list, err := client.FetchSuggestions(gctx, id)
		if err != nil {
			logger.Debug("suggestions unavailable", zap.Int("card", id), zap.Error(err))
			return nil
		}
		view.Suggestions = nonNil(list)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if view.Details.SellerID != nil {
		for i := range sellers {
			if sellers[i].ID == *view.Details.SellerID {
				view.Seller = &sellers[i]
				break
			}
		}
	}
	return view, nil
}
