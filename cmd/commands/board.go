package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/search"
)

var (
	boardFilter string
	boardStage  string
)

// NewBoardCommand creates the board command
func NewBoardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the pipeline grouped by stage",
		Long: `Load the pipeline from the backend and print it column by column.

Admins see every card; sellers and users only see their own pipeline.

Filter syntax:
  acme                 free word in title, URL, summary or industry
  title:"acme corp"    title contains
  industry:energy      industry contains
  potential:high       Alto/Médio/Baixo or high/medium/low
  stage:qualified      one stage
  enriched:yes         has enrichment data
  owner:ana@           owner email contains
  created:>30d         created more than 30 days ago (<7d for newer)
  NOT, OR              AND is implied between terms

Examples:
  # Whole board
  leadboard board

  # High potential leads that have not been enriched
  leadboard board --filter "potential:high NOT enriched:yes"

  # One column as JSON
  leadboard board --stage negotiation -o json`,
		Aliases: []string{"ls", "list"},
		Args:    cobra.NoArgs,
		RunE:    runBoard,
	}

	cmd.Flags().StringVarP(&boardFilter, "filter", "f", "", "Only show cards matching the query")
	cmd.Flags().StringVarP(&boardStage, "stage", "s", "", "Only show one stage")

	return cmd
}

func runBoard(cmd *cobra.Command, args []string) error {
	var only models.Stage
	if boardStage != "" {
		stage, err := cli.ValidateStage(boardStage)
		if err != nil {
			return err
		}
		only = stage
	}
	// Parse before touching the network so typos fail fast
	if _, err := search.NewParser().Parse(boardFilter); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
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

	pipeline, err := search.Filter(sync.Snapshot().Pipeline, boardFilter)
	if err != nil {
		return err
	}
	if only != "" {
		for stage := range pipeline {
			if stage != only {
				pipeline[stage] = []models.Card{}
			}
		}
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat,
			models.Snapshot{Pipeline: pipeline, Stats: pipeline.Stats()})
	}

	w := cmd.OutOrStdout()
	stages := models.Stages()
	if only != "" {
		stages = []models.Stage{only}
	}
	for i, stage := range stages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printColumn(w, stage, pipeline[stage])
	}

	total := pipeline.Len()
	if boardFilter != "" {
		cli.PrintInfo("%d of %d cards match %q", total, sync.Snapshot().Stats.Total, boardFilter)
	} else {
		cli.PrintInfo("%d cards (%s view)", total, sync.Status().Scope)
	}
	return nil
}

func printColumn(w io.Writer, stage models.Stage, cards []models.Card) {
	fmt.Fprintf(w, "%s (%d)\n", cli.StageName(stage), len(cards))
	if len(cards) == 0 {
		fmt.Fprintln(w, "  No cards")
		return
	}

	table := cli.NewTableFormatter(w)
	table.Header("ID", "TITLE", "POTENTIAL", "INDUSTRY", "ENRICHED")
	for _, c := range cards {
		enriched := ""
		if c.HasEnrichment {
			enriched = "yes"
		}
		table.Row(
			strconv.Itoa(c.ID),
			cli.TruncateString(c.DisplayTitle(), 40),
			orDash(c.SalesPotential),
			cli.TruncateString(orDash(c.Industry), 24),
			enriched,
		)
	}
	table.Flush()
}

// loadBoard performs the initial load every board command needs
func loadBoard(cmd *cobra.Command, ctx *cli.CommandContext) (*board.Synchronizer, error) {
	sync, err := ctx.Synchronizer()
	if err != nil {
		return nil, err
	}
	if err := sync.Load(cmd.Context()); err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}
	return sync, nil
}

// idsMatching returns the ids of cards matching a filter, board order
func idsMatching(p models.Pipeline, query string) ([]int, error) {
	filtered, err := search.Filter(p, query)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	var ids []int
	for _, stage := range models.Stages() {
		for _, c := range filtered[stage] {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
