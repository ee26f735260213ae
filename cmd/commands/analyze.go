package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/render"
)

var (
	analyzeWait time.Duration
	analyzeRaw  bool
)

type analyzeOutput struct {
	Analysis *models.Analysis `json:"analysis" yaml:"analysis"`
	Stage    models.Stage     `json:"stage,omitempty" yaml:"stage,omitempty"`
	OnBoard  bool             `json:"on_board" yaml:"on_board"`
}

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a company page and add it to the pipeline",
		Long: `Submit a company URL for analysis. The backend reads the page,
summarizes it and creates a lead card for it; the board is then reloaded so
the new card can be moved right away.

Analysis can take a while, so the request timeout is --wait rather than
the api.timeout setting.

Examples:
  leadboard analyze https://acme.example.com
  leadboard analyze https://acme.example.com --wait 5m -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().DurationVar(&analyzeWait, "wait", 2*time.Minute, "How long to wait for the analysis")
	cmd.Flags().BoolVar(&analyzeRaw, "raw", false, "Print markdown source without rendering")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateURL(args[0]); err != nil {
		return err
	}
	if analyzeWait <= 0 {
		return fmt.Errorf("--wait must be positive")
	}

	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	if analyzeWait > ctx.Settings.API.Timeout.Std() {
		ctx.Settings.API.Timeout = models.Duration(analyzeWait)
	}
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	if !cli.IsStructured(outputFormat) {
		cli.PrintInfo("Analyzing %s...", args[0])
	}
	analysis, err := client.Analyze(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	ctx.Logger.Info("page analyzed", zap.Int("card", analysis.ID), zap.String("url", analysis.URL))

	out := analyzeOutput{Analysis: analysis}
	sync, loadErr := loadBoard(cmd, ctx)
	if loadErr != nil {
		cli.PrintWarning("Card #%d was created but the board could not be reloaded: %v", analysis.ID, loadErr)
	} else if _, stage, ok := sync.FindCard(analysis.ID); ok {
		out.Stage = stage
		out.OnBoard = true
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, out)
	}

	stage := models.StageLead
	if out.OnBoard {
		stage = out.Stage
	}
	details := analysis.Details(stage)
	d := render.Details{
		Card:      details,
		Potential: details.Entity("sales_potential", ""),
		Industry:  details.Entity("industry", ""),
	}
	if err := printCard(cmd, ctx, d, analyzeRaw, render.DefaultWidth); err != nil {
		return err
	}

	switch {
	case out.OnBoard:
		cli.PrintSuccess("Added card #%d to %s", analysis.ID, out.Stage.Label())
	case loadErr == nil:
		cli.PrintWarning("Card #%d is not on your board yet", analysis.ID)
	}
	return nil
}
