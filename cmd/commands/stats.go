package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

var statsLocal bool

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pipeline counts and conversion rates",
		Long: `Show how many cards sit in each stage, the conversion rate between
consecutive stages and the average time spent per stage, as computed by
the backend.

--local counts the cards of your own board instead, which is what
sellers see in the board header.

Examples:
  leadboard stats
  leadboard stats --local -o json`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}

	cmd.Flags().BoolVar(&statsLocal, "local", false, "Count the cards on your board instead of asking the backend")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	var stats models.PipelineStats
	if statsLocal {
		sync, err := loadBoard(cmd, ctx)
		if err != nil {
			return err
		}
		local := sync.Snapshot().Stats
		stats = models.PipelineStats{TotalAnalyses: local.Total, ByStage: local.ByStage}
	} else {
		client, err := ctx.Client()
		if err != nil {
			return err
		}
		remote, err := client.PipelineStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		stats = *remote
	}

	if cli.IsStructured(outputFormat) {
		return cli.OutputResults(cmd.OutOrStdout(), outputFormat, stats)
	}
	printStats(cmd.OutOrStdout(), stats)
	return nil
}

const barWidth = 30

func printStats(w io.Writer, stats models.PipelineStats) {
	fmt.Fprintf(w, "Total: %d\n\n", stats.TotalAnalyses)

	max := 0
	for _, n := range stats.ByStage {
		if n > max {
			max = n
		}
	}

	table := cli.NewTableFormatter(w)
	table.Header("STAGE", "CARDS", "", "AVG TIME")
	for _, stage := range models.Stages() {
		n := stats.ByStage[stage]
		bar := ""
		if max > 0 {
			bar = strings.Repeat("█", n*barWidth/max)
		}
		table.Row(stage.Label(), fmt.Sprint(n), bar, orDash(stats.AvgTimeByStage[stage]))
	}
	table.Flush()

	if len(stats.ConversionRates) == 0 {
		return
	}
	fmt.Fprintln(w, "\nConversion")
	keys := make([]string, 0, len(stats.ConversionRates))
	for k := range stats.ConversionRates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return conversionOrder(keys[i]) < conversionOrder(keys[j]) })
	for _, k := range keys {
		fmt.Fprintf(w, "  %-28s %5.1f%%\n", conversionLabel(k), stats.ConversionRates[k])
	}
}

// conversionLabel turns "lead_to_qualified" into "Lead → Qualified"
func conversionLabel(key string) string {
	from, to, ok := strings.Cut(key, "_to_")
	if !ok {
		return key
	}
	return models.Stage(from).Label() + " → " + models.Stage(to).Label()
}

func conversionOrder(key string) int {
	from, _, _ := strings.Cut(key, "_to_")
	if i := models.Stage(from).Index(); i >= 0 {
		return i
	}
	return len(models.Stages())
}
