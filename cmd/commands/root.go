package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
)

// Global flags shared by every subcommand
var (
	outputFormat string
	quietFlag    bool
	noColorFlag  bool
	yesFlag      bool
	verboseFlag  bool
	apiURLFlag   string
	envFileFlag  string
)

// Launcher starts the interactive board. ctx ends when the process is
// interrupted.
type Launcher func(ctx context.Context, cc *cli.CommandContext) error

// NewRootCommand builds the leadboard command tree. launch runs when no
// subcommand is given; nil prints help instead.
func NewRootCommand(version string, launch Launcher) *cobra.Command {
	root := &cobra.Command{
		Use:   "leadboard",
		Short: "Terminal kanban board for the sales-intelligence pipeline",
		Long: `leadboard shows the sales pipeline as a kanban board in the terminal.

Cards are companies analysed by the backend; columns are the five stages
Lead, Qualified, Proposal, Negotiation and Closed. Moving a card updates the
board immediately and is confirmed by the backend in the background.

Run without arguments for the interactive board, or use the subcommands
for scripting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.SetGlobalFlags(quietFlag, noColorFlag, yesFlag)
			cli.BindCommand(cmd)
			return cli.ValidateOutputFormat(outputFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if launch == nil {
				return cmd.Help()
			}
			ctx, err := newContext()
			if err != nil {
				return err
			}
			defer ctx.Close()
			return launch(cmd.Context(), ctx)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json, yaml)")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress informational output")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colors and symbols")
	flags.BoolVarP(&yesFlag, "yes", "y", false, "Answer yes to confirmation prompts")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging")
	flags.StringVar(&apiURLFlag, "api-url", "", "Backend base URL (overrides settings and LEADBOARD_API_URL)")
	flags.StringVar(&envFileFlag, "env-file", "", "Environment file to load (default .env)")

	root.AddCommand(
		NewBoardCommand(),
		NewAnalyzeCommand(),
		NewHistoryCommand(),
		NewMoveCommand(),
		NewBulkMoveCommand(),
		NewSuggestCommand(),
		NewShowCommand(),
		NewNoteCommand(),
		NewAttachCommand(),
		NewSellerCommand(),
		NewStatsCommand(),
		NewWatchCommand(),
		NewCopyCommand(),
		NewSessionCommand(),
		NewVersionCommand(version),
	)
	return root
}

// Execute runs the root command and reports the error the way users see it
func Execute(root *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		cli.PrintError("%v", cli.ExplainError(err))
		return 1
	}
	return 0
}

func newContext() (*cli.CommandContext, error) {
	return cli.NewCommandContext(cli.ContextOptions{
		APIURL:  apiURLFlag,
		Verbose: verboseFlag,
		EnvFile: envFileFlag,
	})
}

// NewVersionCommand creates the version command
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of leadboard",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "leadboard version %s\n", version)
		},
	}
}
