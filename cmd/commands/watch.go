package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/internal/telemetry"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

var (
	watchInterval      time.Duration
	watchMetricsAddr   string
	watchMetricsOrigin []string
)

// watchEvent is emitted for every applied reload in structured output
type watchEvent struct {
	At      time.Time      `json:"at" yaml:"at"`
	Total   int            `json:"total" yaml:"total"`
	Changes []board.Change `json:"changes" yaml:"changes"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the board periodically and print what changed",
		Long: `Keep the board loaded, reloading it on an interval (board.refresh_interval,
30s by default), and print every card that was added, removed or moved
since the previous load.

With --metrics-addr the synchronizer counters are served at /metrics in
Prometheus format together with a /healthz probe.

Signing in or out from another terminal (leadboard session set/clear) is
picked up immediately.

Examples:
  leadboard watch
  leadboard watch --interval 10s
  leadboard watch --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().DurationVar(&watchInterval, "interval", 0, "Reload interval (default from settings)")
	cmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")
	cmd.Flags().StringSliceVar(&watchMetricsOrigin, "metrics-origin", nil, "Allow cross-origin reads of the telemetry endpoints from these origins")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	synchronizer, err := ctx.Synchronizer()
	if err != nil {
		return err
	}

	interval := watchInterval
	if interval <= 0 {
		interval = ctx.Settings.Board.RefreshInterval.Std()
	}

	g, gctx := errgroup.WithContext(cmd.Context())

	if watchMetricsAddr != "" {
		srv, err := telemetry.Listen(watchMetricsAddr,
			telemetry.Routes(ctx.Registry, synchronizer, watchMetricsOrigin), ctx.Logger)
		if err != nil {
			return err
		}
		cli.PrintInfo("Metrics on http://%s/metrics", srv.Addr())
		g.Go(srv.Serve)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	w := &watcher{cmd: cmd, sync: synchronizer}

	g.Go(func() error {
		return ctx.Session.Watch(gctx, func(s models.Session) {
			ctx.Logger.Info("session changed, reloading", zap.String("role", s.Role))
			cli.PrintInfo("Session changed (%s view), reloading", s.Scope())
			synchronizer.Reset()
			w.reset()
			w.report(synchronizer.Load(gctx))
		})
	})

	g.Go(func() error {
		w.report(synchronizer.Load(gctx))
		board.NewPoller(synchronizer, interval, ctx.Logger).Run(gctx, w.report)
		return nil
	})

	cli.PrintInfo("Watching the board every %s (Ctrl+C to stop)", interval)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watcher turns applied loads into change reports. The poller and the
// session watch both report through it.
type watcher struct {
	cmd  *cobra.Command
	sync *board.Synchronizer

	mu     sync.Mutex
	prev   models.Pipeline
	loaded bool
}

func (w *watcher) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prev = nil
	w.loaded = false
}

func (w *watcher) report(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if errors.Is(err, board.ErrStale) || errors.Is(err, context.Canceled) {
		return
	}
	now := time.Now()
	if err != nil {
		if cli.IsStructured(outputFormat) {
			cli.OutputResults(w.cmd.OutOrStdout(), outputFormat, watchEvent{At: now, Error: err.Error(), Changes: []board.Change{}})
			return
		}
		cli.PrintWarning("Reload failed, keeping the last board: %v", err)
		return
	}

	snap := w.sync.Snapshot()
	var changes []board.Change
	if w.loaded {
		changes = board.Diff(w.prev, snap.Pipeline)
	}
	first := !w.loaded
	w.prev, w.loaded = snap.Pipeline, true

	if cli.IsStructured(outputFormat) {
		if changes == nil {
			changes = []board.Change{}
		}
		cli.OutputResults(w.cmd.OutOrStdout(), outputFormat, watchEvent{At: now, Total: snap.Stats.Total, Changes: changes})
		return
	}

	out := w.cmd.OutOrStdout()
	stamp := now.Format("15:04:05")
	if first {
		fmt.Fprintf(out, "%s loaded %d cards\n", stamp, snap.Stats.Total)
		return
	}
	for _, c := range changes {
		fmt.Fprintf(out, "%s %s\n", stamp, c)
	}
}
