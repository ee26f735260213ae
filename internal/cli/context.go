package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/leadboard/leadboard-cli/internal/logging"
	"github.com/leadboard/leadboard-cli/pkg/api"
	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/files"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/session"
)

// Environment variables that override settings.yaml
const (
	EnvAPIURL          = "LEADBOARD_API_URL"
	EnvToken           = "LEADBOARD_TOKEN"
	EnvRole            = "LEADBOARD_ROLE"
	EnvRefreshInterval = "LEADBOARD_REFRESH_INTERVAL"
)

// ContextOptions carries global flags into the command context
type ContextOptions struct {
	APIURL  string
	Verbose bool
	// EnvFile is loaded with godotenv before env overrides apply; a missing
	// file is ignored.
	EnvFile string
}

// CommandContext bundles what every command needs: settings, logger,
// session, API client and synchronizer. Parts are built lazily.
type CommandContext struct {
	Settings *models.Settings
	Logger   *zap.Logger
	Session  *session.Context
	Registry *prometheus.Registry

	client *api.Client
	sync   *board.Synchronizer
}

// NewCommandContext loads .env, settings and session and builds the logger
func NewCommandContext(opts ContextOptions) (*CommandContext, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	settings, err := files.ReadSettings()
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(settings, os.Getenv); err != nil {
		return nil, err
	}
	if opts.APIURL != "" {
		settings.API.BaseURL = opts.APIURL
	}

	// Logs never share the terminal with command output or the TUI unless
	// the settings ask for stderr explicitly.
	logOpts := logging.Options{Level: settings.Logging.Level, Verbose: opts.Verbose}
	switch settings.Logging.File {
	case "stderr":
	case "":
		if logOpts.File, err = files.Path(files.LogFile); err != nil {
			return nil, err
		}
	default:
		logOpts.File = settings.Logging.File
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	sess, err := openSession(logger, os.Getenv)
	if err != nil {
		logging.Sync(logger)
		return nil, err
	}

	return &CommandContext{
		Settings: settings,
		Logger:   logger,
		Session:  sess,
		Registry: prometheus.NewRegistry(),
	}, nil
}

// ApplyEnv overlays LEADBOARD_* variables on the settings
func ApplyEnv(settings *models.Settings, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		settings.API.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvRefreshInterval)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvRefreshInterval, v, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", EnvRefreshInterval, v)
		}
		settings.Board.RefreshInterval = models.Duration(d)
	}
	return nil
}

// openSession prefers LEADBOARD_TOKEN (in memory, never written) over the
// session file.
func openSession(logger *zap.Logger, getenv func(string) string) (*session.Context, error) {
	if token := strings.TrimSpace(getenv(EnvToken)); token != "" {
		return session.New(models.Session{
			Token: token,
			Role:  strings.TrimSpace(getenv(EnvRole)),
		}, session.WithLogger(logger)), nil
	}

	if _, err := files.EnsureConfigDir(); err != nil {
		return nil, err
	}
	path, err := files.Path(files.SessionFile)
	if err != nil {
		return nil, err
	}
	return session.Open(path, session.WithLogger(logger))
}

// Client returns the API client, building it on first use
func (c *CommandContext) Client() (*api.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	client, err := api.NewClient(c.Settings.API.BaseURL, c.Session,
		api.WithTimeout(c.Settings.API.Timeout.Std()),
		api.WithLogger(c.Logger))
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

// Synchronizer returns the board synchronizer, building it on first use
func (c *CommandContext) Synchronizer() (*board.Synchronizer, error) {
	if c.sync != nil {
		return c.sync, nil
	}
	client, err := c.Client()
	if err != nil {
		return nil, err
	}
	c.sync = board.New(client, c.Session,
		board.WithLogger(c.Logger),
		board.WithMetrics(board.NewMetrics(c.Registry)))
	return c.sync, nil
}

// Close flushes the logger and stops in-flight loads
func (c *CommandContext) Close() {
	if c.sync != nil {
		c.sync.Close()
	}
	logging.Sync(c.Logger)
}

// ExplainError adds a hint for the failures users can fix themselves
func ExplainError(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%w\nhint: run 'leadboard session set --token <token>' or set %s", err, EnvToken)
	}
	return err
}
