package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/files"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/session"
)

var (
	sessionToken string
	sessionRole  string
	sessionEmail string
)

type sessionView struct {
	SignedIn bool   `json:"signed_in" yaml:"signed_in"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Scope    string `json:"scope" yaml:"scope"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	Source   string `json:"source" yaml:"source"`
}

// NewSessionCommand creates the session command group
func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Store, show or clear the credential used for the backend",
		Long: `Manage the session stored in the config directory.

The token is the bearer token issued by the backend at login. The role
decides which board is loaded: admins get the whole pipeline, sellers and
users only their own cards. The backend still enforces permissions.

LEADBOARD_TOKEN and LEADBOARD_ROLE, when set, take precedence over the
stored session.

Examples:
  leadboard session set --token eyJhbGciOi... --role admin
  echo "$TOKEN" | leadboard session set --token - --role seller
  leadboard session show
  leadboard session clear`,
		Aliases: []string{"login"},
	}

	cmd.AddCommand(newSessionSetCommand(), newSessionShowCommand(), newSessionClearCommand())
	return cmd
}

func newSessionSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a token and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(sessionToken)
			if token == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token from stdin: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return fmt.Errorf("--token is required")
			}

			ctx, err := newContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			store, err := storedSession(ctx.Session)
			if err != nil {
				return err
			}
			s := models.Session{Token: token, Role: strings.TrimSpace(sessionRole), Email: strings.TrimSpace(sessionEmail)}
			if err := store.SignIn(s); err != nil {
				return err
			}

			cli.PrintSuccess("Session saved (%s view)", s.Scope())
			if ctx.Session.Path() == "" {
				cli.PrintWarning("%s is set and overrides the stored session", cli.EnvToken)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionToken, "token", "", "Bearer token, or - to read it from stdin")
	cmd.Flags().StringVar(&sessionRole, "role", "admin", "Role: admin, seller or user")
	cmd.Flags().StringVar(&sessionEmail, "email", "", "Account email, for display")

	return cmd
}

func newSessionShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			s := ctx.Session.Current()
			view := sessionView{
				SignedIn: s.SignedIn(),
				Role:     s.Role,
				Email:    s.Email,
				Scope:    s.Scope().String(),
				Token:    maskToken(s.Token),
				Source:   ctx.Session.Path(),
			}
			if view.Source == "" {
				view.Source = cli.EnvToken
			}

			if cli.IsStructured(outputFormat) {
				return cli.OutputResults(cmd.OutOrStdout(), outputFormat, view)
			}
			if !view.SignedIn {
				cli.PrintInfo("Not signed in. Run 'leadboard session set --token <token>'")
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Role:   %s (%s view)\n", orDash(view.Role), view.Scope)
			if view.Email != "" {
				fmt.Fprintf(w, "Email:  %s\n", view.Email)
			}
			fmt.Fprintf(w, "Token:  %s\n", view.Token)
			fmt.Fprintf(w, "Source: %s\n", view.Source)
			fmt.Fprintf(w, "API:    %s\n", ctx.Settings.API.BaseURL)
			return nil
		},
	}
}

func newSessionClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "clear",
		Short:   "Forget the stored session",
		Aliases: []string{"logout"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			store, err := storedSession(ctx.Session)
			if err != nil {
				return err
			}
			if err := store.SignOut(); err != nil {
				return err
			}
			cli.PrintSuccess("Signed out")
			return nil
		},
	}
}

// storedSession returns the file-backed session even when the environment
// supplies the active one
func storedSession(active *session.Context) (*session.Context, error) {
	if active.Path() != "" {
		return active, nil
	}
	if _, err := files.EnsureConfigDir(); err != nil {
		return nil, err
	}
	path, err := files.Path(files.SessionFile)
	if err != nil {
		return nil, err
	}
	return session.Open(path)
}

// maskToken keeps the last four characters
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}
