package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadboard/leadboard-cli/internal/cli"
	"github.com/leadboard/leadboard-cli/pkg/api"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

// NewSellerCommand creates the seller command group
func NewSellerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seller",
		Short: "List sellers and assign them to cards",
		Long: `List the users that can own a card and hand cards to them.
Requires an admin session.

Examples:
  leadboard seller list
  leadboard seller assign 42 ana@example.com
  leadboard seller assign 42 7
  leadboard seller unassign 42`,
		Aliases: []string{"sellers"},
	}

	cmd.AddCommand(newSellerListCommand(), newSellerAssignCommand(), newSellerUnassignCommand())
	return cmd
}

func newSellerListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List sellers",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext()
			if err != nil {
				return err
			}
			defer ctx.Close()
			client, err := ctx.Client()
			if err != nil {
				return err
			}

			sellers, err := client.Sellers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sellers: %w", err)
			}
			if cli.IsStructured(outputFormat) {
				return cli.OutputResults(cmd.OutOrStdout(), outputFormat, sellers)
			}
			if len(sellers) == 0 {
				cli.PrintInfo("No sellers found")
				return nil
			}

			table := cli.NewTableFormatter(cmd.OutOrStdout())
			table.Header("ID", "EMAIL", "ROLE", "SINCE")
			for _, s := range sellers {
				table.Row(strconv.Itoa(s.ID), s.Email, s.Role, cli.FormatTime(s.CreatedAt))
			}
			table.Flush()
			return nil
		},
	}
}

func newSellerAssignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <card-id> <seller-id|email>",
		Short: "Assign a card to a seller",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			sellerID, err := resolveSeller(cmd.Context(), client, args[1])
			if err != nil {
				return err
			}
			result, err := client.AssignSeller(cmd.Context(), id, sellerID)
			if err != nil {
				return fmt.Errorf("failed to assign seller: %w", err)
			}
			if cli.IsStructured(outputFormat) {
				return cli.OutputResults(cmd.OutOrStdout(), outputFormat, result)
			}
			cli.PrintSuccess("Card %d assigned to %s", id, result.SellerEmail)
			return nil
		},
	}
}

func newSellerUnassignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <card-id>",
		Short: "Remove the seller from a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := client.UnassignSeller(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to unassign seller: %w", err)
			}
			cli.PrintSuccess("Card %d no longer has a seller", id)
			return nil
		},
	}
}

// resolveSeller accepts a numeric id or an email (case-insensitive)
func resolveSeller(ctx context.Context, client *api.Client, ref string) (int, error) {
	if id, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil && id > 0 {
		return id, nil
	}
	sellers, err := client.Sellers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sellers: %w", err)
	}
	return findSeller(sellers, ref)
}

func findSeller(sellers []models.Seller, email string) (int, error) {
	for _, s := range sellers {
		if strings.EqualFold(s.Email, strings.TrimSpace(email)) {
			return s.ID, nil
		}
	}
	return 0, fmt.Errorf("no seller with email %q", email)
}
