package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/dine-composer/internal/infrastructure/session"
	"github.com/example/dine-composer/internal/internaltypes"
)

func newLoginCmd() *cobra.Command {
	var (
		userID int64
		role   string
		token  string
	)
	c := &cobra.Command{
		Use:   "login",
		Short: "Store the user id, role and API token issued by the restaurant service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				r, err := session.ParseRole(role)
				if err != nil {
					return err
				}
				if token == "" {
					token = strings.TrimSpace(os.Getenv("DINE_TOKEN"))
				}
				if userID <= 0 {
					return internaltypes.Invalid("--user-id must be positive")
				}
				store, err := a.sessions()
				if err != nil {
					return err
				}
				if err := store.Save(session.Session{UserID: userID, Role: r, Token: token}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as user %d (%s)\n", userID, r)
				return nil
			})
		},
	}
	c.Flags().Int64Var(&userID, "user-id", 0, "user id")
	c.Flags().StringVar(&role, "role", "customer", "customer, waiter or admin")
	c.Flags().StringVar(&token, "token", "", "API token (defaults to $DINE_TOKEN)")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				store, err := a.sessions()
				if err != nil {
					return err
				}
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}
