package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rncflow/internal/bootstrap"
	"rncflow/internal/errs"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a stored user",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		email, _ := cmd.Flags().GetString("email")

		token, err := app.Accounts.IssueFor(cmd.Context(), email)
		if err != nil {
			return errs.Wrap(err, "issue token")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires_at=%s\n", token.Value, token.ExpiresAt.Format(time.RFC3339)); err != nil {
			return errs.Wrap(err, "write token output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("email", "", "User email")
	_ = tokenCmd.MarkFlagRequired("email")
}
