package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rncflow/internal/bootstrap"
	"rncflow/internal/errs"
	"rncflow/internal/usecase/account"
)

var partCmd = &cobra.Command{
	Use:   "part",
	Short: "Manage parts",
}

var partAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a part that reports can be opened against",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		code, _ := cmd.Flags().GetString("code")
		description, _ := cmd.Flags().GetString("description")
		client, _ := cmd.Flags().GetString("client")

		part, err := app.Accounts.RegisterPart(cmd.Context(), account.RegisterPartInput{
			Code:        code,
			Description: description,
			Client:      client,
		})
		if err != nil {
			return errs.Wrap(err, "register part")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "part registered id=%d code=%s\n", part.ID, part.Code); err != nil {
			return errs.Wrap(err, "write part output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(partCmd)
	partCmd.AddCommand(partAddCmd)

	partAddCmd.Flags().String("code", "", "Part code")
	partAddCmd.Flags().String("description", "", "Part description")
	partAddCmd.Flags().String("client", "", "Client name")
	_ = partAddCmd.MarkFlagRequired("code")
}
