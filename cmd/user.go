package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rncflow/internal/bootstrap"
	"rncflow/internal/errs"
	"rncflow/internal/usecase/account"
)

const passwordEnv = "RNC_USER_PASSWORD"

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user with a role",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		role, _ := cmd.Flags().GetString("role")
		password, _ := cmd.Flags().GetString("password")
		if strings.TrimSpace(password) == "" {
			password = os.Getenv(passwordEnv)
		}

		user, err := app.Accounts.RegisterUser(cmd.Context(), account.RegisterUserInput{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     role,
		})
		if err != nil {
			return errs.Wrap(err, "register user")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "user registered id=%d email=%s role=%s\n", user.ID, user.Email, user.Role); err != nil {
			return errs.Wrap(err, "write user output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)

	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().String("email", "", "Login email")
	userAddCmd.Flags().String("role", "", "ADMIN, OPERADOR, QUALIDADE, TECNICO or ENGENHARIA")
	userAddCmd.Flags().String("password", "", "Password (falls back to "+passwordEnv+")")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("role")
}
