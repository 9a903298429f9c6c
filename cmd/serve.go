package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rncflow/internal/bootstrap"
	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow API and the live notification endpoint",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		migrate, _ := cmd.Flags().GetBool("migrate")
		if migrate {
			if err := app.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := app.Server.Start(ctx); err != nil {
			return errs.Wrap(err, "start http server")
		}

		var serveErr error
		select {
		case <-ctx.Done():
			logging.Info(ctx, "shutdown signal received")
		case err, ok := <-app.Server.Done():
			if ok && err != nil {
				serveErr = errs.Wrap(err, "serve http")
			}
		}

		// Stop taking requests first; the hub and dispatcher drain when the app stops.
		if err := app.Server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logging.Error(ctx, "http shutdown failed", slog.Any("err", errs.Loggable(err)))
		}
		return serveErr
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", true, "Apply pending migrations before serving")
}
