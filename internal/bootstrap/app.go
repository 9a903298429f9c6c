package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"rncflow/internal/bootstrap/config"
	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/migrations"
	"rncflow/internal/infrastructure/realtime"
	"rncflow/internal/transport/httpapi"
	"rncflow/internal/usecase/account"
	rncusecase "rncflow/internal/usecase/rnc"
)

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	DB         *gorm.DB
	Workflow   *rncusecase.Service
	Accounts   *account.Service
	Hub        *realtime.Hub
	Dispatcher *realtime.Dispatcher
	Server     *httpapi.Server
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration", slog.Int("known_migrations", len(migrations.All())))

	if err := migrations.Run(ctx, a.DB); err != nil {
		return errs.Wrap(err, "migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
