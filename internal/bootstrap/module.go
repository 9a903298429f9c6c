package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"rncflow/internal/bootstrap/config"
	"rncflow/internal/bootstrap/database"
	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/infrastructure/auth"
	cacheinfra "rncflow/internal/infrastructure/cache"
	"rncflow/internal/infrastructure/metrics"
	"rncflow/internal/infrastructure/persistence/gormstore/repository"
	"rncflow/internal/infrastructure/persistence/gormstore/uow"
	"rncflow/internal/infrastructure/realtime"
	"rncflow/internal/ports"
	"rncflow/internal/transport/httpapi"
	"rncflow/internal/usecase/account"
	rncusecase "rncflow/internal/usecase/rnc"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(
		fx.Annotate(repository.NewRNCRepository, fx.As(new(ports.RNCRepository))),
		fx.Annotate(repository.NewPartRepository, fx.As(new(ports.PartRepository))),
		fx.Annotate(repository.NewUserRepository, fx.As(new(ports.UserRepository))),
		fx.Annotate(repository.NewSequence, fx.As(new(ports.Sequence))),
		fx.Annotate(uow.NewUnitOfWork, fx.As(new(ports.UnitOfWork))),
		fx.Annotate(cacheinfra.NewGormCache, fx.As(new(ports.Cache))),
	),
	fx.Provide(metrics.New),
	fx.Provide(
		provideAuthenticator,
		func(a *auth.JWTAuthenticator) ports.Authenticator { return a },
		func(a *auth.JWTAuthenticator) ports.TokenIssuer { return a },
		provideHasher,
	),
	fx.Provide(
		provideHub,
		provideDispatcher,
		func(d *realtime.Dispatcher) ports.Notifier { return d },
	),
	fx.Provide(provideWorkflow),
	fx.Provide(account.NewService),
	fx.Provide(provideHTTPServer),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(cfg config.Config) (*slog.Logger, error) {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideAuthenticator(cfg config.Config, revoked ports.Cache) (*auth.JWTAuthenticator, error) {
	return auth.NewJWTAuthenticator(auth.JWTConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	}, revoked)
}

func provideHasher(cfg config.Config) ports.PasswordHasher {
	return auth.NewBcryptHasher(cfg.Auth.BcryptCost)
}

// provideHub drains every live connection on shutdown.
func provideHub(lc fx.Lifecycle, ctx context.Context, cfg config.Config, authenticator ports.Authenticator, m *metrics.Metrics) *realtime.Hub {
	hub := realtime.NewHub(authenticator, realtime.HubConfig{
		Fanout:      cfg.Hub.Fanout,
		SendTimeout: cfg.Hub.SendTimeout,
	}, m)
	lc.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			return hub.Close(logging.WithLogger(stopCtx, logging.Logger(ctx)))
		},
	})
	return hub
}

func provideDispatcher(lc fx.Lifecycle, cfg config.Config, hub *realtime.Hub, m *metrics.Metrics) *realtime.Dispatcher {
	dispatcher := realtime.NewDispatcher(hub, cfg.Hub.MaxConcurrentBroadcasts, m)
	lc.Append(fx.Hook{
		OnStop: dispatcher.Wait,
	})
	return dispatcher
}

type workflowParams struct {
	fx.In

	Config   config.Config
	Reports  ports.RNCRepository
	Parts    ports.PartRepository
	Users    ports.UserRepository
	UoW      ports.UnitOfWork
	Sequence ports.Sequence
	Notifier ports.Notifier
}

func provideWorkflow(p workflowParams) *rncusecase.Service {
	return rncusecase.NewService(
		p.Reports,
		p.Parts,
		p.Users,
		p.UoW,
		p.Sequence,
		p.Notifier,
		rncusecase.Options{ActionTimeout: p.Config.Workflow.ActionTimeout},
	)
}

type httpParams struct {
	fx.In

	Ctx      context.Context
	Config   config.Config
	Logger   *slog.Logger
	Workflow *rncusecase.Service
	Accounts *account.Service
	Auth     ports.Authenticator
	Hub      *realtime.Hub
	Metrics  *metrics.Metrics
}

func provideHTTPServer(p httpParams) *httpapi.Server {
	handler := httpapi.NewHandler(p.Workflow, p.Accounts, p.Auth, p.Hub, p.Metrics, httpapi.Options{
		AllowedOrigins: p.Config.HTTP.AllowedOrigins,
		PingInterval:   p.Config.Hub.PingInterval,
		BaseContext:    logging.WithLogger(p.Ctx, p.Logger),
	})
	return httpapi.NewServer(httpapi.ServerConfig{
		Addr:            p.Config.HTTP.Addr,
		ReadTimeout:     p.Config.HTTP.ReadTimeout,
		ShutdownTimeout: p.Config.HTTP.ShutdownTimeout,
	}, handler.Routes())
}

type appParams struct {
	fx.In

	Config     config.Config
	Logger     *slog.Logger
	DB         *gorm.DB
	Workflow   *rncusecase.Service
	Accounts   *account.Service
	Hub        *realtime.Hub
	Dispatcher *realtime.Dispatcher
	Server     *httpapi.Server
}

func provideApp(p appParams) *App {
	return &App{
		Config:     p.Config,
		Logger:     p.Logger,
		DB:         p.DB,
		Workflow:   p.Workflow,
		Accounts:   p.Accounts,
		Hub:        p.Hub,
		Dispatcher: p.Dispatcher,
		Server:     p.Server,
	}
}
