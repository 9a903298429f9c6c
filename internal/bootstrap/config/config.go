package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
)

const envPrefix = "RNC"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Hub      HubConfig      `mapstructure:"hub"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type WorkflowConfig struct {
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
}

type HubConfig struct {
	MaxConcurrentBroadcasts int           `mapstructure:"max_concurrent_broadcasts"`
	Fanout                  int           `mapstructure:"fanout"`
	SendTimeout             time.Duration `mapstructure:"send_timeout"`
	PingInterval            time.Duration `mapstructure:"ping_interval"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	if err := loadDotEnv(logCtx); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configFile == "" && errors.As(err, &notFound):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		case configFile != "" && errors.Is(err, os.ErrNotExist):
			logging.Warn(logCtx, "config file missing, fallback to defaults and env", slog.String("path", configFile))
		default:
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	cfg.HTTP.AllowedOrigins = splitList(cfg.HTTP.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("http_addr", cfg.HTTP.Addr),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errs.New(errs.KindValidation, "database.dsn is required")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errs.New(errs.KindValidation, "auth.jwt_secret is required")
	}
	if c.Workflow.ActionTimeout <= 0 {
		return errs.New(errs.KindValidation, "workflow.action_timeout must be positive")
	}
	if c.Hub.MaxConcurrentBroadcasts <= 0 {
		return errs.New(errs.KindValidation, "hub.max_concurrent_broadcasts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rncflow")
	v.SetDefault("app.env", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".data/rncflow.sqlite")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	// No default for auth.jwt_secret; it must be configured.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "rncflow")
	v.SetDefault("auth.token_ttl", 8*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("workflow.action_timeout", 10*time.Second)

	v.SetDefault("hub.max_concurrent_broadcasts", 64)
	v.SetDefault("hub.fanout", 32)
	v.SetDefault("hub.send_timeout", 5*time.Second)
	v.SetDefault("hub.ping_interval", 30*time.Second)
}

// loadDotEnv copies .env into the process environment without overriding
// variables that are already set.
func loadDotEnv(ctx context.Context) error {
	err := godotenv.Load()
	switch {
	case err == nil:
		logging.Info(ctx, "loaded .env file")
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return errs.Wrap(err, "load .env")
	}
}

// splitList accepts both yaml lists and a comma separated env value.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
