package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rncflow/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReadsFileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: test.sqlite
auth:
  jwt_secret: s3cret
http:
  allowed_origins:
    - http://localhost:5173
workflow:
  action_timeout: 3s
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "test.sqlite" || cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Workflow.ActionTimeout != 3*time.Second {
		t.Fatalf("action timeout = %v", cfg.Workflow.ActionTimeout)
	}
	if cfg.Auth.TokenTTL != 8*time.Hour || cfg.Hub.MaxConcurrentBroadcasts != 64 || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("allowed origins = %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: from-file
`)
	t.Setenv("RNC_AUTH_JWT_SECRET", "from-env")
	t.Setenv("RNC_HUB_FANOUT", "4")
	t.Setenv("RNC_HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Hub.Fanout != 4 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("allowed origins = %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	path := writeConfig(t, "app:\n  name: rncflow\n")

	_, err := Load(context.Background(), path)
	if err == nil || errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("Load() error = %v, want validation", err)
	}
}

func TestLoadRejectsNilContext(t *testing.T) {
	//nolint:staticcheck
	if _, err := Load(nil, ""); err == nil {
		t.Fatalf("expected error for nil context")
	}
}
