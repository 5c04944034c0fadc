package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseConfig = `
port: "8080"
logLevel: "info"
databaseURL: "memory"
jwtSecret: "file-secret-0123456789"
sessionTTL: "24h"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.DatabaseURL != "memory" {
		t.Fatalf("databaseURL = %q, want memory", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "file-secret-0123456789" {
		t.Fatalf("jwtSecret = %q", cfg.JWTSecret)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FORMS_PORT", "9090")
	t.Setenv("DATABASE_URL", "sqlite:/tmp/forms.db")
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("FORMS_SESSION_REVOCATION", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q, want 9090", cfg.Port)
	}
	if cfg.DatabaseURL != "sqlite:/tmp/forms.db" {
		t.Fatalf("databaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "env-secret-0123456789" {
		t.Fatalf("jwtSecret = %q", cfg.JWTSecret)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("logLevel = %q, want file value info", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"missing port", strings.Replace(baseConfig, `port: "8080"`, "", 1), "port is required"},
		{"short secret", strings.Replace(baseConfig, "file-secret-0123456789", "short", 1), "jwtSecret"},
		{"redis without addr", baseConfig + "sessionRevocation: redis\n", "redisAddr"},
		{"unknown revocation", baseConfig + "sessionRevocation: carrier-pigeon\n", "sessionRevocation"},
		{"bad ttl", strings.Replace(baseConfig, `"24h"`, `"forever"`, 1), "sessionTTL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestParseSessionTTL(t *testing.T) {
	got, err := ParseSessionTTL("90m")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 90*time.Minute {
		t.Fatalf("ttl = %v, want 90m", got)
	}
	if got, err := ParseSessionTTL(""); err != nil || got != 0 {
		t.Fatalf("empty ttl = %v, %v", got, err)
	}
	if _, err := ParseSessionTTL("-1h"); err == nil {
		t.Fatalf("expected negative ttl error")
	}
}
