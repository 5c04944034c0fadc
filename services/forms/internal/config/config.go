package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ConfigPath is read when no --config flag is given.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Environment
// variables named in the env tags override file values when set.
type FileConfig struct {
	Port              string `yaml:"port" env:"FORMS_PORT"`
	LogLevel          string `yaml:"logLevel" env:"FORMS_LOG_LEVEL"`
	DatabaseURL       string `yaml:"databaseURL" env:"DATABASE_URL"`
	RedisAddr         string `yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword     string `yaml:"redisPassword" env:"REDIS_PASSWORD"`
	SessionRevocation string `yaml:"sessionRevocation" env:"FORMS_SESSION_REVOCATION"`
	SessionTTL        string `yaml:"sessionTTL" env:"FORMS_SESSION_TTL"`
	JWTSecret         string `yaml:"jwtSecret" env:"JWT_SECRET"`
	JWTIssuer         string `yaml:"jwtIssuer" env:"JWT_ISSUER"`
	JWTLeeway         string `yaml:"jwtLeeway" env:"JWT_LEEWAY"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env overrides: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if len(cfg.JWTSecret) < 16 {
		return errors.New("config: jwtSecret must be at least 16 bytes (set JWT_SECRET)")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SessionRevocation)) {
	case "", "none", "memory":
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for redis session revocation")
		}
	default:
		return fmt.Errorf("config: unknown sessionRevocation %q (none, memory or redis)", cfg.SessionRevocation)
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	return nil
}

// ParseSessionTTL parses optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("invalid sessionTTL duration: %s is negative", ttlStr)
	}
	return dur, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}
