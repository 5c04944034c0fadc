package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"formsapi/internal/util"
	"formsapi/pkg/domain"
	"formsapi/pkg/store"
)

// MemoryDatabaseURL selects the in-process store instead of a database.
const MemoryDatabaseURL = "memory"

const defaultVersion = "1.0.0"

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	SessionRevocation string
	SessionTTL        time.Duration
	JWTSecret         string
	JWTIssuer         string
	JWTLeeway         time.Duration
	Version           string

	// Optional injected collaborators; when nil they are built from the
	// fields above.
	Store    store.Store
	Sessions store.SessionStore
	Registry *prometheus.Registry
}

// App executes every forms operation: it resolves the caller, validates
// input, enforces ownership, applies the effect and wraps the outcome in a
// result.Result.
type App struct {
	store    store.Store
	sessions store.SessionStore
	registry *prometheus.Registry
	metrics  *metrics
	version  string
	now      func() time.Time
}

// New constructs the application with storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = store.DefaultSessionTTL
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = defaultVersion
	}

	dataStore := cfg.Store
	if dataStore == nil {
		dsn := strings.TrimSpace(cfg.DatabaseURL)
		switch dsn {
		case "":
			return nil, fmt.Errorf("database URL required")
		case MemoryDatabaseURL:
			dataStore = store.NewMemoryStore()
		default:
			gormStore, err := store.NewGormStore(dsn)
			if err != nil {
				return nil, fmt.Errorf("init database store: %w", err)
			}
			dataStore = gormStore
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		revoker, err := store.NewTokenRevoker(cfg.SessionRevocation, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("init session revoker: %w", err)
		}
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, revoker, store.JWTOptions{
			Issuer: cfg.JWTIssuer,
			Leeway: cfg.JWTLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		sessionStore = jwtStore
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m, err := newMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
		registry: registry,
		metrics:  m,
		version:  cfg.Version,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Registry exposes the metrics registry for the /metrics endpoint.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Authenticate resolves a bearer token to the caller identity. A missing,
// malformed, expired or revoked token yields the anonymous identity; it
// never fails the request.
func (a *App) Authenticate(ctx context.Context, token string) domain.Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}
	}
	identity, ok, err := a.sessions.IdentityFromToken(token)
	if err != nil || !ok {
		util.LoggerFromContext(ctx).Debug("token rejected", "err", err)
		return domain.Identity{}
	}
	return identity
}

// Close releases the database connection when the store holds one.
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
