package config

import (
	"context"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the user service.
type Config struct {
	// Server
	Port              int
	ReadHeaderTimeout time.Duration
	// ManagementAccessLog enables HTTP access logging for management endpoints
	// (/health, /ready, /metrics). Disabled by default to suppress
	// high-frequency probe noise from the access log.
	ManagementAccessLog bool

	// Database
	DBKind string // "sqlite" or "postgres"
	DBURL  string

	// Run schema migrations on startup.
	MigrateAtStart bool

	// DB pool (postgres)
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Paging
	DefaultPageSize int
	MaxPageSize     int

	// Security
	// APIKeys maps API key values to client IDs. Empty map disables auth.
	APIKeys map[string]string

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	MetricsLabels string

	// Body size limit (bytes)
	MaxBodySize int64

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:              8080,
		ReadHeaderTimeout: 5 * time.Second,
		DBKind:            "sqlite",
		DBURL:             "user-service.db",
		MigrateAtStart:    true,
		DBMaxOpenConns:    25,
		DBMaxIdleConns:    5,
		DefaultPageSize:   20,
		MaxPageSize:       100,
		MaxBodySize:       1 * 1024 * 1024, // 1 MB
		DrainTimeout:      30,
	}
}
