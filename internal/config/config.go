// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CatalogConfig holds settings for the external media catalog.
type CatalogConfig struct {
	// BaseURL is the TMDB-compatible API root
	BaseURL string `env:"CATALOG_BASE_URL" default:"https://api.themoviedb.org/3"`

	// APIKey authenticates catalog requests (required)
	APIKey string `env:"CATALOG_API_KEY" envAlt:"TMDB_API_KEY" required:"true"`

	// Language selects the language of returned titles (default: en-US)
	Language string `env:"CATALOG_LANGUAGE" default:"en-US"`

	// Timeout bounds a single catalog request (default: 10s)
	Timeout time.Duration `env:"CATALOG_TIMEOUT" default:"10s"`

	// MaxRetries is how often a throttled or failed search is retried (default: 2)
	MaxRetries int `env:"CATALOG_MAX_RETRIES" default:"2"`

	// MaxResults caps candidates per search (default: 10)
	MaxResults int `env:"CATALOG_MAX_RESULTS" default:"10"`

	// CacheTTL is how long search results are reused (default: 30m)
	CacheTTL time.Duration `env:"CATALOG_CACHE_TTL" default:"30m"`

	// CacheCleanup is how often expired results are purged (default: 10m)
	CacheCleanup time.Duration `env:"CATALOG_CACHE_CLEANUP" default:"10m"`
}

// ImportConfig holds preview and commit settings.
type ImportConfig struct {
	// MaxRows caps rows per preview and items per commit (default: 1000)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"1000"`

	// MaxBodySize is the maximum request body in bytes (default: 10MB)
	MaxBodySize int64 `env:"IMPORT_MAX_BODY_SIZE" default:"10485760"`

	// LookupConcurrency bounds parallel catalog lookups per preview (default: 4)
	LookupConcurrency int `env:"IMPORT_LOOKUP_CONCURRENCY" default:"4"`

	// MaxConcurrentBatches is how many previews and commits may run at once (default: 5)
	MaxConcurrentBatches int `env:"IMPORT_MAX_CONCURRENT_BATCHES" default:"5"`

	// MaxWaitTime is how long a batch waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// RatingScale is the default scale of incoming ratings (default: 10)
	RatingScale float64 `env:"IMPORT_RATING_SCALE" default:"10"`

	// AutoSelectConfidence preselects a top candidate at or above it; 0 disables (default: 0.8)
	AutoSelectConfidence float64 `env:"IMPORT_AUTO_SELECT_CONFIDENCE" default:"0.8"`

	// PreviewTimeout bounds a single preview request (default: 60s)
	PreviewTimeout time.Duration `env:"IMPORT_PREVIEW_TIMEOUT" default:"60s"`

	// CommitTimeout bounds a single commit request (default: 60s)
	CommitTimeout time.Duration `env:"IMPORT_COMMIT_TIMEOUT" default:"60s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"SECURITY_REQUIRE_API_KEY" envAlt:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds audit trail retention settings.
type AuditConfig struct {
	// RetentionDays is how long audit entries are kept (default: 90)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"90"`

	// CheckInterval is how often the retention job runs (default: 24h)
	CheckInterval time.Duration `env:"AUDIT_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
