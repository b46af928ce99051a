// Package application wires configuration into a running watchlist service:
// database pool, schema, catalog client and core service. Both the HTTP
// server and watchlistctl start from here.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/watchlist/internal/catalog"
	"github.com/JonMunkholm/watchlist/internal/config"
	"github.com/JonMunkholm/watchlist/internal/core"
	_ "github.com/JonMunkholm/watchlist/internal/core/sources" // Register all import sources
	"github.com/JonMunkholm/watchlist/internal/store"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool // nil for in-memory apps
	Store   core.Store
	Catalog *catalog.CachedSearcher
	Service *core.Service
}

// New connects to Postgres, makes sure the schema exists and builds the
// service on top of it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	app, err := NewWithStore(cfg, pg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	app.Pool = pool
	return app, nil
}

// NewWithStore builds the service on an existing store.
func NewWithStore(cfg *config.Config, st core.Store) (*App, error) {
	searcher, err := NewCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	service, err := core.NewService(searcher, st, ServiceOptions(cfg.Import))
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &App{
		Config:  cfg,
		Store:   st,
		Catalog: searcher,
		Service: service,
	}, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// NewPool parses the database URL, applies pool settings and verifies the
// connection.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// NewCatalog builds the cached TMDB client.
func NewCatalog(cfg config.CatalogConfig) (*catalog.CachedSearcher, error) {
	client, err := catalog.New(cfg.APIKey, cfg.BaseURL,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		catalog.WithLanguage(cfg.Language),
		catalog.WithMaxResults(cfg.MaxResults),
		catalog.WithRetries(cfg.MaxRetries, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}
	return catalog.NewCachedSearcher(client, cfg.CacheTTL, cfg.CacheCleanup), nil
}

// ServiceOptions maps import settings to core options.
func ServiceOptions(cfg config.ImportConfig) core.Options {
	return core.Options{
		LookupConcurrency:    cfg.LookupConcurrency,
		AutoSelectConfidence: cfg.AutoSelectConfidence,
		MaxItems:             cfg.MaxRows,
		RatingScale:          cfg.RatingScale,
		MaxConcurrentBatches: cfg.MaxConcurrentBatches,
		MaxWait:              cfg.MaxWaitTime,
	}
}

// RetentionConfig maps audit settings to the retention scheduler config.
func RetentionConfig(cfg config.AuditConfig) core.RetentionConfig {
	return core.RetentionConfig{
		RetentionDays: cfg.RetentionDays,
		CheckInterval: cfg.CheckInterval,
	}
}
