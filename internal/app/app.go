// Package app assembles a ready-to-serve catalog from configuration: the
// selected store, the entity catalog, the operation wrapper and its metrics.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/catalog/internal/bitacora"
	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/metrics"
	"github.com/JonMunkholm/catalog/internal/store/mongostore"
	"github.com/JonMunkholm/catalog/internal/store/pgstore"
	"github.com/JonMunkholm/catalog/internal/store/sqlitestore"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config   *config.Config
	Store    core.Store
	Handlers *core.Handlers
	Metrics  *metrics.Recorder
	Wrapper  *core.Wrapper
}

// OpenStore connects to the store selected by cfg.Store.Driver. The connect
// and first ping are bounded by cfg.Store.ConnectTimeout.
func OpenStore(ctx context.Context, cfg *config.Config) (core.Store, error) {
	if cfg.Store.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Store.ConnectTimeout)
		defer cancel()
	}

	switch cfg.Store.Driver {
	case config.DriverMongo:
		return mongostore.Connect(ctx, cfg.Store.MongoURI, cfg.Database.Name)
	case config.DriverPostgres:
		return pgstore.Connect(ctx, cfg.Store.PostgresURL, pgstore.PoolConfig{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
	case config.DriverSQLite:
		return sqlitestore.Open(ctx, cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// New opens the store, loads the catalog and registers every entity's CRUD
// handlers. The entity registry is process-global, so New succeeds once per
// process unless core.Clear is called in between.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	defs, err := catalog.LoadFile(cfg.Catalog.File)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Handlers: core.NewHandlers(),
		Metrics:  metrics.New(),
	}
	a.Wrapper = core.NewWrapper(core.WrapperConfig{
		DBServer: cfg.Database.Name,
		Server:   cfg.Server.Label,
		Debug:    cfg.Logging.Debug,
		DebugOut: os.Stderr,
		Logger:   logger,
		Recorder: a.Metrics,
	})

	if err := catalog.Bootstrap(ctx, a.Handlers, store, a.Wrapper, defs); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("bootstrap catalog: %w", err)
	}

	logger.Info("catalog ready",
		"driver", cfg.Store.Driver,
		"database", cfg.Database.Name,
		"entities", core.Count(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		logger.Debug("entity group", "group", group, "entities", len(core.ByGroup(group)))
	}
	return a, nil
}

// Dispatch runs verb for entity with a request built from data and query.
func (a *App) Dispatch(ctx context.Context, verb core.Verb, entity string, data core.Record, query map[string]string) (bitacora.Response, error) {
	return a.Handlers.Dispatch(verb, entity, core.NewRequest(ctx, data, query))
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close(ctx)
}
