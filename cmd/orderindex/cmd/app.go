package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/orderindex/internal/config"
	"github.com/Aman-CERP/orderindex/internal/host"
	"github.com/Aman-CERP/orderindex/internal/index"
	"github.com/Aman-CERP/orderindex/internal/query"
	"github.com/Aman-CERP/orderindex/internal/reindex"
	"github.com/Aman-CERP/orderindex/internal/store"
)

// app is the wired object graph shared by the commands: one index store,
// one host store writing through the change trigger, one engine and one
// reindexer over the same database.
type app struct {
	cfg       *config.Config
	dbPath    string
	lockDir   string
	store     *store.Store
	host      *host.Store
	customers *index.CachedResolver
	engine    *index.Engine
	reindexer *reindex.Reindexer
	logger    *slog.Logger
}

// openApp opens the database named by the flags and configuration and wires
// every component. Callers must Close the app.
func openApp(ctx context.Context) (*app, error) {
	cfg := activeConfig
	path := databasePath()
	logger := slog.Default()

	st, err := store.Open(ctx, store.Options{
		Path:              path,
		Driver:            cfg.Storage.Driver,
		BusyTimeoutMS:     cfg.Storage.BusyTimeoutMS,
		CacheMB:           cfg.Storage.CacheMB,
		OrderTable:        cfg.Index.OrderTable,
		SubscriptionTable: cfg.Index.SubscriptionTable,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dbPath: path, store: st, logger: logger}
	if err := a.wire(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	rw, err := query.NewRewriter(query.Config{
		SourceTable:       a.cfg.Query.SourceTable,
		SourceIDColumn:    a.cfg.Query.SourceIDColumn,
		OrderTable:        a.cfg.Index.OrderTable,
		SubscriptionTable: a.cfg.Index.SubscriptionTable,
	})
	if err != nil {
		return err
	}

	hs, err := host.Open(ctx, a.store.DB(), host.Options{Rewriter: rw, Logger: a.logger})
	if err != nil {
		return err
	}
	a.host = hs

	a.customers = index.NewCachedResolver(hs, a.cfg.Index.CustomerCacheSize)
	engine, err := index.NewEngine(index.EngineConfig{
		Store:     a.store,
		Source:    hs,
		Customers: a.customers,
		Links:     hs,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	a.engine = engine
	hs.SetObserver(index.NewTrigger(engine, a.logger))

	a.lockDir = config.ResolvePath(projectRoot, a.cfg.Reindex.LockDir)
	if a.lockDir == "" {
		a.lockDir = filepath.Dir(a.dbPath)
	}
	rx, err := reindex.New(reindex.Config{
		Source:     hs,
		Index:      engine,
		Options:    a.store,
		Cache:      a.customers,
		PurgeEvery: a.cfg.Reindex.CachePurgeEvery,
		BatchSize:  a.cfg.Reindex.BatchSize,
		LockDir:    a.lockDir,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	a.reindexer = rx
	return nil
}

// Close releases the database.
func (a *app) Close() error {
	return a.store.Close()
}
