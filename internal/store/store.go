// Package store persists the order and subscription index tables in SQLite
// and provides the atomic upsert, profile propagation and lookup queries
// the index engine and the query layer read from.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // CGO driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // Pure Go driver, registered as "sqlite"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverCGO     = "sqlite3"
)

// Options configures Open.
type Options struct {
	// Path is the database file. Empty opens a private in-memory database.
	Path string
	// Driver is DriverModernc (default) or DriverCGO.
	Driver string
	// BusyTimeoutMS is the SQLite busy timeout (default 5000).
	BusyTimeoutMS int
	// CacheMB is the SQLite page cache size (default 64).
	CacheMB int
	// OrderTable and SubscriptionTable override the index table names.
	OrderTable        string
	SubscriptionTable string
	Logger            *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Driver == "" {
		o.Driver = DriverModernc
	}
	if o.BusyTimeoutMS <= 0 {
		o.BusyTimeoutMS = 5000
	}
	if o.CacheMB <= 0 {
		o.CacheMB = 64
	}
	if o.OrderTable == "" {
		o.OrderTable = DefaultOrderTable
	}
	if o.SubscriptionTable == "" {
		o.SubscriptionTable = DefaultSubscriptionTable
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Store owns the index tables. Readers never mutate them.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	orders Table
	subs   Table
	opts   Table
	logger *slog.Logger
	closed bool
}

// Open opens (creating if needed) the index database and migrates the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	opts.applyDefaults()
	if opts.Driver != DriverModernc && opts.Driver != DriverCGO {
		return nil, coierrors.ConfigError(fmt.Sprintf("unsupported sqlite driver %q", opts.Driver), nil)
	}

	var dsn string
	if opts.Path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = opts.Path
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: in-memory databases are per-connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = %d", -opts.CacheMB*1024),
		"PRAGMA temp_store = MEMORY",
	}
	if opts.Path != "" {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{
		db:     db,
		path:   opts.Path,
		orders: OrderIndexTable(opts.OrderTable),
		subs:   SubscriptionIndexTable(opts.SubscriptionTable),
		opts:   optionsTable(),
		logger: opts.Logger,
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// DB exposes the connection so a co-located host store can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// OrderTable returns the order index description.
func (s *Store) OrderTable() Table {
	return s.orders
}

// SubscriptionTable returns the subscription index description.
func (s *Store) SubscriptionTable() Table {
	return s.subs
}

// Migrate creates missing tables, adds missing columns and creates indexes.
// Only additive changes are applied.
func (s *Store) Migrate(ctx context.Context) error {
	for _, t := range []Table{s.orders, s.subs, s.opts} {
		if err := s.migrateTable(ctx, t); err != nil {
			return coierrors.New(coierrors.ErrCodeSchema, fmt.Sprintf("migrate %s", t.Name), err)
		}
	}
	return nil
}

func (s *Store) migrateTable(ctx context.Context, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, t.CreateSQL()); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	existing, err := s.tableColumns(ctx, t.Name)
	if err != nil {
		return err
	}
	for _, c := range t.Columns {
		if existing[c.Name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, t.AddColumnSQL(c)); err != nil {
			return fmt.Errorf("add column %s: %w", c.Name, err)
		}
		s.logger.Info("index_column_added",
			slog.String("table", t.Name),
			slog.String("column", c.Name))
	}

	for _, stmt := range t.IndexSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (s *Store) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
