// Package host is a reference SQLite record store: orders and subscriptions
// with free-form attributes, users, and subscription links. It notifies an
// Observer synchronously after every committed write and serves the reads
// the index consumes.
package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/query"
	"github.com/Aman-CERP/orderindex/internal/record"
)

// Observer receives mutation notifications. Calls happen on the writing
// goroutine after the write committed.
type Observer interface {
	OnAttributeChanged(ctx context.Context, id int64, kind record.Kind, name, value string)
	OnUserProfileUpdated(ctx context.Context, userID int64)
	OnUserAttributeChanged(ctx context.Context, userID int64, name string)
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);

CREATE TABLE IF NOT EXISTS record_attributes (
	record_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (record_id, name)
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS subscription_links (
	order_id INTEGER NOT NULL,
	subscription_id INTEGER NOT NULL,
	PRIMARY KEY (order_id, subscription_id)
);
`

// Options configures a Store.
type Options struct {
	// Observer is notified of every write (optional, settable later).
	Observer Observer
	// Rewriter turns filters into index joins (optional, defaults to the
	// records table and default index table names).
	Rewriter *query.Rewriter
	Logger   *slog.Logger
}

// Store is the host record store.
type Store struct {
	db       *sql.DB
	rewriter *query.Rewriter
	logger   *slog.Logger

	mu       sync.RWMutex
	observer Observer
}

// Open creates the host tables in db.
func Open(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, coierrors.New(coierrors.ErrCodeSchema, "create host tables", err)
	}

	rw := opts.Rewriter
	if rw == nil {
		var err error
		rw, err = query.NewRewriter(query.Config{SourceTable: "records", SourceIDColumn: "id"})
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, rewriter: rw, logger: logger, observer: opts.Observer}, nil
}

// SetObserver replaces the observer.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

func (s *Store) obs() Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observer
}

// CreateRecord inserts a record with its attributes and notifies each
// attribute in name order.
func (s *Store) CreateRecord(ctx context.Context, kind record.Kind, status string, attrs map[string]string) (int64, error) {
	if !kind.Valid() {
		return 0, coierrors.ValidationError(fmt.Sprintf("unknown record kind %q", kind), nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "INSERT INTO records (kind, status) VALUES (?, ?)", string(kind), status)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record id: %w", err)
	}

	names := sortedKeys(attrs)
	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO record_attributes (record_id, name, value) VALUES (?, ?, ?)",
			id, name, attrs[name]); err != nil {
			return 0, fmt.Errorf("insert attribute %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if o := s.obs(); o != nil {
		for _, name := range names {
			o.OnAttributeChanged(ctx, id, kind, name, attrs[name])
		}
	}
	return id, nil
}

// SetAttribute writes one record attribute and notifies the observer.
func (s *Store) SetAttribute(ctx context.Context, id int64, name, value string) error {
	kind, err := s.kind(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO record_attributes (record_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (record_id, name) DO UPDATE SET value = excluded.value`,
		id, name, value); err != nil {
		return fmt.Errorf("set attribute %s: %w", name, err)
	}

	if o := s.obs(); o != nil {
		o.OnAttributeChanged(ctx, id, kind, name, value)
	}
	return nil
}

// SetStatus changes a record's status. Status is not indexed.
func (s *Store) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE records SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coierrors.ErrRecordNotFound
	}
	return nil
}

func (s *Store) kind(ctx context.Context, id int64) (record.Kind, error) {
	var kind string
	err := s.db.QueryRowContext(ctx, "SELECT kind FROM records WHERE id = ?", id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", coierrors.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("record kind: %w", err)
	}
	return record.Kind(kind), nil
}

// LinkSubscription associates a subscription with the order that created it.
func (s *Store) LinkSubscription(ctx context.Context, orderID, subscriptionID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO subscription_links (order_id, subscription_id) VALUES (?, ?)",
		orderID, subscriptionID); err != nil {
		return fmt.Errorf("link subscription: %w", err)
	}
	return nil
}

// CreateUser inserts a user and returns its id.
func (s *Store) CreateUser(ctx context.Context, c record.Customer) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name) VALUES (?, ?, ?)",
		c.Email, c.FirstName, c.LastName)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// Orders may already reference the new id.
	if o := s.obs(); o != nil {
		o.OnUserProfileUpdated(ctx, id)
	}
	return id, nil
}

// UpdateUser overwrites a user's profile and notifies a profile update.
func (s *Store) UpdateUser(ctx context.Context, c record.Customer) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET email = ?, first_name = ?, last_name = ? WHERE id = ?",
		c.Email, c.FirstName, c.LastName, c.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coierrors.ErrRecordNotFound
	}

	if o := s.obs(); o != nil {
		o.OnUserProfileUpdated(ctx, c.ID)
	}
	return nil
}

var userColumns = map[string]string{
	record.UserAttrEmail:     "email",
	record.UserAttrFirstName: "first_name",
	record.UserAttrLastName:  "last_name",
}

// SetUserAttribute writes one profile attribute and notifies the observer.
func (s *Store) SetUserAttribute(ctx context.Context, userID int64, name, value string) error {
	col, ok := userColumns[name]
	if !ok {
		return coierrors.ValidationError(fmt.Sprintf("unknown user attribute %q", name), nil)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+col+" = ? WHERE id = ?", value, userID)
	if err != nil {
		return fmt.Errorf("set user attribute: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coierrors.ErrRecordNotFound
	}

	if o := s.obs(); o != nil {
		o.OnUserAttributeChanged(ctx, userID, name)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
