package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/metrics"
)

// Upsert inserts row into table or, when a row with the same key exists,
// overwrites every non-key column. It is a single INSERT ... ON CONFLICT
// statement, so concurrent upserts of one key never interleave a read.
func (s *Store) Upsert(ctx context.Context, table string, keyColumns []string, row Row) error {
	query, err := upsertSQL(table, keyColumns, row)
	if err != nil {
		return coierrors.ValidationError("invalid upsert", err)
	}
	if s.isClosed() {
		return coierrors.StoreWriteError("store is closed", nil)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, query, row.Values()...)
	metrics.UpsertDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpsertsTotal.WithLabelValues(table, "error").Inc()
		return coierrors.StoreWriteError(fmt.Sprintf("upsert into %s", table), err).
			WithDetail("table", table)
	}
	metrics.UpsertsTotal.WithLabelValues(table, "ok").Inc()
	return nil
}

// UpsertOrder writes an order index row.
func (s *Store) UpsertOrder(ctx context.Context, row OrderRow) error {
	return s.Upsert(ctx, s.orders.Name, s.orders.Key, row.Fields())
}

// UpsertSubscription writes a subscription index row.
func (s *Store) UpsertSubscription(ctx context.Context, row SubscriptionRow) error {
	return s.Upsert(ctx, s.subs.Name, s.subs.Key, row.Fields())
}

// UpdateCustomer rewrites the customer columns of every order row owned by
// userID. Billing and shipping columns are left alone. Returns rows affected.
func (s *Store) UpdateCustomer(ctx context.Context, userID int64, email, name string) (int64, error) {
	if s.isClosed() {
		return 0, coierrors.StoreWriteError("store is closed", nil)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE %s = ?",
		s.orders.Name, ColCustomerEmail, ColCustomerName, ColUserID)

	res, err := s.db.ExecContext(ctx, query, email, name, userID)
	if err != nil {
		metrics.UpsertsTotal.WithLabelValues(s.orders.Name, "error").Inc()
		return 0, coierrors.StoreWriteError("update customer columns", err).
			WithDetail("user_id", fmt.Sprint(userID))
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func upsertSQL(table string, keyColumns []string, row Row) (string, error) {
	if !ValidIdent(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	if len(keyColumns) == 0 {
		return "", fmt.Errorf("no key columns for %s", table)
	}
	if len(row) == 0 {
		return "", fmt.Errorf("empty row for %s", table)
	}

	cols := row.Columns()
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !ValidIdent(c) {
			return "", fmt.Errorf("invalid column name %q", c)
		}
		if present[c] {
			return "", fmt.Errorf("duplicate column %s", c)
		}
		present[c] = true
	}

	var updates []string
	for _, c := range cols {
		if isKey(keyColumns, c) {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	for _, k := range keyColumns {
		if !present[k] {
			return "", fmt.Errorf("key column %s missing from row", k)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		table, strings.Join(cols, ", "), placeholders, strings.Join(keyColumns, ", "))
	if len(updates) == 0 {
		return query + "DO NOTHING", nil
	}
	return query + "DO UPDATE SET " + strings.Join(updates, ", "), nil
}
