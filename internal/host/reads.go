package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/query"
	"github.com/Aman-CERP/orderindex/internal/record"
)

// DefaultPaidStatuses are the statuses counted by TotalSpent.
var DefaultPaidStatuses = []string{"processing", "completed"}

// Record implements record.AttributeSource with a fresh read.
func (s *Store) Record(ctx context.Context, id int64) (record.Kind, record.Attributes, bool, error) {
	kind, err := s.kind(ctx, id)
	if errors.Is(err, coierrors.ErrRecordNotFound) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM record_attributes WHERE record_id = ?", id)
	if err != nil {
		return "", nil, false, fmt.Errorf("read attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(record.Attributes)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return "", nil, false, fmt.Errorf("scan attribute: %w", err)
		}
		attrs[name] = value
	}
	if err := rows.Err(); err != nil {
		return "", nil, false, err
	}
	return kind, attrs, true, nil
}

// Customer implements record.CustomerResolver.
func (s *Store) Customer(ctx context.Context, userID int64) (record.Customer, bool, error) {
	c := record.Customer{ID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT email, first_name, last_name FROM users WHERE id = ?", userID).
		Scan(&c.Email, &c.FirstName, &c.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Customer{}, false, nil
	}
	if err != nil {
		return record.Customer{}, false, fmt.Errorf("read user: %w", err)
	}
	return c, true, nil
}

// SubscriptionsForOrder implements record.SubscriptionLinker.
func (s *Store) SubscriptionsForOrder(ctx context.Context, orderID int64) ([]int64, error) {
	return s.ids(ctx,
		"SELECT subscription_id FROM subscription_links WHERE order_id = ? ORDER BY subscription_id", orderID)
}

// CountRecords counts orders and subscriptions.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// ListRecordIDs pages through record ids below beforeID, newest first.
// A beforeID of 0 starts at the newest record.
func (s *Store) ListRecordIDs(ctx context.Context, beforeID int64, limit int) ([]int64, error) {
	if beforeID <= 0 {
		return s.ids(ctx, "SELECT id FROM records ORDER BY id DESC LIMIT ?", limit)
	}
	return s.ids(ctx, "SELECT id FROM records WHERE id < ? ORDER BY id DESC LIMIT ?", beforeID, limit)
}

// FindOptions shapes FindRecords results.
type FindOptions struct {
	// OrderBy is the default ordering (default "records.id DESC").
	OrderBy string
	// Limit caps the result (0 = no limit).
	Limit int
	// DefaultSearch matches the raw text against every record attribute,
	// the admin list's search when the parser found no criteria in it.
	DefaultSearch string
}

// FindRecords lists records of kind matching f through the index. Records
// that were never indexed are not returned when f uses an index criterion.
func (s *Store) FindRecords(ctx context.Context, kind record.Kind, f query.FilterRequest, opts FindOptions) ([]int64, error) {
	if opts.OrderBy == "" {
		opts.OrderBy = "records.id DESC"
	}
	rw := s.rewriter.Rewrite(f, opts.OrderBy)

	var sb strings.Builder
	sb.WriteString("SELECT records.id FROM records")
	sb.WriteString(rw.Join)
	sb.WriteString(" WHERE records.kind = ?")
	sb.WriteString(rw.Where)
	args := append([]any{string(kind)}, rw.Args...)
	if pattern, ok := query.Pattern(opts.DefaultSearch); ok {
		sb.WriteString(" AND EXISTS (SELECT 1 FROM record_attributes attr" +
			" WHERE attr.record_id = records.id AND LOWER(attr.value) LIKE ? ESCAPE '\\')")
		args = append(args, pattern)
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(rw.OrderBy)
	if opts.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	s.logger.Debug("find_records",
		slog.String("kind", string(kind)),
		slog.Bool("indexed", rw.Join != ""),
		slog.Bool("default_search", opts.DefaultSearch != ""),
		slog.Int("args", len(rw.Args)))
	return s.ids(ctx, sb.String(), args...)
}

// LastOrder returns the user's newest order through the index, 0 if none.
func (s *Store) LastOrder(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, nil
	}
	ids, err := s.FindRecords(ctx, record.KindOrder, query.FilterRequest{CustomerUser: userID}, FindOptions{Limit: 1})
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

// TotalSpent sums the totals of the user's orders in the paid statuses,
// joining through the index instead of scanning customer attributes.
func (s *Store) TotalSpent(ctx context.Context, userID int64, paidStatuses []string) (float64, error) {
	if userID <= 0 {
		return 0, nil
	}
	if len(paidStatuses) == 0 {
		paidStatuses = DefaultPaidStatuses
	}
	rw := s.rewriter.Rewrite(query.FilterRequest{CustomerUser: userID}, "")

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(paidStatuses)), ", ")
	q := "SELECT COALESCE(SUM(CAST(total.value AS REAL)), 0) FROM records" +
		rw.Join +
		" LEFT JOIN record_attributes total ON total.record_id = records.id AND total.name = ?" +
		" WHERE records.kind = ? AND records.status IN (" + placeholders + ")" +
		rw.Where

	args := []any{record.AttrOrderTotal, string(record.KindOrder)}
	for _, st := range paidStatuses {
		args = append(args, st)
	}
	args = append(args, rw.Args...)

	var sum float64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&sum); err != nil {
		return 0, coierrors.StoreReadError("total spent", err)
	}
	return sum, nil
}

func (s *Store) ids(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, coierrors.StoreReadError("query records", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
