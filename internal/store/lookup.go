package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
)

// OrderCustomer returns the user id recorded for orderID, 0 for guests and
// for orders that were never indexed.
func (s *Store) OrderCustomer(ctx context.Context, orderID int64) (int64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", ColUserID, s.orders.Name, ColOrderID)

	var userID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, orderID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, coierrors.StoreReadError("order customer", err)
	}
	if !userID.Valid || userID.Int64 < 0 {
		return 0, nil
	}
	return userID.Int64, nil
}

// CustomersOrders returns the ids of records owned by userID, newest first.
// kind filters by record kind; empty means every kind. Guest orders are
// never returned here: userID 0 yields an empty result.
func (s *Store) CustomersOrders(ctx context.Context, userID int64, kind string) ([]int64, error) {
	if userID == 0 {
		return []int64{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", ColOrderID, s.orders.Name, ColUserID)
	args := []any{userID}
	if kind != "" {
		query += fmt.Sprintf(" AND %s = ?", ColRecordKind)
		args = append(args, kind)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC", ColOrderID)

	return s.queryIDs(ctx, query, args...)
}

// GuestOrders returns the ids of every indexed record without a customer,
// newest first. This scans the user_id index and can be large.
func (s *Store) GuestOrders(ctx context.Context) ([]int64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = 0 ORDER BY %s DESC",
		ColOrderID, s.orders.Name, ColUserID, ColOrderID)
	return s.queryIDs(ctx, query)
}

// LastOrder returns the highest order id of the given kind owned by userID,
// 0 when there is none.
func (s *Store) LastOrder(ctx context.Context, userID int64, kind string) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s WHERE %s = ? AND %s = ?",
		ColOrderID, s.orders.Name, ColUserID, ColRecordKind)

	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, userID, kind).Scan(&id); err != nil {
		return 0, coierrors.StoreReadError("last order", err)
	}
	return id.Int64, nil
}

// OrderRow reads one order index row.
func (s *Store) OrderRow(ctx context.Context, orderID int64) (OrderRow, bool, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ?`,
		ColOrderID, ColOrderNumber, ColRecordKind, ColUserID, ColCustomerEmail, ColBillingEmail,
		ColCustomerName, ColBillingName, ColShippingName, ColBillingCity, ColShippingCity,
		ColBillingPostcode, ColShippingPostcode, s.orders.Name, ColOrderID)

	var (
		r                                          OrderRow
		number, kind, cEmail, bEmail, cName, bName sql.NullString
		sName, bCity, sCity, bPostcode, sPostcode  sql.NullString
		userID                                     sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&r.OrderID, &number, &kind, &userID, &cEmail, &bEmail,
		&cName, &bName, &sName, &bCity, &sCity, &bPostcode, &sPostcode)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderRow{}, false, nil
	}
	if err != nil {
		return OrderRow{}, false, coierrors.StoreReadError("order row", err)
	}

	r.OrderNumber = number.String
	r.RecordKind = kind.String
	r.UserID = userID.Int64
	r.CustomerEmail = cEmail.String
	r.BillingEmail = bEmail.String
	r.CustomerName = cName.String
	r.BillingName = bName.String
	r.ShippingName = sName.String
	r.BillingCity = bCity.String
	r.ShippingCity = sCity.String
	r.BillingPostcode = bPostcode.String
	r.ShippingPostcode = sPostcode.String
	return r, true, nil
}

// SubscriptionRow reads one subscription index row.
func (s *Store) SubscriptionRow(ctx context.Context, subscriptionID int64) (SubscriptionRow, bool, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ?`,
		ColSubscriptionID, ColOrderTotal, ColStartDate, ColTrialEndDate, ColNextPaymentDate,
		ColEndDate, ColLastPaymentDate, s.subs.Name, ColSubscriptionID)

	var (
		r                                 SubscriptionRow
		total                             sql.NullFloat64
		start, trial, next, end, lastPaid sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, subscriptionID).Scan(
		&r.SubscriptionID, &total, &start, &trial, &next, &end, &lastPaid)
	if errors.Is(err, sql.ErrNoRows) {
		return SubscriptionRow{}, false, nil
	}
	if err != nil {
		return SubscriptionRow{}, false, coierrors.StoreReadError("subscription row", err)
	}

	r.OrderTotal = total.Float64
	r.StartDate = start.String
	r.TrialEndDate = trial.String
	r.NextPaymentDate = next.String
	r.EndDate = end.String
	r.LastPaymentDate = lastPaid.String
	return r, true, nil
}

// CountOrders returns the number of order index rows.
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.orders.Name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, coierrors.StoreReadError("count orders", err)
	}
	return n, nil
}

// CountSubscriptions returns the number of subscription index rows.
func (s *Store) CountSubscriptions(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.subs.Name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, coierrors.StoreReadError("count subscriptions", err)
	}
	return n, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coierrors.StoreReadError("query ids", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, coierrors.StoreReadError("scan id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, coierrors.StoreReadError("iterate ids", err)
	}
	return ids, nil
}
