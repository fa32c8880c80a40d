package host

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderindex/internal/index"
	"github.com/Aman-CERP/orderindex/internal/query"
	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/reindex"
	"github.com/Aman-CERP/orderindex/internal/store"
)

type testSystem struct {
	host   *Store
	index  *store.Store
	engine *index.Engine
}

// setupTestSystem wires a host store to a live index the way the CLI does.
func setupTestSystem(t *testing.T) *testSystem {
	t.Helper()
	ctx := context.Background()

	idx, err := store.Open(ctx, store.Options{Path: filepath.Join(t.TempDir(), "orders.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	h, err := Open(ctx, idx.DB(), Options{})
	require.NoError(t, err)

	engine, err := index.NewEngine(index.EngineConfig{
		Store:     idx,
		Source:    h,
		Customers: index.NewCachedResolver(h, 100),
		Links:     h,
	})
	require.NoError(t, err)
	h.SetObserver(index.NewTrigger(engine, nil))

	return &testSystem{host: h, index: idx, engine: engine}
}

func order(userID, email, first, last, city string) map[string]string {
	return map[string]string{
		record.AttrCustomerUser:     userID,
		record.AttrOrderTotal:       "10.00",
		record.AttrBillingEmail:     email,
		record.AttrBillingFirstName: first,
		record.AttrBillingLastName:  last,
		record.AttrBillingCity:      city,
	}
}

func TestCreateRecord_IsIndexed(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	userID, err := sys.host.CreateUser(ctx, record.Customer{Email: "Jane@Example.com", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	id, err := sys.host.CreateRecord(ctx, record.KindOrder, "completed",
		order(itoa(userID), "billing@example.com", "Jane", "Smith", "Ithaca"))
	require.NoError(t, err)

	row, ok, err := sys.index.OrderRow(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, userID, row.UserID)
	assert.Equal(t, "jane@example.com", row.CustomerEmail)
	assert.Equal(t, "jane doe", row.CustomerName)
	assert.Equal(t, "jane smith", row.BillingName)
}

func TestSetAttribute_RecomputesRow(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	id, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order("0", "a@example.com", "A", "B", "Ithaca"))
	require.NoError(t, err)

	// When: a tracked attribute changes
	require.NoError(t, sys.host.SetAttribute(ctx, id, record.AttrBillingCity, "Oslo"))
	// And: an untracked one
	require.NoError(t, sys.host.SetAttribute(ctx, id, "_payment_method", "card"))

	ids, err := sys.host.FindRecords(ctx, record.KindOrder, query.FilterRequest{CustomerCity: "oslo"}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestUpdateUser_PropagatesToIndex(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	userID, err := sys.host.CreateUser(ctx, record.Customer{Email: "old@example.com", FirstName: "Jane"})
	require.NoError(t, err)
	id, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order(itoa(userID), "b@example.com", "B", "C", "X"))
	require.NoError(t, err)

	require.NoError(t, sys.host.UpdateUser(ctx, record.Customer{ID: userID, Email: "new@example.com", FirstName: "Janet"}))

	row, _, err := sys.index.OrderRow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", row.CustomerEmail)
	assert.Equal(t, "janet", row.CustomerName)

	require.NoError(t, sys.host.SetUserAttribute(ctx, userID, record.UserAttrLastName, "Roe"))
	row, _, err = sys.index.OrderRow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "janet roe", row.CustomerName)
}

func TestSetUserAttribute_Unknown(t *testing.T) {
	sys := setupTestSystem(t)
	err := sys.host.SetUserAttribute(context.Background(), 1, "nickname", "x")
	assert.Error(t, err)
}

func TestFindRecords_JoinFiltersByAbsence(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	indexed, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order("0", "a@example.com", "Ann", "Lee", "Paris"))
	require.NoError(t, err)

	// Given: a record written without any notification
	res, err := sys.index.DB().ExecContext(ctx, "INSERT INTO records (kind) VALUES ('order')")
	require.NoError(t, err)
	silent, err := res.LastInsertId()
	require.NoError(t, err)

	all, err := sys.host.FindRecords(ctx, record.KindOrder, query.FilterRequest{}, FindOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{indexed, silent}, all)

	filtered, err := sys.host.FindRecords(ctx, record.KindOrder, query.FilterRequest{FullSearch: "*"}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{indexed}, filtered)
}

func TestFindRecords_SubscriptionOrdering(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	attrs := func(next string) map[string]string {
		a := order("0", "s@example.com", "S", "T", "Rome")
		a[record.AttrScheduleNext] = next
		return a
	}
	late, err := sys.host.CreateRecord(ctx, record.KindSubscription, "active", attrs("2026-09-01 00:00:00"))
	require.NoError(t, err)
	early, err := sys.host.CreateRecord(ctx, record.KindSubscription, "active", attrs("2026-02-01 00:00:00"))
	require.NoError(t, err)

	f := query.FilterRequest{OrderBy: &query.SubscriptionOrder{Field: "next_payment_date", Direction: "asc"}}
	ids, err := sys.host.FindRecords(ctx, record.KindSubscription, f, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{early, late}, ids)

	f.OrderBy.Direction = "DESC"
	ids, err = sys.host.FindRecords(ctx, record.KindSubscription, f, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{late, early}, ids)
}

func TestLinkedSubscriptionFollowsOrder(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	orderID, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order("0", "o@example.com", "O", "P", "Lima"))
	require.NoError(t, err)

	// Given: a subscription whose index rows were lost
	sys.host.SetObserver(nil)
	subID, err := sys.host.CreateRecord(ctx, record.KindSubscription, "active", order("0", "o@example.com", "O", "P", "Lima"))
	require.NoError(t, err)
	require.NoError(t, sys.host.LinkSubscription(ctx, orderID, subID))
	sys.host.SetObserver(index.NewTrigger(sys.engine, nil))

	// When: the parent order changes
	require.NoError(t, sys.host.SetAttribute(ctx, orderID, record.AttrOrderTotal, "20.00"))

	// Then: the subscription is indexed too
	_, ok, err := sys.index.SubscriptionRow(ctx, subID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTotalSpentAndLastOrder(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	userID, err := sys.host.CreateUser(ctx, record.Customer{Email: "buyer@example.com"})
	require.NoError(t, err)
	u := itoa(userID)

	paid := order(u, "buyer@example.com", "B", "Y", "Oslo")
	paid[record.AttrOrderTotal] = "12.50"
	_, err = sys.host.CreateRecord(ctx, record.KindOrder, "completed", paid)
	require.NoError(t, err)

	processing := order(u, "buyer@example.com", "B", "Y", "Oslo")
	processing[record.AttrOrderTotal] = "7.50"
	last, err := sys.host.CreateRecord(ctx, record.KindOrder, "processing", processing)
	require.NoError(t, err)

	pending := order(u, "buyer@example.com", "B", "Y", "Oslo")
	pending[record.AttrOrderTotal] = "100"
	pendingID, err := sys.host.CreateRecord(ctx, record.KindOrder, "pending", pending)
	require.NoError(t, err)

	_, err = sys.host.CreateRecord(ctx, record.KindOrder, "completed", order("0", "guest@example.com", "G", "H", "Oslo"))
	require.NoError(t, err)

	total, err := sys.host.TotalSpent(ctx, userID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, total, 0.0001)

	total, err = sys.host.TotalSpent(ctx, userID, []string{"pending"})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, total, 0.0001)

	newest, err := sys.host.LastOrder(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, pendingID, newest)
	assert.Greater(t, pendingID, last)

	count, err := sys.engine.CustomerOrderCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestReindexRebuildsFromHost(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	// Given: records written while nothing observed the host
	sys.host.SetObserver(nil)
	for i := 0; i < 7; i++ {
		_, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order("0", "bulk@example.com", "Bulk", "Buyer", "Kyiv"))
		require.NoError(t, err)
	}
	n, err := sys.index.CountOrders(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	// When
	r, err := reindex.New(reindex.Config{
		Source:    sys.host,
		Index:     sys.engine,
		Options:   sys.index,
		BatchSize: 3,
	})
	require.NoError(t, err)
	snap, err := r.Run(ctx, reindex.RunOptions{})
	require.NoError(t, err)

	// Then
	assert.Equal(t, 3, snap.BatchesTotal)
	ids, err := sys.host.FindRecords(ctx, record.KindOrder, query.FilterRequest{CustomerCity: "kyiv"}, FindOptions{})
	require.NoError(t, err)
	assert.Len(t, ids, 7)
}

func TestOrderCreatedBeforeUser_ResolvesOnNextRecompute(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	// Given: an order pointing at user 1 before that user exists
	id, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order("1", "", "", "", "Ithaca"))
	require.NoError(t, err)
	userID, err := sys.host.CreateUser(ctx, record.Customer{Email: "real@cust.com", FirstName: "Real", LastName: "Customer"})
	require.NoError(t, err)
	require.Equal(t, int64(1), userID)

	// Then: creating the user fills the existing row
	row, ok, err := sys.index.OrderRow(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "real@cust.com", row.CustomerEmail)

	// When: a tracked attribute changes afterwards
	require.NoError(t, sys.host.SetAttribute(ctx, id, record.AttrBillingCity, "Oslo"))

	// Then: the recompute resolves the account identity again
	row, ok, err = sys.index.OrderRow(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "real@cust.com", row.CustomerEmail)
	assert.Equal(t, "real customer", row.CustomerName)

	ids, err := sys.host.FindRecords(ctx, record.KindOrder, query.FilterRequest{CustomerEmail: "real@cust.com"}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestListRecordIDs_PagesBelowID(t *testing.T) {
	sys := setupTestSystem(t)
	ctx := context.Background()

	var created []int64
	for i := 0; i < 5; i++ {
		id, err := sys.host.CreateRecord(ctx, record.KindOrder, "", order("0", "", "", "", ""))
		require.NoError(t, err)
		created = append(created, id)
	}

	first, err := sys.host.ListRecordIDs(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{created[4], created[3]}, first)

	// A record created between pages does not shift the next one
	_, err = sys.host.CreateRecord(ctx, record.KindOrder, "", order("0", "", "", "", ""))
	require.NoError(t, err)

	next, err := sys.host.ListRecordIDs(ctx, first[1], 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{created[2], created[1]}, next)

	last, err := sys.host.ListRecordIDs(ctx, created[0], 2)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestRecord_Missing(t *testing.T) {
	sys := setupTestSystem(t)
	_, _, ok, err := sys.host.Record(context.Background(), 12345)
	require.NoError(t, err)
	assert.False(t, ok)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
