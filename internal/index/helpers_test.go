package index

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/store"
)

// fakeHost is an in-memory record store implementing the collaborator
// interfaces the engine consumes.
type fakeHost struct {
	mu        sync.Mutex
	kinds     map[int64]record.Kind
	attrs     map[int64]record.Attributes
	users     map[int64]record.Customer
	links     map[int64][]int64
	userCalls int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		kinds: make(map[int64]record.Kind),
		attrs: make(map[int64]record.Attributes),
		users: make(map[int64]record.Customer),
		links: make(map[int64][]int64),
	}
}

func (h *fakeHost) put(id int64, kind record.Kind, attrs map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kinds[id] = kind
	a := make(record.Attributes, len(attrs))
	for k, v := range attrs {
		a[k] = v
	}
	h.attrs[id] = a
}

func (h *fakeHost) set(id int64, name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs[id][name] = value
}

func (h *fakeHost) putUser(c record.Customer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[c.ID] = c
}

func (h *fakeHost) link(orderID int64, subs ...int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.links[orderID] = append(h.links[orderID], subs...)
}

func (h *fakeHost) Record(_ context.Context, id int64) (record.Kind, record.Attributes, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kind, ok := h.kinds[id]
	if !ok {
		return "", nil, false, nil
	}
	a := make(record.Attributes, len(h.attrs[id]))
	for k, v := range h.attrs[id] {
		a[k] = v
	}
	return kind, a, true, nil
}

func (h *fakeHost) Customer(_ context.Context, userID int64) (record.Customer, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.userCalls++
	c, ok := h.users[userID]
	return c, ok, nil
}

func (h *fakeHost) SubscriptionsForOrder(_ context.Context, orderID int64) ([]int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.links[orderID]...), nil
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), store.Options{
		Path: filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func setupTestEngine(t *testing.T) (*Engine, *fakeHost) {
	t.Helper()

	host := newFakeHost()
	e, err := NewEngine(EngineConfig{
		Store:     setupTestStore(t),
		Source:    host,
		Customers: host,
		Links:     host,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return e, host
}

func orderAttrs(userID string) map[string]string {
	return map[string]string{
		record.AttrCustomerUser:      userID,
		record.AttrOrderTotal:        "42.50",
		record.AttrBillingEmail:      "  Jane.Smith@Example.com ",
		record.AttrBillingFirstName:  "Jane",
		record.AttrBillingLastName:   "Smith",
		record.AttrShippingFirstName: "John",
		record.AttrShippingLastName:  "Smithson",
		record.AttrBillingCity:       "Ithaca",
		record.AttrShippingCity:      "Berlin",
		record.AttrBillingPostcode:   "14850",
		record.AttrShippingPostcode:  "10115",
	}
}
