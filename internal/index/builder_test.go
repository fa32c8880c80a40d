package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/store"
)

func TestBuilder_OrderRowNormalizes(t *testing.T) {
	b := NewBuilder(nil)
	snap := record.NewSnapshot(1007, record.KindOrder, orderAttrs("7"))
	snap.Customer = &record.Customer{ID: 7, Email: "JANE@Example.COM", FirstName: " Jane ", LastName: "Doe"}

	row := b.OrderRow(snap)

	assert.Equal(t, store.OrderRow{
		OrderID:          1007,
		OrderNumber:      "1007",
		RecordKind:       "order",
		UserID:           7,
		CustomerEmail:    "jane@example.com",
		BillingEmail:     "jane.smith@example.com",
		CustomerName:     "jane doe",
		BillingName:      "jane smith",
		ShippingName:     "john smithson",
		BillingCity:      "ithaca",
		ShippingCity:     "berlin",
		BillingPostcode:  "14850",
		ShippingPostcode: "10115",
	}, row)
}

func TestBuilder_OrderNumberAttributeWins(t *testing.T) {
	attrs := orderAttrs("0")
	attrs[record.AttrOrderNumber] = "WC-1007"

	row := NewBuilder(nil).OrderRow(record.NewSnapshot(5, record.KindOrder, attrs))
	assert.Equal(t, "wc-1007", row.OrderNumber)
}

func TestBuilder_UnresolvedCustomerLeavesIdentityEmpty(t *testing.T) {
	// Given: a user id with no resolvable identity
	snap := record.NewSnapshot(1, record.KindOrder, orderAttrs("99"))

	// When
	row := NewBuilder(nil).OrderRow(snap)

	// Then: user id is kept, identity columns empty, billing data intact
	assert.Equal(t, int64(99), row.UserID)
	assert.Empty(t, row.CustomerEmail)
	assert.Empty(t, row.CustomerName)
	assert.Equal(t, "jane.smith@example.com", row.BillingEmail)
}

func TestBuilder_GuestIgnoresCustomer(t *testing.T) {
	snap := record.NewSnapshot(1, record.KindOrder, orderAttrs(""))
	snap.Customer = &record.Customer{Email: "someone@example.com"}

	row := NewBuilder(nil).OrderRow(snap)
	assert.Equal(t, int64(0), row.UserID)
	assert.Empty(t, row.CustomerEmail)
}

func TestBuilder_NameWithOnlyOnePart(t *testing.T) {
	attrs := orderAttrs("0")
	attrs[record.AttrBillingFirstName] = ""
	attrs[record.AttrShippingLastName] = ""

	row := NewBuilder(nil).OrderRow(record.NewSnapshot(1, record.KindOrder, attrs))
	assert.Equal(t, "smith", row.BillingName)
	assert.Equal(t, "john", row.ShippingName)
}

func TestBuilder_SubscriptionRow(t *testing.T) {
	attrs := orderAttrs("7")
	attrs[record.AttrScheduleStart] = "2026-01-01 10:00:00"
	attrs[record.AttrScheduleTrialEnd] = "0"
	attrs[record.AttrScheduleNext] = "2026-02-01T10:00:00Z"
	attrs[record.AttrScheduleLastOrder] = "2026-01-01"
	snap := record.NewSnapshot(44, record.KindSubscription, attrs)

	row, ok := NewBuilder(nil).SubscriptionRow(context.Background(), snap)

	assert.True(t, ok)
	assert.Equal(t, store.SubscriptionRow{
		SubscriptionID:  44,
		OrderTotal:      42.5,
		StartDate:       "2026-01-01 10:00:00",
		NextPaymentDate: "2026-02-01 10:00:00",
		LastPaymentDate: "2026-01-01 00:00:00",
	}, row)
}

func TestBuilder_SubscriptionRowDuringCheckoutUsesClock(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	attrs := orderAttrs("7")
	attrs[record.AttrScheduleLastOrder] = "2025-01-01 00:00:00"
	snap := record.NewSnapshot(44, record.KindSubscription, attrs)

	row, ok := NewBuilder(func() time.Time { return now }).
		SubscriptionRow(record.WithCheckout(context.Background()), snap)

	assert.True(t, ok)
	assert.Equal(t, "2026-05-01 10:00:00", row.LastPaymentDate)
}

func TestBuilder_OrderHasNoSubscriptionRow(t *testing.T) {
	snap := record.NewSnapshot(1, record.KindOrder, orderAttrs("7"))
	_, ok := NewBuilder(nil).SubscriptionRow(context.Background(), snap)
	assert.False(t, ok)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"0", ""},
		{"not a date", ""},
		{" 2026-01-02 03:04:05 ", "2026-01-02 03:04:05"},
		{"2026-01-02T03:04:05+02:00", "2026-01-02 01:04:05"},
		{"2026-01-02", "2026-01-02 00:00:00"},
		{"1767225600", "2026-01-01 00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDate(tt.in))
		})
	}
}

func TestParseTotal(t *testing.T) {
	assert.Equal(t, 19.99, parseTotal("19.99"))
	assert.Equal(t, 0.0, parseTotal(""))
	assert.Equal(t, 0.0, parseTotal("abc"))
}
