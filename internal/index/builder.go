package index

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/store"
)

// DateLayout is the layout of every date stored in the subscription index.
const DateLayout = "2006-01-02 15:04:05"

// inputDateLayouts are the persisted date shapes the builder accepts.
var inputDateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Builder projects record snapshots into index rows. It holds no state
// besides its clock, so the same snapshot always builds the same row.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a builder. A nil clock uses time.Now.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// OrderRow builds the order index row for snap.
func (b *Builder) OrderRow(snap record.Snapshot) store.OrderRow {
	o := snap.Order

	row := store.OrderRow{
		OrderID:          o.ID,
		OrderNumber:      normalize(o.Number),
		RecordKind:       string(snap.Kind),
		UserID:           o.CustomerID,
		BillingEmail:     normalize(o.BillingEmail),
		BillingName:      fullName(o.BillingFirstName, o.BillingLastName),
		ShippingName:     fullName(o.ShippingFirstName, o.ShippingLastName),
		BillingCity:      normalize(o.BillingCity),
		ShippingCity:     normalize(o.ShippingCity),
		BillingPostcode:  normalize(o.BillingPostcode),
		ShippingPostcode: normalize(o.ShippingPostcode),
	}
	if row.OrderNumber == "" {
		row.OrderNumber = strconv.FormatInt(o.ID, 10)
	}
	if o.CustomerID != 0 && snap.Customer != nil {
		row.CustomerEmail = normalize(snap.Customer.Email)
		row.CustomerName = fullName(snap.Customer.FirstName, snap.Customer.LastName)
	}
	return row
}

// SubscriptionRow builds the subscription index row for snap. ok is false
// when snap is not a subscription.
//
// During checkout the persisted last payment date is not written yet, so
// the builder's clock stands in for it.
func (b *Builder) SubscriptionRow(ctx context.Context, snap record.Snapshot) (store.SubscriptionRow, bool) {
	if !snap.IsSubscription() {
		return store.SubscriptionRow{}, false
	}
	s := snap.Schedule

	row := store.SubscriptionRow{
		SubscriptionID:  snap.Order.ID,
		OrderTotal:      parseTotal(snap.Order.Total),
		StartDate:       normalizeDate(s.Start),
		TrialEndDate:    normalizeDate(s.TrialEnd),
		NextPaymentDate: normalizeDate(s.NextPayment),
		EndDate:         normalizeDate(s.End),
		LastPaymentDate: normalizeDate(s.LastPayment),
	}
	if record.InCheckout(ctx) {
		row.LastPaymentDate = b.now().UTC().Format(DateLayout)
	}
	return row, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func fullName(first, last string) string {
	return normalize(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// parseTotal reads a monetary amount. Anything unparseable is 0.
func parseTotal(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// normalizeDate converts a persisted date to DateLayout in UTC. "0" and
// unparseable values mean the date is not set.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return ""
	}
	for _, layout := range inputDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(DateLayout)
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC().Format(DateLayout)
	}
	return ""
}
