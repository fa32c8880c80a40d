package record

import (
	"context"
	"strconv"
	"strings"
)

// Order carries the attributes every indexed record has.
// Subscriptions are orders too and carry an Order part.
type Order struct {
	ID                int64
	Number            string
	CustomerID        int64
	Total             string
	BillingEmail      string
	BillingFirstName  string
	BillingLastName   string
	ShippingFirstName string
	ShippingLastName  string
	BillingCity       string
	ShippingCity      string
	BillingPostcode   string
	ShippingPostcode  string
}

// Schedule carries the subscription-only lifecycle dates.
type Schedule struct {
	Start       string
	TrialEnd    string
	NextPayment string
	End         string
	LastPayment string
}

// Snapshot is the tagged variant read for one recompute.
// Schedule is non-nil iff Kind is KindSubscription.
type Snapshot struct {
	Kind     Kind
	Order    Order
	Schedule *Schedule

	// Customer is the resolved identity for Order.CustomerID, nil for guests
	// and for ids that could not be resolved.
	Customer *Customer
}

// IsSubscription reports whether the snapshot has a subscription projection.
func (s Snapshot) IsSubscription() bool {
	return s.Kind == KindSubscription && s.Schedule != nil
}

// NewSnapshot selects fields by kind from a raw attribute map.
func NewSnapshot(id int64, kind Kind, attrs Attributes) Snapshot {
	snap := Snapshot{
		Kind: kind,
		Order: Order{
			ID:                id,
			Number:            attrs.Get(AttrOrderNumber),
			CustomerID:        parseUserID(attrs.Get(AttrCustomerUser)),
			Total:             attrs.Get(AttrOrderTotal),
			BillingEmail:      attrs.Get(AttrBillingEmail),
			BillingFirstName:  attrs.Get(AttrBillingFirstName),
			BillingLastName:   attrs.Get(AttrBillingLastName),
			ShippingFirstName: attrs.Get(AttrShippingFirstName),
			ShippingLastName:  attrs.Get(AttrShippingLastName),
			BillingCity:       attrs.Get(AttrBillingCity),
			ShippingCity:      attrs.Get(AttrShippingCity),
			BillingPostcode:   attrs.Get(AttrBillingPostcode),
			ShippingPostcode:  attrs.Get(AttrShippingPostcode),
		},
	}
	if kind == KindSubscription {
		snap.Schedule = &Schedule{
			Start:       attrs.Get(AttrScheduleStart),
			TrialEnd:    attrs.Get(AttrScheduleTrialEnd),
			NextPayment: attrs.Get(AttrScheduleNext),
			End:         attrs.Get(AttrScheduleEnd),
			LastPayment: attrs.Get(AttrScheduleLastOrder),
		}
	}
	return snap
}

// parseUserID treats anything that is not a positive integer as a guest.
func parseUserID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

type checkoutKey struct{}

// WithCheckout marks ctx as synchronous checkout processing. Recomputes run
// under it treat "now" as the subscription's last payment date.
func WithCheckout(ctx context.Context) context.Context {
	return context.WithValue(ctx, checkoutKey{}, true)
}

// InCheckout reports whether ctx was marked by WithCheckout.
func InCheckout(ctx context.Context) bool {
	v, _ := ctx.Value(checkoutKey{}).(bool)
	return v
}
