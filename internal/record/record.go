// Package record describes the source records the order index projects:
// orders and subscriptions owned by the host store, the attribute names that
// carry their searchable state, and the collaborators the index consumes.
package record

import (
	"context"
	"strings"
)

// Kind tags a source record.
type Kind string

const (
	KindOrder        Kind = "order"
	KindSubscription Kind = "subscription"
)

// Valid reports whether k is a kind the index projects.
func (k Kind) Valid() bool {
	return k == KindOrder || k == KindSubscription
}

// Attribute names on source records.
const (
	AttrCustomerUser      = "_customer_user"
	AttrOrderTotal        = "_order_total"
	AttrOrderNumber       = "_order_number"
	AttrBillingEmail      = "_billing_email"
	AttrBillingFirstName  = "_billing_first_name"
	AttrBillingLastName   = "_billing_last_name"
	AttrShippingFirstName = "_shipping_first_name"
	AttrShippingLastName  = "_shipping_last_name"
	AttrBillingCity       = "_billing_city"
	AttrShippingCity      = "_shipping_city"
	AttrBillingPostcode   = "_billing_postcode"
	AttrShippingPostcode  = "_shipping_postcode"

	// SchedulePrefix prefixes every subscription lifecycle date.
	SchedulePrefix        = "_schedule_"
	AttrScheduleStart     = "_schedule_start"
	AttrScheduleTrialEnd  = "_schedule_trial_end"
	AttrScheduleNext      = "_schedule_next_payment"
	AttrScheduleEnd       = "_schedule_end"
	AttrScheduleLastOrder = "_schedule_last_payment"
)

// Profile attribute names on users.
const (
	UserAttrEmail     = "email"
	UserAttrFirstName = "first_name"
	UserAttrLastName  = "last_name"
)

var recomputeAttrs = map[string]struct{}{
	AttrCustomerUser:      {},
	AttrOrderTotal:        {},
	AttrOrderNumber:       {},
	AttrBillingEmail:      {},
	AttrBillingFirstName:  {},
	AttrBillingLastName:   {},
	AttrShippingFirstName: {},
	AttrShippingLastName:  {},
	AttrBillingCity:       {},
	AttrShippingCity:      {},
	AttrBillingPostcode:   {},
	AttrShippingPostcode:  {},
}

// TriggersRecompute reports whether a change to the named attribute can
// alter an index row.
func TriggersRecompute(name string) bool {
	if _, ok := recomputeAttrs[name]; ok {
		return true
	}
	return strings.HasPrefix(name, SchedulePrefix)
}

// TriggersProfileUpdate reports whether a user attribute change must be
// propagated to the customer columns of the index.
func TriggersProfileUpdate(name string) bool {
	switch name {
	case UserAttrEmail, UserAttrFirstName, UserAttrLastName:
		return true
	}
	return false
}

// Attributes is a read-only view of one record's current attribute state.
type Attributes map[string]string

// Get returns the attribute value, or "" when unset.
func (a Attributes) Get(name string) string {
	return a[name]
}

// Customer is a resolved customer identity.
type Customer struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
}

// AttributeSource reads records fresh from the host store.
// Implementations must not serve cached mutation payloads.
type AttributeSource interface {
	// Record returns the kind and current attributes of a record.
	// ok is false when the record does not exist.
	Record(ctx context.Context, id int64) (kind Kind, attrs Attributes, ok bool, err error)
}

// CustomerResolver resolves user ids to customer identities.
type CustomerResolver interface {
	// Customer returns ok=false when the user cannot be resolved.
	Customer(ctx context.Context, userID int64) (Customer, bool, error)
}

// SubscriptionLinker lists subscriptions associated with an order.
type SubscriptionLinker interface {
	SubscriptionsForOrder(ctx context.Context, orderID int64) ([]int64, error)
}
