package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRequest_Set(t *testing.T) {
	var f FilterRequest

	assert.True(t, f.Set(CustomerUser, " 42 "))
	assert.Equal(t, int64(42), f.CustomerUser)
	assert.False(t, f.Set(CustomerUser, "abc"))
	assert.False(t, f.Set(CustomerUser, "-1"))
	assert.Equal(t, int64(42), f.CustomerUser)

	assert.True(t, f.Set(CustomerEmail, "jane@example.com"))
	assert.True(t, f.Set(OrderID, "1007"))
	assert.False(t, f.Set(Criterion("phone"), "123"))

	assert.Equal(t, "jane@example.com", f.CustomerEmail)
	assert.Equal(t, "1007", f.OrderID)
}

func TestFilterRequest_SetOrderBy(t *testing.T) {
	var f FilterRequest

	require.True(t, f.Set(SubscriptionOrderBy, "Next_Payment_Date desc"))
	assert.Equal(t, &SubscriptionOrder{Field: "next_payment_date", Direction: "desc"}, f.OrderBy)

	require.True(t, f.Set(SubscriptionOrderBy, "end_date"))
	assert.Equal(t, Asc, f.OrderBy.Direction)

	require.True(t, f.Set(SubscriptionOrderBy, "order_total:DESC"))
	assert.Equal(t, "DESC", f.OrderBy.Direction)

	assert.False(t, f.Set(SubscriptionOrderBy, ""))
	assert.False(t, f.Set(SubscriptionOrderBy, "a b c"))
}

func TestFilterRequest_HasAndIsEmpty(t *testing.T) {
	var f FilterRequest
	assert.True(t, f.IsEmpty())
	assert.False(t, f.needsOrderIndex())

	f.FullSearch = "   "
	assert.False(t, f.Has(FullSearch))
	assert.True(t, f.IsEmpty())

	f.OrderBy = &SubscriptionOrder{Field: "end_date"}
	assert.False(t, f.IsEmpty())
	assert.False(t, f.needsOrderIndex())

	f.CustomerCity = "ithaca"
	assert.True(t, f.needsOrderIndex())
}
