package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_StructuredTerms(t *testing.T) {
	// Given: a customer order and a guest order
	env := newCLIEnv(t)
	_, orderID, guestID := seedCustomer(t, env)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"bare email", []string{"jane@example.com"}, []string{idString(orderID)}},
		{"email token", []string{"email:guest@example.com"}, []string{idString(guestID)}},
		{"name and city", []string{"name:jane", "city:syd*"}, []string{idString(orderID)}},
		{"postcode", []string{"zip=2000"}, []string{idString(orderID)}},
		{"order number", []string{"#" + idString(guestID)}, []string{idString(guestID)}},
		{"free text", []string{"example.com"}, []string{idString(guestID), idString(orderID)}},
		{"no match", []string{"name:nobody"}, []string{"(none)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: searching
			out := env.mustExec(append([]string{"search"}, tt.args...)...)

			// Then: the matching ids are printed newest first
			assert.Equal(t, tt.want, lines(out))
		})
	}
}

func TestSearch_NoTermsListsKind(t *testing.T) {
	env := newCLIEnv(t)
	_, orderID, guestID := seedCustomer(t, env)

	out := env.mustExec("search")

	assert.Equal(t, []string{idString(guestID), idString(orderID)}, lines(out))
}

func TestSearch_LegacyVars(t *testing.T) {
	// Given: legacy query variables selecting the customer
	env := newCLIEnv(t)
	userID, orderID, _ := seedCustomer(t, env)

	// When: searching with --var, including one the filter does not use
	out := env.mustExec("search", "--json", "--var", "wc_customer_user="+idString(userID), "--var", "post_status=any")

	// Then: the customer's order is found and the unused variable reported
	var res searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int64{orderID}, res.IDs)
	assert.Equal(t, []string{"post_status"}, res.Unused)
}

func TestSearch_UnknownKeyIsDropped(t *testing.T) {
	env := newCLIEnv(t)
	_, orderID, _ := seedCustomer(t, env)

	out := env.mustExec("search", "--json", "colour:red", "name:jane")

	var res searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int64{orderID}, res.IDs)
	assert.Equal(t, []string{"colour"}, res.Dropped)
	assert.True(t, res.Structured)
	assert.Empty(t, res.DefaultSearch)
}

func TestSearch_NoCriteriaFallsBackToAttributeMatch(t *testing.T) {
	// Given: an order whose note looks like a search token
	env := newCLIEnv(t)
	seedCustomer(t, env)
	noteID := env.mustID("record", "add", "--attr", "_customer_note=Gift:Wrap please")

	// When: the search string holds only an unknown key
	out := env.mustExec("search", "--json", "gift:wrap")

	// Then: the parser yields nothing and the raw text matches attributes
	var res searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Structured)
	assert.Equal(t, "gift:wrap", res.DefaultSearch)
	assert.Equal(t, []string{"gift"}, res.Dropped)
	assert.Equal(t, []int64{noteID}, res.IDs)

	// When/Then: an unknown key matching no attribute lists nothing
	out = env.mustExec("search", "--json", "phone:555")
	res = searchResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.IDs)
	assert.False(t, res.Structured)
}

func TestSearch_Limit(t *testing.T) {
	env := newCLIEnv(t)
	_, _, guestID := seedCustomer(t, env)

	out := env.mustExec("search", "--limit", "1")

	assert.Equal(t, []string{idString(guestID)}, lines(out))
}

func TestSearch_SubscriptionOrdering(t *testing.T) {
	// Given: two subscriptions with different next payment dates
	env := newCLIEnv(t)
	late := env.mustID("record", "add", "--kind", "subscription",
		"--attr", "_billing_city=Perth", "--attr", "_schedule_next_payment=2026-03-01 00:00:00")
	early := env.mustID("record", "add", "--kind", "subscription",
		"--attr", "_billing_city=Perth", "--attr", "_schedule_next_payment=2026-01-01 00:00:00")

	// When: ordering by next payment ascending
	out := env.mustExec("search", "--kind", "subscription", "--order-by", "next_payment_date", "--dir", "asc", "city:perth")

	// Then: the earlier payment comes first
	assert.Equal(t, []string{idString(early), idString(late)}, lines(out))
}

func TestSearch_RejectsBadFlags(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec("search", "--order-by", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_403")

	_, err = env.exec("search", "--kind", "refund")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --kind")
}
