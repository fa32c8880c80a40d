package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderindex/internal/metrics"
	"github.com/Aman-CERP/orderindex/internal/record"
)

type recordingMaintainer struct {
	mu         sync.Mutex
	recomputed []int64
	customers  []int64
	failWith   error
}

func (m *recordingMaintainer) Recompute(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputed = append(m.recomputed, id)
	return m.failWith
}

func (m *recordingMaintainer) UpdateCustomer(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = append(m.customers, userID)
	return m.failWith
}

func TestTrigger_OnAttributeChangedDecision(t *testing.T) {
	tests := []struct {
		name      string
		kind      record.Kind
		attribute string
		want      bool
	}{
		{"customer user", record.KindOrder, record.AttrCustomerUser, true},
		{"billing email", record.KindOrder, record.AttrBillingEmail, true},
		{"shipping postcode", record.KindSubscription, record.AttrShippingPostcode, true},
		{"order number", record.KindOrder, record.AttrOrderNumber, true},
		{"total", record.KindSubscription, record.AttrOrderTotal, true},
		{"schedule prefix", record.KindSubscription, "_schedule_cancelled", true},
		{"unrelated attribute", record.KindOrder, "_payment_method", false},
		{"billing phone", record.KindOrder, "_billing_phone", false},
		{"unknown kind", record.Kind("product"), record.AttrCustomerUser, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &recordingMaintainer{}
			trigger := NewTrigger(m, nil)

			trigger.OnAttributeChanged(context.Background(), 42, tt.kind, tt.attribute, "x")

			if tt.want {
				assert.Equal(t, []int64{42}, m.recomputed)
			} else {
				assert.Empty(t, m.recomputed)
			}
		})
	}
}

func TestTrigger_CountsDecisions(t *testing.T) {
	before := testutil.ToFloat64(metrics.TriggerDecisionsTotal.WithLabelValues("ignore"))

	NewTrigger(&recordingMaintainer{}, nil).
		OnAttributeChanged(context.Background(), 1, record.KindOrder, "_payment_method", "card")

	after := testutil.ToFloat64(metrics.TriggerDecisionsTotal.WithLabelValues("ignore"))
	assert.Equal(t, before+1, after)
}

func TestTrigger_SwallowsFailures(t *testing.T) {
	m := &recordingMaintainer{failWith: errors.New("disk full")}
	trigger := NewTrigger(m, nil)

	assert.NotPanics(t, func() {
		trigger.OnAttributeChanged(context.Background(), 1, record.KindOrder, record.AttrBillingCity, "x")
		trigger.OnUserProfileUpdated(context.Background(), 7)
	})
	assert.Equal(t, []int64{1}, m.recomputed)
	assert.Equal(t, []int64{7}, m.customers)
}

func TestTrigger_OnUserAttributeChanged(t *testing.T) {
	m := &recordingMaintainer{}
	trigger := NewTrigger(m, nil)
	ctx := context.Background()

	trigger.OnUserAttributeChanged(ctx, 7, record.UserAttrEmail)
	trigger.OnUserAttributeChanged(ctx, 7, record.UserAttrFirstName)
	trigger.OnUserAttributeChanged(ctx, 7, "nickname")

	assert.Equal(t, []int64{7, 7}, m.customers)
}

func TestTrigger_EndToEnd(t *testing.T) {
	e, host := setupTestEngine(t)
	trigger := NewTrigger(e, nil)
	ctx := context.Background()

	// Given: an indexed order
	host.put(1, record.KindOrder, orderAttrs("0"))
	trigger.OnAttributeChanged(ctx, 1, record.KindOrder, record.AttrCustomerUser, "0")

	// When: the host writes a new city and notifies
	host.set(1, record.AttrShippingCity, "Oslo")
	trigger.OnAttributeChanged(ctx, 1, record.KindOrder, record.AttrShippingCity, "Oslo")

	// Then: the row follows the record
	row, ok, err := e.Store().OrderRow(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "oslo", row.ShippingCity)
}
