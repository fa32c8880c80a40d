package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterTo_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { MustRegisterTo(reg) })

	UpsertsTotal.WithLabelValues("order_index", "ok").Inc()
	RecomputesTotal.WithLabelValues("order", "ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["orderindex_upserts_total"])
	assert.True(t, names["orderindex_recomputes_total"])
}

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(ReindexRecordsTotal)
	ReindexRecordsTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ReindexRecordsTotal))
}
