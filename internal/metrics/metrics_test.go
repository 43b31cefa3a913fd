package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ProposalsAccepted.Inc()
	m.ProposalsRejected.WithLabelValues(ReasonSuperseded).Add(3)
	m.TrackingEvents.WithLabelValues(EventClick).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProposalsAccepted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProposalsRejected.WithLabelValues(ReasonSuperseded)))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["adslots_proposals_accepted_total"])
	assert.True(t, names["adslots_proposals_rejected_total"])
	assert.True(t, names["adslots_tracking_events_total"])
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
