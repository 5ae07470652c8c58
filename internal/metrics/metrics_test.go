package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPush_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPush(reg)

	m.Sent.Inc()
	m.Failed.WithLabelValues(ReasonGone).Inc()
	m.Pruned.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.Sent), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Failed.WithLabelValues(ReasonGone)), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "askify_push_sent_total")
	assert.Contains(t, names, "askify_push_pruned_total")
}
