package metrics

import (
	"testing"

	"axiom-vpn/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector(prometheus.NewRegistry(), zap.NewNop())
}

func TestCollector_RecordTransition(t *testing.T) {
	c := newTestCollector()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.tunnelState.WithLabelValues("Idle")))

	c.RecordTransition(domain.StateIdle, domain.StateStarting)
	c.RecordTransition(domain.StateStarting, domain.StateActive)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.tunnelState.WithLabelValues("Idle")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.tunnelState.WithLabelValues("Starting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tunnelState.WithLabelValues("Active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("Idle", "Starting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("Starting", "Active")))
}

func TestCollector_Counters(t *testing.T) {
	c := newTestCollector()

	c.RecordStartFailure("engine")
	c.RecordStartFailure("engine")
	c.RecordLinkParse("uri", true)
	c.RecordLinkParse("manual", false)
	c.RecordLogEntry(domain.SeveritySystem)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.startFailures.WithLabelValues("engine")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.linkParses.WithLabelValues("uri", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.linkParses.WithLabelValues("manual", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.logEntries.WithLabelValues("SYSTEM")))
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	NewCollector(reg, zap.NewNop())

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["axiom_tunnel_state"])
	assert.True(t, names["go_goroutines"])
}
