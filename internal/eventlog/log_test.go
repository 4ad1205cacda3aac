package eventlog

import (
	"fmt"
	"testing"
	"time"

	"axiom-vpn/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingMetrics struct {
	entries map[domain.Severity]int
}

func (m *countingMetrics) RecordTransition(from, to domain.TunnelState) {}
func (m *countingMetrics) RecordStartFailure(stage string)              {}
func (m *countingMetrics) RecordLinkParse(strategy string, ok bool)     {}
func (m *countingMetrics) RecordLogEntry(severity domain.Severity) {
	m.entries[severity]++
}

func TestLog_NewestFirstAndBounded(t *testing.T) {
	log := New(nil, zap.NewNop())

	for i := 0; i < 60; i++ {
		log.Append(fmt.Sprintf("entry %d", i), domain.SeverityInfo)
	}

	entries := log.Snapshot()
	require.Len(t, entries, Capacity)
	assert.Equal(t, "entry 59", entries[0].Message)
	assert.Equal(t, "entry 10", entries[Capacity-1].Message)
}

func TestLog_AppendFields(t *testing.T) {
	log := New(nil, zap.NewNop())
	fixed := time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	entry := log.Append("Secure Tunnel Established.", domain.SeveritySystem)
	assert.Equal(t, "Secure Tunnel Established.", entry.Message)
	assert.Equal(t, domain.SeveritySystem, entry.Severity)
	assert.Equal(t, "14:03:09", entry.Time())

	log.Append("w", domain.SeverityWarn)
	log.Append("e", domain.SeverityError)
	log.Append("s", domain.SeveritySystem)

	entries := log.Snapshot()
	require.Len(t, entries, 4)
	assert.Equal(t, domain.SeveritySystem, entries[0].Severity)
	assert.Equal(t, domain.SeverityError, entries[1].Severity)
	assert.Equal(t, domain.SeverityWarn, entries[2].Severity)
}

func TestLog_SnapshotIsCopy(t *testing.T) {
	log := New(nil, zap.NewNop())
	log.Append("original", domain.SeverityInfo)

	snapshot := log.Snapshot()
	snapshot[0].Message = "changed"

	assert.Equal(t, "original", log.Snapshot()[0].Message)
}

func TestLog_Subscribe(t *testing.T) {
	log := New(nil, zap.NewNop())
	log.Append("before", domain.SeverityInfo)

	ch, cancel := log.Subscribe()
	log.Append("after", domain.SeverityWarn)

	select {
	case entry := <-ch:
		assert.Equal(t, "after", entry.Message)
		assert.Equal(t, domain.SeverityWarn, entry.Severity)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Appending after cancel must not panic on the closed channel.
	log.Append("late", domain.SeverityInfo)
}

func TestLog_SlowSubscriberDoesNotBlock(t *testing.T) {
	log := New(nil, zap.NewNop())
	_, cancel := log.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		log.Append("flood", domain.SeverityInfo)
	}
	assert.Len(t, log.Snapshot(), Capacity)
}

func TestLog_RecordsMetrics(t *testing.T) {
	metrics := &countingMetrics{entries: map[domain.Severity]int{}}
	log := New(metrics, zap.NewNop())

	log.Append("a", domain.SeverityInfo)
	log.Append("b", domain.SeverityError)
	log.Append("c", domain.SeverityError)

	assert.Equal(t, 1, metrics.entries[domain.SeverityInfo])
	assert.Equal(t, 2, metrics.entries[domain.SeverityError])
}
