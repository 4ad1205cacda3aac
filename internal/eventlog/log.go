package eventlog

import (
	"sync"
	"time"

	"axiom-vpn/internal/domain"

	"go.uber.org/zap"
)

// Capacity is the number of entries kept; older entries are discarded.
const Capacity = 50

const subscriberBuffer = 64

// Log is a bounded, newest-first event log observed by the control surface.
type Log struct {
	mu          sync.RWMutex
	entries     []domain.LogEntry
	subscribers map[int]chan domain.LogEntry
	nextID      int
	logger      *zap.Logger
	metrics     domain.MetricsCollector
	now         func() time.Time
}

func New(metrics domain.MetricsCollector, logger *zap.Logger) *Log {
	return &Log{
		entries:     make([]domain.LogEntry, 0, Capacity),
		subscribers: make(map[int]chan domain.LogEntry),
		logger:      logger.With(zap.String("component", "eventlog")),
		metrics:     metrics,
		now:         time.Now,
	}
}

// Append prepends a new entry and truncates the log to Capacity.
func (l *Log) Append(message string, severity domain.Severity) domain.LogEntry {
	entry := domain.LogEntry{
		Timestamp: l.now(),
		Message:   message,
		Severity:  severity,
	}

	l.mu.Lock()
	if len(l.entries) < Capacity {
		l.entries = append(l.entries, domain.LogEntry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = entry

	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Slow observers miss entries; they can resync from Snapshot.
		}
	}
	l.mu.Unlock()

	l.mirror(entry)
	if l.metrics != nil {
		l.metrics.RecordLogEntry(severity)
	}
	return entry
}

// Snapshot returns a copy of the entries, newest first.
func (l *Log) Snapshot() []domain.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Subscribe returns a channel receiving every entry appended after the call
// and a function that cancels the subscription.
func (l *Log) Subscribe() (<-chan domain.LogEntry, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan domain.LogEntry, subscriberBuffer)
	l.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subscribers, id)
			close(ch)
			l.mu.Unlock()
		})
	}
}

func (l *Log) mirror(entry domain.LogEntry) {
	fields := []zap.Field{zap.String("severity", string(entry.Severity))}
	switch entry.Severity {
	case domain.SeverityWarn:
		l.logger.Warn(entry.Message, fields...)
	case domain.SeverityError:
		l.logger.Error(entry.Message, fields...)
	default:
		l.logger.Info(entry.Message, fields...)
	}
}
