package domain

import "time"

// TunnelState is the lifecycle state of the tunnel session.
type TunnelState int32

const (
	StateIdle TunnelState = iota
	StateStarting
	StateActive
	StateStopping
	StateFailed
)

// TunnelStates lists every state in declaration order.
var TunnelStates = []TunnelState{StateIdle, StateStarting, StateActive, StateStopping, StateFailed}

func (s TunnelState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StateStopping:
		return "Stopping"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

const (
	StatusConnected    = "CONNECTED"
	StatusDisconnected = "DISCONNECTED"
)

// Severity classifies an event log entry.
type Severity string

const (
	SeverityInfo   Severity = "INFO"
	SeverityWarn   Severity = "WARN"
	SeverityError  Severity = "ERROR"
	SeveritySystem Severity = "SYSTEM"
)

// LogEntry is an immutable event log record.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// Time returns the wall clock time of the entry for display.
func (e LogEntry) Time() string {
	return e.Timestamp.Format("15:04:05")
}
