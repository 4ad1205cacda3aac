package interfaces

import (
	"context"

	"axiom-vpn/internal/domain"
)

// EventSink receives user-facing log events
type EventSink interface {
	Append(message string, severity domain.Severity) domain.LogEntry
}

// ProfileStore holds the current connection profile
type ProfileStore interface {
	Current() (domain.ConnectionProfile, bool)
	Save(profile domain.ConnectionProfile) error
}

// TunnelController defines the control surface of the tunnel supervisor
type TunnelController interface {
	Start(ctx context.Context, profile domain.ConnectionProfile) error
	Stop(ctx context.Context) error
	Toggle(ctx context.Context) error
	State() domain.TunnelState
	Status() string
}
