package capture

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"axiom-vpn/internal/config"

	"go.uber.org/zap"
)

// Provider acquires the virtual interface that feeds device traffic to the
// engine's inbound.
type Provider interface {
	Name() string
	Acquire(ctx context.Context) (Handle, error)
}

// Handle is an acquired interface. Close releases it exactly once; further
// calls return nil.
type Handle interface {
	Name() string
	Close() error
}

// NewProvider selects the capture implementation configured by capture.mode.
func NewProvider(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	logger = logger.With(zap.String("component", "capture"))

	switch cfg.Capture.Mode {
	case config.CaptureModeNetstack:
		return newNetstackProvider(cfg.Capture, logger)
	case config.CaptureModeTUN:
		return newTUNProvider(cfg.Capture, logger)
	case config.CaptureModeNone:
		return NoneProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown capture mode %q", cfg.Capture.Mode)
	}
}

// handle wraps a release function so it runs exactly once.
type handle struct {
	name    string
	once    sync.Once
	release func() error
	err     error
}

func newHandle(name string, release func() error) *handle {
	return &handle{name: name, release: release}
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) Close() error {
	h.once.Do(func() {
		if h.release != nil {
			h.err = h.release()
		}
	})
	return h.err
}

func parseDNS(servers []string) ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(servers))
	for _, s := range servers {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid dns server %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
