package capture

import (
	"context"
	"fmt"
	"net/netip"

	"axiom-vpn/internal/config"

	"go.uber.org/zap"
	"golang.zx2c4.com/wireguard/tun/netstack"
)

// NetstackProvider creates a userspace interface backed by the gVisor
// network stack. It needs no privileges.
type NetstackProvider struct {
	addr   netip.Addr
	dns    []netip.Addr
	mtu    int
	logger *zap.Logger
}

func newNetstackProvider(cfg config.Capture, logger *zap.Logger) (*NetstackProvider, error) {
	prefix, err := netip.ParsePrefix(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid capture address: %w", err)
	}
	dns, err := parseDNS(cfg.DNS)
	if err != nil {
		return nil, err
	}

	return &NetstackProvider{
		addr:   prefix.Addr(),
		dns:    dns,
		mtu:    cfg.MTU,
		logger: logger,
	}, nil
}

func (p *NetstackProvider) Name() string {
	return "netstack"
}

func (p *NetstackProvider) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dev, _, err := netstack.CreateNetTUN([]netip.Addr{p.addr}, p.dns, p.mtu)
	if err != nil {
		return nil, fmt.Errorf("failed to create netstack TUN: %w", err)
	}

	name, err := dev.Name()
	if err != nil {
		name = "netstack"
	}

	p.logger.Debug("netstack interface acquired",
		zap.String("address", p.addr.String()),
		zap.Int("mtu", p.mtu))

	return newHandle(name, func() error {
		p.logger.Debug("netstack interface released")
		return dev.Close()
	}), nil
}
