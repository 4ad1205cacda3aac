package capture

import (
	"context"
	"fmt"
	"net/netip"

	"axiom-vpn/internal/config"

	"go.uber.org/zap"
	"golang.zx2c4.com/wireguard/tun"
)

// TUNProvider creates a kernel TUN device. It usually requires elevated
// privileges.
type TUNProvider struct {
	name   string
	prefix netip.Prefix
	mtu    int
	logger *zap.Logger
}

func newTUNProvider(cfg config.Capture, logger *zap.Logger) (*TUNProvider, error) {
	prefix, err := netip.ParsePrefix(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid capture address: %w", err)
	}

	return &TUNProvider{
		name:   cfg.Name,
		prefix: prefix,
		mtu:    cfg.MTU,
		logger: logger,
	}, nil
}

func (p *TUNProvider) Name() string {
	return "tun"
}

func (p *TUNProvider) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dev, err := tun.CreateTUN(p.name, p.mtu)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUN %s: %w", p.name, err)
	}

	name, err := dev.Name()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to read TUN name: %w", err)
	}

	if err := configureInterface(name, p.prefix); err != nil {
		dev.Close()
		return nil, err
	}

	p.logger.Info("TUN interface acquired",
		zap.String("name", name),
		zap.String("address", p.prefix.String()),
		zap.Int("mtu", p.mtu))

	return newHandle(name, func() error {
		p.logger.Info("TUN interface released", zap.String("name", name))
		return dev.Close()
	}), nil
}
