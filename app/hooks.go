package app

import (
	"context"

	"axiom-vpn/internal/config"
	"axiom-vpn/internal/interfaces"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type hookParams struct {
	fx.In

	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Tunnel    interfaces.TunnelController
}

func registerHooks(p hookParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting application",
				zap.String("engine", p.Config.Engine.Mode),
				zap.String("capture", p.Config.Capture.Mode),
				zap.String("api", p.Config.API.Listen))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("stopping application",
				zap.String("tunnel", p.Tunnel.State().String()))
			return nil
		},
	})
}
