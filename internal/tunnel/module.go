package tunnel

import (
	"context"

	"axiom-vpn/internal/interfaces"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(NewSupervisor),
	fx.Provide(func(s *Supervisor) interfaces.TunnelController { return s }),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, s *Supervisor, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := s.Stop(ctx); err != nil {
				logger.Warn("failed to stop tunnel on shutdown", zap.Error(err))
			}
			s.Close()
			return nil
		},
	})
}
