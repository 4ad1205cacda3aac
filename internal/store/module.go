package store

import (
	"context"

	"axiom-vpn/internal/config"
	"axiom-vpn/internal/interfaces"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, logger *zap.Logger) *ProfileStore {
		return New(cfg.DataDir, logger)
	}),
	fx.Provide(func(s *ProfileStore) interfaces.ProfileStore { return s }),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, s *ProfileStore, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// A damaged store must not keep the user from importing a new link.
			if err := s.Load(); err != nil {
				logger.Warn("discarding persisted profile", zap.Error(err))
			}
			go func() {
				defer close(done)
				if err := s.Watch(ctx); err != nil {
					logger.Error("profile store watcher stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
