package app

import (
	"context"
	"time"

	"axiom-vpn/internal/common"
	"axiom-vpn/internal/config"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type Application struct {
	app    *fx.App
	logger *zap.Logger
}

func NewApplication(opts ...common.Option) *Application {
	options := common.Apply(opts...)

	app := &Application{
		logger: options.Logger,
	}

	// Build fx application
	app.app = fx.New(
		configOption(options),
		Modules(),

		// Provide base dependencies
		fx.Provide(
			func() *zap.Logger { return options.Logger },
			func() string { return options.Env },
		),

		// Configure fx
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		// Engine readiness is bounded by engine.start_timeout; leave room
		// for a tunnel stop on shutdown.
		fx.StopTimeout(30*time.Second),
		fx.StartTimeout(30*time.Second),

		// Register lifecycle hooks
		fx.Invoke(registerHooks),
	)

	return app
}

// configOption supplies a preloaded configuration or falls back to reading
// CONFIG_PATH.
func configOption(options *common.ServiceOptions) fx.Option {
	if options.Config != nil {
		return fx.Supply(options.Config)
	}
	return config.Module
}

func (a *Application) Err() error {
	return a.app.Err()
}

func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}
