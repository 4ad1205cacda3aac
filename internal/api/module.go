package api

import (
	"context"

	"axiom-vpn/internal/eventlog"
	"axiom-vpn/internal/link"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		func(i *link.Importer) LinkImporter { return i },
		func(l *eventlog.Log) LogSource { return l },
		NewServer,
	),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
