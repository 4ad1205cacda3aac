package eventlog

import (
	"axiom-vpn/internal/interfaces"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(l *Log) interfaces.EventSink { return l }),
)
