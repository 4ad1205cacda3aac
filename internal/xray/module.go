package xray

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(
		NewSynthesizer,
		NewEngine,
	),
)
