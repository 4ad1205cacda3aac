package capture

import "go.uber.org/fx"

var Module = fx.Provide(NewProvider)
