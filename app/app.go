package app

import (
	"axiom-vpn/internal/api"
	"axiom-vpn/internal/capture"
	"axiom-vpn/internal/eventlog"
	"axiom-vpn/internal/link"
	"axiom-vpn/internal/metrics"
	"axiom-vpn/internal/store"
	"axiom-vpn/internal/tunnel"
	"axiom-vpn/internal/xray"

	"go.uber.org/fx"
)

// Modules wires every service except configuration and the logger, which
// the caller supplies.
func Modules() fx.Option {
	return fx.Options(
		metrics.Module,
		eventlog.Module,
		store.Module,
		link.Module,
		xray.Module,
		capture.Module,
		tunnel.Module,
		api.Module,
	)
}
