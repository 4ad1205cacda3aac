package xray

import (
	"context"
	"fmt"

	"axiom-vpn/internal/config"
	"axiom-vpn/internal/interfaces"

	"go.uber.org/zap"
)

type ConfigPath string

// Engine is the proxy runtime the tunnel supervisor drives. Start must not
// block on readiness; WaitReady does. Done is closed when a started engine
// stops for any reason.
type Engine interface {
	Name() string
	Start(ctx context.Context, configPath ConfigPath) error
	WaitReady(ctx context.Context) error
	Done() <-chan struct{}
	Stop() error
}

// NewEngine selects the engine implementation configured by engine.mode.
func NewEngine(cfg *config.Config, events interfaces.EventSink, logger *zap.Logger) (Engine, error) {
	logger = logger.With(zap.String("component", "engine"))

	switch cfg.Engine.Mode {
	case config.EngineModeProcess:
		return NewProcessEngine(cfg.Engine.Binary, inboundAddress(), logger), nil
	case config.EngineModeEmbedded:
		return NewEmbeddedEngine(logger), nil
	case config.EngineModeSimulated:
		return NewSimulatedEngine(events, logger), nil
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Engine.Mode)
	}
}

func inboundAddress() string {
	return fmt.Sprintf("127.0.0.1:%d", InboundPort)
}

// closedChan is returned by Done before the first start.
func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
