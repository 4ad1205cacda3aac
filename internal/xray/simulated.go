package xray

import (
	"context"
	"fmt"
	"sync"

	"axiom-vpn/internal/domain"
	"axiom-vpn/internal/interfaces"

	"go.uber.org/zap"
)

// SimulatedEngine stands in for the engine where no native runtime is
// available. It never carries traffic.
type SimulatedEngine struct {
	events  interfaces.EventSink
	logger  *zap.Logger
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewSimulatedEngine(events interfaces.EventSink, logger *zap.Logger) *SimulatedEngine {
	return &SimulatedEngine{
		events: events,
		logger: logger,
		done:   closedChan(),
	}
}

func (s *SimulatedEngine) Name() string {
	return "simulated"
}

func (s *SimulatedEngine) Start(_ context.Context, configPath ConfigPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("simulated engine is already running")
	}
	s.running = true
	s.done = make(chan struct{})

	s.logger.Info("simulated engine started", zap.String("config", string(configPath)))
	if s.events != nil {
		s.events.Append("Simulation Mode Active", domain.SeverityWarn)
	}
	return nil
}

func (s *SimulatedEngine) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return fmt.Errorf("simulated engine is not running: %w", domain.ErrEngineNotReady)
	}
	return ctx.Err()
}

func (s *SimulatedEngine) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *SimulatedEngine) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	close(s.done)
	return nil
}

// Crash ends the simulated run as if the engine had died on its own.
func (s *SimulatedEngine) Crash() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.logger.Warn("simulated engine crashed")
	s.running = false
	close(s.done)
}
