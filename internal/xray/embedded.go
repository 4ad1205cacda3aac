package xray

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"axiom-vpn/internal/domain"

	"github.com/xtls/xray-core/core"
	"github.com/xtls/xray-core/infra/conf"
	"go.uber.org/zap"

	_ "github.com/xtls/xray-core/main/distro/all"
)

// EmbeddedEngine runs xray-core inside this process.
type EmbeddedEngine struct {
	logger   *zap.Logger
	mu       sync.Mutex
	instance *core.Instance
	done     chan struct{}
}

func NewEmbeddedEngine(logger *zap.Logger) *EmbeddedEngine {
	return &EmbeddedEngine{
		logger: logger,
		done:   closedChan(),
	}
}

func (e *EmbeddedEngine) Name() string {
	return "embedded"
}

func (e *EmbeddedEngine) Start(_ context.Context, configPath ConfigPath) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.instance != nil {
		return fmt.Errorf("xray is already running")
	}

	data, err := os.ReadFile(string(configPath))
	if err != nil {
		return fmt.Errorf("config file not found at %s: %w", configPath, err)
	}

	instance, err := startInstance(data)
	if err != nil {
		return err
	}

	e.instance = instance
	e.done = make(chan struct{})
	e.logger.Debug("started embedded xray", zap.String("config", string(configPath)))
	return nil
}

func startInstance(configJSON []byte) (*core.Instance, error) {
	var config conf.Config
	if err := json.Unmarshal(configJSON, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	pbConfig, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	instance, err := core.New(pbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create xray instance: %w", err)
	}

	if err := instance.Start(); err != nil {
		return nil, fmt.Errorf("failed to start xray: %w", err)
	}

	return instance, nil
}

// WaitReady returns once the instance is started; core.Instance.Start only
// returns after every inbound is listening.
func (e *EmbeddedEngine) WaitReady(ctx context.Context) error {
	e.mu.Lock()
	running := e.instance != nil && e.instance.IsRunning()
	e.mu.Unlock()

	if !running {
		return fmt.Errorf("embedded xray is not running: %w", domain.ErrEngineNotReady)
	}
	return ctx.Err()
}

func (e *EmbeddedEngine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

func (e *EmbeddedEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.instance == nil {
		return nil
	}

	err := e.instance.Close()
	e.instance = nil
	close(e.done)
	if err != nil {
		return fmt.Errorf("failed to close xray: %w", err)
	}
	return nil
}
