package tunnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"axiom-vpn/internal/capture"
	"axiom-vpn/internal/config"
	"axiom-vpn/internal/domain"
	"axiom-vpn/internal/interfaces"
	"axiom-vpn/internal/xray"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Start failure stages, also used as metric labels.
const (
	StageSynthesize = "synthesize"
	StageConfig     = "config"
	StageCapture    = "capture"
	StageEngine     = "engine"
	StageReadiness  = "ready"
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdToggle
)

type command struct {
	kind    commandKind
	profile domain.ConnectionProfile
	reply   chan error
}

// Supervisor owns the tunnel session: its state, the capture interface and
// the engine. All transitions happen on a single goroutine that applies
// commands in arrival order.
type Supervisor struct {
	synth        *xray.Synthesizer
	engine       xray.Engine
	capture      capture.Provider
	events       interfaces.EventSink
	store        interfaces.ProfileStore
	metrics      domain.MetricsCollector
	logger       *zap.Logger
	configPath   xray.ConfigPath
	startTimeout time.Duration

	state    *atomic.Int32
	commands chan command
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}

	// Owned by the loop goroutine.
	handle     capture.Handle
	engineDone <-chan struct{}
}

func NewSupervisor(
	cfg *config.Config,
	synth *xray.Synthesizer,
	engine xray.Engine,
	provider capture.Provider,
	events interfaces.EventSink,
	store interfaces.ProfileStore,
	metrics domain.MetricsCollector,
	logger *zap.Logger,
) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		synth:        synth,
		engine:       engine,
		capture:      provider,
		events:       events,
		store:        store,
		metrics:      metrics,
		logger:       logger.With(zap.String("component", "tunnel")),
		configPath:   xray.ConfigPath(cfg.EngineConfigPath()),
		startTimeout: cfg.Engine.StartTimeoutDuration(),
		state:        atomic.NewInt32(int32(domain.StateIdle)),
		commands:     make(chan command),
		ctx:          ctx,
		cancel:       cancel,
		loopDone:     make(chan struct{}),
	}

	go s.loop()
	return s
}

// State returns the detailed session state.
func (s *Supervisor) State() domain.TunnelState {
	return domain.TunnelState(s.state.Load())
}

// Status reports CONNECTED only while the tunnel is Active.
func (s *Supervisor) Status() string {
	if s.State() == domain.StateActive {
		return domain.StatusConnected
	}
	return domain.StatusDisconnected
}

// Start brings the tunnel up for profile and returns once the attempt has
// resolved to Active or Failed.
func (s *Supervisor) Start(ctx context.Context, profile domain.ConnectionProfile) error {
	switch s.State() {
	case domain.StateStarting, domain.StateActive:
		return domain.ErrTunnelBusy
	}
	return s.submit(ctx, command{kind: cmdStart, profile: profile})
}

// Stop tears the tunnel down. Teardown failures are logged, never returned;
// the only errors are ctx expiring or the supervisor being closed.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.submit(ctx, command{kind: cmdStop})
}

// Toggle stops an active tunnel, otherwise starts one from the stored
// profile.
func (s *Supervisor) Toggle(ctx context.Context) error {
	return s.submit(ctx, command{kind: cmdToggle})
}

// Close tears down any running session and stops the command loop.
func (s *Supervisor) Close() {
	s.cancel()
	<-s.loopDone
}

func (s *Supervisor) submit(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loopDone:
		return errors.New("tunnel supervisor is closed")
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) loop() {
	defer close(s.loopDone)

	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- s.apply(cmd)
		case <-s.engineDone:
			s.onEngineExit()
		case <-s.ctx.Done():
			s.doStop()
			return
		}
	}
}

func (s *Supervisor) apply(cmd command) error {
	switch cmd.kind {
	case cmdStart:
		return s.doStart(cmd.profile)
	case cmdStop:
		s.doStop()
		return nil
	case cmdToggle:
		if s.State() == domain.StateActive {
			s.doStop()
			return nil
		}
		profile, _ := s.store.Current()
		return s.doStart(profile)
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
}

func (s *Supervisor) doStart(profile domain.ConnectionProfile) error {
	if s.State() == domain.StateActive {
		return domain.ErrTunnelBusy
	}

	if !profile.Startable() {
		s.events.Append("Configuration Missing!", domain.SeverityError)
		return domain.ErrConfigurationMissing
	}

	s.transition(domain.StateStarting)
	s.events.Append("Injecting Reality Protocol...", domain.SeveritySystem)
	s.events.Append("Target: "+profile.Target(), domain.SeverityInfo)

	if err := s.bringUp(profile); err != nil {
		s.fail(err)
		return err
	}

	s.engineDone = s.engine.Done()
	s.transition(domain.StateActive)
	s.events.Append("Camouflage: "+profile.CamouflageDomain, domain.SeveritySystem)
	s.events.Append("Secure Tunnel Established.", domain.SeveritySystem)
	return nil
}

// bringUp runs the start sequence. On error everything acquired so far has
// been released.
func (s *Supervisor) bringUp(profile domain.ConnectionProfile) error {
	doc, err := s.synth.Synthesize(profile)
	if err != nil {
		return domain.NewStageError(StageSynthesize, "failed to synthesize engine config",
			fmt.Errorf("%w: %w", domain.ErrEngineStartFailure, err))
	}

	if err := xray.WriteConfig(s.configPath, doc); err != nil {
		return domain.NewStageError(StageConfig, "failed to write engine config",
			fmt.Errorf("%w: %w", domain.ErrEngineStartFailure, err))
	}

	handle, err := s.capture.Acquire(s.ctx)
	if err != nil {
		return domain.NewStageError(StageCapture, "failed to acquire capture interface",
			fmt.Errorf("%w: %w", domain.ErrInterfaceAcquisitionFailure, err))
	}
	s.handle = handle

	if err := s.engine.Start(s.ctx, s.configPath); err != nil {
		s.release()
		return domain.NewStageError(StageEngine, "failed to start engine",
			fmt.Errorf("%w: %w", domain.ErrEngineStartFailure, err))
	}

	readyCtx, cancel := context.WithTimeout(s.ctx, s.startTimeout)
	defer cancel()

	if err := s.engine.WaitReady(readyCtx); err != nil {
		s.stopEngine()
		s.release()
		return domain.NewStageError(StageReadiness, "engine did not become ready",
			fmt.Errorf("%w: %w", domain.ErrEngineNotReady, err))
	}

	return nil
}

func (s *Supervisor) fail(err error) {
	stage := "unknown"
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	s.logger.Error("tunnel start failed", zap.String("stage", stage), zap.Error(err))
	s.metrics.RecordStartFailure(stage)
	s.events.Append("Tunnel Start Failed: "+errorSummary(err), domain.SeverityError)
	s.transition(domain.StateFailed)
}

func (s *Supervisor) doStop() {
	switch s.State() {
	case domain.StateIdle:
		return
	case domain.StateFailed:
		s.transition(domain.StateIdle)
		return
	}

	s.transition(domain.StateStopping)
	s.engineDone = nil
	s.stopEngine()
	s.release()
	s.events.Append("VPN Core Stopped", domain.SeverityWarn)
	s.transition(domain.StateIdle)
}

func (s *Supervisor) onEngineExit() {
	s.engineDone = nil
	if s.State() != domain.StateActive {
		return
	}

	s.logger.Error("engine exited unexpectedly", zap.String("engine", s.engine.Name()))
	s.stopEngine()
	s.release()
	s.events.Append("VPN Core Crashed", domain.SeverityError)
	s.transition(domain.StateFailed)
}

// stopEngine is best effort; a failing stop never blocks the release of the
// capture interface.
func (s *Supervisor) stopEngine() {
	if err := s.engine.Stop(); err != nil {
		s.logger.Warn("engine stop failed", zap.Error(err))
	}
}

func (s *Supervisor) release() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.logger.Warn("failed to release capture interface", zap.Error(err))
	}
	s.handle = nil
}

func (s *Supervisor) transition(to domain.TunnelState) {
	from := domain.TunnelState(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.logger.Debug("tunnel state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	s.metrics.RecordTransition(from, to)
}

func errorSummary(err error) string {
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Message
	}
	return err.Error()
}
