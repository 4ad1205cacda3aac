package xray

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"axiom-vpn/internal/domain"

	"go.uber.org/zap"
)

const (
	readyPollInterval = 200 * time.Millisecond
	readyDialTimeout  = 500 * time.Millisecond
	stopGracePeriod   = 5 * time.Second
)

// ProcessEngine runs the engine as a child process: <binary> run -c <config>.
type ProcessEngine struct {
	binary    string
	readyAddr string
	cmd       *exec.Cmd
	logger    *zap.Logger
	mutex     sync.Mutex
	stopped   bool
	waitDone  chan struct{}

	// How long the child must outlive a successful readiness dial.
	confirmWait time.Duration
}

// NewProcessEngine creates an engine that is considered ready once readyAddr
// accepts TCP connections.
func NewProcessEngine(binary, readyAddr string, logger *zap.Logger) *ProcessEngine {
	return &ProcessEngine{
		binary:    binary,
		readyAddr: readyAddr,
		logger:    logger,
		waitDone:  closedChan(),

		confirmWait: readyPollInterval,
	}
}

func (r *ProcessEngine) Name() string {
	return "process"
}

func (r *ProcessEngine) Start(ctx context.Context, configPath ConfigPath) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.isRunning() {
		return fmt.Errorf("xray is already running")
	}

	binary, err := exec.LookPath(r.binary)
	if err != nil {
		return fmt.Errorf("xray executable %q not found: %w", r.binary, err)
	}

	// Validate config file exists
	if _, err := os.Stat(string(configPath)); err != nil {
		return fmt.Errorf("config file not found at %s: %w", configPath, err)
	}

	// A listener already on the inbound port would answer readiness checks
	// for a child that cannot bind it.
	if conn, err := net.DialTimeout("tcp", r.readyAddr, readyDialTimeout); err == nil {
		conn.Close()
		return fmt.Errorf("inbound port %s already in use: %w", r.readyAddr, domain.ErrEngineStartFailure)
	}

	cmd := exec.Command(binary, "run", "-c", string(configPath))
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: runtime.GOOS != "windows",
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start xray: %w", err)
	}

	r.cmd = cmd
	r.stopped = false
	waitDone := make(chan struct{})
	r.waitDone = waitDone

	r.logger.Debug("started xray process",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("config", string(configPath)))

	go r.monitorOutput(stdout, "stdout")
	go r.monitorOutput(stderr, "stderr")

	go func() {
		defer close(waitDone)

		err := cmd.Wait()

		r.mutex.Lock()
		stopped := r.stopped
		if r.cmd == cmd {
			r.cmd = nil
		}
		r.mutex.Unlock()

		switch {
		case err == nil:
			r.logger.Info("xray process exited normally")
		case stopped:
			r.logger.Debug("xray process exited", zap.Error(err))
		default:
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				r.logger.Error("xray process exited with error",
					zap.Error(err),
					zap.Int("exit_code", exitErr.ExitCode()))
			} else {
				r.logger.Error("failed to wait for xray process", zap.Error(err))
			}
		}
	}()

	return nil
}

// WaitReady polls the inbound listener until it accepts a connection and
// the process is still alive confirmWait later. It fails when the process
// exits or ctx expires first.
func (r *ProcessEngine) WaitReady(ctx context.Context) error {
	done := r.Done()
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	dialer := net.Dialer{Timeout: readyDialTimeout}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", r.readyAddr)
		if err == nil {
			conn.Close()
			return r.confirmAlive(ctx, done)
		}

		select {
		case <-done:
			return fmt.Errorf("xray exited before becoming ready: %w", domain.ErrEngineNotReady)
		case <-ctx.Done():
			return fmt.Errorf("xray not ready on %s: %w", r.readyAddr, domain.ErrEngineNotReady)
		case <-ticker.C:
		}
	}
}

func (r *ProcessEngine) confirmAlive(ctx context.Context, done <-chan struct{}) error {
	timer := time.NewTimer(r.confirmWait)
	defer timer.Stop()

	select {
	case <-done:
		return fmt.Errorf("xray exited after %s answered: %w", r.readyAddr, domain.ErrEngineNotReady)
	case <-ctx.Done():
		return fmt.Errorf("xray not ready on %s: %w", r.readyAddr, domain.ErrEngineNotReady)
	case <-timer.C:
		return nil
	}
}

func (r *ProcessEngine) Done() <-chan struct{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.waitDone
}

func (r *ProcessEngine) Stop() error {
	r.mutex.Lock()
	if !r.isRunning() {
		r.mutex.Unlock()
		return nil
	}
	r.stopped = true
	cmd := r.cmd
	waitDone := r.waitDone
	r.mutex.Unlock()

	// Try graceful shutdown first
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		r.logger.Warn("failed to send SIGTERM to xray process", zap.Error(err))
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill xray process: %w", err)
		}
	}

	select {
	case <-waitDone:
		return nil
	case <-time.After(stopGracePeriod):
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to force kill xray process: %w", err)
		}
		<-waitDone
	}

	return nil
}

// IsRunning reports whether the child process is alive.
func (r *ProcessEngine) IsRunning() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.isRunning()
}

func (r *ProcessEngine) isRunning() bool {
	if r.cmd == nil || r.cmd.Process == nil {
		return false
	}

	// Check if process exists and can receive signals
	if err := r.cmd.Process.Signal(syscall.Signal(0)); err != nil {
		return false
	}

	return true
}

func (r *ProcessEngine) monitorOutput(pipe io.ReadCloser, name string) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			r.logger.Debug("xray output",
				zap.String("pipe", name),
				zap.String("message", line))
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Error("error reading xray output",
			zap.String("pipe", name),
			zap.Error(err))
	}
}
