package xray

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"axiom-vpn/internal/config"
	"axiom-vpn/internal/domain"
	"axiom-vpn/internal/eventlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBinary writes a shell script standing in for the xray executable.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "xray")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func writeTestConfig(t *testing.T) ConfigPath {
	t.Helper()
	cfg, err := testSynthesizer(false).Synthesize(testProfile())
	require.NoError(t, err)
	path := ConfigPath(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, WriteConfig(path, cfg))
	return path
}

// listenerBinary stands in for an xray child that binds addr itself. The
// script re-executes the test binary into TestHelperListener.
func listenerBinary(t *testing.T, addr string) string {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)
	return fakeBinary(t, fmt.Sprintf("export %s=%s\nexec '%s' -test.run='^TestHelperListener$'",
		helperAddrEnv, addr, self))
}

const helperAddrEnv = "AXIOM_XRAY_HELPER_ADDR"

// TestHelperListener is not a real test. It runs as the child process for
// listenerBinary and holds the inbound port until it is signalled.
func TestHelperListener(t *testing.T) {
	addr := os.Getenv(helperAddrEnv)
	if addr == "" {
		t.Skip("helper process only")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		os.Exit(3)
	}
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			os.Exit(0)
		}
		conn.Close()
	}
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestProcessEngine_ReadyAndStop(t *testing.T) {
	addr := closedAddr(t)
	engine := NewProcessEngine(listenerBinary(t, addr), addr, zap.NewNop())
	require.NoError(t, engine.Start(context.Background(), writeTestConfig(t)))
	assert.True(t, engine.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, engine.WaitReady(ctx))

	require.NoError(t, engine.Stop())
	select {
	case <-engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after Stop")
	}
	assert.False(t, engine.IsRunning())

	// A second stop is a no-op.
	assert.NoError(t, engine.Stop())
}

func TestProcessEngine_ExitBeforeReady(t *testing.T) {
	engine := NewProcessEngine(fakeBinary(t, "exit 1"), closedAddr(t), zap.NewNop())
	require.NoError(t, engine.Start(context.Background(), writeTestConfig(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := engine.WaitReady(ctx)
	assert.ErrorIs(t, err, domain.ErrEngineNotReady)

	select {
	case <-engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after exit")
	}
}

func TestProcessEngine_InboundPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	engine := NewProcessEngine(fakeBinary(t, "exec sleep 30"), ln.Addr().String(), zap.NewNop())
	err = engine.Start(context.Background(), writeTestConfig(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineStartFailure)
	assert.Contains(t, err.Error(), "already in use")
	assert.False(t, engine.IsRunning())
}

func TestProcessEngine_ForeignListenerIsNotReadiness(t *testing.T) {
	addr := closedAddr(t)
	engine := NewProcessEngine(fakeBinary(t, "sleep 0.1\nexit 23"), addr, zap.NewNop())
	engine.confirmWait = time.Second
	require.NoError(t, engine.Start(context.Background(), writeTestConfig(t)))

	// Another program takes the port after the child was launched.
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = engine.WaitReady(ctx)
	assert.ErrorIs(t, err, domain.ErrEngineNotReady)
}

func TestProcessEngine_ReadinessTimeout(t *testing.T) {
	engine := NewProcessEngine(fakeBinary(t, "exec sleep 30"), closedAddr(t), zap.NewNop())
	require.NoError(t, engine.Start(context.Background(), writeTestConfig(t)))
	defer engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := engine.WaitReady(ctx)
	assert.ErrorIs(t, err, domain.ErrEngineNotReady)
}

func TestProcessEngine_StartErrors(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		engine := NewProcessEngine(filepath.Join(t.TempDir(), "absent"), closedAddr(t), zap.NewNop())
		assert.Error(t, engine.Start(context.Background(), writeTestConfig(t)))
	})

	t.Run("missing config", func(t *testing.T) {
		engine := NewProcessEngine(fakeBinary(t, "exit 0"), closedAddr(t), zap.NewNop())
		err := engine.Start(context.Background(), ConfigPath(filepath.Join(t.TempDir(), "absent.json")))
		assert.Error(t, err)
	})
}

func TestProcessEngine_DoneBeforeStart(t *testing.T) {
	engine := NewProcessEngine("xray", closedAddr(t), zap.NewNop())
	select {
	case <-engine.Done():
	default:
		t.Fatal("Done should be closed before the first start")
	}
	assert.NoError(t, engine.Stop())
}

func TestSimulatedEngine(t *testing.T) {
	events := eventlog.New(nil, zap.NewNop())
	engine := NewSimulatedEngine(events, zap.NewNop())
	assert.Equal(t, "simulated", engine.Name())

	require.NoError(t, engine.Start(context.Background(), "config.json"))
	assert.Error(t, engine.Start(context.Background(), "config.json"))
	require.NoError(t, engine.WaitReady(context.Background()))

	entries := events.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "Simulation Mode Active", entries[0].Message)
	assert.Equal(t, domain.SeverityWarn, entries[0].Severity)

	done := engine.Done()
	select {
	case <-done:
		t.Fatal("Done closed while running")
	default:
	}

	engine.Crash()
	<-done
	assert.ErrorIs(t, engine.WaitReady(context.Background()), domain.ErrEngineNotReady)
	assert.NoError(t, engine.Stop())
}

func TestEmbeddedEngine_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"inbounds": [`), 0600))

	engine := NewEmbeddedEngine(zap.NewNop())
	assert.Error(t, engine.Start(context.Background(), ConfigPath(path)))
	assert.ErrorIs(t, engine.WaitReady(context.Background()), domain.ErrEngineNotReady)
	assert.NoError(t, engine.Stop())
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		mode     string
		expected string
		wantErr  bool
	}{
		{mode: config.EngineModeProcess, expected: "process"},
		{mode: config.EngineModeEmbedded, expected: "embedded"},
		{mode: config.EngineModeSimulated, expected: "simulated"},
		{mode: "magic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &config.Config{Engine: config.Engine{Mode: tt.mode, Binary: "xray"}}
			engine, err := NewEngine(cfg, eventlog.New(nil, zap.NewNop()), zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, engine.Name())
		})
	}
}
