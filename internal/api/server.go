package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"axiom-vpn/internal/config"
	"axiom-vpn/internal/domain"
	"axiom-vpn/internal/interfaces"
	"axiom-vpn/internal/link"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// LinkImporter turns a pasted link into the current profile.
type LinkImporter interface {
	Import(raw string) (*link.Result, error)
}

// LogSource exposes the event log to readers.
type LogSource interface {
	Snapshot() []domain.LogEntry
	Subscribe() (<-chan domain.LogEntry, func())
}

// Server is the local control surface used by the user interface.
type Server struct {
	listen   string
	importer LinkImporter
	store    interfaces.ProfileStore
	tunnel   interfaces.TunnelController
	logs     LogSource
	events   interfaces.EventSink
	registry *prometheus.Registry
	logger   *zap.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
	stopping chan struct{}
	serveErr error
}

func NewServer(
	cfg *config.Config,
	importer LinkImporter,
	store interfaces.ProfileStore,
	tunnel interfaces.TunnelController,
	logs LogSource,
	events interfaces.EventSink,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	return &Server{
		listen:   cfg.API.Listen,
		importer: importer,
		store:    store,
		tunnel:   tunnel,
		logs:     logs,
		events:   events,
		registry: registry,
		logger:   logger.With(zap.String("component", "api")),
	}
}

// Handler returns the routed control surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/link", s.handleImportLink)
	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handlePutProfile)
	mux.HandleFunc("POST /api/tunnel/start", s.handleStart)
	mux.HandleFunc("POST /api/tunnel/stop", s.handleStop)
	mux.HandleFunc("POST /api/tunnel/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/logs/stream", s.handleLogStream)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopping := make(chan struct{})
	srv.RegisterOnShutdown(func() { close(stopping) })

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.done = make(chan struct{})
	s.stopping = stopping
	done := s.done
	s.mu.Unlock()

	s.logger.Info("control API listening", zap.String("addr", ln.Addr().String()))

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control API stopped", zap.Error(err))
			s.mu.Lock()
			s.serveErr = err
			s.mu.Unlock()
		}
	}()

	return nil
}

// shutdownSignal is closed when the server begins shutting down. Hijacked
// connections watch it since Shutdown does not track them.
func (s *Server) shutdownSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down control API: %w", err)
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}
