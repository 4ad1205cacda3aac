package metrics

import (
	"axiom-vpn/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the metrics collector
var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(NewCollector),
	fx.Provide(func(c *Collector) domain.MetricsCollector { return c }),
)

type Collector struct {
	logger        *zap.Logger
	tunnelState   *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	startFailures *prometheus.CounterVec
	linkParses    *prometheus.CounterVec
	logEntries    *prometheus.CounterVec
}

// NewRegistry returns the registry shared by the collector and the /metrics
// handler.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewCollector(reg *prometheus.Registry, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
		tunnelState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "axiom_tunnel_state",
				Help: "Current tunnel state (1 for the active state label, 0 otherwise)",
			},
			[]string{"state"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_tunnel_transitions_total",
				Help: "Total number of tunnel state transitions",
			},
			[]string{"from", "to"},
		),
		startFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_tunnel_start_failures_total",
				Help: "Total number of failed tunnel starts by stage",
			},
			[]string{"stage"},
		),
		linkParses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_link_parses_total",
				Help: "Total number of VLESS link parses by strategy and result",
			},
			[]string{"strategy", "result"},
		),
		logEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_event_log_entries_total",
				Help: "Total number of event log entries by severity",
			},
			[]string{"severity"},
		),
	}

	c.setState(domain.StateIdle)
	return c
}

func (c *Collector) RecordTransition(from, to domain.TunnelState) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
	c.setState(to)
	c.logger.Debug("tunnel transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()))
}

func (c *Collector) RecordStartFailure(stage string) {
	c.startFailures.WithLabelValues(stage).Inc()
}

func (c *Collector) RecordLinkParse(strategy string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.linkParses.WithLabelValues(strategy, result).Inc()
}

func (c *Collector) RecordLogEntry(severity domain.Severity) {
	c.logEntries.WithLabelValues(string(severity)).Inc()
}

func (c *Collector) setState(current domain.TunnelState) {
	for _, s := range domain.TunnelStates {
		value := 0.0
		if s == current {
			value = 1
		}
		c.tunnelState.WithLabelValues(s.String()).Set(value)
	}
}
