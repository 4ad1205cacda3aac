package domain

type MetricsCollector interface {
	RecordTransition(from, to TunnelState)
	RecordStartFailure(stage string)
	RecordLinkParse(strategy string, ok bool)
	RecordLogEntry(severity Severity)
}
