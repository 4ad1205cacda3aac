package link

import (
	"errors"
	"fmt"

	"axiom-vpn/internal/domain"
	"axiom-vpn/internal/interfaces"

	"go.uber.org/zap"
)

// Importer parses user supplied links and makes the result the current
// profile.
type Importer struct {
	store   interfaces.ProfileStore
	events  interfaces.EventSink
	metrics domain.MetricsCollector
	logger  *zap.Logger
}

func NewImporter(
	store interfaces.ProfileStore,
	events interfaces.EventSink,
	metrics domain.MetricsCollector,
	logger *zap.Logger,
) *Importer {
	return &Importer{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "link")),
	}
}

// Import parses raw and persists the resulting profile. A failed parse
// leaves the current profile untouched.
func (i *Importer) Import(raw string) (*Result, error) {
	result, err := Parse(raw)
	if err != nil {
		i.metrics.RecordLinkParse(string(strategyOf(err)), false)
		i.logger.Debug("link rejected", zap.Error(err))
		i.events.Append("Failed to parse VLESS link. Check format.", domain.SeverityError)
		return nil, err
	}
	i.metrics.RecordLinkParse(string(result.Strategy), true)

	if err := i.store.Save(result.Profile); err != nil {
		i.events.Append("Failed to save configuration.", domain.SeverityError)
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	p := result.Profile
	if result.Strategy == StrategyManual {
		i.events.Append(fmt.Sprintf("Config Parsed (Fallback): %s", p.Address), domain.SeveritySystem)
	} else {
		i.events.Append(fmt.Sprintf("Config Loaded: %s", p.Address), domain.SeveritySystem)
	}
	i.events.Append(fmt.Sprintf("UUID: %s...", prefix(p.Identity, 8)), domain.SeverityInfo)
	i.events.Append(fmt.Sprintf("Key: %s...", prefix(p.PublicKey, 8)), domain.SeverityInfo)

	return result, nil
}

func strategyOf(err error) Strategy {
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) && stageErr.Stage == string(StrategyManual) {
		return StrategyManual
	}
	return StrategyURI
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
