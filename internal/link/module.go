package link

import (
	"axiom-vpn/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(NewImporter),
	fx.Invoke(importInitialLink),
)

// importInitialLink seeds the profile store from the link configured in the
// settings file, if any. A bad link is logged and otherwise ignored so the
// user can still supply one through the control API.
func importInitialLink(cfg *config.Config, importer *Importer, logger *zap.Logger) {
	if cfg.Link == "" {
		return
	}
	if _, err := importer.Import(cfg.Link); err != nil {
		logger.Warn("configured link could not be imported", zap.Error(err))
	}
}
