package realtime

import (
	"uppypro/internal/config"

	"go.uber.org/zap"
)

// New builds the publisher selected by cfg.Driver. The hub is nil unless
// the driver is "hub", in which case it also serves /ws.
func New(cfg config.RealtimeConfig, allowedOrigins []string, logger *zap.Logger) (Publisher, *Hub) {
	switch cfg.Driver {
	case "centrifugo":
		logger.Info("realtime: centrifugo", zap.String("url", cfg.CentrifugoURL))
		return NewCentrifugoClient(cfg.CentrifugoURL, cfg.CentrifugoAPIKey, logger), nil
	case "none":
		logger.Info("realtime: disabled")
		return NewNoopPublisher(), nil
	default:
		hub := NewHub(allowedOrigins, logger)
		return hub, hub
	}
}
