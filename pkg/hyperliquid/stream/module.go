package stream

import (
	"go.uber.org/fx"

	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/connection"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/performance"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/security"
)

// NewRateLimiter creates the inbound rate limiter from stream settings.
func NewRateLimiter(cfg Config) security.RateLimiter {
	cfg.ApplyDefaults()
	return security.NewRateLimiter(cfg.RateLimitCapacity, cfg.RateLimitRefill)
}

// NewValidationConfig describes the structural rules for inbound frames.
// AllowedChannels stays open so unrecognized channels reach the catch-all
// message variant instead of being rejected at the door.
func NewValidationConfig(cfg Config) security.ValidationConfig {
	cfg.ApplyDefaults()
	return security.ValidationConfig{
		MaxMessageSize: int(cfg.Dial.MaxMessageSize),
		ChannelField:   "channel",
	}
}

// NewMessageValidator creates the inbound message validator.
func NewMessageValidator(valConfig security.ValidationConfig) security.MessageValidator {
	return security.NewMessageValidator(valConfig)
}

// NewMetrics creates the stream metrics counters.
func NewMetrics() performance.Metrics {
	return performance.NewMetrics()
}

// NewDialer creates the production gorilla-backed dialer.
func NewDialer(cfg Config) connection.Dialer {
	cfg.ApplyDefaults()
	return connection.NewGorillaDialer(cfg.Dial)
}

// Module provides the stream manager and its collaborators. The application
// supplies Config plus the info/exchange clients.
var Module = fx.Module("hyperliquid_stream",
	fx.Provide(
		NewRateLimiter,
		NewValidationConfig,
		NewMessageValidator,
		NewMetrics,
		NewDialer,
		NewManager,
	),
)
