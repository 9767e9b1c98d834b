package infrastructure

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/caelum0x/hyperliqbot-sub002/internal/config"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/clients"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/stream"
)

// RegisterLifecycle wires application startup and shutdown: bring the stream
// up on start, tear it down on stop.
func RegisterLifecycle(
	lc fx.Lifecycle,
	cfg *config.Config,
	manager *stream.Manager,
	exchange clients.ExchangeClient,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := manager.Start(); err != nil {
				logger.Error("stream startup failed", zap.Error(err))
				return err
			}

			logger.Info("stream service started",
				zap.String("base_url", cfg.Hyperliquid.BaseURL),
				zap.Bool("trading_enabled", exchange.Enabled()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down stream service")

			if err := manager.Close(); err != nil {
				logger.Error("stream shutdown error", zap.Error(err))
			}

			logger.Info("stream service stopped")
			return nil
		},
	})
}
