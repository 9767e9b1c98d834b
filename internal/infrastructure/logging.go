package infrastructure

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caelum0x/hyperliqbot-sub002/internal/config"
)

// NewLogger builds the application logger from the logging section of the
// config. The json format starts from zap's production preset, console from
// the development preset; both then take this service's level and output
// path.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Logging.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.MessageKey = "message"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(cfg.Logging.ZapLevel())
	if cfg.Logging.OutputPath != "" {
		zapCfg.OutputPaths = []string{cfg.Logging.OutputPath}
	}

	return zapCfg.Build()
}
