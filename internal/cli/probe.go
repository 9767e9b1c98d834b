package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caelum0x/hyperliqbot-sub002/internal/config"
	"github.com/caelum0x/hyperliqbot-sub002/internal/infrastructure"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/stream"
)

// NewProbeCmd creates the probe command: connect once, disconnect, report.
func NewProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Test connectivity to the streaming endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			logger, err := infrastructure.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			streamCfg := cfg.StreamConfig()
			manager, err := stream.NewManager(
				streamCfg,
				stream.NewDialer(streamCfg),
				logger,
				stream.NewRateLimiter(streamCfg),
				stream.NewMessageValidator(stream.NewValidationConfig(streamCfg)),
				stream.NewMetrics(),
				nil,
				nil,
			)
			if err != nil {
				return err
			}
			defer manager.Close()

			if !manager.TestConnection() {
				return fmt.Errorf("streaming endpoint unreachable")
			}

			fmt.Println("streaming endpoint reachable")
			return nil
		},
	}
}
