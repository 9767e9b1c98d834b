package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/caelum0x/hyperliqbot-sub002/internal/config"
	"github.com/caelum0x/hyperliqbot-sub002/internal/infrastructure"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/clients"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/stream"
)

// NewRunCmd creates the run command: the long-lived streaming service.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the streaming service until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				fx.Provide(
					config.LoadConfig,
					func(cfg *config.Config) stream.Config {
						return cfg.StreamConfig()
					},
					func(cfg *config.Config) clients.Config {
						return cfg.ClientsConfig()
					},
				),
				infrastructure.Module,
				clients.Module,
				stream.Module,
			).Run()
			return nil
		},
	}
}
