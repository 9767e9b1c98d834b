package clients

import "go.uber.org/fx"

// Module provides the lazily configured Hyperliquid API clients.
var Module = fx.Module("hyperliquid_clients",
	fx.Provide(
		NewInfoClient,
		NewExchangeClient,
	),
)
