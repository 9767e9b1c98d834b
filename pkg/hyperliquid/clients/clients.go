package clients

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sonirico/go-hyperliquid"
)

// ErrTradingDisabled is returned by Exchange when the service runs without a
// signing key, which is the normal mode for a pure market-data deployment.
var ErrTradingDisabled = errors.New("clients: trading disabled, no private key configured")

// Config carries the REST endpoint and the optional signing identity.
type Config struct {
	BaseURL        string
	PrivateKey     string
	VaultAddress   string
	AccountAddress string
}

// InfoClient is the market-data query capability. The stream manager holds
// it as a pass-through for callers that pair REST queries with the stream;
// the manager itself never invokes it.
type InfoClient interface {
	Info() (*hyperliquid.Info, error)
}

// ExchangeClient is the order-placement capability, likewise a pass-through.
// Construction always succeeds; Exchange reports trading disabled when no
// key was configured.
type ExchangeClient interface {
	Enabled() bool
	Exchange() (*hyperliquid.Exchange, error)
}

type infoClient struct {
	baseURL string

	once sync.Once
	info *hyperliquid.Info
}

// NewInfoClient binds a query client to the configured endpoint. The SDK
// client is built on first use.
func NewInfoClient(cfg Config) InfoClient {
	return &infoClient{baseURL: cfg.BaseURL}
}

func (c *infoClient) Info() (*hyperliquid.Info, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("clients: no base URL configured")
	}
	c.once.Do(func() {
		c.info = hyperliquid.NewInfo(c.baseURL, true, nil, nil)
	})
	return c.info, nil
}

type exchangeClient struct {
	cfg Config

	once     sync.Once
	exchange *hyperliquid.Exchange
	err      error
}

// NewExchangeClient binds the signing identity from the config. The key is
// parsed and the SDK client built on first use, so a market-data-only
// deployment never touches the signing path.
func NewExchangeClient(cfg Config) ExchangeClient {
	return &exchangeClient{cfg: cfg}
}

func (c *exchangeClient) Enabled() bool {
	return c.cfg.PrivateKey != ""
}

func (c *exchangeClient) Exchange() (*hyperliquid.Exchange, error) {
	if !c.Enabled() {
		return nil, ErrTradingDisabled
	}

	c.once.Do(func() {
		key, err := crypto.HexToECDSA(c.cfg.PrivateKey)
		if err != nil {
			c.err = fmt.Errorf("clients: invalid private key: %w", err)
			return
		}
		c.exchange = hyperliquid.NewExchange(
			key,
			c.cfg.BaseURL,
			nil, // Meta will be fetched automatically
			c.cfg.VaultAddress,
			c.cfg.AccountAddress,
			nil, // SpotMeta will be fetched automatically
		)
	})

	if c.err != nil {
		return nil, c.err
	}
	return c.exchange, nil
}
