package stream

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/connection"
)

// Config holds stream manager settings. BaseURL is the HTTP(S) API endpoint;
// the streaming endpoint is derived from it by scheme substitution.
type Config struct {
	BaseURL     string `mapstructure:"base_url" validate:"required,url"`
	UserAddress string `mapstructure:"user_address"`

	// ConnectionTimeout bounds both the listener receive and the idle time
	// after which the monitor declares the connection dead.
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	// PingInterval is the idle time after which a keepalive is sent.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// MonitorInterval is the liveness poll period.
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`

	QueueCapacity        int `mapstructure:"queue_capacity"`
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts"`
	// BackoffBase scales the 2^attempt reconnect delay.
	BackoffBase time.Duration `mapstructure:"backoff_base"`

	RateLimitCapacity int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefill   time.Duration `mapstructure:"rate_limit_refill"`

	Dial connection.DialConfig `mapstructure:"dial"`
}

// DefaultConfig returns the stream defaults for the given API base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:              baseURL,
		ConnectionTimeout:    60 * time.Second,
		PingInterval:         30 * time.Second,
		MonitorInterval:      10 * time.Second,
		QueueCapacity:        1000,
		MaxReconnectAttempts: 5,
		BackoffBase:          time.Second,
		RateLimitCapacity:    10000,
		RateLimitRefill:      time.Second,
		Dial:                 connection.DefaultDialConfig(),
	}
}

// ApplyDefaults fills in missing values with defaults
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig(c.BaseURL)

	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = defaults.ConnectionTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = defaults.PingInterval
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = defaults.MonitorInterval
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = defaults.QueueCapacity
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = defaults.BackoffBase
	}
	if c.RateLimitCapacity == 0 {
		c.RateLimitCapacity = defaults.RateLimitCapacity
	}
	if c.RateLimitRefill == 0 {
		c.RateLimitRefill = defaults.RateLimitRefill
	}
	c.Dial.ApplyDefaults()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := c.StreamURL(); err != nil {
		return err
	}

	if c.PingInterval >= c.ConnectionTimeout {
		return fmt.Errorf("ping interval must be shorter than connection timeout")
	}

	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}

	if c.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("max reconnect attempts must be positive")
	}

	return c.Dial.Validate()
}

// StreamURL derives the WebSocket endpoint from BaseURL by scheme
// substitution: https -> wss, http -> ws, path /ws.
func (c *Config) StreamURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "wss", "ws":
		// already a streaming URL
	default:
		return "", fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}

	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}

	return u.String(), nil
}
