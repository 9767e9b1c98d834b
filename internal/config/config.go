package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/clients"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/stream"
)

// Config represents the application configuration
type Config struct {
	Hyperliquid HyperliquidConfig `mapstructure:"hyperliquid"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// HyperliquidConfig holds exchange endpoint and account settings.
type HyperliquidConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	AccountAddress string `mapstructure:"account_address"`
	PrivateKey     string `mapstructure:"private_key"`
	VaultAddress   string `mapstructure:"vault_address"`
}

// StreamConfig holds stream manager tunables.
type StreamConfig struct {
	ConnectionTimeout    time.Duration `mapstructure:"connection_timeout"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
	MonitorInterval      time.Duration `mapstructure:"monitor_interval"`
	QueueCapacity        int           `mapstructure:"queue_capacity"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	OutputPath string `mapstructure:"output_path"`
}

// ZapLevel maps the configured level name onto a zap level. Unknown names
// fall back to info; validateConfig rejects them before this is consulted.
func (c LoggingConfig) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HLBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("hyperliquid.base_url", "https://api.hyperliquid.xyz")
	// Registered empty so AutomaticEnv picks the keys up during Unmarshal.
	v.SetDefault("hyperliquid.account_address", "")
	v.SetDefault("hyperliquid.private_key", "")
	v.SetDefault("hyperliquid.vault_address", "")

	v.SetDefault("stream.connection_timeout", 60*time.Second)
	v.SetDefault("stream.ping_interval", 30*time.Second)
	v.SetDefault("stream.monitor_interval", 10*time.Second)
	v.SetDefault("stream.queue_capacity", 1000)
	v.SetDefault("stream.max_reconnect_attempts", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Hyperliquid.BaseURL == "" {
		return fmt.Errorf("hyperliquid base URL is required")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[config.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", config.Logging.Level)
	}

	streamCfg := config.StreamConfig()
	if err := streamCfg.Validate(); err != nil {
		return fmt.Errorf("invalid stream configuration: %w", err)
	}

	return nil
}

// ClientsConfig extracts the endpoint and signing identity for the API
// clients.
func (c *Config) ClientsConfig() clients.Config {
	return clients.Config{
		BaseURL:        c.Hyperliquid.BaseURL,
		PrivateKey:     c.Hyperliquid.PrivateKey,
		VaultAddress:   c.Hyperliquid.VaultAddress,
		AccountAddress: c.Hyperliquid.AccountAddress,
	}
}

// StreamConfig translates the application configuration into the stream
// manager's own config type.
func (c *Config) StreamConfig() stream.Config {
	cfg := stream.DefaultConfig(c.Hyperliquid.BaseURL)
	cfg.UserAddress = c.Hyperliquid.AccountAddress

	if c.Stream.ConnectionTimeout > 0 {
		cfg.ConnectionTimeout = c.Stream.ConnectionTimeout
	}
	if c.Stream.PingInterval > 0 {
		cfg.PingInterval = c.Stream.PingInterval
	}
	if c.Stream.MonitorInterval > 0 {
		cfg.MonitorInterval = c.Stream.MonitorInterval
	}
	if c.Stream.QueueCapacity > 0 {
		cfg.QueueCapacity = c.Stream.QueueCapacity
	}
	if c.Stream.MaxReconnectAttempts > 0 {
		cfg.MaxReconnectAttempts = c.Stream.MaxReconnectAttempts
	}

	return cfg
}
