package connection

import (
	"fmt"
	"time"
)

// DialConfig holds transport-level WebSocket settings.
type DialConfig struct {
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	HandshakeTimeout time.Duration `json:"handshake_timeout"`

	ReadBufferSize  int   `json:"read_buffer_size"`
	WriteBufferSize int   `json:"write_buffer_size"`
	MaxMessageSize  int64 `json:"max_message_size"`

	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultDialConfig returns transport settings suitable for exchange streams.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		ConnectTimeout:   30 * time.Second,
		HandshakeTimeout: 45 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		MaxMessageSize:   1024 * 1024, // 1MB
		WriteTimeout:     10 * time.Second,
	}
}

// Validate checks if the configuration is valid
func (c *DialConfig) Validate() error {
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}

	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read buffer size must be positive")
	}

	if c.WriteBufferSize <= 0 {
		return fmt.Errorf("write buffer size must be positive")
	}

	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive")
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	return nil
}

// ApplyDefaults fills in missing values with defaults
func (c *DialConfig) ApplyDefaults() {
	defaults := DefaultDialConfig()

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaults.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = defaults.WriteBufferSize
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
}
