package security

import (
	"encoding/json"
	"fmt"
)

// ValidationConfig describes the structural rules applied to inbound frames.
type ValidationConfig struct {
	MaxMessageSize  int
	AllowedChannels map[string]bool
	// ChannelField is the JSON field carrying the message discriminator.
	// Hyperliquid uses "channel".
	ChannelField string
}

type messageValidator struct {
	config ValidationConfig
}

func NewMessageValidator(config ValidationConfig) MessageValidator {
	return &messageValidator{config: config}
}

func (mv *messageValidator) ValidateMessage(message []byte) error {
	if mv.config.MaxMessageSize > 0 && len(message) > mv.config.MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max: %d)",
			len(message), mv.config.MaxMessageSize)
	}

	var baseMsg map[string]json.RawMessage
	if err := json.Unmarshal(message, &baseMsg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	channelField := mv.config.ChannelField
	if channelField == "" {
		channelField = "channel"
	}

	raw, ok := baseMsg[channelField]
	if !ok {
		return fmt.Errorf("missing message %s field", channelField)
	}

	var channel string
	if err := json.Unmarshal(raw, &channel); err != nil {
		return fmt.Errorf("invalid message %s field: %w", channelField, err)
	}

	if mv.config.AllowedChannels != nil && !mv.config.AllowedChannels[channel] {
		return fmt.Errorf("unexpected channel: %s", channel)
	}

	return nil
}
