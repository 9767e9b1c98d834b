package security

// RateLimiter defines rate limiting operations
type RateLimiter interface {
	Allow() bool
	Reset()
}

// MessageValidator defines inbound message validation operations
type MessageValidator interface {
	ValidateMessage(message []byte) error
}
