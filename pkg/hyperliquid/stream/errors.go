package stream

import "errors"

// Error taxonomy for the stream manager. All of these are recovered locally
// and surfaced as return values; none of them crash the background loops.
var (
	// ErrTransportUnavailable means no dialer was wired into the manager.
	ErrTransportUnavailable = errors.New("stream: transport unavailable")

	// ErrHandshakeFailed wraps a rejected connect attempt.
	ErrHandshakeFailed = errors.New("stream: handshake failed")

	// ErrSendFailed wraps a write to a dead or absent connection, including
	// rejection by a full outbound queue.
	ErrSendFailed = errors.New("stream: send failed")

	// ErrUnknownChannel covers unrecognized channel types and channel
	// parameters that cannot produce a valid subscription.
	ErrUnknownChannel = errors.New("stream: unknown channel type")

	// ErrSubscriptionNotFound is returned by Unsubscribe for unknown ids.
	ErrSubscriptionNotFound = errors.New("stream: subscription not found")

	// ErrMalformedMessage covers inbound frames that do not parse as the
	// expected envelope shape.
	ErrMalformedMessage = errors.New("stream: malformed message")

	// ErrReconnectExhausted is logged once all reconnect attempts failed.
	ErrReconnectExhausted = errors.New("stream: reconnect attempts exhausted")

	// ErrClosed is returned by operations on a manager after Close.
	ErrClosed = errors.New("stream: manager closed")
)
