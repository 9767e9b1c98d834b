package performance

// Metrics defines metrics collection operations for the stream manager.
type Metrics interface {
	IncrementReceived()
	IncrementDropped()
	IncrementQueued()
	IncrementSendError()
	IncrementReconnectAttempt()
	GetStats() map[string]interface{}
}
