package performance

import (
	"sync"
	"time"
)

type metrics struct {
	MessagesReceived  int64
	MessagesDropped   int64
	MessagesQueued    int64
	SendErrors        int64
	ReconnectAttempts int64
	LastMessageTime   time.Time
	mutex             sync.RWMutex
}

func NewMetrics() Metrics {
	return &metrics{}
}

func (m *metrics) IncrementReceived() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.MessagesReceived++
	m.LastMessageTime = time.Now()
}

func (m *metrics) IncrementDropped() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.MessagesDropped++
}

func (m *metrics) IncrementQueued() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.MessagesQueued++
}

func (m *metrics) IncrementSendError() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.SendErrors++
}

func (m *metrics) IncrementReconnectAttempt() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.ReconnectAttempts++
}

func (m *metrics) GetStats() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return map[string]interface{}{
		"messages_received":  m.MessagesReceived,
		"messages_dropped":   m.MessagesDropped,
		"messages_queued":    m.MessagesQueued,
		"send_errors":        m.SendErrors,
		"reconnect_attempts": m.ReconnectAttempts,
		"last_message_time":  m.LastMessageTime,
	}
}
