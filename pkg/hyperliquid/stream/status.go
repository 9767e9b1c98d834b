package stream

import "time"

// Status is a point-in-time snapshot of the manager.
type Status struct {
	State          string                 `json:"state"`
	Connected      bool                   `json:"connected"`
	Reconnecting   bool                   `json:"reconnecting"`
	Subscriptions  int                    `json:"subscriptions"`
	QueuedMessages int                    `json:"queued_messages"`
	LastActivity   time.Time              `json:"last_activity"`
	Handlers       []Channel              `json:"handlers"`
	Metrics        map[string]interface{} `json:"metrics,omitempty"`
}

// GetStatus reports the connection flags, registry and queue depths, last
// activity time and registered handler channels.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	state := m.state
	reconnecting := m.reconnecting
	lastActivity := m.lastActivity
	handlers := make([]Channel, 0, len(m.handlers))
	for channel := range m.handlers {
		handlers = append(handlers, channel)
	}
	m.mu.Unlock()

	status := Status{
		State:          state.String(),
		Connected:      state == StateConnected,
		Reconnecting:   reconnecting,
		Subscriptions:  m.registry.count(),
		QueuedMessages: m.queue.len(),
		LastActivity:   lastActivity,
		Handlers:       handlers,
	}

	if m.metrics != nil {
		status.Metrics = m.metrics.GetStats()
	}

	return status
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
