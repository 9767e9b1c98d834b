package stream

import (
	"time"

	"go.uber.org/zap"
)

// backoffDelay returns the wait before 0-indexed attempt k: 2^k * base.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * m.config.BackoffBase
}

// reconnectLoop retries the connection with exponential backoff. A
// successful attempt replays registered subscriptions and flushes the
// outbound queue as part of the connect path. After exhausting all attempts
// the manager stays disconnected until an external Connect; there is no
// self-healing trigger past this point.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		m.reconnecting = false
		if m.state == StateReconnecting {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
	}()

	for attempt := 0; attempt < m.config.MaxReconnectAttempts; attempt++ {
		delay := m.backoffDelay(attempt)
		m.logger.Info("reconnect scheduled",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		aborted := m.state != StateReconnecting
		m.mu.Unlock()
		if aborted {
			// Clean Disconnect or Close while backing off.
			return
		}

		m.metrics.IncrementReconnectAttempt()
		if err := m.connect(true); err != nil {
			m.logger.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		m.mu.Lock()
		connected := m.state == StateConnected
		m.mu.Unlock()
		if !connected {
			// The transport died again during subscription replay while
			// this loop still held the single-flight slot; keep retrying.
			continue
		}

		m.logger.Info("reconnected", zap.Int("attempt", attempt))
		return
	}

	m.logger.Error("giving up on reconnection",
		zap.Int("attempts", m.config.MaxReconnectAttempts),
		zap.Error(ErrReconnectExhausted))
}

// resubscribeAll replays the original subscribe message for every surviving
// subscription, in registration order. Individual failures are logged and do
// not abort the remaining replay.
func (m *Manager) resubscribeAll() {
	subs := m.registry.list()
	if len(subs) == 0 {
		return
	}

	m.logger.Info("replaying subscriptions", zap.Int("count", len(subs)))

	for _, sub := range subs {
		if err := m.sendDirect(sub.wire); err != nil {
			m.logger.Warn("resubscribe failed",
				zap.String("id", sub.ID),
				zap.String("channel", string(sub.Channel)),
				zap.Error(err))
		}
	}
}

// flushQueue drains queued outbound messages oldest-first. A failed write
// puts the message back at the front and stops the flush for this cycle.
func (m *Manager) flushQueue() {
	flushed := 0
	for {
		payload, ok := m.queue.pop()
		if !ok {
			break
		}

		if err := m.sendDirect(payload); err != nil {
			m.queue.pushFront(payload)
			m.logger.Warn("queue flush interrupted",
				zap.Int("flushed", flushed),
				zap.Int("remaining", m.queue.len()),
				zap.Error(err))
			return
		}
		flushed++
	}

	if flushed > 0 {
		m.logger.Info("outbound queue flushed", zap.Int("count", flushed))
	}
}
