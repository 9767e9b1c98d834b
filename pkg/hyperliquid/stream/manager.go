package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/clients"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/connection"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/performance"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/security"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler receives decoded messages for one channel. Handlers run inline on
// the listener goroutine, serialized in receive order.
type Handler func(msg Message)

// Manager is a resilient, subscription-aware Hyperliquid stream client.
// Subscriptions survive reconnects and are replayed in registration order;
// sends attempted while disconnected are queued and flushed FIFO after the
// next successful reconnect.
type Manager struct {
	config    Config
	wsURL     string
	dialer    connection.Dialer
	logger    *zap.Logger
	limiter   security.RateLimiter
	validator security.MessageValidator
	metrics   performance.Metrics

	// Held for callers that pair queries or order placement with the
	// stream; the manager never invokes either.
	info     clients.InfoClient
	exchange clients.ExchangeClient

	mu           sync.Mutex
	conn         connection.Conn
	state        State
	lastActivity time.Time
	reconnecting bool
	// generation invalidates listener/monitor loops of a torn-down
	// connection so they exit without scheduling a reconnect.
	generation uint64

	registry *subscriptionRegistry
	handlers map[Channel]Handler
	queue    *sendQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a disconnected manager. The info and exchange clients
// are optional pass-through capabilities and may be nil.
func NewManager(
	config Config,
	dialer connection.Dialer,
	logger *zap.Logger,
	limiter security.RateLimiter,
	validator security.MessageValidator,
	metrics performance.Metrics,
	info clients.InfoClient,
	exchange clients.ExchangeClient,
) (*Manager, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream config: %w", err)
	}

	wsURL, err := config.StreamURL()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = performance.NewMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:    config,
		wsURL:     wsURL,
		dialer:    dialer,
		logger:    logger,
		limiter:   limiter,
		validator: validator,
		metrics:   metrics,
		info:      info,
		exchange:  exchange,
		state:     StateDisconnected,
		registry:  newSubscriptionRegistry(),
		handlers:  make(map[Channel]Handler),
		queue:     newSendQueue(config.QueueCapacity),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Connect opens the stream transport and starts the listener and monitor
// loops. It is a no-op when already connected or connecting.
func (m *Manager) Connect() error {
	return m.connect(false)
}

// Start is an alias for Connect, for callers that model the manager as a
// background service.
func (m *Manager) Start() error { return m.Connect() }

// Stop is an alias for Disconnect.
func (m *Manager) Stop() error { return m.Disconnect() }

func (m *Manager) connect(isReconnect bool) error {
	m.mu.Lock()
	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		return ErrClosed
	case StateConnected, StateConnecting:
		m.mu.Unlock()
		return nil
	case StateReconnecting:
		if !isReconnect {
			// External Connect while a reconnect is in flight; let the
			// reconnect loop finish the job.
			m.mu.Unlock()
			return nil
		}
	default:
		m.state = StateConnecting
	}
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		m.mu.Lock()
		if m.state == StateConnecting {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		m.logger.Error("stream connect failed", zap.String("url", m.wsURL), zap.Error(err))
		return err
	}

	m.mu.Lock()
	switch {
	case m.state == StateClosed:
		m.mu.Unlock()
		conn.Close()
		return ErrClosed
	case isReconnect && m.state != StateReconnecting,
		!isReconnect && m.state != StateConnecting:
		// A clean Disconnect landed while the dial was in flight; it
		// wins, and the fresh transport is discarded.
		m.mu.Unlock()
		conn.Close()
		m.logger.Debug("dial completed after disconnect, discarding transport")
		return nil
	}
	m.conn = conn
	m.state = StateConnected
	m.lastActivity = time.Now()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.wg.Add(2)
	go m.listen(gen)
	go m.monitor(gen)

	m.logger.Info("stream connected", zap.String("url", m.wsURL))

	// Restore service on the fresh transport: replay surviving
	// subscriptions, then drain whatever queued up while disconnected.
	m.resubscribeAll()
	m.flushQueue()
	return nil
}

func (m *Manager) dial() (connection.Conn, error) {
	if m.dialer == nil {
		return nil, ErrTransportUnavailable
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.config.Dial.ConnectTimeout)
	defer cancel()

	conn, _, err := m.dialer.DialContext(ctx, m.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	return conn, nil
}

// Disconnect closes the transport cleanly. Idempotent; safe on a manager
// that never connected. A clean disconnect aborts any in-flight reconnect.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	conn := m.conn
	m.conn = nil
	already := m.state == StateDisconnected && conn == nil
	m.state = StateDisconnected
	m.generation++
	m.mu.Unlock()

	if already {
		return nil
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Debug("transport close error", zap.Error(err))
		}
	}

	m.logger.Info("stream disconnected")
	return nil
}

// Close tears the manager down: transport closed, subscriptions, handlers
// and queued messages dropped, background loops awaited. The manager is not
// reusable afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	conn := m.conn
	m.conn = nil
	m.handlers = make(map[Channel]Handler)
	m.mu.Unlock()

	m.registry.clear()
	m.queue.clear()
	m.cancel()

	var err error
	if conn != nil {
		err = conn.Close()
	}

	m.wg.Wait()
	m.logger.Info("stream manager closed")
	return err
}

// TestConnection is a liveness probe: connect, then immediately disconnect.
func (m *Manager) TestConnection() bool {
	if err := m.Connect(); err != nil {
		return false
	}
	m.Disconnect()
	return true
}

// Subscribe validates the channel type, sends (or queues) the subscribe
// message, and records the subscription so it survives reconnects. The
// returned Subscription reports via Delivered whether the message reached
// the wire immediately or was queued for the next reconnect.
func (m *Manager) Subscribe(channel Channel, params map[string]string) (*Subscription, error) {
	payload, err := buildSubscription(channel, params, m.config.UserAddress)
	if err != nil {
		return nil, err
	}

	wire, err := marshalSubscribe(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal subscribe message: %w", err)
	}

	delivered, err := m.send(wire)
	if err != nil {
		return nil, err
	}

	sub := m.registry.add(channel, params, wire, delivered)
	m.logger.Info("subscribed",
		zap.String("id", sub.ID),
		zap.String("channel", string(channel)),
		zap.Bool("delivered", delivered))
	return sub, nil
}

// Unsubscribe sends the unsubscribe message matching the stored subscription
// payload and removes the registry entry on success. The entry remains when
// the send fails, since the server-side subscription is still active.
func (m *Manager) Unsubscribe(id string) error {
	sub := m.registry.get(id)
	if sub == nil {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}

	wire, err := unsubscribeFor(sub.wire)
	if err != nil {
		return err
	}

	if err := m.sendDirect(wire); err != nil {
		return err
	}

	m.registry.remove(id)
	m.logger.Info("unsubscribed", zap.String("id", id), zap.String("channel", string(sub.Channel)))
	return nil
}

// AddMessageHandler registers the callback for one channel, replacing any
// prior handler for it.
func (m *Manager) AddMessageHandler(channel Channel, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return
	}
	m.handlers[channel] = handler
}

// send writes the payload when connected, or queues it for the next
// reconnect. Returns whether the payload reached the wire.
func (m *Manager) send(payload []byte) (bool, error) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return false, ErrClosed
	}
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		if !m.queue.push(payload) {
			m.metrics.IncrementSendError()
			return false, fmt.Errorf("%w: outbound queue full", ErrSendFailed)
		}
		m.metrics.IncrementQueued()
		m.logger.Debug("send queued while disconnected", zap.Int("queue_depth", m.queue.len()))
		return false, nil
	}
	conn := m.conn
	gen := m.generation
	m.mu.Unlock()

	if err := m.writeFrame(conn, payload); err != nil {
		m.metrics.IncrementSendError()
		m.logger.Warn("stream write failed", zap.Error(err))
		m.connectionLost(gen)
		return false, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return true, nil
}

// sendDirect writes the payload only when connected; it never queues.
func (m *Manager) sendDirect(payload []byte) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: not connected", ErrSendFailed)
	}
	conn := m.conn
	gen := m.generation
	m.mu.Unlock()

	if err := m.writeFrame(conn, payload); err != nil {
		m.metrics.IncrementSendError()
		m.connectionLost(gen)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func (m *Manager) writeFrame(conn connection.Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(m.config.Dial.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(connection.TextMessage, payload)
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

// listen runs while connected, reading frames and dispatching them in
// receive order. A receive timeout or transport error drops the connection
// and hands control to the resilience layer.
func (m *Manager) listen(gen uint64) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("listener panic recovered", zap.Any("panic", r))
			m.connectionLost(gen)
		}
	}()

	for {
		m.mu.Lock()
		if m.state != StateConnected || m.generation != gen {
			m.mu.Unlock()
			return
		}
		conn := m.conn
		m.mu.Unlock()

		if err := conn.SetReadDeadline(time.Now().Add(m.config.ConnectionTimeout)); err != nil {
			m.logger.Warn("set read deadline failed", zap.Error(err))
			m.connectionLost(gen)
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			stale := m.generation != gen || m.state != StateConnected
			m.mu.Unlock()
			if stale {
				// Torn down by Disconnect/Close; nothing to recover.
				return
			}

			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				m.logger.Warn("no messages within timeout, dropping connection",
					zap.Duration("timeout", m.config.ConnectionTimeout))
			case connection.IsCloseError(err, connection.CloseNormalClosure, connection.CloseGoingAway):
				// The server ended the session cleanly; the subscriptions
				// are still wanted, so reconnect anyway.
				m.logger.Info("server closed the stream", zap.Error(err))
			default:
				m.logger.Warn("stream read error", zap.Error(err))
			}
			m.connectionLost(gen)
			return
		}

		m.touch()
		m.metrics.IncrementReceived()
		m.dispatch(data)
	}
}

// dispatch routes one inbound frame to its channel handler.
func (m *Manager) dispatch(data []byte) {
	if m.limiter != nil && !m.limiter.Allow() {
		m.metrics.IncrementDropped()
		m.logger.Warn("inbound rate limit exceeded, dropping message")
		return
	}

	if m.validator != nil {
		if err := m.validator.ValidateMessage(data); err != nil {
			m.metrics.IncrementDropped()
			m.logger.Warn("invalid message dropped", zap.Error(err))
			return
		}
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		m.metrics.IncrementDropped()
		m.logger.Warn("malformed message dropped", zap.Error(err))
		return
	}

	switch env.Channel {
	case channelSubscriptionResponse:
		m.logger.Debug("subscription confirmed", zap.ByteString("data", env.Data))
		return
	case channelPong:
		return
	}

	m.mu.Lock()
	handler := m.handlers[Channel(env.Channel)]
	m.mu.Unlock()

	if handler == nil {
		m.logger.Debug("no handler for channel", zap.String("channel", env.Channel))
		return
	}

	msg, err := decodeMessage(env)
	if err != nil {
		m.metrics.IncrementDropped()
		m.logger.Warn("undecodable payload dropped",
			zap.String("channel", env.Channel), zap.Error(err))
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("handler panic recovered",
					zap.String("channel", env.Channel), zap.Any("panic", r))
			}
		}()
		handler(msg)
	}()
}

// monitor polls liveness while connected: past the ping interval it sends a
// keepalive, past the connection timeout it declares the connection dead.
func (m *Manager) monitor(gen uint64) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.state != StateConnected || m.generation != gen {
			m.mu.Unlock()
			return
		}
		idle := time.Since(m.lastActivity)
		conn := m.conn
		m.mu.Unlock()

		if idle > m.config.ConnectionTimeout {
			m.logger.Warn("connection timed out", zap.Duration("idle", idle))
			m.connectionLost(gen)
			return
		}

		if idle > m.config.PingInterval {
			if err := m.writeFrame(conn, pingPayload()); err != nil {
				m.logger.Warn("keepalive failed", zap.Error(err))
				m.connectionLost(gen)
				return
			}
			m.logger.Debug("keepalive sent", zap.Duration("idle", idle))
		}
	}
}

// connectionLost marks an unexpected drop and schedules a reconnect unless
// one is already in flight. No-op for stale generations or clean teardowns.
func (m *Manager) connectionLost(gen uint64) {
	m.mu.Lock()
	if m.generation != gen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	m.logger.Warn("stream connection lost")
	m.scheduleReconnect()
}

// scheduleReconnect starts the single-flight reconnect loop. Concurrent
// triggers collapse into the one in-flight attempt.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	if m.reconnecting {
		// The in-flight loop owns recovery; flag the state so it keeps
		// retrying instead of reading this as a clean disconnect.
		m.state = StateReconnecting
		m.mu.Unlock()
		return
	}
	m.reconnecting = true
	m.state = StateReconnecting
	m.mu.Unlock()

	m.wg.Add(1)
	go m.reconnectLoop()
}
