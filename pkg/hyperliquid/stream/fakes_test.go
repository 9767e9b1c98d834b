package stream_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/caelum0x/hyperliqbot-sub002/pkg/hyperliquid/stream"
	"github.com/caelum0x/hyperliqbot-sub002/pkg/websocket/connection"
)

// timeoutError satisfies net.Error with Timeout() == true, mimicking a read
// deadline expiry on a real connection.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// fakeConn is an in-memory connection.Conn. Frames pushed via deliver are
// returned from ReadMessage; breakWith makes all further reads fail.
type fakeConn struct {
	mu       sync.Mutex
	sent     [][]byte
	writeErr error
	// number of writes allowed before writeErr applies; negative means
	// writeErr applies immediately.
	writeBudget int
	readErr     error

	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) deliver(frame string) {
	c.frames <- []byte(frame)
}

// breakWith makes ReadMessage return err, simulating a dropped transport.
func (c *fakeConn) breakWith(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// failWrites makes every subsequent WriteMessage return err.
func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.writeBudget = -1
	c.mu.Unlock()
}

// failWritesAfter lets n more writes succeed, then fails the rest with err.
func (c *fakeConn) failWritesAfter(n int, err error) {
	c.mu.Lock()
	c.writeErr = err
	c.writeBudget = len(c.sent) + n
	c.mu.Unlock()
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.frames:
		return connection.TextMessage, data, nil
	case <-c.done:
		c.mu.Lock()
		err := c.readErr
		c.mu.Unlock()
		if err == nil {
			err = errors.New("use of closed network connection")
		}
		return 0, nil, err
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil && (c.writeBudget < 0 || len(c.sent) >= c.writeBudget) {
		return c.writeErr
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) sentAt(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.sent[i])
}

func (c *fakeConn) allSent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, frame := range c.sent {
		out[i] = string(frame)
	}
	return out
}

// fakeDialer hands out a fresh fakeConn per successful dial. The first
// `failures` dials are refused; failAll refuses every dial.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	failAll  bool
	dials    int
	conns    []*fakeConn

	armed     bool
	armBudget int
	armErr    error

	holdC chan struct{}
}

func (d *fakeDialer) DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (connection.Conn, *http.Response, error) {
	d.mu.Lock()

	d.dials++
	if d.failAll || d.dials <= d.failures {
		d.mu.Unlock()
		return nil, nil, errors.New("connection refused")
	}

	conn := newFakeConn()
	if d.armed {
		conn.writeErr = d.armErr
		conn.writeBudget = d.armBudget
		d.armed = false
	}
	d.conns = append(d.conns, conn)
	hold := d.holdC
	d.mu.Unlock()

	if hold != nil {
		<-hold
	}
	return conn, nil, nil
}

// holdDials blocks dial completion until releaseDials, keeping the dial
// in flight so tests can interleave other calls.
func (d *fakeDialer) holdDials() {
	d.mu.Lock()
	d.holdC = make(chan struct{})
	d.mu.Unlock()
}

func (d *fakeDialer) releaseDials() {
	d.mu.Lock()
	hold := d.holdC
	d.holdC = nil
	d.mu.Unlock()
	if hold != nil {
		close(hold)
	}
}

// armNextConn makes the next dialed conn accept n writes and fail the rest.
func (d *fakeDialer) armNextConn(n int, err error) {
	d.mu.Lock()
	d.armed = true
	d.armBudget = n
	d.armErr = err
	d.mu.Unlock()
}

func (d *fakeDialer) refuseAll(refuse bool) {
	d.mu.Lock()
	d.failAll = refuse
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// newTestConfig shrinks the production timings so resilience behavior is
// observable within a test run.
func newTestConfig() stream.Config {
	cfg := stream.DefaultConfig("https://api.example.com")
	cfg.ConnectionTimeout = 250 * time.Millisecond
	cfg.PingInterval = 100 * time.Millisecond
	cfg.MonitorInterval = 20 * time.Millisecond
	cfg.BackoffBase = 5 * time.Millisecond
	cfg.MaxReconnectAttempts = 5
	return cfg
}

func newTestManager(cfg stream.Config, dialer connection.Dialer) *stream.Manager {
	mgr, err := stream.NewManager(
		cfg,
		dialer,
		zap.NewNop(),
		stream.NewRateLimiter(cfg),
		stream.NewMessageValidator(stream.NewValidationConfig(cfg)),
		stream.NewMetrics(),
		nil,
		nil,
	)
	ExpectWithOffset(1, err).ToNot(HaveOccurred())
	return mgr
}
