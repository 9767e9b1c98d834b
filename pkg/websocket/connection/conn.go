package connection

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn abstracts the gorilla/websocket.Conn so tests can inject fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dialer abstracts websocket dialing so tests can inject fakes.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (Conn, *http.Response, error)
}

// gorillaConn adapts gorilla/websocket.Conn to the Conn interface
type gorillaConn struct {
	conn *websocket.Conn
}

func (g *gorillaConn) ReadMessage() (int, []byte, error) {
	return g.conn.ReadMessage()
}

func (g *gorillaConn) WriteMessage(messageType int, data []byte) error {
	return g.conn.WriteMessage(messageType, data)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}

func (g *gorillaConn) SetReadDeadline(t time.Time) error {
	return g.conn.SetReadDeadline(t)
}

func (g *gorillaConn) SetWriteDeadline(t time.Time) error {
	return g.conn.SetWriteDeadline(t)
}

type gorillaDialer struct {
	dialer         *websocket.Dialer
	maxMessageSize int64
}

// NewGorillaDialer creates a production WebSocket dialer using gorilla/websocket
func NewGorillaDialer(config DialConfig) Dialer {
	return &gorillaDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		maxMessageSize: config.MaxMessageSize,
	}
}

func (g *gorillaDialer) DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (Conn, *http.Response, error) {
	conn, resp, err := g.dialer.DialContext(ctx, urlStr, requestHeader)
	if err != nil {
		return nil, resp, err
	}

	if g.maxMessageSize > 0 {
		conn.SetReadLimit(g.maxMessageSize)
	}

	return &gorillaConn{conn: conn}, resp, nil
}

// TextMessage is the gorilla text frame type, re-exported so callers of the
// Conn interface do not need a direct gorilla import.
const TextMessage = websocket.TextMessage

// Graceful close codes, re-exported for read-error classification.
const (
	CloseNormalClosure = websocket.CloseNormalClosure
	CloseGoingAway     = websocket.CloseGoingAway
)

// IsCloseError reports whether err is a websocket close error with one of the
// given close codes.
func IsCloseError(err error, codes ...int) bool {
	return websocket.IsCloseError(err, codes...)
}
