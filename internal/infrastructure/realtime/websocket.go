package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 30 * time.Second
	controlWriteWait    = time.Second
	maxInboundFrame     = 4 << 10
)

// WSConn adapts a gorilla connection to Conn. gorilla allows one concurrent
// writer, so every data frame goes through writeMu.
type WSConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

var _ Conn = (*WSConn)(nil)

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

func (c *WSConn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultSendTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(controlWriteWait),
		)
		err = c.conn.Close()
	})
	return err
}

// Serve runs the read side until the peer goes away or ctx ends. A text frame
// "ping" is answered with "pong"; protocol pings keep the read deadline moving.
func (c *WSConn) Serve(ctx context.Context, pingInterval time.Duration) error {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	readWait := pingInterval * 2

	c.conn.SetReadLimit(maxInboundFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	done := make(chan struct{})
	defer close(done)
	go c.keepAlive(ctx, pingInterval, done)

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readWait))

		if msgType == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(data)), "ping") {
			sendCtx, cancel := context.WithTimeout(ctx, controlWriteWait)
			err := c.Send(sendCtx, []byte("pong"))
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (c *WSConn) keepAlive(ctx context.Context, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.closed:
			return
		case <-ctx.Done():
			_ = c.Close(CloseGoingAway, "server shutting down")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWriteWait)); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
