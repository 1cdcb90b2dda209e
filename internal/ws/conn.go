package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// conn is one socket as seen by the broadcaster. Outgoing frames queue in a bounded
// buffer drained by writeLoop.
type conn struct {
	id   string
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(id string, buffer int) *conn {
	return &conn{id: id, out: make(chan []byte, buffer), done: make(chan struct{})}
}

func (c *conn) ID() string { return c.id }

// Send queues msg without blocking. It reports false when the buffer is full or the
// connection is closing.
func (c *conn) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

// Close asks the writer to hang up. Safe to call more than once.
func (c *conn) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *conn) writeLoop(ctx context.Context, sock *websocket.Conn, opts Options, log *zap.Logger) {
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			sock.Close(websocket.StatusPolicyViolation, "connection replaced")
			return
		case msg := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := sock.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				sock.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := sock.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("websocket ping failed", zap.Error(err))
				sock.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
