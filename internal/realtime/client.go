package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tahcohcat/xpboard/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	ErrClosed         = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// ClientOptions bounds what a single connection may buffer and send.
type ClientOptions struct {
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MessagesPerSecond <= 0 {
		o.MessagesPerSecond = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	return o
}

// Client wraps one websocket. The write pump is the only writer, so events
// sent to one client arrive in the order Send accepted them.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	open    atomic.Bool
	once    sync.Once
	limiter *rate.Limiter
	log     *logger.Log
}

func newClient(conn *websocket.Conn, channel string, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	id := uuid.NewString()

	c := &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
		log:     logger.Named("socket").With("channel", channel).With("conn_id", id),
	}
	c.open.Store(true)
	return c
}

func (c *Client) ID() string { return c.id }

func (c *Client) Open() bool { return c.open.Load() }

// Send queues an event without blocking. A full buffer drops the event.
func (c *Client) Send(event string, data interface{}) error {
	if !c.Open() {
		return ErrClosed
	}
	msg, err := encode(event, data)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) sendError(event string, err error) {
	_ = c.Send(EventError, errorData{Message: err.Error(), Event: event})
}

// Close marks the client dead and stops the write pump, which sends a close frame.
func (c *Client) Close() {
	c.once.Do(func() {
		c.open.Store(false)
		close(c.done)
	})
}

// readPump feeds decoded envelopes to handle until the peer goes away or ctx ends.
func (c *Client) readPump(ctx context.Context, handle func(context.Context, Envelope)) {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Error("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("unexpected websocket close")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		if !c.limiter.Allow() {
			c.sendError("", errors.New("rate limit exceeded"))
			continue
		}

		env, err := decodeEnvelope(raw)
		if err != nil {
			c.log.WithError(err).Warn("rejected socket message")
			c.sendError("", err)
			continue
		}
		handle(ctx, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.WithError(err).Debug("websocket write failed")
				c.Close()
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
