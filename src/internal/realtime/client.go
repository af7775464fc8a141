package realtime

import (
	"sync"
	"taskhub-collab-svc/src/internal/config"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// Client is one websocket connection. The write pump is the only goroutine
// touching the underlying connection for writes; everything else enqueues
// through Send, which never blocks.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	authTimer *time.Timer

	heartbeat       time.Duration
	pongWait        time.Duration
	maxMessageBytes int64

	log *logrus.Entry
}

func newClient(conn *websocket.Conn, cfg *config.RealtimeConfig) *Client {
	id := uuid.NewString()
	heartbeat := time.Duration(cfg.HeartbeatSeconds) * time.Second

	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, cfg.SendBufferSize),
		done: make(chan struct{}),

		heartbeat: heartbeat,
		// A missing pong within two heartbeat intervals marks the
		// connection half-open.
		pongWait:        2 * heartbeat,
		maxMessageBytes: cfg.MaxMessageBytes,

		log: logrus.WithField("conn_id", id),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for delivery. It fails fast with ErrSendBufferFull
// when the client cannot keep up and with ErrConnClosed after Close.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// Close signals the write pump to finish. Safe to call multiple times and
// from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump reads frames until the connection drops and hands each one to the
// handler. It runs on the request goroutine.
func (c *Client) readPump(h *Handler) {
	c.conn.SetReadLimit(c.maxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("Websocket read failed")
			}
			return
		}
		h.dispatch(c, data)
	}
}

// writePump drains the send queue and keeps the heartbeat going. It owns the
// connection handle and closes it on exit.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.heartbeat)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.WithError(err).Debug("Websocket write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
