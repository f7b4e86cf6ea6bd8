package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// WSClient is a single WebSocket connection. Writes happen on one goroutine
// fed by a bounded queue.
type WSClient struct {
	id       string
	holderID string
	conn     *websocket.Conn
	send     chan Message
	done     chan struct{}
	once     sync.Once
	logger   *slog.Logger
}

func NewWSClient(conn *websocket.Conn, holderID string, logger *slog.Logger) *WSClient {
	id := uuid.New().String()

	return &WSClient{
		id:       id,
		holderID: holderID,
		conn:     conn,
		send:     make(chan Message, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With("client_id", id, "holder_id", holderID),
	}
}

func (c *WSClient) ID() string {
	return c.id
}

func (c *WSClient) HolderID() string {
	return c.holderID
}

func (c *WSClient) Send(msg Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *WSClient) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				c.logger.Warn("websocket write failed", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes whatever is still queued and then a close frame.
func (c *WSClient) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		}
	}
}

func (c *WSClient) write(msg Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}
