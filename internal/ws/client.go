package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"messenger-service/internal/models"
)

const sendBufferSize = 64

// Client is one live websocket connection together with the identity the
// gateway authenticated for it. Domain state lives here, owned by the hub,
// never on the transport connection itself.
type Client struct {
	ID          string
	User        models.PublicProfile
	ConnectedAt time.Time

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, user models.PublicProfile) *Client {
	return &Client{
		ID:          uuid.NewString(),
		User:        user,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Enqueue queues a payload for delivery without blocking. It reports false
// when the client is closed or its buffer is full; the caller drops that one
// delivery and moves on.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close shuts the client down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// writePump drains the send queue onto the socket. It is the only goroutine
// that writes to the connection after the handshake.
func (c *Client) writePump() {
	defer c.Close()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
