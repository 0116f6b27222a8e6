package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer bounds the per-connection outbound queue; a client that
	// cannot drain it loses frames instead of stalling the relay.
	sendBuffer = 16
)

// Client is one live socket connection, bound to a verified identity by the
// connection gate.
type Client struct {
	SubjectID string

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(subjectID string, conn *websocket.Conn) *Client {
	return &Client{
		SubjectID: subjectID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Send queues a frame for delivery. It never blocks; it reports false when
// the client's queue is full or the client is closed.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Read blocks for the next frame from the peer.
func (c *Client) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// WritePump drains the send queue onto the connection and keeps the peer
// alive with pings. Must be the connection's only writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}
