package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for SDP blobs.
	maxMessageSize = 64 * 1024

	// Outbound frames queued per connection before drops start.
	sendQueueSize = 256
)

// Client is a wrapper for a single websocket connection (a peer).
type Client struct {
	// ID is the opaque connection identifier, assigned at connect time
	// and invalid after disconnect.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// send buffers all outbound frames; writePump drains it. Writers use a
	// non-blocking enqueue so a wedged client never stalls a room handler.
	// sendMu orders enqueues against closeSend: dispatch runs on many read
	// goroutines, so a frame can race the recipient's disconnect.
	sendMu sync.Mutex
	closed bool
	send   chan *protocol.Message
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan *protocol.Message, sendQueueSize),
	}
}

// enqueue queues a frame for delivery without blocking. Reports false when
// the connection is already closed or the buffer is full and the frame was
// dropped.
func (c *Client) enqueue(msg *protocol.Message) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps frames from the websocket connection into the hub.
//
// The application runs ReadPump in a per-connection goroutine; all reads on
// the connection happen here.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("read error", "conn", c.ID, "err", err)
			}
			break
		}
		c.hub.handle(c, &msg)
	}
}

// WritePump pumps frames from the send queue to the websocket connection
// and keeps the connection alive with periodic pings.
//
// A goroutine running WritePump is started per connection; all writes on
// the connection happen here.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("write error", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
