package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the coordinator.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *protocol.Message
	outgoing  chan *protocol.Message
	done      chan struct{}
	closed    bool
}

// New creates a client for the given coordinator URL.
func New(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *protocol.Message, 32),
		outgoing:  make(chan *protocol.Message, 32),
		done:      make(chan struct{}, 1),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- &msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a frame for delivery to the coordinator.
func (c *Client) Send(msg *protocol.Message) {
	c.outgoing <- msg
}

// Incoming returns the channel of frames from the coordinator.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Close shuts the connection down. Safe to call once.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Frame builders for the room protocol.

// CreateRoom requests a fresh room.
func (c *Client) CreateRoom() {
	c.Send(&protocol.Message{Event: protocol.RoomCreate})
}

// Join asks to join a room; admission is decided by the host.
func (c *Client) Join(roomID string) {
	c.Send(&protocol.Message{Event: protocol.RoomJoin, Room: roomID})
}

// Leave leaves the current room voluntarily.
func (c *Client) Leave(roomID string) {
	c.Send(&protocol.Message{Event: protocol.RoomLeave, Room: roomID})
}

// Decide answers a pending join-permission request as the host.
func (c *Client) Decide(requesterID string, accept bool) {
	event := protocol.RoomJoinDenied
	if accept {
		event = protocol.RoomJoinAccepted
	}
	c.Send(&protocol.Message{
		Event:   event,
		Payload: protocol.MarshalPayload(protocol.JoinDecision{Requester: requesterID}),
	})
}

// SendOffer relays a session-description offer to the room.
func (c *Client) SendOffer(payload []byte) error {
	c.Send(&protocol.Message{Event: protocol.RoomCallOffer, Payload: json.RawMessage(payload)})
	return nil
}

// SendAnswer relays a session-description answer to the room.
func (c *Client) SendAnswer(payload []byte) error {
	c.Send(&protocol.Message{Event: protocol.RoomCallAnswer, Payload: json.RawMessage(payload)})
	return nil
}

// SendCandidate relays a network candidate to the room.
func (c *Client) SendCandidate(roomID string, payload []byte) error {
	c.Send(&protocol.Message{Event: protocol.RoomCallCandidate, Room: roomID, Payload: json.RawMessage(payload)})
	return nil
}

// RequestCall asks for the deferred call-start echo.
func (c *Client) RequestCall() {
	c.Send(&protocol.Message{Event: protocol.RoomCall})
}
