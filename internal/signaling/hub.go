package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

// Hub owns the live connections and wires them to the room lifecycle and
// the negotiation relay. Unlike a single-goroutine event loop, dispatch
// happens on each connection's read goroutine; shared state is guarded by
// the components' own locks, so one stalled client cannot serialize rooms
// it is not part of.
type Hub struct {
	Registry *Registry
	Store    *RoomStore
	Rooms    *Manager
	Relay    *Relay

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub builds the hub with fresh stores. The hub itself is the Sender the
// lifecycle manager and relay deliver through.
func NewHub() *Hub {
	h := &Hub{
		Registry: NewRegistry(),
		Store:    NewRoomStore(),
		clients:  make(map[string]*Client),
	}
	h.Rooms = NewManager(h.Store, h.Registry, h)
	h.Relay = NewRelay(h.Registry, h.Store, h)
	return h
}

// Connect wraps an upgraded websocket connection in a Client, registers it,
// and tells the client its connection id. The caller starts the pumps.
func (h *Hub) Connect(conn *websocket.Conn) *Client {
	c := newClient(h, conn)

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.Registry.Register(c.ID)

	slog.Info("client connected", "conn", c.ID, "remote", conn.RemoteAddr())
	c.enqueue(&protocol.Message{Event: protocol.Connected, Payload: protocol.MarshalPayload(c.ID)})
	return c
}

// Send implements Sender: a non-blocking enqueue to one connection. Frames
// to unknown connections (raced with a disconnect) are dropped.
func (h *Hub) Send(connID string, msg *protocol.Message) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		slog.Debug("frame to gone connection dropped", "conn", connID, "event", msg.Event)
		return
	}
	if !c.enqueue(msg) {
		slog.Warn("send queue full, frame dropped", "conn", connID, "event", msg.Event)
	}
}

// handle routes one inbound frame. Unknown events are logged and ignored.
func (h *Hub) handle(c *Client, msg *protocol.Message) {
	switch msg.Event {
	case protocol.RoomCreate:
		h.Rooms.CreateRoom(c.ID)

	case protocol.RoomJoin:
		h.Rooms.RequestJoin(c.ID, msg.Room)

	case protocol.RoomJoinAccepted, protocol.RoomJoinDenied:
		var d protocol.JoinDecision
		if err := json.Unmarshal(msg.Payload, &d); err != nil || d.Requester == "" {
			slog.Debug("malformed join decision", "conn", c.ID)
			return
		}
		h.Rooms.DecideJoin(c.ID, d.Requester, msg.Event == protocol.RoomJoinAccepted)

	case protocol.RoomLeave:
		h.Rooms.Leave(c.ID)

	case protocol.RoomCallOffer:
		h.Relay.RelayOffer(c.ID, msg.Payload)

	case protocol.RoomCallAnswer:
		h.Relay.RelayAnswer(c.ID, msg.Payload)

	case protocol.RoomCallCandidate:
		h.Relay.RelayCandidate(c.ID, msg.Room, msg.Payload)

	case protocol.RoomCall:
		h.Relay.RequestCall(c.ID)

	default:
		slog.Debug("unknown event", "conn", c.ID, "event", msg.Event)
	}
}

// disconnect cleans up after a connection's read pump exits. The cleanup
// path is identical for voluntary leaves and abrupt drops.
func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()
	if !known {
		return
	}

	h.Relay.CancelScheduled(c.ID)
	h.Rooms.Disconnect(c.ID)
	c.closeSend()
	slog.Info("client disconnected", "conn", c.ID)
}
