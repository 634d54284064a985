package signaling

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

// DefaultJoinDecisionTimeout bounds how long a join request may wait for the
// host's decision before it is resolved as denied.
const DefaultJoinDecisionTimeout = 30 * time.Second

// Sender delivers a frame to one connection. The hub implements it with a
// non-blocking enqueue; a frame to a gone or wedged connection is dropped.
type Sender interface {
	Send(connID string, msg *protocol.Message)
}

// pendingJoin is one in-flight permission round-trip, keyed by requester.
type pendingJoin struct {
	requester string
	roomID    string
	timer     *time.Timer
}

// Manager implements the room lifecycle: create, the join-permission
// handshake, leave and disconnect with host re-election. It is the sole
// mutator of the RoomStore. One lock covers every mutate-then-notify
// sequence so notifications are enqueued in the order mutations were
// applied; sends inside the lock are buffered-channel writes, never I/O.
type Manager struct {
	store    *RoomStore
	registry *Registry
	sender   Sender

	decisionTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingJoin // requester conn id -> request
}

// NewManager creates a lifecycle manager over the given store and registry.
func NewManager(store *RoomStore, registry *Registry, sender Sender) *Manager {
	return &Manager{
		store:           store,
		registry:        registry,
		sender:          sender,
		decisionTimeout: DefaultJoinDecisionTimeout,
		pending:         make(map[string]*pendingJoin),
	}
}

// SetDecisionTimeout overrides the join-decision timeout. Zero disables it.
func (m *Manager) SetDecisionTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisionTimeout = d
}

// CreateRoom makes a fresh room with the requester as sole member and host
// and reports the new id back to the requester.
func (m *Manager) CreateRoom(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var roomID string
	for {
		roomID = newRoomID()
		if _, err := m.store.Create(roomID, connID); err == nil {
			break
		}
	}
	m.registry.Bind(connID, roomID)
	slog.Info("room created", "room", roomID, "host", connID)

	m.sender.Send(connID, &protocol.Message{Event: protocol.RoomCreated, Room: roomID})
}

// RequestJoin starts the permission handshake: the current host is asked to
// decide, asynchronously. Unknown room ids are answered with room:not-found
// and nothing else happens.
func (m *Manager) RequestJoin(connID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.Get(roomID)
	if !ok {
		m.sender.Send(connID, &protocol.Message{Event: protocol.RoomNotFound, Room: roomID})
		return
	}

	// A repeated request from the same connection supersedes the old one.
	m.removePendingLocked(connID)

	p := &pendingJoin{requester: connID, roomID: roomID}
	if m.decisionTimeout > 0 {
		p.timer = time.AfterFunc(m.decisionTimeout, func() { m.expireJoin(connID) })
	}
	m.pending[connID] = p

	slog.Info("join requested", "room", roomID, "requester", connID, "host", room.Host)
	m.sender.Send(room.Host, &protocol.Message{
		Event:   protocol.RoomJoinPermission,
		Room:    roomID,
		Payload: protocol.MarshalPayload(protocol.JoinDecision{Requester: connID}),
	})
}

// DecideJoin applies the host's decision for a pending request. Decisions
// from anyone but the room's current host, or for requests that no longer
// exist (timed out, requester disconnected), are ignored.
func (m *Manager) DecideJoin(hostID, requesterID string, accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[requesterID]
	if !ok {
		slog.Debug("stale join decision ignored", "requester", requesterID, "from", hostID)
		return
	}

	room, ok := m.store.Get(p.roomID)
	if !ok {
		m.removePendingLocked(requesterID)
		m.sender.Send(requesterID, &protocol.Message{Event: protocol.RoomNotFound, Room: p.roomID})
		return
	}
	if room.Host != hostID {
		slog.Debug("join decision from non-host ignored", "room", p.roomID, "from", hostID)
		return
	}

	m.removePendingLocked(requesterID)

	if !accepted {
		slog.Info("join denied", "room", p.roomID, "requester", requesterID)
		m.sender.Send(requesterID, &protocol.Message{Event: protocol.RoomJoinDenied, Room: p.roomID})
		return
	}

	snap, err := m.store.AddMember(p.roomID, requesterID)
	if err != nil {
		m.sender.Send(requesterID, &protocol.Message{Event: protocol.RoomNotFound, Room: p.roomID})
		return
	}
	m.registry.Bind(requesterID, p.roomID)
	slog.Info("join accepted", "room", p.roomID, "requester", requesterID)

	m.sender.Send(requesterID, &protocol.Message{
		Event:   protocol.RoomJoined,
		Room:    p.roomID,
		Payload: protocol.MarshalPayload(snap),
	})
	for _, member := range snap.Members {
		if member == requesterID {
			continue
		}
		m.sender.Send(member, &protocol.Message{
			Event:   protocol.RoomUserJoined,
			Room:    p.roomID,
			From:    requesterID,
			Payload: protocol.MarshalPayload(requesterID),
		})
	}
}

// Leave removes the connection from its current room, if any, re-electing
// the host when needed. The connection itself stays registered.
func (m *Manager) Leave(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removePendingLocked(connID)
	m.leaveLocked(connID)
}

// Disconnect runs the same cleanup as Leave and then forgets the connection
// entirely. Safe for connections that never joined a room.
func (m *Manager) Disconnect(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removePendingLocked(connID)
	m.leaveLocked(connID)
	m.registry.Deregister(connID)
}

func (m *Manager) leaveLocked(connID string) {
	roomID, ok := m.registry.RoomOf(connID)
	if !ok {
		return
	}
	m.registry.Bind(connID, "")

	res, err := m.store.RemoveMember(roomID, connID)
	if err != nil {
		return
	}

	if res.Deleted {
		slog.Info("room deleted", "room", roomID)
		// Anyone still waiting on this room's host gets a definitive answer.
		m.failPendingForRoomLocked(roomID)
		return
	}

	if res.HostChanged {
		slog.Info("host changed", "room", roomID, "host", res.Room.Host)
		for _, member := range res.Room.Members {
			m.sender.Send(member, &protocol.Message{
				Event:   protocol.RoomHostChanged,
				Room:    roomID,
				Payload: protocol.MarshalPayload(res.Room.Host),
			})
		}
		// Pending permission requests move to the new host so requesters
		// are not stranded by a host that left mid-decision.
		for _, p := range m.pending {
			if p.roomID != roomID {
				continue
			}
			m.sender.Send(res.Room.Host, &protocol.Message{
				Event:   protocol.RoomJoinPermission,
				Room:    roomID,
				Payload: protocol.MarshalPayload(protocol.JoinDecision{Requester: p.requester}),
			})
		}
	}
}

// expireJoin resolves a request whose host never answered within the
// decision timeout.
func (m *Manager) expireJoin(requesterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[requesterID]
	if !ok {
		return
	}
	delete(m.pending, requesterID)
	slog.Info("join request timed out", "room", p.roomID, "requester", requesterID)
	m.sender.Send(requesterID, &protocol.Message{Event: protocol.RoomJoinDenied, Room: p.roomID})
}

func (m *Manager) failPendingForRoomLocked(roomID string) {
	for id, p := range m.pending {
		if p.roomID != roomID {
			continue
		}
		m.removePendingLocked(id)
		m.sender.Send(id, &protocol.Message{Event: protocol.RoomNotFound, Room: roomID})
	}
}

func (m *Manager) removePendingLocked(connID string) {
	if p, ok := m.pending[connID]; ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(m.pending, connID)
	}
}

const roomIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newRoomID builds a URL-safe, collision-resistant room id: the current
// time in base36 plus a random base36 suffix.
func newRoomID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = roomIDAlphabet[randomIndex(len(roomIDAlphabet))]
	}
	return ts + "-" + string(suffix)
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}
	return int(n.Int64())
}
