package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

// Call-broadcast pacing. A repeated room:call inside the cooldown is
// dropped; an accepted one is echoed back to the same connection after the
// delay, giving the media pipeline time to settle before negotiation
// restarts.
const (
	DefaultCallCooldown = 5 * time.Second
	DefaultCallDelay    = 3 * time.Second
)

// Relay forwards offer/answer/candidate payloads, unmodified and opaque,
// between the members of the sender's current room. Messages from
// connections not bound to a room are stale, not errors: dropped and logged.
type Relay struct {
	registry *Registry
	store    *RoomStore
	sender   Sender

	cooldown time.Duration
	delay    time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastCall map[string]time.Time
	timers   map[string]*time.Timer
}

// NewRelay creates a relay with the default call-broadcast pacing.
func NewRelay(registry *Registry, store *RoomStore, sender Sender) *Relay {
	return &Relay{
		registry: registry,
		store:    store,
		sender:   sender,
		cooldown: DefaultCallCooldown,
		delay:    DefaultCallDelay,
		now:      time.Now,
		lastCall: make(map[string]time.Time),
		timers:   make(map[string]*time.Timer),
	}
}

// SetCallPacing overrides the broadcast cooldown and delivery delay.
func (r *Relay) SetCallPacing(cooldown, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cooldown = cooldown
	r.delay = delay
}

// RelayOffer forwards a session-description offer to the other members of
// the sender's room.
func (r *Relay) RelayOffer(fromID string, payload json.RawMessage) {
	r.relay(fromID, protocol.RoomCallOffer, payload)
}

// RelayAnswer forwards a session-description answer to the other members of
// the sender's room.
func (r *Relay) RelayAnswer(fromID string, payload json.RawMessage) {
	r.relay(fromID, protocol.RoomCallAnswer, payload)
}

// RelayCandidate forwards a network candidate. The room id the client sent
// along is checked against the registry's view; a mismatch means the client
// is acting on an outdated room and the frame is stale.
func (r *Relay) RelayCandidate(fromID, claimedRoomID string, payload json.RawMessage) {
	roomID, ok := r.registry.RoomOf(fromID)
	if !ok || (claimedRoomID != "" && claimedRoomID != roomID) {
		slog.Debug("stale candidate dropped", "from", fromID, "claimed", claimedRoomID)
		return
	}
	r.deliver(fromID, roomID, protocol.RoomCallCandidate, payload)
}

func (r *Relay) relay(fromID, event string, payload json.RawMessage) {
	roomID, ok := r.registry.RoomOf(fromID)
	if !ok {
		slog.Debug("stale negotiation message dropped", "event", event, "from", fromID)
		return
	}
	r.deliver(fromID, roomID, event, payload)
}

func (r *Relay) deliver(fromID, roomID, event string, payload json.RawMessage) {
	room, ok := r.store.Get(roomID)
	if !ok {
		slog.Debug("negotiation message for dead room dropped", "event", event, "room", roomID)
		return
	}
	for _, member := range room.Members {
		if member == fromID {
			continue
		}
		r.sender.Send(member, &protocol.Message{
			Event:   event,
			From:    fromID,
			Room:    roomID,
			Payload: payload,
		})
	}
}

// RequestCall handles room:call: rate-limited by the cooldown, and on
// acceptance scheduled for deferred delivery back to the same connection.
func (r *Relay) RequestCall(fromID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.lastCall[fromID]; ok && now.Sub(last) < r.cooldown {
		slog.Debug("call broadcast rate limited", "from", fromID)
		return
	}
	r.lastCall[fromID] = now

	if t, ok := r.timers[fromID]; ok {
		t.Stop()
	}
	r.timers[fromID] = time.AfterFunc(r.delay, func() {
		r.mu.Lock()
		delete(r.timers, fromID)
		r.mu.Unlock()
		r.sender.Send(fromID, &protocol.Message{Event: protocol.RoomCall})
	})
}

// CancelScheduled drops any pending deferred call delivery for a connection.
// Called on disconnect so the task is cancelled, not fired into a void.
func (r *Relay) CancelScheduled(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[connID]; ok {
		t.Stop()
		delete(r.timers, connID)
	}
	delete(r.lastCall, connID)
}
