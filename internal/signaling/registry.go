package signaling

import "sync"

// Registry is the reverse index from connection id to current room id.
// It owns nothing but the index; room contents live in the RoomStore.
// The registry has its own lock because it is read and written from the
// handlers of many unrelated rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]string // connection id -> room id ("" = not in a room)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]string)}
}

// Register adds a live connection with no room binding.
func (r *Registry) Register(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[connID] = ""
}

// Deregister removes a connection. Unknown ids are a no-op.
func (r *Registry) Deregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, connID)
}

// Bind sets the current room of a connection. An empty room id clears the
// binding. Binding an unregistered connection is a no-op; the connection is
// already gone and the caller's room mutation is cleaned up via Leave.
func (r *Registry) Bind(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[connID]; !ok {
		return
	}
	r.rooms[connID] = roomID
}

// RoomOf reports the room a connection is currently bound to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.rooms[connID]
	if !ok || roomID == "" {
		return "", false
	}
	return roomID, true
}

// Registered reports whether the connection is still live.
func (r *Registry) Registered(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[connID]
	return ok
}
