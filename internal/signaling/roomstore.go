package signaling

import (
	"errors"
	"sync"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

var (
	// ErrRoomNotFound indicates that the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrDuplicateRoom indicates a room id collision on create. Callers
	// generate collision-resistant ids, so this is effectively unreachable,
	// but it must still be handled.
	ErrDuplicateRoom = errors.New("room already exists")
)

// room is the mutable server-side room state. Members keeps join order;
// the earliest-joined member is first, which drives host succession.
type room struct {
	id      string
	members []string
	host    string
}

func (r *room) snapshot() protocol.RoomSnapshot {
	members := make([]string, len(r.members))
	copy(members, r.members)
	return protocol.RoomSnapshot{ID: r.id, Members: members, Host: r.host}
}

// RemoveResult reports what a RemoveMember call did to the room.
type RemoveResult struct {
	// Deleted is true when the removed member was the last one and the
	// room no longer exists. Room is the zero value in that case.
	Deleted bool

	// HostChanged is true when the removed member was the host and a new
	// host was elected from the remaining members.
	HostChanged bool

	// Room is a snapshot of the room after the removal.
	Room protocol.RoomSnapshot
}

// RoomStore owns all rooms. A single lock serializes mutations; every
// critical section is a memory-only map/slice operation, so room handlers
// never hold the lock across transport I/O. The lifecycle manager is the
// sole mutator.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// NewRoomStore creates an empty store.
func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*room)}
}

// Create adds a new room with the given host as its only member.
func (s *RoomStore) Create(roomID, hostConnID string) (protocol.RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		return protocol.RoomSnapshot{}, ErrDuplicateRoom
	}
	r := &room{id: roomID, members: []string{hostConnID}, host: hostConnID}
	s.rooms[roomID] = r
	return r.snapshot(), nil
}

// Get returns a snapshot of the room, if it exists.
func (s *RoomStore) Get(roomID string) (protocol.RoomSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return protocol.RoomSnapshot{}, false
	}
	return r.snapshot(), true
}

// AddMember appends a connection to the room's member list. Adding an
// existing member is a no-op, not an error.
func (s *RoomStore) AddMember(roomID, connID string) (protocol.RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return protocol.RoomSnapshot{}, ErrRoomNotFound
	}
	for _, m := range r.members {
		if m == connID {
			return r.snapshot(), nil
		}
	}
	r.members = append(r.members, connID)
	return r.snapshot(), nil
}

// RemoveMember removes a connection from the room. If the removed member was
// the host and members remain, the earliest-joined remaining member becomes
// host. If the room becomes empty it is deleted. Removing a non-member is a
// no-op reported as a plain snapshot.
func (s *RoomStore) RemoveMember(roomID, connID string) (RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return RemoveResult{}, ErrRoomNotFound
	}

	idx := -1
	for i, m := range r.members {
		if m == connID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return RemoveResult{Room: r.snapshot()}, nil
	}

	r.members = append(r.members[:idx], r.members[idx+1:]...)

	if len(r.members) == 0 {
		delete(s.rooms, roomID)
		return RemoveResult{Deleted: true}, nil
	}

	res := RemoveResult{}
	if r.host == connID {
		r.host = r.members[0]
		res.HostChanged = true
	}
	res.Room = r.snapshot()
	return res, nil
}
