package protocol

import "encoding/json"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket frames.
type Message struct {
	// Event is the logical event name ("room:create", "room:call:offer", ...).
	Event string `json:"event"`

	// From is the connection id of the originating peer. Set by the
	// coordinator when relaying negotiation messages; ignored on input.
	From string `json:"from,omitempty"`

	// Room carries a room id where the event needs one
	// (room:join, room:leave, room:call:ice-candidate).
	Room string `json:"room,omitempty"`

	// Payload is opaque to the coordinator for negotiation events.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event names. The client→coordinator and coordinator→client legs of a relay
// share one name; provenance is carried in From.
const (
	// Connected is sent once right after the websocket upgrade and carries
	// the connection id assigned to this client. Transport-level identity,
	// not part of the room protocol.
	Connected = "connected"

	RoomCreate  = "room:create"
	RoomCreated = "room:created"

	RoomJoin           = "room:join"
	RoomJoinPermission = "room:join:permission"
	RoomJoinAccepted   = "room:join:accepted"
	RoomJoinDenied     = "room:join:denied"
	RoomJoined         = "room:joined"
	RoomNotFound       = "room:not-found"
	RoomUserJoined     = "room:user:joined"
	RoomHostChanged    = "room:host:changed"
	RoomLeave          = "room:leave"

	RoomCallOffer     = "room:call:offer"
	RoomCallAnswer    = "room:call:answer"
	RoomCallCandidate = "room:call:ice-candidate"
	RoomCall          = "room:call"
)

// RoomSnapshot is the immutable room value delivered with room:joined.
type RoomSnapshot struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
	Host    string   `json:"host"`
}

// JoinDecision is the payload of room:join:permission (coordinator→host)
// and room:join:accepted / room:join:denied (host→coordinator).
type JoinDecision struct {
	Requester string `json:"requester"`
}

// MarshalPayload is a small helper for building frames with typed payloads.
func MarshalPayload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
