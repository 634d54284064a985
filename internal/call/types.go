// Package call implements the per-peer negotiation state machine that
// drives local media acquisition, session-description exchange and
// candidate handling. It couples to the rest of the client through the
// Signaler interface only; the underlying WebRTC engine sits behind
// PeerLink so the state machine is testable without a network.
package call

// State is the negotiation state of one peer pair.
type State int

const (
	StateIdle State = iota
	StateMediaAcquiring
	StateMediaReady
	StateOfferCreated
	StateAnswerCreated
	StateLocalDescSet
	StateRemoteDescSet
	StateStable
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMediaAcquiring:
		return "media-acquiring"
	case StateMediaReady:
		return "media-ready"
	case StateOfferCreated:
		return "offer-created"
	case StateAnswerCreated:
		return "answer-created"
	case StateLocalDescSet:
		return "local-description-set"
	case StateRemoteDescSet:
		return "remote-description-set"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Signaler is the only surface the call package needs from the signaling
// layer: sending negotiation payloads into the room's relay.
type Signaler interface {
	SendOffer(payload []byte) error
	SendAnswer(payload []byte) error
	SendCandidate(roomID string, payload []byte) error
}

// TrackKind distinguishes audio from video tracks.
type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

// LocalTrack is one locally captured track, attachable to a peer link.
type LocalTrack interface {
	ID() string
	Kind() TrackKind
}

// LocalMedia is a live local capture. Closing it releases the devices.
type LocalMedia interface {
	Tracks() []LocalTrack
	SetEnabled(kind TrackKind, enabled bool) error
	Close() error
}

// PeerLink is the negotiation engine for one peer pair. Descriptions and
// candidates cross this interface as the same opaque blobs that travel the
// wire.
type PeerLink interface {
	CreateOffer() ([]byte, error)
	CreateAnswer() ([]byte, error)
	SetLocalDescription(desc []byte) error
	SetRemoteDescription(desc []byte) error
	AddCandidate(candidate []byte) error

	// AttachTrack adds a local track to the outgoing media session.
	// Reports false when the track was already attached.
	AttachTrack(track LocalTrack) (bool, error)

	// OnCandidate registers the callback for locally gathered candidates.
	OnCandidate(fn func(candidate []byte))

	Close() error
}

// LinkFactory builds a fresh PeerLink for a new peer pair.
type LinkFactory func() (PeerLink, error)

// MediaFactory acquires a combined audio+video local capture.
type MediaFactory func() (LocalMedia, error)
