package client

import (
	"encoding/json"
	"sync"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

// Signal is one relayed negotiation message with its provenance.
type Signal struct {
	From    string
	Room    string
	Payload json.RawMessage
}

// Handler routes incoming coordinator frames to typed channels.
type Handler struct {
	client *Client

	Connected      chan string
	RoomCreated    chan string
	JoinPermission chan string
	Joined         chan protocol.RoomSnapshot
	JoinDenied     chan struct{}
	NotFound       chan struct{}
	UserJoined     chan string
	HostChanged    chan string
	Offer          chan *Signal
	Answer         chan *Signal
	Candidate      chan *Signal
	CallStart      chan struct{}

	closeOnce sync.Once
}

// NewHandler creates a handler over the client's incoming stream.
func NewHandler(c *Client) *Handler {
	return &Handler{
		client:         c,
		Connected:      make(chan string, 1),
		RoomCreated:    make(chan string, 1),
		JoinPermission: make(chan string, 4),
		Joined:         make(chan protocol.RoomSnapshot, 1),
		JoinDenied:     make(chan struct{}, 1),
		NotFound:       make(chan struct{}, 1),
		UserJoined:     make(chan string, 4),
		HostChanged:    make(chan string, 4),
		Offer:          make(chan *Signal, 32),
		Answer:         make(chan *Signal, 32),
		Candidate:      make(chan *Signal, 32),
		CallStart:      make(chan struct{}, 1),
	}
}

// Start consumes incoming frames until the connection closes, then closes
// every event channel so consumers see the loss of the coordinator.
func (h *Handler) Start() {
	defer h.Close()
	for msg := range h.client.Incoming() {
		switch msg.Event {

		case protocol.Connected:
			var id string
			if json.Unmarshal(msg.Payload, &id) == nil {
				h.Connected <- id
			}

		case protocol.RoomCreated:
			h.RoomCreated <- msg.Room

		case protocol.RoomJoinPermission:
			var d protocol.JoinDecision
			if json.Unmarshal(msg.Payload, &d) == nil && d.Requester != "" {
				h.JoinPermission <- d.Requester
			}

		case protocol.RoomJoined:
			var snap protocol.RoomSnapshot
			if json.Unmarshal(msg.Payload, &snap) == nil {
				h.Joined <- snap
			}

		case protocol.RoomJoinDenied:
			h.JoinDenied <- struct{}{}

		case protocol.RoomNotFound:
			h.NotFound <- struct{}{}

		case protocol.RoomUserJoined:
			var id string
			if json.Unmarshal(msg.Payload, &id) == nil {
				h.UserJoined <- id
			}

		case protocol.RoomHostChanged:
			var id string
			if json.Unmarshal(msg.Payload, &id) == nil {
				h.HostChanged <- id
			}

		case protocol.RoomCallOffer:
			h.Offer <- &Signal{From: msg.From, Room: msg.Room, Payload: msg.Payload}

		case protocol.RoomCallAnswer:
			h.Answer <- &Signal{From: msg.From, Room: msg.Room, Payload: msg.Payload}

		case protocol.RoomCallCandidate:
			h.Candidate <- &Signal{From: msg.From, Room: msg.Room, Payload: msg.Payload}

		case protocol.RoomCall:
			h.CallStart <- struct{}{}

		default:
		}
	}
}

// Close closes all handler channels. Start invokes it when the incoming
// stream ends; calling it again is a no-op.
func (h *Handler) Close() {
	h.closeOnce.Do(h.closeChannels)
}

func (h *Handler) closeChannels() {
	close(h.Connected)
	close(h.RoomCreated)
	close(h.JoinPermission)
	close(h.Joined)
	close(h.JoinDenied)
	close(h.NotFound)
	close(h.UserJoined)
	close(h.HostChanged)
	close(h.Offer)
	close(h.Answer)
	close(h.Candidate)
	close(h.CallStart)
}
