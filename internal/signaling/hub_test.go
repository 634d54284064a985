package signaling

import (
	"sync"
	"testing"

	"github.com/jindalujjwal0720/milan/internal/protocol"
)

// addTestClient registers a Client without a real websocket, the way Connect
// does, so hub-level delivery can be exercised directly.
func addTestClient(h *Hub) *Client {
	c := newClient(h, nil)
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.Registry.Register(c.ID)
	return c
}

func TestSendAfterDisconnect(t *testing.T) {
	h := NewHub()
	c := addTestClient(h)

	h.disconnect(c)

	// The map entry is gone and the queue is closed; both delivery paths
	// must drop the frame instead of panicking.
	h.Send(c.ID, &protocol.Message{Event: protocol.RoomCall})
	if c.enqueue(&protocol.Message{Event: protocol.RoomCall}) {
		t.Fatal("enqueue reported delivery on a closed connection")
	}
}

func TestSendRacesDisconnect(t *testing.T) {
	for i := 0; i < 100; i++ {
		h := NewHub()
		c := addTestClient(h)
		msg := &protocol.Message{Event: protocol.RoomCallOffer}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h.Send(c.ID, msg)
			}
		}()
		go func() {
			defer wg.Done()
			h.disconnect(c)
		}()
		wg.Wait()
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	h := NewHub()
	c := addTestClient(h)

	h.disconnect(c)
	h.disconnect(c)

	if h.Registry.Registered(c.ID) {
		t.Fatal("registry still knows disconnected connection")
	}
}
