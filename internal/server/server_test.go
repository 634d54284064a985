package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jindalujjwal0720/milan/internal/protocol"
	"github.com/jindalujjwal0720/milan/internal/signaling"
)

func newTestServer(t *testing.T, allowedOrigin string) (*httptest.Server, *signaling.Hub) {
	t.Helper()
	hub := signaling.NewHub()
	ts := httptest.NewServer(Routes(hub, allowedOrigin))
	t.Cleanup(ts.Close)
	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// peer is one connected test client.
type peer struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func dialPeer(t *testing.T, ts *httptest.Server) *peer {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	p := &peer{t: t, conn: conn}
	msg := p.expect(protocol.Connected)
	if err := json.Unmarshal(msg.Payload, &p.id); err != nil || p.id == "" {
		t.Fatalf("no connection id in the connected frame: %s", msg.Payload)
	}
	return p
}

func (p *peer) send(msg *protocol.Message) {
	p.t.Helper()
	if err := p.conn.WriteJSON(msg); err != nil {
		p.t.Fatalf("write failed: %v", err)
	}
}

// expect reads frames until one with the wanted event arrives.
func (p *peer) expect(event string) *protocol.Message {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg protocol.Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			p.t.Fatalf("waiting for %q: %v", event, err)
		}
		if msg.Event == event {
			return &msg
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestOriginCheck(t *testing.T) {
	ts, _ := newTestServer(t, "http://app.example.com")

	// Wrong origin is rejected at the upgrade.
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL(ts), header); err == nil {
		t.Fatal("upgrade succeeded for a disallowed origin")
	}

	// Matching origin connects.
	header = http.Header{"Origin": []string{"http://app.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err != nil {
		t.Fatalf("upgrade failed for the allowed origin: %v", err)
	}
	conn.Close()
}

func TestFullCallSetup(t *testing.T) {
	ts, _ := newTestServer(t, "")

	host := dialPeer(t, ts)
	guest := dialPeer(t, ts)

	// Host creates a room.
	host.send(&protocol.Message{Event: protocol.RoomCreate})
	created := host.expect(protocol.RoomCreated)
	roomID := created.Room
	if roomID == "" {
		t.Fatal("room:created carried no room id")
	}

	// Guest asks to join; host is consulted and accepts.
	guest.send(&protocol.Message{Event: protocol.RoomJoin, Room: roomID})
	perm := host.expect(protocol.RoomJoinPermission)
	var d protocol.JoinDecision
	if err := json.Unmarshal(perm.Payload, &d); err != nil || d.Requester != guest.id {
		t.Fatalf("bad permission payload: %s", perm.Payload)
	}
	host.send(&protocol.Message{
		Event:   protocol.RoomJoinAccepted,
		Payload: protocol.MarshalPayload(protocol.JoinDecision{Requester: guest.id}),
	})

	joined := guest.expect(protocol.RoomJoined)
	var snap protocol.RoomSnapshot
	if err := json.Unmarshal(joined.Payload, &snap); err != nil {
		t.Fatalf("bad joined payload: %v", err)
	}
	if snap.Host != host.id || len(snap.Members) != 2 {
		t.Errorf("unexpected room snapshot: %+v", snap)
	}
	if host.expect(protocol.RoomUserJoined).From != guest.id {
		t.Error("host's join notice has the wrong sender")
	}

	// Negotiation payloads relay opaquely with provenance.
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	guest.send(&protocol.Message{Event: protocol.RoomCallOffer, Payload: offer})
	got := host.expect(protocol.RoomCallOffer)
	if got.From != guest.id || string(got.Payload) != string(offer) {
		t.Errorf("offer mangled in relay: %+v", got)
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	host.send(&protocol.Message{Event: protocol.RoomCallAnswer, Payload: answer})
	if got := guest.expect(protocol.RoomCallAnswer); got.From != host.id {
		t.Errorf("answer has the wrong sender: %+v", got)
	}

	candidate := json.RawMessage(`{"candidate":"candidate:1"}`)
	guest.send(&protocol.Message{Event: protocol.RoomCallCandidate, Room: roomID, Payload: candidate})
	if got := host.expect(protocol.RoomCallCandidate); string(got.Payload) != string(candidate) {
		t.Errorf("candidate mangled in relay: %+v", got)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	ts, _ := newTestServer(t, "")
	guest := dialPeer(t, ts)

	guest.send(&protocol.Message{Event: protocol.RoomJoin, Room: "nope"})
	if got := guest.expect(protocol.RoomNotFound); got.Room != "nope" {
		t.Errorf("not-found names the wrong room: %+v", got)
	}
}

func TestDisconnectPromotesNewHost(t *testing.T) {
	ts, _ := newTestServer(t, "")

	host := dialPeer(t, ts)
	guest := dialPeer(t, ts)

	host.send(&protocol.Message{Event: protocol.RoomCreate})
	roomID := host.expect(protocol.RoomCreated).Room

	guest.send(&protocol.Message{Event: protocol.RoomJoin, Room: roomID})
	host.expect(protocol.RoomJoinPermission)
	host.send(&protocol.Message{
		Event:   protocol.RoomJoinAccepted,
		Payload: protocol.MarshalPayload(protocol.JoinDecision{Requester: guest.id}),
	})
	guest.expect(protocol.RoomJoined)

	// The host drops; the guest is promoted.
	host.conn.Close()

	msg := guest.expect(protocol.RoomHostChanged)
	var newHost string
	if err := json.Unmarshal(msg.Payload, &newHost); err != nil || newHost != guest.id {
		t.Errorf("expected promotion to %s, got %s", guest.id, msg.Payload)
	}
}

func TestDeferredCallEcho(t *testing.T) {
	ts, hub := newTestServer(t, "")
	hub.Relay.SetCallPacing(time.Second, 200*time.Millisecond)

	host := dialPeer(t, ts)
	guest := dialPeer(t, ts)

	host.send(&protocol.Message{Event: protocol.RoomCreate})
	roomID := host.expect(protocol.RoomCreated).Room

	guest.send(&protocol.Message{Event: protocol.RoomJoin, Room: roomID})
	host.expect(protocol.RoomJoinPermission)
	host.send(&protocol.Message{
		Event:   protocol.RoomJoinAccepted,
		Payload: protocol.MarshalPayload(protocol.JoinDecision{Requester: guest.id}),
	})
	guest.expect(protocol.RoomJoined)

	// The echo is delayed server-side, so this read exercises the
	// deferred delivery path end to end.
	guest.send(&protocol.Message{Event: protocol.RoomCall})
	start := time.Now()
	guest.expect(protocol.RoomCall)
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("echo arrived after %v, before the configured delay", elapsed)
	}

	// A second request inside the cooldown window is dropped.
	guest.send(&protocol.Message{Event: protocol.RoomCall})
	guest.conn.SetReadDeadline(time.Now().Add(600 * time.Millisecond))
	var msg protocol.Message
	if err := guest.conn.ReadJSON(&msg); err == nil && msg.Event == protocol.RoomCall {
		t.Error("rate-limited call was still echoed")
	}
}
