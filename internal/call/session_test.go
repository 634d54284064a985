package call

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// opLog records the order of operations across the fakes so negotiation
// ordering can be asserted.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ops))
	copy(out, l.ops)
	return out
}

type fakeSignaler struct {
	mu         sync.Mutex
	offers     [][]byte
	answers    [][]byte
	candidates [][]byte
}

func (f *fakeSignaler) SendOffer(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = append(f.offers, payload)
	return nil
}

func (f *fakeSignaler) SendAnswer(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, payload)
	return nil
}

func (f *fakeSignaler) SendCandidate(roomID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, payload)
	return nil
}

type fakeTrack struct {
	id   string
	kind TrackKind
}

func (t *fakeTrack) ID() string      { return t.id }
func (t *fakeTrack) Kind() TrackKind { return t.kind }

type fakeMedia struct {
	log     *opLog
	mu      sync.Mutex
	enabled map[TrackKind]bool
	closed  bool

	// enableErr fails the next attempt to re-enable a kind, the way a
	// busy or unplugged device would.
	enableErr error
}

func newFakeMedia(log *opLog) *fakeMedia {
	return &fakeMedia{
		log:     log,
		enabled: map[TrackKind]bool{KindAudio: true, KindVideo: true},
	}
}

func (m *fakeMedia) Tracks() []LocalTrack {
	return []LocalTrack{
		&fakeTrack{id: "audio-1", kind: KindAudio},
		&fakeTrack{id: "video-1", kind: KindVideo},
	}
}

func (m *fakeMedia) SetEnabled(kind TrackKind, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled && m.enableErr != nil {
		return m.enableErr
	}
	m.enabled[kind] = enabled
	m.log.add(fmt.Sprintf("set-enabled %s=%v", kind, enabled))
	return nil
}

func (m *fakeMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.log.add("media-close")
	return nil
}

type fakeLink struct {
	log        *opLog
	mu         sync.Mutex
	remoteDesc []byte
	localDesc  []byte
	candidates [][]byte
	attached   []string
	onCand     func([]byte)
	closed     bool

	failAnswer error
}

func (l *fakeLink) CreateOffer() ([]byte, error) {
	l.log.add("create-offer")
	return []byte(`{"type":"offer"}`), nil
}

func (l *fakeLink) CreateAnswer() ([]byte, error) {
	l.log.add("create-answer")
	if l.failAnswer != nil {
		return nil, l.failAnswer
	}
	return []byte(`{"type":"answer"}`), nil
}

func (l *fakeLink) SetLocalDescription(desc []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.localDesc = desc
	l.log.add("set-local")
	return nil
}

func (l *fakeLink) SetRemoteDescription(desc []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remoteDesc = desc
	l.log.add("set-remote")
	return nil
}

func (l *fakeLink) AddCandidate(candidate []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.candidates = append(l.candidates, candidate)
	l.log.add("add-candidate")
	return nil
}

func (l *fakeLink) AttachTrack(track LocalTrack) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.attached {
		if id == track.ID() {
			return false, nil
		}
	}
	l.attached = append(l.attached, track.ID())
	l.log.add("attach " + track.ID())
	return true, nil
}

func (l *fakeLink) OnCandidate(fn func(candidate []byte)) { l.onCand = fn }

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.log.add("link-close")
	return nil
}

type harness struct {
	log   *opLog
	sig   *fakeSignaler
	link  *fakeLink
	media *fakeMedia

	mediaErr      error
	mediaAcquired int
}

func newHarness() *harness {
	log := &opLog{}
	return &harness{
		log:  log,
		sig:  &fakeSignaler{},
		link: &fakeLink{log: log},
	}
}

func (h *harness) session() *Session {
	newLink := func() (PeerLink, error) { return h.link, nil }
	acquire := func() (LocalMedia, error) {
		if h.mediaErr != nil {
			return nil, h.mediaErr
		}
		h.mediaAcquired++
		h.log.add("acquire-media")
		h.media = newFakeMedia(h.log)
		return h.media, nil
	}
	return NewSession("room-1", "peer-1", h.sig, newLink, acquire)
}

func TestCallSendsOffer(t *testing.T) {
	h := newHarness()
	s := h.session()

	if err := s.Call(); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if len(h.sig.offers) != 1 {
		t.Fatalf("expected one offer, got %d", len(h.sig.offers))
	}
	if s.State() != StateLocalDescSet {
		t.Errorf("state = %v", s.State())
	}
	if h.mediaAcquired != 1 {
		t.Errorf("media acquired %d times", h.mediaAcquired)
	}
	if len(h.link.attached) != 2 {
		t.Errorf("tracks attached: %v", h.link.attached)
	}
}

func TestAutoAnswerOrdering(t *testing.T) {
	h := newHarness()
	s := h.session()

	if err := s.HandleOffer([]byte(`{"type":"offer"}`)); err != nil {
		t.Fatalf("HandleOffer failed: %v", err)
	}

	if len(h.sig.answers) != 1 {
		t.Fatalf("expected one answer, got %d", len(h.sig.answers))
	}
	if s.State() != StateStable {
		t.Errorf("state = %v", s.State())
	}

	// Remote description first, then media, then the answer.
	want := []string{"set-remote", "acquire-media", "attach audio-1", "attach video-1", "create-answer", "set-local"}
	if got := h.log.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("negotiation order\n got: %v\nwant: %v", got, want)
	}
}

func TestHandleAnswerStabilizes(t *testing.T) {
	h := newHarness()
	s := h.session()

	if err := s.Call(); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if err := s.HandleAnswer([]byte(`{"type":"answer"}`)); err != nil {
		t.Fatalf("HandleAnswer failed: %v", err)
	}
	if s.State() != StateStable {
		t.Errorf("state = %v", s.State())
	}
}

func TestAnswerWithoutLink(t *testing.T) {
	h := newHarness()
	s := h.session()

	if err := s.HandleAnswer([]byte(`{"type":"answer"}`)); !errors.Is(err, ErrNoPeerLink) {
		t.Errorf("expected ErrNoPeerLink, got %v", err)
	}
}

func TestEmptyDescriptionsIgnored(t *testing.T) {
	h := newHarness()
	s := h.session()

	if err := s.HandleOffer(nil); err != nil {
		t.Errorf("empty offer: %v", err)
	}
	if err := s.HandleAnswer(nil); err != nil {
		t.Errorf("empty answer: %v", err)
	}
	if err := s.HandleCandidate(nil); err != nil {
		t.Errorf("empty candidate: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("empty payloads changed state to %v", s.State())
	}
}

func TestEarlyCandidatesQueuedAndFlushed(t *testing.T) {
	h := newHarness()
	s := h.session()

	early := [][]byte{[]byte(`{"candidate":"1"}`), []byte(`{"candidate":"2"}`)}
	for _, c := range early {
		if err := s.HandleCandidate(c); err != nil {
			t.Fatalf("early candidate rejected: %v", err)
		}
	}
	if len(h.link.candidates) != 0 {
		t.Fatal("candidates applied before the remote description")
	}

	if err := s.HandleOffer([]byte(`{"type":"offer"}`)); err != nil {
		t.Fatalf("HandleOffer failed: %v", err)
	}
	if len(h.link.candidates) != 2 || string(h.link.candidates[0]) != `{"candidate":"1"}` {
		t.Errorf("queued candidates not flushed in order: %v", h.link.candidates)
	}

	// Later candidates apply immediately.
	s.HandleCandidate([]byte(`{"candidate":"3"}`))
	if len(h.link.candidates) != 3 {
		t.Errorf("late candidate not applied: %v", h.link.candidates)
	}
}

func TestMediaFailureAnswersReceiveOnly(t *testing.T) {
	h := newHarness()
	h.mediaErr = ErrMediaUnavailable
	s := h.session()

	if err := s.HandleOffer([]byte(`{"type":"offer"}`)); err != nil {
		t.Fatalf("HandleOffer failed without media: %v", err)
	}
	if len(h.sig.answers) != 1 {
		t.Error("no answer sent in receive-only mode")
	}
	if s.MediaActive() {
		t.Error("media reported active after a failed acquisition")
	}
}

func TestLocalCandidatesForwarded(t *testing.T) {
	h := newHarness()
	s := h.session()

	if err := s.Call(); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	h.link.onCand([]byte(`{"candidate":"local"}`))

	if len(h.sig.candidates) != 1 {
		t.Fatalf("local candidate not signaled: %v", h.sig.candidates)
	}
}

func TestToggleLifecycle(t *testing.T) {
	h := newHarness()
	s := h.session()

	// First toggle-on acquires the combined capture with video disabled.
	on, err := s.ToggleAudio()
	if err != nil || !on {
		t.Fatalf("ToggleAudio = %v, %v", on, err)
	}
	if h.mediaAcquired != 1 {
		t.Fatalf("media acquired %d times", h.mediaAcquired)
	}
	if h.media.enabled[KindVideo] {
		t.Error("unrequested video left enabled after first toggle")
	}

	// Turning video on is only a flag flip, no second capture.
	on, err = s.ToggleVideo()
	if err != nil || !on {
		t.Fatalf("ToggleVideo = %v, %v", on, err)
	}
	if h.mediaAcquired != 1 {
		t.Error("second capture acquired for a flag flip")
	}

	// Audio off keeps the capture alive for video.
	if on, _ = s.ToggleAudio(); on {
		t.Error("audio still on after toggle off")
	}
	if h.media.closed {
		t.Error("capture released while video is still on")
	}

	// Both off releases the devices entirely.
	if on, _ = s.ToggleVideo(); on {
		t.Error("video still on after toggle off")
	}
	if !h.media.closed {
		t.Error("capture not released with both kinds off")
	}
	if s.MediaActive() {
		t.Error("media still reported active")
	}

	// Toggling on again starts a fresh capture.
	if _, err := s.ToggleAudio(); err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
	if h.mediaAcquired != 2 {
		t.Errorf("media acquired %d times, want 2", h.mediaAcquired)
	}
}

func TestToggleReEnableFailureKeepsFlagOff(t *testing.T) {
	h := newHarness()
	s := h.session()

	if _, err := s.ToggleAudio(); err != nil {
		t.Fatalf("ToggleAudio failed: %v", err)
	}
	if _, err := s.ToggleVideo(); err != nil {
		t.Fatalf("ToggleVideo failed: %v", err)
	}

	// Video off, then the camera goes away before the retry.
	if on, _ := s.ToggleVideo(); on {
		t.Fatal("video still on after toggle off")
	}
	h.media.enableErr = errors.New("device busy")

	on, err := s.ToggleVideo()
	if err == nil {
		t.Fatal("failed re-capture reported no error")
	}
	if on {
		t.Error("toggle reported video on without a captured track")
	}
	if h.media.enabled[KindVideo] {
		t.Error("fake capture enabled despite the failure")
	}

	// Once the device is back the toggle succeeds again.
	h.media.enableErr = nil
	if on, err := s.ToggleVideo(); err != nil || !on {
		t.Errorf("recovered toggle = %v, %v", on, err)
	}
}

func TestToggleWithoutDevices(t *testing.T) {
	h := newHarness()
	h.mediaErr = ErrMediaUnavailable
	s := h.session()

	if _, err := s.ToggleAudio(); !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("expected ErrMediaUnavailable, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	h := newHarness()
	s := h.session()
	s.Call()

	s.Close()
	s.Close()

	if !h.link.closed || !h.media.closed {
		t.Error("close did not release link and media")
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v", s.State())
	}
	if err := s.Call(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Call after close: %v", err)
	}
	if _, err := s.ToggleAudio(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("ToggleAudio after close: %v", err)
	}
}

func TestManagerRoutesBySender(t *testing.T) {
	log := &opLog{}
	sig := &fakeSignaler{}
	links := map[string]*fakeLink{}
	var next string
	newLink := func() (PeerLink, error) {
		l := &fakeLink{log: log}
		links[next] = l
		return l, nil
	}
	acquire := func() (LocalMedia, error) { return newFakeMedia(log), nil }

	m := NewManager("room-1", sig, newLink, acquire)

	next = "p1"
	if err := m.HandleOffer("p1", []byte(`{"type":"offer"}`)); err != nil {
		t.Fatalf("HandleOffer failed: %v", err)
	}
	next = "p2"
	if err := m.HandleOffer("p2", []byte(`{"type":"offer"}`)); err != nil {
		t.Fatalf("HandleOffer failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected a link per peer, got %d", len(links))
	}

	// An answer from an unknown peer is dropped, not an error.
	if err := m.HandleAnswer("stranger", []byte(`{"type":"answer"}`)); err != nil {
		t.Errorf("unknown answer: %v", err)
	}

	m.Drop("p1")
	if !links["p1"].closed {
		t.Error("dropped peer's link not closed")
	}
	if links["p2"].closed {
		t.Error("unrelated link closed by Drop")
	}

	m.Close()
	if !links["p2"].closed {
		t.Error("Close left a link open")
	}
}
