package call

import (
	"log/slog"
	"sync"
)

// Session is the negotiation state machine for one remote peer. All entry
// points are safe for concurrent use; local failures (device denial,
// description mismatch) are reported to the caller and leave the session in
// a non-terminal state so it may retry.
type Session struct {
	remoteID string
	roomID   string
	sig      Signaler
	newLink  LinkFactory
	acquire  MediaFactory

	mu      sync.Mutex
	state   State
	link    PeerLink
	media   LocalMedia
	audioOn bool
	videoOn bool

	// Candidates that arrived before the remote description; flushed, in
	// arrival order, once it is applied. Never dropped for being early.
	remoteSet  bool
	candidates [][]byte
}

// NewSession creates an idle session for the given remote peer.
func NewSession(roomID, remoteID string, sig Signaler, newLink LinkFactory, acquire MediaFactory) *Session {
	return &Session{
		remoteID: remoteID,
		roomID:   roomID,
		sig:      sig,
		newLink:  newLink,
		acquire:  acquire,
		state:    StateIdle,
	}
}

// State reports the current negotiation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemoteID reports the remote peer this session negotiates with.
func (s *Session) RemoteID() string { return s.remoteID }

// Call initiates negotiation: lazily acquires local media, attaches tracks,
// creates and applies the local offer and sends it to the peer.
func (s *Session) Call() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if err := s.ensureLinkLocked(); err != nil {
		return NewError("create peer link", err)
	}
	s.ensureMediaLocked()
	s.attachTracksLocked()

	offer, err := s.createOfferLocked()
	if err != nil {
		return err
	}
	if err := s.link.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}
	s.state = StateLocalDescSet

	if err := s.sig.SendOffer(offer); err != nil {
		return NewError("send offer", err)
	}
	slog.Debug("offer sent", "peer", s.remoteID)
	return nil
}

// HandleOffer applies a remote offer and auto-answers: remote description
// first, then local media, then the answer. An empty offer is a no-op.
func (s *Session) HandleOffer(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if err := s.ensureLinkLocked(); err != nil {
		return NewError("create peer link", err)
	}

	if err := s.link.SetRemoteDescription(payload); err != nil {
		return NewError("set remote description", err)
	}
	s.state = StateRemoteDescSet
	s.markRemoteSetLocked()

	s.ensureMediaLocked()
	s.attachTracksLocked()

	answer, err := s.link.CreateAnswer()
	if err != nil {
		return NewError("create answer", err)
	}
	s.state = StateAnswerCreated

	if err := s.link.SetLocalDescription(answer); err != nil {
		return NewError("set local description", err)
	}
	if err := s.sig.SendAnswer(answer); err != nil {
		return NewError("send answer", err)
	}
	s.state = StateStable
	slog.Debug("answer sent", "peer", s.remoteID)
	return nil
}

// HandleAnswer applies a remote answer and moves to Stable. An empty
// answer is a no-op.
func (s *Session) HandleAnswer(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if s.link == nil {
		return ErrNoPeerLink
	}

	if err := s.link.SetRemoteDescription(payload); err != nil {
		return NewError("set remote description", err)
	}
	s.markRemoteSetLocked()
	s.state = StateStable
	return nil
}

// HandleCandidate applies a remote network candidate, queueing it when the
// remote description has not been applied yet.
func (s *Session) HandleCandidate(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if !s.remoteSet {
		s.candidates = append(s.candidates, payload)
		return nil
	}
	if err := s.link.AddCandidate(payload); err != nil {
		return NewError("add candidate", err)
	}
	return nil
}

// ToggleAudio flips the local audio track. Reports the new enabled state.
func (s *Session) ToggleAudio() (bool, error) { return s.toggle(KindAudio) }

// ToggleVideo flips the local video track. Reports the new enabled state.
func (s *Session) ToggleVideo() (bool, error) { return s.toggle(KindVideo) }

func (s *Session) toggle(kind TrackKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false, ErrSessionClosed
	}

	on := s.flagLocked(kind)
	if !*on {
		// Turning on. First time acquires a combined capture with the
		// other kind disabled; later it re-enables just that kind. The
		// flag flips only after the device is actually held.
		if s.media == nil {
			if !s.acquireMediaLocked() {
				return false, NewError("acquire media", ErrMediaUnavailable)
			}
			s.audioOn = kind == KindAudio
			s.videoOn = kind == KindVideo
			if err := s.media.SetEnabled(otherKind(kind), false); err != nil {
				slog.Warn("disable track failed", "peer", s.remoteID, "kind", otherKind(kind), "err", err)
			}
			s.attachTracksLocked()
			return true, nil
		}
		if err := s.media.SetEnabled(kind, true); err != nil {
			return false, NewError("enable track", err)
		}
		*on = true
		s.attachTracksLocked()
		return true, nil
	}

	// Turning off.
	*on = false
	if s.media == nil {
		return false, nil
	}
	if !s.audioOn && !s.videoOn {
		// Nothing left to capture; release the devices entirely.
		s.media.Close()
		s.media = nil
		slog.Debug("local media released", "peer", s.remoteID)
		return false, nil
	}
	if err := s.media.SetEnabled(kind, false); err != nil {
		slog.Warn("disable track failed", "peer", s.remoteID, "kind", kind, "err", err)
	}
	return false, nil
}

// MediaActive reports whether a local capture is currently held.
func (s *Session) MediaActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media != nil
}

// Close tears the session down from any state: releases local media and the
// peer link. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	if s.media != nil {
		s.media.Close()
		s.media = nil
	}
	if s.link != nil {
		s.link.Close()
		s.link = nil
	}
	s.candidates = nil
}

func (s *Session) ensureLinkLocked() error {
	if s.link != nil {
		return nil
	}
	link, err := s.newLink()
	if err != nil {
		return err
	}
	link.OnCandidate(func(candidate []byte) {
		if err := s.sig.SendCandidate(s.roomID, candidate); err != nil {
			slog.Warn("candidate send failed", "peer", s.remoteID, "err", err)
		}
	})
	s.link = link
	return nil
}

// ensureMediaLocked lazily acquires the combined capture. Failure is not
// fatal: the session continues receive-only and the user may retry via a
// toggle.
func (s *Session) ensureMediaLocked() {
	if s.media != nil {
		return
	}
	if s.acquireMediaLocked() {
		s.audioOn = true
		s.videoOn = true
	}
}

func (s *Session) acquireMediaLocked() bool {
	prev := s.state
	if prev == StateIdle {
		s.state = StateMediaAcquiring
	}
	media, err := s.acquire()
	if err != nil {
		slog.Warn("media acquisition failed, continuing receive-only", "peer", s.remoteID, "err", err)
		s.state = prev
		return false
	}
	s.media = media
	if prev == StateIdle || prev == StateMediaAcquiring {
		s.state = StateMediaReady
	}
	return true
}

// attachTracksLocked adds local tracks to the link. Safe to call
// repeatedly; already-attached tracks are skipped. Either dependency being
// absent defers the attachment instead of failing.
func (s *Session) attachTracksLocked() {
	if s.link == nil || s.media == nil {
		return
	}
	for _, track := range s.media.Tracks() {
		if _, err := s.link.AttachTrack(track); err != nil {
			slog.Warn("track attach failed", "peer", s.remoteID, "track", track.ID(), "err", err)
		}
	}
}

func (s *Session) createOfferLocked() ([]byte, error) {
	if s.link == nil {
		return nil, ErrNoPeerLink
	}
	offer, err := s.link.CreateOffer()
	if err != nil {
		return nil, NewError("create offer", err)
	}
	s.state = StateOfferCreated
	return offer, nil
}

func (s *Session) markRemoteSetLocked() {
	s.remoteSet = true
	for _, candidate := range s.candidates {
		if err := s.link.AddCandidate(candidate); err != nil {
			slog.Warn("queued candidate apply failed", "peer", s.remoteID, "err", err)
		}
	}
	s.candidates = nil
}

func (s *Session) flagLocked(kind TrackKind) *bool {
	if kind == KindAudio {
		return &s.audioOn
	}
	return &s.videoOn
}

func otherKind(kind TrackKind) TrackKind {
	if kind == KindAudio {
		return KindVideo
	}
	return KindAudio
}
