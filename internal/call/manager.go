package call

import (
	"log/slog"
	"sync"
)

// Manager owns one Session per remote peer and routes inbound negotiation
// payloads to the right one, creating it on first contact.
type Manager struct {
	roomID  string
	sig     Signaler
	newLink LinkFactory
	acquire MediaFactory

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager for the given room.
func NewManager(roomID string, sig Signaler, newLink LinkFactory, acquire MediaFactory) *Manager {
	return &Manager{
		roomID:   roomID,
		sig:      sig,
		newLink:  newLink,
		acquire:  acquire,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for the given remote peer, creating one if
// needed.
func (m *Manager) Session(remoteID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked(remoteID)
}

func (m *Manager) sessionLocked(remoteID string) *Session {
	if s, ok := m.sessions[remoteID]; ok {
		return s
	}
	s := NewSession(m.roomID, remoteID, m.sig, m.newLink, m.acquire)
	m.sessions[remoteID] = s
	slog.Debug("call session created", "peer", remoteID)
	return s
}

// Call starts negotiation towards the given peer.
func (m *Manager) Call(remoteID string) error {
	return m.Session(remoteID).Call()
}

// HandleOffer routes an inbound offer to the sender's session.
func (m *Manager) HandleOffer(from string, payload []byte) error {
	return m.Session(from).HandleOffer(payload)
}

// HandleAnswer routes an inbound answer to the sender's session.
func (m *Manager) HandleAnswer(from string, payload []byte) error {
	m.mu.Lock()
	s, ok := m.sessions[from]
	m.mu.Unlock()
	if !ok {
		slog.Debug("answer for unknown session dropped", "peer", from)
		return nil
	}
	return s.HandleAnswer(payload)
}

// HandleCandidate routes an inbound candidate to the sender's session,
// creating it so early candidates are queued rather than lost.
func (m *Manager) HandleCandidate(from string, payload []byte) error {
	return m.Session(from).HandleCandidate(payload)
}

// Drop tears down and forgets the session for a departed peer.
func (m *Manager) Drop(remoteID string) {
	m.mu.Lock()
	s, ok := m.sessions[remoteID]
	delete(m.sessions, remoteID)
	m.mu.Unlock()
	if ok {
		s.Close()
		slog.Debug("call session dropped", "peer", remoteID)
	}
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// ToggleAudio flips local audio on every active session and reports the
// resulting state of the last session toggled.
func (m *Manager) ToggleAudio() (bool, error) { return m.toggleAll(KindAudio) }

// ToggleVideo flips local video on every active session.
func (m *Manager) ToggleVideo() (bool, error) { return m.toggleAll(KindVideo) }

func (m *Manager) toggleAll(kind TrackKind) (bool, error) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var on bool
	var firstErr error
	for _, s := range sessions {
		var err error
		if kind == KindAudio {
			on, err = s.ToggleAudio()
		} else {
			on, err = s.ToggleVideo()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return on, firstErr
}
