package call

import (
	"encoding/json"
	"sync"

	"github.com/jindalujjwal0720/milan/internal/config"
	pion "github.com/pion/webrtc/v4"
)

// rtpCarrier is implemented by local tracks that wrap a pion TrackLocal.
type rtpCarrier interface {
	rtpTrack() pion.TrackLocal
}

// pionLink adapts a pion PeerConnection to the PeerLink interface.
// Descriptions and candidates cross the boundary as the JSON encodings of
// pion.SessionDescription and pion.ICECandidateInit.
type pionLink struct {
	pc *pion.PeerConnection

	mu       sync.Mutex
	attached map[string]bool
	recvOnly bool
}

// NewLinkFactory builds PeerLinks against the configured STUN and TURN
// servers.
func NewLinkFactory(cfg *config.Client) LinkFactory {
	return func() (PeerLink, error) {
		pc, err := newPeerConnection(cfg)
		if err != nil {
			return nil, NewError("create peer connection", err)
		}
		return &pionLink{pc: pc, attached: make(map[string]bool)}, nil
	}
}

func newPeerConnection(cfg *config.Client) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	api, err := engineAPI()
	if err != nil {
		return nil, err
	}
	return api.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
}

func (l *pionLink) CreateOffer() ([]byte, error) {
	l.ensureMediaLines()
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(offer)
}

func (l *pionLink) CreateAnswer() ([]byte, error) {
	l.ensureMediaLines()
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answer)
}

func (l *pionLink) SetLocalDescription(desc []byte) error {
	var sd pion.SessionDescription
	if err := json.Unmarshal(desc, &sd); err != nil {
		return err
	}
	return l.pc.SetLocalDescription(sd)
}

func (l *pionLink) SetRemoteDescription(desc []byte) error {
	var sd pion.SessionDescription
	if err := json.Unmarshal(desc, &sd); err != nil {
		return err
	}
	return l.pc.SetRemoteDescription(sd)
}

func (l *pionLink) AddCandidate(candidate []byte) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &ice); err != nil {
		return err
	}
	return l.pc.AddICECandidate(ice)
}

func (l *pionLink) AttachTrack(track LocalTrack) (bool, error) {
	carrier, ok := track.(rtpCarrier)
	if !ok {
		return false, NewError("attach track", ErrMediaUnavailable)
	}

	l.mu.Lock()
	if l.attached[track.ID()] {
		l.mu.Unlock()
		return false, nil
	}
	l.attached[track.ID()] = true
	l.mu.Unlock()

	if _, err := l.pc.AddTrack(carrier.rtpTrack()); err != nil {
		l.mu.Lock()
		delete(l.attached, track.ID())
		l.mu.Unlock()
		return false, err
	}
	return true, nil
}

func (l *pionLink) OnCandidate(fn func(candidate []byte)) {
	l.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(payload)
	})
}

func (l *pionLink) Close() error {
	return l.pc.Close()
}

// ensureMediaLines adds recvonly transceivers when no local track has been
// attached, so the generated description carries valid media sections even
// in a receive-only call.
func (l *pionLink) ensureMediaLines() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recvOnly || len(l.attached) > 0 {
		return
	}
	l.recvOnly = true
	for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeVideo, pion.RTPCodecTypeAudio} {
		l.pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
			Direction: pion.RTPTransceiverDirectionRecvonly,
		})
	}
}

var (
	engineOnce sync.Once
	engine     *pion.API
	engineErr  error
)

// engineAPI builds the shared WebRTC API once. The media engine setup is
// platform specific: on Linux the capture codecs must be registered with
// the same engine that negotiates them.
func engineAPI() (*pion.API, error) {
	engineOnce.Do(func() {
		engine, engineErr = newEngineAPI()
	})
	return engine, engineErr
}
