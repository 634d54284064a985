//go:build linux && cgo

package call

import (
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	pion "github.com/pion/webrtc/v4"
)

// captureSelector is shared between the WebRTC API and GetUserMedia: the
// capture codecs must be registered with the same engine that negotiates
// them. Set once by newEngineAPI.
var captureSelector *mediadevices.CodecSelector

// newEngineAPI builds a WebRTC API with VP8 and Opus encoders from
// pion/mediadevices registered alongside the default interceptors.
func newEngineAPI() (*pion.API, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	vpxParams.BitRate = 1_500_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}

	captureSelector = mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	mediaEngine := &pion.MediaEngine{}
	captureSelector.Populate(mediaEngine)

	interceptorRegistry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	return pion.NewAPI(
		pion.WithMediaEngine(mediaEngine),
		pion.WithInterceptorRegistry(interceptorRegistry),
	), nil
}

// deviceTrack wraps one captured mediadevices track.
type deviceTrack struct {
	t mediadevices.Track
}

func (d *deviceTrack) ID() string { return d.t.ID() }

func (d *deviceTrack) Kind() TrackKind {
	if d.t.Kind() == pion.RTPCodecTypeAudio {
		return KindAudio
	}
	return KindVideo
}

func (d *deviceTrack) rtpTrack() pion.TrackLocal { return d.t }

// deviceMedia holds the live camera and microphone capture. Disabling a
// kind closes that track and releases the device; re-enabling captures it
// again.
type deviceMedia struct {
	mu     sync.Mutex
	tracks map[TrackKind]*deviceTrack
}

// NewMediaFactory acquires camera and microphone through pion/mediadevices
// (V4L2 and malgo drivers).
func NewMediaFactory() MediaFactory {
	return func() (LocalMedia, error) {
		if _, err := engineAPI(); err != nil {
			return nil, err
		}
		m := &deviceMedia{tracks: make(map[TrackKind]*deviceTrack)}
		if err := m.capture(true, true); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (m *deviceMedia) capture(video, audio bool) error {
	constraints := mediadevices.MediaStreamConstraints{Codec: captureSelector}
	if video {
		constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
			// Raw formats only; MJPEG camera nodes can emit malformed
			// frames that poison the VP8 encoder.
			c.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatYUYV,
				frame.FormatI420,
				frame.FormatI444,
				frame.FormatRGBA,
			}
			c.Width = prop.IntRanged{Max: 640}
			c.Height = prop.IntRanged{Max: 480}
		}
	}
	if audio {
		constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return err
	}
	for _, t := range stream.GetTracks() {
		track := &deviceTrack{t: t}
		m.tracks[track.Kind()] = track
	}
	return nil
}

func (m *deviceMedia) Tracks() []LocalTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	tracks := make([]LocalTrack, 0, len(m.tracks))
	for _, t := range m.tracks {
		tracks = append(tracks, t)
	}
	return tracks
}

// SetEnabled releases the device of a disabled kind outright; mediadevices
// tracks have no pause, so holding one keeps the hardware indicator on.
// Re-enabling captures the device again and reports failure so the caller's
// enabled flag stays truthful.
func (m *deviceMedia) SetEnabled(kind TrackKind, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	track, have := m.tracks[kind]
	if !enabled {
		if have {
			track.t.Close()
			delete(m.tracks, kind)
		}
		return nil
	}
	if have {
		return nil
	}
	return m.capture(kind == KindVideo, kind == KindAudio)
}

func (m *deviceMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for kind, track := range m.tracks {
		track.t.Close()
		delete(m.tracks, kind)
	}
	return nil
}
