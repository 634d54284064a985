//go:build !linux || !cgo

package call

import (
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

// newEngineAPI builds a WebRTC API with the default codecs. Device capture
// via pion/mediadevices needs platform drivers that exist only for Linux
// here, so calls on other platforms run receive-only.
func newEngineAPI() (*pion.API, error) {
	mediaEngine := &pion.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	return pion.NewAPI(
		pion.WithMediaEngine(mediaEngine),
		pion.WithInterceptorRegistry(interceptorRegistry),
	), nil
}

// NewMediaFactory reports media as unavailable; sessions proceed
// receive-only.
func NewMediaFactory() MediaFactory {
	return func() (LocalMedia, error) {
		return nil, ErrMediaUnavailable
	}
}
