// Package media owns the local camera/microphone stream of a session.
package media

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
)

// LocalTrack is one local capture track. The same pion track is bound to
// every peer connection; enabling or disabling it never replaces it.
type LocalTrack struct {
	track *webrtc.TrackLocalStaticSample

	enabled atomic.Bool
	stopped atomic.Bool
	written atomic.Uint64
}

func NewLocalTrack(codec webrtc.RTPCodecCapability, id, streamID string) (*LocalTrack, error) {
	t, err := webrtc.NewTrackLocalStaticSample(codec, id, streamID)
	if err != nil {
		return nil, err
	}
	lt := &LocalTrack{track: t}
	lt.enabled.Store(true)
	return lt, nil
}

// TrackLocal is what gets added to peer connections.
func (t *LocalTrack) TrackLocal() webrtc.TrackLocal { return t.track }

func (t *LocalTrack) ID() string                 { return t.track.ID() }
func (t *LocalTrack) Kind() webrtc.RTPCodecType  { return t.track.Kind() }
func (t *LocalTrack) Enabled() bool              { return t.enabled.Load() }
func (t *LocalTrack) SetEnabled(enabled bool)    { t.enabled.Store(enabled) }
func (t *LocalTrack) Stopped() bool              { return t.stopped.Load() }
func (t *LocalTrack) SamplesWritten() uint64     { return t.written.Load() }

// Stop marks the track ended. It returns true only for the call that stopped it.
func (t *LocalTrack) Stop() bool {
	return t.stopped.CompareAndSwap(false, true)
}

// WriteSample forwards s to every bound connection. Samples are dropped while
// the track is disabled or stopped.
func (t *LocalTrack) WriteSample(s pmedia.Sample) error {
	if !t.enabled.Load() || t.stopped.Load() {
		return nil
	}
	if err := t.track.WriteSample(s); err != nil {
		return err
	}
	t.written.Add(1)
	return nil
}
