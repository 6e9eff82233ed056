package media

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/sourcegraph/conc"
)

// LocalStream groups the local tracks of a session. It is owned by the session
// and shared by reference with every outgoing peer connection.
type LocalStream struct {
	id     string
	tracks []*LocalTrack

	mu      sync.Mutex
	cancel  context.CancelFunc
	feeders *conc.WaitGroup
}

func NewLocalStream(id string, tracks ...*LocalTrack) *LocalStream {
	return &LocalStream{id: id, tracks: tracks}
}

func (s *LocalStream) ID() string { return s.id }

// Tracks returns a copy of the track list.
func (s *LocalStream) Tracks() []*LocalTrack {
	out := make([]*LocalTrack, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *LocalStream) TracksOf(kind webrtc.RTPCodecType) []*LocalTrack {
	var out []*LocalTrack
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

func (s *LocalStream) HasKind(kind webrtc.RTPCodecType) bool {
	return len(s.TracksOf(kind)) > 0
}

func (s *LocalStream) SetAudioEnabled(enabled bool) {
	for _, t := range s.TracksOf(webrtc.RTPCodecTypeAudio) {
		t.SetEnabled(enabled)
	}
}

func (s *LocalStream) SetVideoEnabled(enabled bool) {
	for _, t := range s.TracksOf(webrtc.RTPCodecTypeVideo) {
		t.SetEnabled(enabled)
	}
}

// startFeeders runs fn for every feeder under one cancellable context.
func (s *LocalStream) startFeeders(fns ...func(ctx context.Context)) {
	if len(fns) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	wg := conc.NewWaitGroup()
	for _, fn := range fns {
		wg.Go(func() { fn(ctx) })
	}
	s.mu.Lock()
	s.cancel = cancel
	s.feeders = wg
	s.mu.Unlock()
}

// Stop ends every track exactly once and waits for feeders to exit.
// It returns how many tracks this call stopped.
func (s *LocalStream) Stop() int {
	stopped := 0
	for _, t := range s.tracks {
		if t.Stop() {
			stopped++
		}
	}

	s.mu.Lock()
	cancel, feeders := s.cancel, s.feeders
	s.cancel, s.feeders = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		feeders.Wait()
	}
	return stopped
}

// Stopped reports whether every track has ended.
func (s *LocalStream) Stopped() bool {
	for _, t := range s.tracks {
		if !t.Stopped() {
			return false
		}
	}
	return true
}
