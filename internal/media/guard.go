package media

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dkeye/MeshCall/internal/domain"
)

var errGuardReleased = errors.New("media guard released")

// Guard acquires the local stream at most once per session. Concurrent
// callers share the single in-flight attempt; later callers get the cached
// stream. A failed attempt is not retried here.
type Guard struct {
	device Device
	flight singleflight.Group

	mu       sync.Mutex
	stream   *LocalStream
	released bool
}

func NewGuard(device Device) *Guard {
	return &Guard{device: device}
}

// Acquire returns the session's local stream, opening the device if needed.
// Tracks start disabled until the user enables them. Failures wrap
// domain.ErrMediaUnavailable.
func (g *Guard) Acquire(ctx context.Context, c Constraints) (*LocalStream, error) {
	if s, err := g.cached(); s != nil || err != nil {
		return s, err
	}

	v, err, shared := g.flight.Do("acquire", func() (any, error) {
		if s, err := g.cached(); s != nil || err != nil {
			return s, err
		}

		s, err := g.device.Open(ctx, c)
		if err != nil {
			log.Warn().Err(err).Str("module", "media.guard").Msg("acquire failed")
			return nil, domain.Wrap("acquire media", domain.ErrMediaUnavailable, err)
		}
		s.SetAudioEnabled(false)
		s.SetVideoEnabled(false)

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.released {
			s.Stop()
			return nil, domain.Wrap("acquire media", domain.ErrMediaUnavailable, errGuardReleased)
		}
		g.stream = s
		log.Info().Str("module", "media.guard").Str("stream", s.ID()).Int("tracks", len(s.tracks)).Msg("local stream acquired")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("module", "media.guard").Bool("shared", shared).Msg("acquire resolved")
	return v.(*LocalStream), nil
}

func (g *Guard) cached() (*LocalStream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil, domain.Wrap("acquire media", domain.ErrMediaUnavailable, errGuardReleased)
	}
	return g.stream, nil
}

// Stream returns the acquired stream or nil.
func (g *Guard) Stream() *LocalStream {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stream
}

// SetAudioEnabled flips audio tracks in place. It reports false when there is
// no stream yet.
func (g *Guard) SetAudioEnabled(enabled bool) bool {
	s := g.Stream()
	if s == nil {
		return false
	}
	s.SetAudioEnabled(enabled)
	return true
}

func (g *Guard) SetVideoEnabled(enabled bool) bool {
	s := g.Stream()
	if s == nil {
		return false
	}
	s.SetVideoEnabled(enabled)
	return true
}

// Release stops every local track exactly once. Later Acquire calls fail.
func (g *Guard) Release() int {
	g.mu.Lock()
	s := g.stream
	g.released = true
	g.mu.Unlock()
	if s == nil {
		return 0
	}
	n := s.Stop()
	log.Info().Str("module", "media.guard").Str("stream", s.ID()).Int("stopped", n).Msg("local stream released")
	return n
}
