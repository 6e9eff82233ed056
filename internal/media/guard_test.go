package media

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/MeshCall/internal/domain"
)

type countingDevice struct {
	opens atomic.Int32
	delay time.Duration
	err   error
}

func (d *countingDevice) Open(ctx context.Context, c Constraints) (*LocalStream, error) {
	d.opens.Add(1)
	time.Sleep(d.delay)
	if d.err != nil {
		return nil, d.err
	}
	return SyntheticDevice{}.Open(ctx, c)
}

func TestGuard_ConcurrentAcquireOpensOnce(t *testing.T) {
	dev := &countingDevice{delay: 50 * time.Millisecond}
	g := NewGuard(dev)

	const callers = 8
	streams := make([]*LocalStream, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := g.Acquire(context.Background(), Constraints{Audio: true, Video: true})
			assert.NoError(t, err)
			streams[i] = s
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), dev.opens.Load())
	for _, s := range streams {
		assert.Same(t, streams[0], s)
	}

	again, err := g.Acquire(context.Background(), Constraints{Audio: true, Video: true})
	require.NoError(t, err)
	assert.Same(t, streams[0], again)
	assert.Equal(t, int32(1), dev.opens.Load())
}

func TestGuard_FailureWrapsMediaUnavailable(t *testing.T) {
	g := NewGuard(&countingDevice{err: errors.New("permission denied")})

	_, err := g.Acquire(context.Background(), Constraints{Audio: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Nil(t, g.Stream())
}

func TestGuard_TracksStartDisabled(t *testing.T) {
	g := NewGuard(SyntheticDevice{})
	s, err := g.Acquire(context.Background(), Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	require.Len(t, s.Tracks(), 2)
	for _, tr := range s.Tracks() {
		assert.False(t, tr.Enabled(), tr.ID())
	}

	require.True(t, g.SetVideoEnabled(true))
	assert.True(t, s.TracksOf(webrtc.RTPCodecTypeVideo)[0].Enabled())
	assert.False(t, s.TracksOf(webrtc.RTPCodecTypeAudio)[0].Enabled())

	require.True(t, g.SetAudioEnabled(true))
	assert.True(t, s.TracksOf(webrtc.RTPCodecTypeAudio)[0].Enabled())
}

func TestGuard_ToggleWithoutStream(t *testing.T) {
	g := NewGuard(SyntheticDevice{})
	assert.False(t, g.SetAudioEnabled(true))
	assert.False(t, g.SetVideoEnabled(true))
}

func TestGuard_ReleaseStopsOnce(t *testing.T) {
	g := NewGuard(SyntheticDevice{})
	s, err := g.Acquire(context.Background(), Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Release())
	assert.True(t, s.Stopped())
	assert.Equal(t, 0, g.Release())

	_, err = g.Acquire(context.Background(), Constraints{Audio: true})
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
}
