package stream

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Source is the remote side of a track. *webrtc.TrackRemote satisfies it.
type Source interface {
	ID() string
	Kind() webrtc.RTPCodecType
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Forwarder reads RTP from one remote track and fans it out to sinks.
type Forwarder struct {
	Src Source

	mu    sync.RWMutex
	sinks map[string]*Sink

	muted   atomic.Bool
	packets atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

func newForwarder(src Source, cancel context.CancelFunc) *Forwarder {
	return &Forwarder{
		Src:    src,
		sinks:  make(map[string]*Sink),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (f *Forwarder) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("forwarder ctx done, marking all sinks for delete")
			f.markAllDelete()
			return
		default:
		}
		pkt, _, err := f.Src.ReadRTP()
		if err != nil {
			logger.Debug().Err(err).Msg("read RTP ended, stopping")
			f.markAllDelete()
			return
		}
		f.packets.Add(1)
		if f.muted.Load() {
			continue
		}
		f.forward(pkt, logger)
	}
}

func (f *Forwarder) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	f.mu.RLock()
	snapshot := maps.Clone(f.sinks)
	f.mu.RUnlock()

	var dirty []string
	for name, s := range snapshot {
		switch s.State() {
		case SinkDelete:
			dirty = append(dirty, name)
		case SinkMuted:
		case SinkOk:
			if err := s.w.WriteRTP(pkt); err != nil {
				logger.Warn().Err(err).Str("sink", name).Msg("sink write failed, dropping sink")
				s.MarkDelete()
				dirty = append(dirty, name)
			}
		}
	}
	if len(dirty) > 0 {
		f.cleanup(dirty)
	}
}

func (f *Forwarder) cleanup(dirty []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range dirty {
		delete(f.sinks, name)
	}
}

func (f *Forwarder) markAllDelete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sinks {
		s.MarkDelete()
	}
}

// Attach adds or replaces the sink registered under name.
func (f *Forwarder) Attach(name string, s *Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.sinks[name]; ok {
		old.MarkDelete()
	}
	f.sinks[name] = s
}

// Sink returns the sink registered under name.
func (f *Forwarder) Sink(name string) (*Sink, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.sinks[name]
	return s, ok
}

func (f *Forwarder) Detach(name string) {
	f.mu.RLock()
	s, ok := f.sinks[name]
	f.mu.RUnlock()
	if ok {
		s.MarkDelete()
	}
}

func (f *Forwarder) SinkCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

func (f *Forwarder) SetMuted(muted bool) { f.muted.Store(muted) }
func (f *Forwarder) Muted() bool         { return f.muted.Load() }
func (f *Forwarder) Packets() uint64     { return f.packets.Load() }

// Done is closed when the read loop exits.
func (f *Forwarder) Done() <-chan struct{} { return f.done }

func (f *Forwarder) stop() {
	f.markAllDelete()
	if f.cancel != nil {
		f.cancel()
	}
}
