// Package stream carries media that arrives from remote peers to whoever
// consumes it locally.
package stream

import (
	"context"
	"sort"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/domain"
)

// Remote is the media stream of one remote peer: at most one forwarder
// per track kind.
type Remote struct {
	peer domain.PeerID

	mu         sync.RWMutex
	forwarders map[webrtc.RTPCodecType]*Forwarder
	muted      map[webrtc.RTPCodecType]bool
	closed     bool
}

func NewRemote(peer domain.PeerID) *Remote {
	return &Remote{
		peer:       peer,
		forwarders: make(map[webrtc.RTPCodecType]*Forwarder),
		muted:      make(map[webrtc.RTPCodecType]bool),
	}
}

func (r *Remote) Peer() domain.PeerID { return r.peer }

// AddTrack starts forwarding src. A track of the same kind replaces the old one.
func (r *Remote) AddTrack(ctx context.Context, src Source) *Forwarder {
	logger := log.With().
		Str("module", "stream").
		Str("peer", string(r.peer)).
		Str("kind", src.Kind().String()).
		Str("track", src.ID()).
		Logger()

	fctx, cancel := context.WithCancel(ctx)
	fw := newForwarder(src, cancel)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		close(fw.done)
		return fw
	}
	if old, ok := r.forwarders[src.Kind()]; ok {
		logger.Info().Msg("replacing existing forwarder")
		old.stop()
	}
	fw.SetMuted(r.muted[src.Kind()])
	r.forwarders[src.Kind()] = fw
	r.mu.Unlock()

	logger.Info().Str("codec", src.Codec().MimeType).Msg("starting forwarder")
	go fw.loop(fctx, &logger)
	return fw
}

func (r *Remote) Forwarder(kind webrtc.RTPCodecType) (*Forwarder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fw, ok := r.forwarders[kind]
	return fw, ok
}

// Kinds lists the track kinds currently forwarded, audio first.
func (r *Remote) Kinds() []webrtc.RTPCodecType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]webrtc.RTPCodecType, 0, len(r.forwarders))
	for k := range r.forwarders {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AttachSink connects w to the forwarder of kind. It reports false when
// there is no such track yet.
func (r *Remote) AttachSink(kind webrtc.RTPCodecType, name string, w RTPWriter) bool {
	fw, ok := r.Forwarder(kind)
	if !ok {
		return false
	}
	fw.Attach(name, NewSink(w))
	return true
}

// SetSinkMuted pauses or resumes one named sink of kind, leaving the other
// sinks of that track alone.
func (r *Remote) SetSinkMuted(kind webrtc.RTPCodecType, name string, muted bool) bool {
	fw, ok := r.Forwarder(kind)
	if !ok {
		return false
	}
	s, ok := fw.Sink(name)
	if !ok || s.State() == SinkDelete {
		return false
	}
	if muted {
		s.MarkMuted()
	} else {
		s.MarkOk()
	}
	return true
}

// SetKindMuted pauses delivery of one kind to every sink. The mute
// survives track replacement.
func (r *Remote) SetKindMuted(kind webrtc.RTPCodecType, muted bool) {
	r.mu.Lock()
	r.muted[kind] = muted
	fw, ok := r.forwarders[kind]
	r.mu.Unlock()
	if ok {
		fw.SetMuted(muted)
	}
}

func (r *Remote) KindMuted(kind webrtc.RTPCodecType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.muted[kind]
}

// Close stops every forwarder. Safe to call more than once.
func (r *Remote) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	fws := make([]*Forwarder, 0, len(r.forwarders))
	for _, fw := range r.forwarders {
		fws = append(fws, fw)
	}
	clear(r.forwarders)
	r.mu.Unlock()

	for _, fw := range fws {
		fw.stop()
	}
}
