package stream

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

type SinkState int32

const (
	SinkOk SinkState = iota
	SinkMuted
	SinkDelete
)

// RTPWriter is anything that consumes RTP: a recorder, a local track, a player.
type RTPWriter interface {
	WriteRTP(pkt *rtp.Packet) error
}

// Sink is one consumer attached to a forwarder.
type Sink struct {
	w     RTPWriter
	state atomic.Int32 // Zero by default (SinkOk)
}

func NewSink(w RTPWriter) *Sink {
	return &Sink{w: w}
}

func (s *Sink) State() SinkState {
	return SinkState(s.state.Load())
}

func (s *Sink) MarkOk() {
	s.state.Store(int32(SinkOk))
}

func (s *Sink) MarkMuted() {
	s.state.Store(int32(SinkMuted))
}

func (s *Sink) MarkDelete() {
	s.state.Store(int32(SinkDelete))
}
