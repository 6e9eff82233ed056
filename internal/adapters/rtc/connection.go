// Package rtc adapts pion peer connections to the mesh's core.Connection.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
	"github.com/dkeye/MeshCall/internal/protocol"
)

var ErrConnectionClosed = errors.New("peer connection closed")

// WebRTCConnection is one direct connection to a remote peer.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	peer   domain.PeerID
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu       sync.Mutex
	pending  []webrtc.ICECandidateInit
	outq     []protocol.SignalPayload
	descSent bool
	remote   *stream.Remote
	hasKinds map[webrtc.RTPCodecType]bool
	onSignal func(protocol.SignalPayload)
	onStream func(*stream.Remote)
	onState  func(core.LinkState)
}

func newConnection(ctx context.Context, pc *webrtc.PeerConnection, peer domain.PeerID) *WebRTCConnection {
	ctx, cancel := context.WithCancel(ctx)
	return &WebRTCConnection{
		pc:       pc,
		peer:     peer,
		logger:   log.With().Str("module", "webrtc").Str("peer", string(peer)).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		hasKinds: make(map[webrtc.RTPCodecType]bool),
	}
}

// attachLocal binds the shared local tracks. Every connection sends the same
// track objects; nothing is re-acquired per peer.
func (c *WebRTCConnection) attachLocal(local *media.LocalStream) error {
	if local == nil {
		return nil
	}
	for _, t := range local.Tracks() {
		sender, err := c.pc.AddTrack(t.TrackLocal())
		if err != nil {
			return fmt.Errorf("add %s track: %w", t.Kind(), err)
		}
		c.hasKinds[t.Kind()] = true
		go drainRTCP(sender)
	}
	return nil
}

// drainRTCP keeps interceptors fed; pion needs the sender's RTCP read.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *WebRTCConnection) start() {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		p := protocol.CandidatePayload(cand.ToJSON())
		c.mu.Lock()
		if !c.descSent {
			c.outq = append(c.outq, p)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.emitSignal(p)
	})

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnecting:
			c.emitState(core.LinkConnecting)
		case webrtc.PeerConnectionStateConnected:
			c.emitState(core.LinkConnected)
		case webrtc.PeerConnectionStateDisconnected:
			c.emitState(core.LinkDisconnected)
		case webrtc.PeerConnectionStateFailed:
			c.emitState(core.LinkFailed)
		case webrtc.PeerConnectionStateClosed:
			c.emitState(core.LinkClosed)
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if c.closed.Load() {
			return
		}
		c.mu.Lock()
		if c.remote == nil {
			c.remote = stream.NewRemote(c.peer)
		}
		remote := c.remote
		fn := c.onStream
		c.mu.Unlock()

		remote.AddTrack(c.ctx, track)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			c.requestKeyframe(track)
		}
		if fn != nil && !c.closed.Load() {
			fn(remote)
		}
	})
}

// requestKeyframe asks the sender for a fresh keyframe so sinks attached
// mid-stream can decode from the first packet they see.
func (c *WebRTCConnection) requestKeyframe(track *webrtc.TrackRemote) {
	err := c.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
	})
	if err != nil {
		c.logger.Debug().Err(err).Msg("PLI not sent")
	}
}

// Offer creates the local offer and emits it. Kinds missing locally are
// still negotiated receive-only so the remote side can send them.
func (c *WebRTCConnection) Offer() error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		c.mu.Lock()
		has := c.hasKinds[kind]
		c.hasKinds[kind] = true
		c.mu.Unlock()
		if has {
			continue
		}
		if _, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local offer: %w", err)
	}
	c.logger.Debug().Msg("offer created")
	c.emitDescription(offer)
	return nil
}

// HandleSignal applies one remote payload in arrival order.
func (c *WebRTCConnection) HandleSignal(p protocol.SignalPayload) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	switch {
	case p.Candidate != nil:
		return c.addCandidate(p.Candidate.ToPion())
	case p.SDP != nil:
		desc, err := p.SDP.ToPion()
		if err != nil {
			return err
		}
		if desc.Type == webrtc.SDPTypeOffer {
			return c.applyOffer(desc)
		}
		return c.applyAnswer(desc)
	default:
		return errors.New("empty signal payload")
	}
}

func (c *WebRTCConnection) applyOffer(offer webrtc.SessionDescription) error {
	if cur := c.pc.CurrentRemoteDescription(); cur != nil && cur.SDP == offer.SDP {
		c.logger.Debug().Msg("duplicate offer ignored")
		return nil
	}
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}
	c.flushPending()

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}
	c.logger.Debug().Msg("answer created")
	c.emitDescription(answer)
	return nil
}

func (c *WebRTCConnection) applyAnswer(answer webrtc.SessionDescription) error {
	if c.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		c.logger.Debug().Str("signaling_state", c.pc.SignalingState().String()).Msg("answer ignored, no pending offer")
		return nil
	}
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	c.flushPending()
	return nil
}

func (c *WebRTCConnection) addCandidate(cand webrtc.ICECandidateInit) error {
	c.mu.Lock()
	if c.pc.RemoteDescription() == nil {
		c.pending = append(c.pending, cand)
		n := len(c.pending)
		c.mu.Unlock()
		c.logger.Debug().Int("pending", n).Msg("candidate queued until remote description")
		return nil
	}
	c.mu.Unlock()
	if err := c.pc.AddICECandidate(cand); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// flushPending applies queued candidates in arrival order.
func (c *WebRTCConnection) flushPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, cand := range pending {
		if err := c.pc.AddICECandidate(cand); err != nil {
			c.logger.Warn().Err(err).Msg("queued candidate rejected")
		}
	}
}

func (c *WebRTCConnection) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *WebRTCConnection) OnSignal(fn func(protocol.SignalPayload)) {
	c.mu.Lock()
	c.onSignal = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnStream(fn func(*stream.Remote)) {
	c.mu.Lock()
	c.onStream = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnStateChange(fn func(core.LinkState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) emitSignal(p protocol.SignalPayload) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	fn := c.onSignal
	c.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// emitDescription sends desc, then any candidates gathered before it, so the
// remote side never sees a candidate ahead of the description it belongs to.
func (c *WebRTCConnection) emitDescription(desc webrtc.SessionDescription) {
	c.emitSignal(protocol.DescriptionPayload(desc))
	c.mu.Lock()
	c.descSent = true
	queued := c.outq
	c.outq = nil
	c.mu.Unlock()
	for _, p := range queued {
		c.emitSignal(p)
	}
}

func (c *WebRTCConnection) emitState(s core.LinkState) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Close tears the connection down once. Callbacks are silent afterwards.
func (c *WebRTCConnection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
	} else {
		c.logger.Info().Msg("closed")
	}
	c.mu.Lock()
	remote := c.remote
	c.pending = nil
	c.mu.Unlock()
	if remote != nil {
		remote.Close()
	}
}

func (c *WebRTCConnection) IsClosed() bool { return c.closed.Load() }

func (c *WebRTCConnection) SignalingState() webrtc.SignalingState { return c.pc.SignalingState() }
