package orch

import (
	"fmt"

	"github.com/dkeye/MeshCall/internal/app"
	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/metrics"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// addPeer creates the connection for id and tracks it. Runs on the loop.
func (o *Orchestrator) addPeer(id domain.PeerID, name string, role domain.Role) (*app.PeerRecord, bool) {
	conn, err := o.factory.NewConnection(id, o.local)
	if err != nil {
		o.logger.Warn().
			Err(domain.NewPeerError("create connection", id, fmt.Errorf("%w: %w", domain.ErrNegotiationFailed, err))).
			Msg("peer skipped")
		metrics.NegotiationFailuresTotal.Inc()
		return nil, false
	}

	rec, created := o.Registry.Upsert(id, name, role, conn)
	if !created {
		conn.Close()
		return rec, false
	}
	o.wire(id, conn)
	return rec, true
}

// wire routes connection callbacks. Outbound signals go straight to the
// relay; everything that touches session state goes through the loop.
func (o *Orchestrator) wire(id domain.PeerID, conn core.Connection) {
	conn.OnSignal(func(p protocol.SignalPayload) {
		if !o.alive.Load() {
			return
		}
		if err := o.relay.SendSignal(id, p); err != nil {
			o.logger.Debug().Err(err).Str("peer", string(id)).Str("kind", p.Kind()).Msg("send signal")
			return
		}
		metrics.SignalsSentTotal.WithLabelValues(p.Kind()).Inc()
	})
	conn.OnStream(func(remote *stream.Remote) {
		o.post(func() { o.onStream(id, conn, remote) })
	})
	conn.OnStateChange(func(s core.LinkState) {
		o.post(func() { o.onLinkState(id, conn, s) })
	})
}

// current returns the record for id only while it still owns conn. Callbacks
// from a replaced or closed connection resolve to nothing.
func (o *Orchestrator) current(id domain.PeerID, conn core.Connection) (*app.PeerRecord, bool) {
	rec, ok := o.Registry.Get(id)
	if !ok || rec.Conn != conn {
		return nil, false
	}
	return rec, true
}

func (o *Orchestrator) onSignal(m *protocol.Message) {
	if m.To != o.self.ID {
		o.stale("addressed to "+string(m.To), m)
		return
	}
	if m.From == "" || m.From == o.self.ID {
		o.stale("bad sender", m)
		return
	}
	p := *m.Payload

	rec, ok := o.Registry.Get(m.From)
	if !ok {
		if !p.IsOffer() {
			o.stale("unknown peer", m)
			return
		}
		o.logger.Info().Str("peer", string(m.From)).Msg("unsolicited offer, answering as responder")
		if rec, ok = o.addPeer(m.From, "", domain.RoleResponder); !ok {
			return
		}
		metrics.MeshPeers.Set(float64(o.Registry.Len()))
	}

	if p.IsOffer() && rec.State == domain.StateIdle {
		o.Registry.SetState(rec.ID, domain.StateNegotiating)
	}
	if err := rec.Conn.HandleSignal(p); err != nil {
		o.failPeer(rec.ID, rec.Conn, err)
	}
}

func (o *Orchestrator) onLinkState(id domain.PeerID, conn core.Connection, s core.LinkState) {
	if _, ok := o.current(id, conn); !ok {
		return
	}
	switch s {
	case core.LinkConnected:
		o.Registry.SetState(id, domain.StateConnected)
		o.logger.Info().Str("peer", string(id)).Msg("peer connected")
	case core.LinkFailed:
		o.failPeer(id, conn, fmt.Errorf("ice %s", s))
	case core.LinkClosed:
		o.dropPeer(id, "connection closed")
	case core.LinkDisconnected:
		o.logger.Debug().Str("peer", string(id)).Msg("peer link disconnected")
	}
}

// failPeer contains a per-peer failure: the record is closed and removed and
// the renderer is told the peer is gone. Nothing is retried.
func (o *Orchestrator) failPeer(id domain.PeerID, conn core.Connection, cause error) {
	if _, ok := o.current(id, conn); !ok {
		return
	}
	metrics.NegotiationFailuresTotal.Inc()
	err := domain.NewPeerError("negotiate", id, fmt.Errorf("%w: %w", domain.ErrNegotiationFailed, cause))
	o.logger.Warn().Err(err).Msg("peer dropped")
	o.dropPeer(id, "negotiation failed")
}

func (o *Orchestrator) dropPeer(id domain.PeerID, reason string) {
	if o.Registry.Remove(id) == nil {
		return
	}
	o.logger.Info().Str("peer", string(id)).Str("reason", reason).Msg("peer removed")
	o.renderer.OnPeerRemoved(id)
	metrics.MeshPeers.Set(float64(o.Registry.Len()))
}
