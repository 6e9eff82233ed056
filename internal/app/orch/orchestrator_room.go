package orch

import (
	"sort"

	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/metrics"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// onIntroduction handles the roster received once on join. The newcomer
// initiates toward everyone already present.
func (o *Orchestrator) onIntroduction(m *protocol.Message) {
	ids := make([]domain.PeerID, 0, len(m.Roster))
	for id := range m.Roster {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	o.logger.Info().Int("peers", len(ids)).Msg("introduction")
	for _, id := range ids {
		if id == o.self.ID {
			continue
		}
		if o.Registry.Has(id) {
			o.logger.Debug().Str("peer", string(id)).Msg("already tracked, introduction ignored")
			continue
		}
		entry := m.Roster[id]
		rec, ok := o.addPeer(id, entry.DisplayName, domain.RoleInitiator)
		if !ok {
			continue
		}
		o.Registry.SetVideoEnabled(id, entry.VideoEnabled)
		o.Registry.SetState(id, domain.StateNegotiating)
		if err := rec.Conn.Offer(); err != nil {
			o.failPeer(id, rec.Conn, err)
		}
	}
	metrics.MeshPeers.Set(float64(o.Registry.Len()))
}

// onPeerJoined records a newcomer as Responder and waits for its offer.
func (o *Orchestrator) onPeerJoined(m *protocol.Message) {
	if m.ID == o.self.ID {
		return
	}
	if rec, ok := o.Registry.Get(m.ID); ok {
		o.logger.Debug().Str("peer", string(m.ID)).Str("role", rec.Role.String()).Msg("already tracked, peer-joined ignored")
		o.Registry.SetDisplayName(m.ID, m.Name)
		return
	}
	o.logger.Info().Str("peer", string(m.ID)).Str("name", m.Name).Msg("peer joined")
	o.addPeer(m.ID, m.Name, domain.RoleResponder)
	metrics.MeshPeers.Set(float64(o.Registry.Len()))
}

func (o *Orchestrator) onPeerLeft(m *protocol.Message) {
	if o.Registry.Remove(m.ID) == nil {
		o.stale("unknown peer", m)
		return
	}
	o.logger.Info().Str("peer", string(m.ID)).Msg("peer left")
	o.renderer.OnPeerRemoved(m.ID)
	metrics.MeshPeers.Set(float64(o.Registry.Len()))
}

func (o *Orchestrator) onRelayError(m *protocol.Message) {
	o.logger.Warn().Str("error", m.Error).Msg("relay rejected a message")
}
