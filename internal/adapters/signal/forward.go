package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/metrics"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// handleForward routes a signal to one member of the sender's room. The
// sender id is always taken from the registration, never from the frame.
func (ctl *SignalWSController) handleForward(st *memberState, m *protocol.Message) {
	if !st.registered() {
		metrics.RelayRejectedTotal.WithLabelValues("not_registered").Inc()
		ctl.sendError(st.conn, "register first")
		return
	}
	from := st.self.Meta().Identity.ID
	if m.To == from {
		metrics.RelayRejectedTotal.WithLabelValues("self_signal").Inc()
		return
	}

	data, ok := ctl.encode(protocol.NewSignal(m.To, from, *m.Payload))
	if !ok {
		return
	}
	err := st.room.SendTo(m.To, data)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrUnknownMember):
		// target already left; its peer-left is on the way to the sender
		log.Debug().Str("module", "signal").Str("from", string(from)).Str("to", string(m.To)).Msg("signal to unknown member")
		metrics.RelayRejectedTotal.WithLabelValues("unknown_target").Inc()
	case errors.Is(err, ErrBackpressure):
		if target, ok := st.room.Member(m.To); ok {
			ctl.onBackpressure(st.room, target)
		}
	default:
		log.Debug().Err(err).Str("module", "signal").Str("to", string(m.To)).Msg("signal not delivered")
	}
}

func (ctl *SignalWSController) handleVideoToggled(st *memberState, m *protocol.Message) {
	if !st.registered() {
		metrics.RelayRejectedTotal.WithLabelValues("not_registered").Inc()
		ctl.sendError(st.conn, "register first")
		return
	}
	id := st.self.Meta().Identity.ID
	st.room.SetVideoEnabled(id, *m.Enabled)
	if data, ok := ctl.encode(protocol.NewVideoToggled(id, *m.Enabled)); ok {
		ctl.broadcast(st.room, id, data)
	}
}

func (ctl *SignalWSController) broadcast(room core.RoomService, from domain.PeerID, data core.Frame) {
	ctl.applyPolicy(room, room.Broadcast(from, data))
}

func (ctl *SignalWSController) applyPolicy(room core.RoomService, res core.PublishResult) {
	for _, id := range res.Dropped {
		if target, ok := room.Member(id); ok {
			ctl.onBackpressure(room, target)
		}
	}
}
