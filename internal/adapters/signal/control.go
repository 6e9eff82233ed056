package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/app"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/metrics"
)

// onBackpressure applies the policy to a member whose send queue is full.
// Kicking closes the socket; the member's own read pump does the leave.
func (ctl *SignalWSController) onBackpressure(room core.RoomService, member core.MemberSession) {
	action := app.KickMember
	if ctl.Policy != nil {
		action = ctl.Policy.OnBackPressure(room, member)
	}
	id := member.Meta().Identity.ID
	log.Warn().Str("module", "signal").Str("room", string(room.ID())).Str("peer", string(id)).Stringer("action", action).Msg("backpressure")

	switch action {
	case app.KickMember:
		metrics.RelayKickedTotal.Inc()
		member.Signal().Close()
	case app.DropFrame:
		metrics.RelayRejectedTotal.WithLabelValues("dropped").Inc()
	}
}
