package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/metrics"
	"github.com/dkeye/MeshCall/internal/protocol"
)

const maxAdmitAttempts = 3

// handleRegister admits the connection into a room. The newcomer gets the
// roster of everyone already present and the others get peer-joined.
func (ctl *SignalWSController) handleRegister(st *memberState, m *protocol.Message) {
	if st.registered() {
		metrics.RelayRejectedTotal.WithLabelValues("already_registered").Inc()
		ctl.sendError(st.conn, "already registered")
		return
	}
	if err := m.ID.Validate(); err != nil {
		metrics.RelayRejectedTotal.WithLabelValues("bad_register").Inc()
		ctl.sendError(st.conn, err.Error())
		return
	}
	if err := m.Room.Validate(); err != nil {
		metrics.RelayRejectedTotal.WithLabelValues("bad_register").Inc()
		ctl.sendError(st.conn, err.Error())
		return
	}
	name, err := domain.NormalizeDisplayName(m.Name)
	if err != nil && !errors.Is(err, domain.ErrDisplayNameEmpty) {
		metrics.RelayRejectedTotal.WithLabelValues("bad_register").Inc()
		ctl.sendError(st.conn, err.Error())
		return
	}

	self := core.NewMemberSession(&domain.Member{
		Identity: domain.Identity{ID: m.ID, DisplayName: name},
	}, st.conn)
	joined, ok := ctl.encode(protocol.NewPeerJoined(m.ID, name))
	if !ok {
		return
	}
	intro := func(roster map[domain.PeerID]domain.RosterEntry) (core.Frame, error) {
		return protocol.Encode(protocol.NewIntroduction(roster))
	}

	var (
		room core.RoomService
		res  core.PublishResult
	)
	for attempt := 0; ; attempt++ {
		room = ctl.Rooms.GetOrCreate(m.Room)
		res, err = room.Admit(self, intro, joined)
		// the room was released between lookup and admission
		if !errors.Is(err, core.ErrRoomClosed) || attempt == maxAdmitAttempts {
			break
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", string(m.Room)).Str("peer", string(m.ID)).Msg("register rejected")
		reason := "register_failed"
		if errors.Is(err, core.ErrDuplicateMember) {
			reason = "duplicate"
		}
		metrics.RelayRejectedTotal.WithLabelValues(reason).Inc()
		ctl.sendError(st.conn, err.Error())
		ctl.Rooms.Release(m.Room)
		return
	}
	st.room = room
	st.self = self
	metrics.RelayMembers.Inc()
	ctl.refreshRooms()

	log.Info().Str("module", "signal").Str("sid", st.sid).Str("room", string(m.Room)).Str("peer", string(m.ID)).Msg("registered")
	ctl.applyPolicy(room, res)
}

// handleDisconnect runs once when the read pump ends.
func (ctl *SignalWSController) handleDisconnect(st *memberState) {
	if !st.registered() {
		return
	}
	room, id := st.room, st.self.Meta().Identity.ID
	st.room, st.self = nil, nil

	if !room.RemoveMember(id) {
		return
	}
	metrics.RelayMembers.Dec()
	log.Info().Str("module", "signal").Str("sid", st.sid).Str("room", string(room.ID())).Str("peer", string(id)).Msg("left room")

	if data, ok := ctl.encode(protocol.NewPeerLeft(id)); ok {
		ctl.broadcast(room, id, data)
	}
	if ctl.Rooms.Release(room.ID()) {
		ctl.refreshRooms()
	}
}

func (ctl *SignalWSController) refreshRooms() {
	metrics.RelayRooms.Set(float64(len(ctl.Rooms.List())))
}
