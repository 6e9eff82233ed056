package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/domain"
)

var ErrUnknownMember = errors.New("no such member in room")

// roomImpl is a threadsafe in-memory relay room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id      domain.RoomID
	mu      sync.RWMutex
	members map[domain.PeerID]MemberSession
	closed  bool
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:      id,
		members: make(map[domain.PeerID]MemberSession),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) AddMember(ms MemberSession) error {
	id := ms.Meta().Identity.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.members[id]; ok {
		return ErrDuplicateMember
	}
	r.members[id] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(id)).Msg("member added")
	return nil
}

func (r *roomImpl) Admit(ms MemberSession, intro IntroFunc, joined Frame) (PublishResult, error) {
	id := ms.Meta().Identity.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return PublishResult{}, ErrRoomClosed
	}
	if _, ok := r.members[id]; ok {
		return PublishResult{}, ErrDuplicateMember
	}

	frame, err := intro(r.rosterLocked(id))
	if err != nil {
		return PublishResult{}, fmt.Errorf("introduction: %w", err)
	}
	if err := ms.Signal().TrySend(frame); err != nil {
		return PublishResult{}, fmt.Errorf("introduction: %w", err)
	}
	r.members[id] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(id)).Int("members", len(r.members)).Msg("member admitted")

	res := PublishResult{}
	for other, m := range r.members {
		if other == id {
			continue
		}
		if err := m.Signal().TrySend(joined); err != nil {
			res.Dropped = append(res.Dropped, other)
			continue
		}
		res.SendTo++
	}
	return res, nil
}

func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) RemoveMember(id domain.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(id)).Msg("member removed")
	return true
}

func (r *roomImpl) SetVideoEnabled(id domain.PeerID, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.members[id]
	if !ok {
		return false
	}
	ms.Meta().VideoEnabled = enabled
	return true
}

func (r *roomImpl) Member(id domain.PeerID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.members[id]
	return ms, ok
}

func (r *roomImpl) SendTo(to domain.PeerID, data Frame) error {
	r.mu.RLock()
	ms, ok := r.members[to]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownMember
	}
	return ms.Signal().TrySend(data)
}

func (r *roomImpl) Broadcast(from domain.PeerID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.members {
		if id == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for _, ms := range r.members {
		m := ms.Meta()
		out = append(out, MemberDTO{ID: m.Identity.ID, DisplayName: m.Identity.DisplayName, VideoEnabled: m.VideoEnabled})
	}
	return out
}

func (r *roomImpl) Roster(except domain.PeerID) map[domain.PeerID]domain.RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rosterLocked(except)
}

func (r *roomImpl) rosterLocked(except domain.PeerID) map[domain.PeerID]domain.RosterEntry {
	out := make(map[domain.PeerID]domain.RosterEntry, len(r.members))
	for id, ms := range r.members {
		if id == except {
			continue
		}
		m := ms.Meta()
		out[id] = domain.RosterEntry{DisplayName: m.Identity.DisplayName, VideoEnabled: m.VideoEnabled}
	}
	return out
}
