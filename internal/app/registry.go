package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
)

// PeerRecord is everything the session knows about one remote participant.
type PeerRecord struct {
	ID           domain.PeerID
	DisplayName  string
	Role         domain.Role
	State        domain.ConnState
	VideoEnabled bool

	Conn   core.Connection
	Remote *stream.Remote
}

// PeerView is a copy of a record without the transport handles.
type PeerView struct {
	ID           domain.PeerID
	DisplayName  string
	Role         domain.Role
	State        domain.ConnState
	VideoEnabled bool
	HasStream    bool
}

func (p *PeerRecord) View() PeerView {
	return PeerView{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		Role:         p.Role,
		State:        p.State,
		VideoEnabled: p.VideoEnabled,
		HasStream:    p.Remote != nil,
	}
}

// Registry holds at most one record per remote peer.
type Registry struct {
	mu    sync.RWMutex
	peers map[domain.PeerID]*PeerRecord
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[domain.PeerID]*PeerRecord)}
}

// Upsert adds a record for id unless one already exists. The existing record
// is never replaced; created reports whether rec is new.
func (r *Registry) Upsert(id domain.PeerID, displayName string, role domain.Role, conn core.Connection) (rec *PeerRecord, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.peers[id]; ok {
		log.Debug().Str("module", "app.registry").Str("peer", string(id)).Msg("peer already tracked")
		return existing, false
	}
	rec = &PeerRecord{
		ID:          id,
		DisplayName: displayName,
		Role:        role,
		State:       domain.StateIdle,
		Conn:        conn,
	}
	r.peers[id] = rec
	log.Info().Str("module", "app.registry").Str("peer", string(id)).Str("role", role.String()).Msg("tracked peer")
	return rec, true
}

func (r *Registry) Get(id domain.PeerID) (*PeerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.peers[id]
	return rec, ok
}

func (r *Registry) Has(id domain.PeerID) bool {
	_, ok := r.Get(id)
	return ok
}

// SetState moves the record along the connection state machine. Moving to
// the current state is a no-op.
func (r *Registry) SetState(id domain.PeerID, next domain.ConnState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.peers[id]
	if !ok {
		return false
	}
	if rec.State == next {
		return true
	}
	if !rec.State.CanTransition(next) {
		log.Warn().Str("module", "app.registry").Str("peer", string(id)).
			Str("from", rec.State.String()).Str("to", next.String()).Msg("rejected state change")
		return false
	}
	rec.State = next
	log.Debug().Str("module", "app.registry").Str("peer", string(id)).Str("state", next.String()).Msg("state changed")
	return true
}

// SetRemote attaches the peer's inbound stream, replacing any previous one.
func (r *Registry) SetRemote(id domain.PeerID, remote *stream.Remote) (*PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.peers[id]
	if !ok {
		return nil, false
	}
	if rec.Remote != nil && rec.Remote != remote {
		rec.Remote.Close()
	}
	rec.Remote = remote
	return rec, true
}

func (r *Registry) SetVideoEnabled(id domain.PeerID, enabled bool) (*PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.peers[id]
	if !ok {
		return nil, false
	}
	rec.VideoEnabled = enabled
	return rec, true
}

// SetDisplayName fills in a name learned after the record was created.
// A known name is never overwritten.
func (r *Registry) SetDisplayName(id domain.PeerID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.peers[id]
	if !ok || rec.DisplayName != "" || name == "" {
		return false
	}
	rec.DisplayName = name
	return true
}

// View returns a copy of one record.
func (r *Registry) View(id domain.PeerID) (PeerView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.peers[id]
	if !ok {
		return PeerView{}, false
	}
	return rec.View(), true
}

// Remove closes the peer's connection and forgets it. Removing an unknown
// peer is a no-op and returns nil.
func (r *Registry) Remove(id domain.PeerID) *PeerRecord {
	r.mu.Lock()
	rec, ok := r.peers[id]
	if ok {
		rec.State = domain.StateClosed
		delete(r.peers, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	closeRecord(rec)
	log.Info().Str("module", "app.registry").Str("peer", string(id)).Msg("removed peer")
	return rec
}

// Clear closes every connection, then drops every record. It returns the ids
// that were tracked.
func (r *Registry) Clear() []domain.PeerID {
	r.mu.Lock()
	recs := make([]*PeerRecord, 0, len(r.peers))
	for _, rec := range r.peers {
		rec.State = domain.StateClosed
		recs = append(recs, rec)
	}
	r.mu.Unlock()

	for _, rec := range recs {
		closeRecord(rec)
	}

	r.mu.Lock()
	ids := make([]domain.PeerID, 0, len(recs))
	for _, rec := range recs {
		if r.peers[rec.ID] == rec {
			delete(r.peers, rec.ID)
		}
		ids = append(ids, rec.ID)
	}
	r.mu.Unlock()

	sortIDs(ids)
	log.Info().Str("module", "app.registry").Int("count", len(ids)).Msg("cleared peers")
	return ids
}

func closeRecord(rec *PeerRecord) {
	if rec.Conn != nil {
		rec.Conn.Close()
	}
	if rec.Remote != nil {
		rec.Remote.Close()
	}
}

// IDs returns tracked peers in a stable order.
func (r *Registry) IDs() []domain.PeerID {
	r.mu.RLock()
	ids := make([]domain.PeerID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sortIDs(ids)
	return ids
}

func (r *Registry) Views() []PeerView {
	r.mu.RLock()
	out := make([]PeerView, 0, len(r.peers))
	for _, rec := range r.peers {
		out = append(out, rec.View())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func sortIDs(ids []domain.PeerID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
