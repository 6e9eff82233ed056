package core

import (
	"errors"

	"github.com/dkeye/MeshCall/internal/domain"
)

var (
	ErrDuplicateMember = errors.New("peer id already present in room")
	ErrRoomClosed      = errors.New("room closed")
)

// IntroFunc encodes the introduction a newcomer receives from the roster of
// members already present.
type IntroFunc func(roster map[domain.PeerID]domain.RosterEntry) (Frame, error)

// PublishResult reports delivery stats/backpressure to the relay controller.
type PublishResult struct {
	SendTo  int
	Dropped []domain.PeerID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID           domain.PeerID `json:"id"`
	DisplayName  string        `json:"displayName"`
	VideoEnabled bool          `json:"videoEnabled"`
}

// RoomService is the relay-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO
	// Roster returns every member except the given one.
	Roster(except domain.PeerID) map[domain.PeerID]domain.RosterEntry

	Member(id domain.PeerID) (MemberSession, bool)
	AddMember(ms MemberSession) error
	// Admit adds ms, queues its introduction and queues joined to every other
	// member under one lock, so of two members admitted concurrently exactly
	// one sees the other in its roster.
	Admit(ms MemberSession, intro IntroFunc, joined Frame) (PublishResult, error)
	// CloseIfEmpty marks an empty room closed; a closed room admits nobody.
	CloseIfEmpty() bool
	RemoveMember(id domain.PeerID) bool
	SetVideoEnabled(id domain.PeerID, enabled bool) bool
	SendTo(to domain.PeerID, data Frame) error
	Broadcast(from domain.PeerID, data Frame) PublishResult
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []domain.RoomInfo
	// Release drops the room when it has no members left.
	Release(id domain.RoomID) bool
}
