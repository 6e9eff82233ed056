package domain

// Role is the side a participant plays in a pairwise connection setup.
// Exactly one side of every pair is the Initiator.
type Role int

const (
	RoleResponder Role = iota
	RoleInitiator
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// ConnState tracks a peer record through Idle -> Negotiating -> Connected -> Closed.
type ConnState int

const (
	StateIdle ConnState = iota
	StateNegotiating
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is allowed.
// Closed is terminal; any live state may fail straight to Closed.
func (s ConnState) CanTransition(next ConnState) bool {
	switch s {
	case StateIdle:
		return next == StateNegotiating || next == StateClosed
	case StateNegotiating:
		return next == StateConnected || next == StateClosed
	case StateConnected:
		// renegotiation keeps the peer connected
		return next == StateNegotiating || next == StateClosed
	default:
		return false
	}
}

// RosterEntry describes a member as announced by the relay.
type RosterEntry struct {
	DisplayName  string `json:"displayName"`
	VideoEnabled bool   `json:"videoEnabled"`
}

// Member represents a participant's meta inside a relay room.
// No transport or lifecycle logic here.
type Member struct {
	Identity     Identity
	VideoEnabled bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id Identity) *Member {
	return &Member{Identity: id}
}
