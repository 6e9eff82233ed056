package core

//go:generate mockgen -source=media_iface.go -destination=mocks/media_iface_mock.go -package=mocks

import (
	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// LinkState is what a media connection reports about its transport.
type LinkState int

const (
	LinkConnecting LinkState = iota
	LinkConnected
	LinkDisconnected
	LinkFailed
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkDisconnected:
		return "disconnected"
	case LinkFailed:
		return "failed"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is the direct media connection to one remote peer.
type Connection interface {
	// Offer creates a local offer and emits it through OnSignal.
	Offer() error
	// HandleSignal applies a remote description or ICE candidate, emitting an
	// answer when given an offer. Candidates arriving before the remote
	// description are queued, never dropped.
	HandleSignal(payload protocol.SignalPayload) error
	// OnSignal sets the callback for outbound descriptions and candidates.
	OnSignal(fn func(protocol.SignalPayload))
	// OnStream sets the callback for remote media arrival.
	OnStream(fn func(*stream.Remote))
	OnStateChange(fn func(LinkState))
	// Close releases the connection. Callbacks are silent afterwards.
	Close()
	IsClosed() bool
}

// ConnectionFactory creates connections seeded with the shared local stream.
// local may be nil when the session runs without media.
type ConnectionFactory interface {
	NewConnection(peer domain.PeerID, local *media.LocalStream) (Connection, error)
}
