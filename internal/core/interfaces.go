package core

//go:generate mockgen -source=interfaces.go -destination=mocks/interfaces_mock.go -package=mocks

import (
	"context"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// Subscription is a handle returned by RelayClient subscriptions.
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// MessageHandler receives inbound relay events of one kind, in arrival order.
type MessageHandler func(*protocol.Message)

// RelayClient is the signaling transport as seen by the mesh.
type RelayClient interface {
	Connect(ctx context.Context) error
	Register(id domain.PeerID, displayName string, room domain.RoomID) error
	SendSignal(to domain.PeerID, payload protocol.SignalPayload) error
	SendVideoToggled(enabled bool) error
	// Subscribe delivers inbound messages of kind to fn.
	Subscribe(kind protocol.Kind, fn MessageHandler) Subscription
	// OnClosed fires once when the transport drops.
	OnClosed(fn func(error)) Subscription
	Close() error
}

// Renderer is the presentation side of the mesh. The orchestrator only emits
// structured events; drawing is someone else's job.
type Renderer interface {
	OnLocalStreamReady(local *media.LocalStream)
	OnPeerStreamReady(peer domain.PeerID, displayName string, remote *stream.Remote)
	OnPeerRemoved(peer domain.PeerID)
	OnPeerVideoToggled(peer domain.PeerID, enabled bool)
}
