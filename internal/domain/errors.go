package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMediaUnavailable: device or permission failure. Fatal to joining with
	// media, not to the session.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrSignalingUnreachable: relay connect failure. The session cannot start.
	ErrSignalingUnreachable = errors.New("signaling unreachable")
	// ErrNegotiationFailed: one peer's connection errored. Isolated to that peer.
	ErrNegotiationFailed = errors.New("negotiation failed")
	// ErrStaleSignal: a message for a peer we no longer track, or one that
	// arrived after teardown. Dropped.
	ErrStaleSignal = errors.New("stale signal")
	// ErrSessionClosed is returned by operations on a torn down session.
	ErrSessionClosed = errors.New("session closed")
)

// MeshError attaches the failing operation and peer to a taxonomy error.
type MeshError struct {
	Op   string
	Peer PeerID
	Err  error
}

func (e *MeshError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MeshError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *MeshError {
	return &MeshError{Op: op, Err: err}
}

func NewPeerError(op string, peer PeerID, err error) *MeshError {
	return &MeshError{Op: op, Peer: peer, Err: err}
}

// Wrap tags cause with a taxonomy kind so errors.Is matches both.
func Wrap(op string, kind, cause error) *MeshError {
	return &MeshError{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}
