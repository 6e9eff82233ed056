// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxPeerIDLen      = 64
	MaxDisplayNameLen = 36
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrPeerIDEmpty        = errors.New("peer id empty")
	ErrPeerIDTooLong      = errors.New("peer id too long")
)

// PeerID identifies a participant within a room. It is supplied by the
// identity collaborator and is stable for the lifetime of a session.
type PeerID string

// NewPeerID is used when no identity was supplied.
func NewPeerID() PeerID {
	return PeerID(uuid.NewString())
}

func (id PeerID) Validate() error {
	if id == "" {
		return ErrPeerIDEmpty
	}
	if len(id) > MaxPeerIDLen {
		return ErrPeerIDTooLong
	}
	return nil
}

// Identity is who we are in a room.
type Identity struct {
	ID          PeerID `json:"id"`
	DisplayName string `json:"displayName"`
}

func NewIdentity(id PeerID, displayName string) (*Identity, error) {
	if id == "" {
		id = NewPeerID()
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: id, DisplayName: name}, nil
}

func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}
