// Package protocol is the signaling wire format spoken between mesh clients
// and the relay. Every frame is one JSON envelope carrying a version and a kind.
package protocol

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dkeye/MeshCall/internal/domain"
)

// Version is the current envelope schema version.
const Version = 1

type Kind string

const (
	KindRegister     Kind = "register"
	KindIntroduction Kind = "introduction"
	KindPeerJoined   Kind = "peer-joined"
	KindPeerLeft     Kind = "peer-left"
	KindSignal       Kind = "signal"
	KindVideoToggled Kind = "video-toggled"
	KindError        Kind = "error"
)

var (
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrUnknownKind        = errors.New("protocol: unknown message kind")
	ErrMissingField       = errors.New("protocol: missing field")
)

// Message is the single envelope shape. Which fields are set depends on Type.
type Message struct {
	V    int  `json:"v"`
	Type Kind `json:"type"`

	Room domain.RoomID `json:"room,omitempty"`
	ID   domain.PeerID `json:"id,omitempty"`
	Name string        `json:"name,omitempty"`

	To      domain.PeerID  `json:"to,omitempty"`
	From    domain.PeerID  `json:"from,omitempty"`
	Payload *SignalPayload `json:"payload,omitempty"`

	Roster  map[domain.PeerID]domain.RosterEntry `json:"roster,omitempty"`
	Enabled *bool                                `json:"enabled,omitempty"`
	Error   string                               `json:"error,omitempty"`
}

func (m *Message) Validate() error {
	if m.V != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.V)
	}
	switch m.Type {
	case KindRegister:
		if m.ID == "" || m.Room == "" {
			return fmt.Errorf("%w: register needs id and room", ErrMissingField)
		}
	case KindIntroduction:
	case KindPeerJoined:
		if m.ID == "" {
			return fmt.Errorf("%w: peer-joined needs id", ErrMissingField)
		}
	case KindPeerLeft:
		if m.ID == "" {
			return fmt.Errorf("%w: peer-left needs id", ErrMissingField)
		}
	case KindSignal:
		if m.To == "" {
			return fmt.Errorf("%w: signal needs to", ErrMissingField)
		}
		if m.Payload == nil {
			return fmt.Errorf("%w: signal needs payload", ErrMissingField)
		}
		if err := m.Payload.Validate(); err != nil {
			return err
		}
	case KindVideoToggled:
		if m.Enabled == nil {
			return fmt.Errorf("%w: video-toggled needs enabled", ErrMissingField)
		}
	case KindError:
		if m.Error == "" {
			return fmt.Errorf("%w: error needs error", ErrMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Type)
	}
	return nil
}

// Encode validates and marshals a message.
func Encode(m *Message) ([]byte, error) {
	if m.V == 0 {
		m.V = Version
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode unmarshals and validates one frame.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func NewRegister(id domain.PeerID, displayName string, room domain.RoomID) *Message {
	return &Message{V: Version, Type: KindRegister, ID: id, Name: displayName, Room: room}
}

func NewIntroduction(roster map[domain.PeerID]domain.RosterEntry) *Message {
	return &Message{V: Version, Type: KindIntroduction, Roster: roster}
}

func NewPeerJoined(id domain.PeerID, displayName string) *Message {
	return &Message{V: Version, Type: KindPeerJoined, ID: id, Name: displayName}
}

func NewPeerLeft(id domain.PeerID) *Message {
	return &Message{V: Version, Type: KindPeerLeft, ID: id}
}

func NewSignal(to, from domain.PeerID, payload SignalPayload) *Message {
	return &Message{V: Version, Type: KindSignal, To: to, From: from, Payload: &payload}
}

func NewVideoToggled(id domain.PeerID, enabled bool) *Message {
	return &Message{V: Version, Type: KindVideoToggled, ID: id, Enabled: &enabled}
}

func NewError(msg string) *Message {
	return &Message{V: Version, Type: KindError, Error: msg}
}
