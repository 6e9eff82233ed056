package domain

import "errors"

const MaxRoomIDLen = 64

var ErrRoomIDEmpty = errors.New("room id empty")

type RoomID string

func (r RoomID) Validate() error {
	if r == "" {
		return ErrRoomIDEmpty
	}
	if len(r) > MaxRoomIDLen {
		return errors.New("room id too long")
	}
	return nil
}

// RoomInfo is a read-only view used by the relay HTTP API.
type RoomInfo struct {
	ID          RoomID `json:"id"`
	MemberCount int    `json:"member_count"`
}
