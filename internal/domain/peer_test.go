package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnState_Transitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransition(StateNegotiating))
	assert.True(t, StateNegotiating.CanTransition(StateConnected))
	assert.True(t, StateConnected.CanTransition(StateNegotiating))
	assert.True(t, StateNegotiating.CanTransition(StateClosed))
	assert.False(t, StateIdle.CanTransition(StateConnected))
	assert.False(t, StateClosed.CanTransition(StateNegotiating))
	assert.False(t, StateClosed.CanTransition(StateClosed))
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("", "  alice ")
	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.Equal(t, "alice", id.DisplayName)

	_, err = NewIdentity("p1", "")
	assert.ErrorIs(t, err, ErrDisplayNameEmpty)

	_, err = NewIdentity("p1", strings.Repeat("x", MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)

	_, err = NewIdentity(PeerID(strings.Repeat("x", MaxPeerIDLen+1)), "bob")
	assert.ErrorIs(t, err, ErrPeerIDTooLong)
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "initiator", RoleInitiator.String())
	assert.Equal(t, "responder", RoleResponder.String())
}
