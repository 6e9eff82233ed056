package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeshError_Is(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap("connect relay", ErrSignalingUnreachable, cause)

	assert.ErrorIs(t, err, ErrSignalingUnreachable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connect relay")

	peerErr := NewPeerError("apply offer", "bob", ErrNegotiationFailed)
	assert.ErrorIs(t, peerErr, ErrNegotiationFailed)
	assert.Equal(t, "apply offer bob: negotiation failed", peerErr.Error())
}
