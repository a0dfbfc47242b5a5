package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatchCallsRegisteredHandlerInAllowedState(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var called bool
	reg.Register(0x01, []SessionState{StateAuthenticated}, func(sess any, r *Reader) {
		called = true
	})

	err := reg.Dispatch(nil, StateAuthenticated, []byte{0x01, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestDispatchRejectsDisallowedState(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var called bool
	reg.Register(0x01, []SessionState{StateActive}, func(sess any, r *Reader) {
		called = true
	})

	err := reg.Dispatch(nil, StateHandshake, []byte{0x01, 0, 0, 0})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestDispatchIgnoresUnknownOpcode(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	err := reg.Dispatch(nil, StateHandshake, []byte{0xFE, 0, 0, 0})
	assert.NoError(t, err)
}

func TestDispatchRejectsEmptyPacket(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	err := reg.Dispatch(nil, StateHandshake, nil)
	assert.Error(t, err)
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register(0x01, []SessionState{StateHandshake}, func(sess any, r *Reader) {
		panic("boom")
	})

	err := reg.Dispatch(nil, StateHandshake, []byte{0x01})
	assert.Error(t, err)
}

func TestSessionStateStringUnknownValue(t *testing.T) {
	assert.Equal(t, "Unknown(99)", SessionState(99).String())
}
