package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intrets/mem/internal/core/refman"
)

func TestAcceptLoopRegistersSessionAndSendsHandshake(t *testing.T) {
	sessions := refman.NewManager[Session]()
	server, err := NewServer("127.0.0.1:0", sessions, 8, 8, 0, zap.NewNop())
	require.NoError(t, err)
	defer server.Shutdown()

	go server.AcceptLoop()

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	var header [2]byte
	_, err = conn.Read(header[:])
	require.NoError(t, err)

	select {
	case weak := <-server.NewSessions():
		assert.True(t, sessions.ValidHandle(weak.Handle()))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for new session notification")
	}
}

func TestShutdownStopsAcceptLoop(t *testing.T) {
	sessions := refman.NewManager[Session]()
	server, err := NewServer("127.0.0.1:0", sessions, 8, 8, 0, zap.NewNop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		server.AcceptLoop()
		close(done)
	}()

	server.Shutdown()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AcceptLoop did not return after Shutdown")
	}
}

func TestNotifyDeadIsNonBlockingWhenChannelFull(t *testing.T) {
	sessions := refman.NewManager[Session]()
	server, err := NewServer("127.0.0.1:0", sessions, 8, 8, 0, zap.NewNop())
	require.NoError(t, err)
	defer server.Shutdown()

	assert.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			server.NotifyDead(refman.Handle{})
		}
	})
}
