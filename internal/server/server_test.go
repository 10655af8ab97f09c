package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newListeningServer(t *testing.T) *Server {
	t.Helper()
	cfg := NewConfig()
	cfg.Port = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	s, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestServerShutdownWhileListening(t *testing.T) {
	s := newListeningServer(t)

	served := make(chan error, 1)
	go func() {
		served <- s.ListenAndServe()
	}()

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after shutdown")
	}
	assert.Equal(t, lifecycleStopped, s.lifecycle.Load())
}

func TestServerShutdownDrainsStartedHub(t *testing.T) {
	s := newListeningServer(t)
	s.Start()
	s.Start()

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case <-s.hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub loop still running after shutdown")
	}
}

func TestServerStartAfterShutdownIsNoop(t *testing.T) {
	s := newListeningServer(t)

	require.NoError(t, s.Shutdown(context.Background()))
	s.Start()

	assert.Equal(t, lifecycleStopped, s.lifecycle.Load())
	select {
	case <-s.hub.done:
		t.Fatal("hub loop should never have run")
	default:
	}
}
