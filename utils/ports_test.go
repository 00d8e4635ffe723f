package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occupy(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln, ListenerPort(ln)
}

func TestListenFirstFreeUsesRequestedPort(t *testing.T) {
	ln, port := occupy(t)
	require.NoError(t, ln.Close())

	got, err := ListenFirstFree("127.0.0.1", port, 0)
	require.NoError(t, err)
	defer got.Close()
	assert.Equal(t, port, ListenerPort(got))
}

func TestListenFirstFreeScansForward(t *testing.T) {
	_, port := occupy(t)

	got, err := ListenFirstFree("127.0.0.1", port, 10)
	require.NoError(t, err)
	defer got.Close()
	assert.Greater(t, ListenerPort(got), port)
	assert.LessOrEqual(t, ListenerPort(got), port+10)
}

func TestListenFirstFreeFailsClosed(t *testing.T) {
	_, port := occupy(t)

	_, err := ListenFirstFree("127.0.0.1", port, 0)
	assert.ErrorIs(t, err, ErrPortInUse)
}
