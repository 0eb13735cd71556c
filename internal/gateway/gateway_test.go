package gateway

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenAndServeAccepts(t *testing.T) {
	g, err := Open("127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan net.Conn, 1)
	go g.Serve(func(conn net.Conn) {
		accepted <- conn
	})

	conn, err := net.DialTimeout("tcp", g.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case c := <-accepted:
		require.NotNil(t, c)
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("gateway did not accept connection in time")
	}

	require.NoError(t, g.Close())
}

func TestCloseStopsServe(t *testing.T) {
	g, err := Open("127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- g.Serve(func(net.Conn) {})
	}()

	require.NoError(t, g.Close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not return after close")
	}
}
