package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBanAndExpiry(t *testing.T) {
	g := New(20 * time.Millisecond)
	require.False(t, g.IsBanned("1.2.3.4"))

	g.Ban("1.2.3.4")
	require.True(t, g.IsBanned("1.2.3.4"))

	time.Sleep(30 * time.Millisecond)
	require.False(t, g.IsBanned("1.2.3.4"))
}

func TestKnownPortCache(t *testing.T) {
	g := New(time.Minute)

	_, ok := g.KnownPort("1.2.3.4")
	require.False(t, ok)

	g.SaveKnownPort("1.2.3.4", 9000)
	port, ok := g.KnownPort("1.2.3.4")
	require.True(t, ok)
	require.Equal(t, 9000, port)

	g.SaveKnownPort("1.2.3.4", 9001)
	port, _ = g.KnownPort("1.2.3.4")
	require.Equal(t, 9001, port)
}
