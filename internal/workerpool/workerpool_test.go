package workerpool

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	net.Conn
	id int
}

func TestDispatchHandlesEveryConnection(t *testing.T) {
	var mu sync.Mutex
	var handled []int
	var wg sync.WaitGroup
	wg.Add(6)

	pool := New(3, func(c net.Conn) {
		defer wg.Done()
		mu.Lock()
		handled = append(handled, c.(*fakeConn).id)
		mu.Unlock()
	})

	for i := 0; i < 6; i++ {
		pool.Dispatch(&fakeConn{id: i})
	}

	waitOrTimeout(t, &wg)

	mu.Lock()
	require.Len(t, handled, 6)
	mu.Unlock()

	pool.Shutdown()
}

func TestActiveConnectionsTracksInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	pool := New(1, func(c net.Conn) {
		started <- struct{}{}
		<-release
	})

	pool.Dispatch(&fakeConn{id: 1})
	<-started
	require.Equal(t, 1, pool.ActiveConnections())

	close(release)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 0, pool.ActiveConnections())

	pool.Shutdown()
}

func TestShutdownStopsAllWorkers(t *testing.T) {
	var handledCount int64
	pool := New(2, func(c net.Conn) {
		atomic.AddInt64(&handledCount, 1)
	})
	pool.Shutdown()
	require.Equal(t, int64(0), atomic.LoadInt64(&handledCount))
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for workers")
	}
}
