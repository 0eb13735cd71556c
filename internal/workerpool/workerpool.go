// Package workerpool implements the bank node's connection handoff: a fixed
// number of goroutine pools, each fed by its own buffered channel, with
// connections distributed round-robin from the gateway's accept loop. This
// replaces the source's multiprocessing.Process-plus-Pipe workers with a
// single-process channel handoff, the in-process substitute spec.md names
// directly for a Go implementation.
package workerpool

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
)

// queueDepth bounds how many accepted-but-not-yet-handled connections a
// single worker's channel may hold before Dispatch blocks.
const queueDepth = 32

// Pool is a fixed set of goroutine workers, each draining its own channel of
// accepted connections and spawning a fresh handler goroutine per
// connection, so a worker's own lifetime is never tied up by a single
// long-lived connection.
type Pool struct {
	queues    []chan net.Conn
	next      uint64
	active    int64
	wg        sync.WaitGroup // worker dispatch loops
	handlerWg sync.WaitGroup // in-flight per-connection handlers
}

// New starts n workers. Each worker drains its own channel and, for every
// connection it dequeues, spawns a dedicated handler goroutine rather than
// running handle inline, so many connections can be served concurrently per
// worker; the channel's buffering (queueDepth) is what bounds admission
// under burst load. Workers run until their queue is closed with a nil
// sentinel (see Shutdown).
func New(n int, handle func(net.Conn)) *Pool {
	p := &Pool{queues: make([]chan net.Conn, n)}

	for i := 0; i < n; i++ {
		queue := make(chan net.Conn, queueDepth)
		p.queues[i] = queue

		p.wg.Add(1)
		go func(id int, queue chan net.Conn) {
			defer p.wg.Done()
			log.Worker.Debugf("worker %d started", id)
			for conn := range queue {
				if conn == nil {
					log.Worker.Debugf("worker %d received shutdown sentinel", id)
					return
				}
				atomic.AddInt64(&p.active, 1)
				p.handlerWg.Add(1)
				go func(c net.Conn) {
					defer p.handlerWg.Done()
					defer atomic.AddInt64(&p.active, -1)
					handle(c)
				}(conn)
			}
		}(i, queue)
	}
	return p
}

// Dispatch hands conn to the next worker in round-robin order.
func (p *Pool) Dispatch(conn net.Conn) {
	idx := atomic.AddUint64(&p.next, 1) % uint64(len(p.queues))
	p.queues[idx] <- conn
}

// ActiveConnections returns the number of connections currently being
// handled across all workers.
func (p *Pool) ActiveConnections() int {
	return int(atomic.LoadInt64(&p.active))
}

// Shutdown sends the nil sentinel to every worker, waits for the dispatch
// loops to exit, then waits for every in-flight handler goroutine to finish.
func (p *Pool) Shutdown() {
	for _, queue := range p.queues {
		queue <- nil
	}
	p.wg.Wait()
	p.handlerWg.Wait()
	for _, queue := range p.queues {
		close(queue)
	}
}
