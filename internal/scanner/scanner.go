// Package scanner discovers peer banks across a /24 subnet and a port range,
// and selects a greedy target set for a robbery plan of a given size. Probe
// fan-out is bounded by a weighted semaphore, the idiomatic substitute for
// the fixed-size thread pool a scripting language would reach for.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
	"github.com/Martin-Pop/bank-node-collaboration/internal/peerconn"
	"github.com/Martin-Pop/bank-node-collaboration/internal/security"
)

// maxConcurrentProbes bounds how many simultaneous dial attempts the scanner
// issues, regardless of how large the subnet x port-range product is.
const maxConcurrentProbes = 50

// Peer describes a bank discovered during a scan.
type Peer struct {
	IP          string
	Port        int
	BankCode    string
	TotalAmount int64
	ClientCount int
}

// Scanner sweeps a subnet and port range looking for other bank nodes.
type Scanner struct {
	subnet    string
	portLow   int
	portHigh  int
	connector *peerconn.Connector
	guard     *security.Guard
}

// New creates a Scanner over the given /24 subnet prefix (e.g. "10.0.0") and
// inclusive port range.
func New(subnet string, portLow, portHigh int, connector *peerconn.Connector, guard *security.Guard) *Scanner {
	return &Scanner{
		subnet:    subnet,
		portLow:   portLow,
		portHigh:  portHigh,
		connector: connector,
		guard:     guard,
	}
}

// Scan probes every host in the subnet (except ourIP) across the configured
// port range, returning every bank that answered BC/BA/BN. Every port in the
// range is probed for every host; a port that answers BC is recorded in the
// guard's known-port cache, but the scan itself does not read that cache.
func (s *Scanner) Scan(ctx context.Context, ourIP string) []Peer {
	sem := semaphore.NewWeighted(maxConcurrentProbes)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var peers []Peer

	for host := 1; host < 255; host++ {
		ip := fmt.Sprintf("%s.%d", s.subnet, host)
		if ip == ourIP {
			continue
		}
		for port := s.portLow; port <= s.portHigh; port++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return peers
			}
			wg.Add(1)
			go func(ip string, port int) {
				defer wg.Done()
				defer sem.Release(1)
				if peer, ok := s.probe(ip, port); ok {
					mu.Lock()
					peers = append(peers, peer)
					mu.Unlock()
				}
			}(ip, port)
		}
	}
	wg.Wait()
	return peers
}

func (s *Scanner) probe(ip string, port int) (Peer, bool) {
	code, ok := s.connector.BankCode(ip, port)
	if !ok || code == "" {
		return Peer{}, false
	}
	s.guard.SaveKnownPort(ip, port)

	amount, okAmount := s.connector.BankAmount(ip, port)
	count, okCount := s.connector.ClientCount(ip, port)
	if !okAmount || !okCount {
		return Peer{}, false
	}

	log.Network.Debugf("discovered bank %s at %s:%d ($%d, %d clients)", code, ip, port, amount, count)
	return Peer{IP: ip, Port: port, BankCode: code, TotalAmount: amount, ClientCount: count}, true
}

func efficiency(p Peer) float64 {
	clients := p.ClientCount
	if clients < 1 {
		clients = 1
	}
	return float64(p.TotalAmount) / float64(clients)
}

// SelectTargets greedily picks peers to rob until their combined
// TotalAmount covers target. Peers are considered in descending order of
// efficiency (amount per client). Before taking the current head, every
// still-available peer is checked for a single-bank finisher: one whose
// TotalAmount alone covers the remaining need and whose ClientCount is no
// higher than the current head's — taking fewer total clients into the plan
// than continuing the greedy walk would. If no finisher exists, the head is
// taken and the walk continues.
//
// This is a heuristic, not an optimal subset-sum solver; its output is a
// property of this algorithm, not a guaranteed-minimal plan.
func SelectTargets(target int64, peers []Peer) []Peer {
	if target <= 0 || len(peers) == 0 {
		return nil
	}

	sorted := make([]Peer, len(peers))
	copy(sorted, peers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return efficiency(sorted[i]) > efficiency(sorted[j])
	})

	taken := make([]bool, len(sorted))
	var selected []Peer
	var total int64

	headIdx := 0
	for total < target {
		for headIdx < len(sorted) && taken[headIdx] {
			headIdx++
		}
		if headIdx >= len(sorted) {
			break
		}
		head := sorted[headIdx]
		remaining := target - total

		finisherIdx := -1
		for i, p := range sorted {
			if taken[i] {
				continue
			}
			if p.TotalAmount >= remaining && p.ClientCount <= head.ClientCount {
				if finisherIdx == -1 || p.ClientCount < sorted[finisherIdx].ClientCount {
					finisherIdx = i
				}
			}
		}

		if finisherIdx != -1 {
			taken[finisherIdx] = true
			selected = append(selected, sorted[finisherIdx])
			total += sorted[finisherIdx].TotalAmount
			break
		}

		taken[headIdx] = true
		selected = append(selected, head)
		total += head.TotalAmount
		headIdx++
	}

	return selected
}
