// Package security implements the per-node shared state that protects a bank
// from abusive clients: a blacklist of banned IPs with lazy expiry, and a
// cache of known listening ports for already-seen peer IPs.
package security

import (
	"sync"
	"time"

	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
)

// Guard holds the blacklist and known-port cache, each behind its own mutex
// so a ban check never blocks a port lookup and vice versa.
type Guard struct {
	banDuration time.Duration

	blacklistMu sync.Mutex
	blacklist   map[string]time.Time

	portsMu sync.Mutex
	ports   map[string]int
}

// New creates a Guard that bans an IP for banDuration once it is flagged.
func New(banDuration time.Duration) *Guard {
	return &Guard{
		banDuration: banDuration,
		blacklist:   make(map[string]time.Time),
		ports:       make(map[string]int),
	}
}

// IsBanned reports whether ip is currently banned. An expired ban is
// removed from the blacklist as a side effect (lazy expiry).
func (g *Guard) IsBanned(ip string) bool {
	g.blacklistMu.Lock()
	defer g.blacklistMu.Unlock()

	until, ok := g.blacklist[ip]
	if !ok {
		return false
	}
	if time.Now().Before(until) {
		return true
	}
	delete(g.blacklist, ip)
	return false
}

// Ban adds ip to the blacklist for the configured ban duration.
func (g *Guard) Ban(ip string) {
	g.blacklistMu.Lock()
	g.blacklist[ip] = time.Now().Add(g.banDuration)
	g.blacklistMu.Unlock()
	log.Security.Warnf("banned %s for %s", ip, g.banDuration)
}

// SaveKnownPort records the port a bank was last found listening on at ip,
// so a later relay to ip can try it first instead of sweeping the whole
// range. The scanner writes this cache but does not read it.
func (g *Guard) SaveKnownPort(ip string, port int) {
	g.portsMu.Lock()
	g.ports[ip] = port
	g.portsMu.Unlock()
}

// KnownPort returns the last known port for ip, if any.
func (g *Guard) KnownPort(ip string) (int, bool) {
	g.portsMu.Lock()
	defer g.portsMu.Unlock()
	port, ok := g.ports[ip]
	return port, ok
}

// ForgetPort drops ip's cached port. The cache is an optimization, not a
// source of truth: once a cached port fails to answer, it is discarded so
// the next request falls back to a full scan instead of retrying it.
func (g *Guard) ForgetPort(ip string) {
	g.portsMu.Lock()
	delete(g.ports, ip)
	g.portsMu.Unlock()
}
