// Package clienthandler implements the per-connection command loop: read a
// line, rate-limit and ban-check the peer, dispatch it locally or relay it
// to the account's owning bank, track bad-command counts, write the
// response, repeat until EOF, timeout, or a policy-triggered disconnect.
package clienthandler

import (
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Martin-Pop/bank-node-collaboration/internal/commands"
	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
	"github.com/Martin-Pop/bank-node-collaboration/internal/peerconn"
	"github.com/Martin-Pop/bank-node-collaboration/internal/protocol"
	"github.com/Martin-Pop/bank-node-collaboration/internal/security"
)

// maxLineBytes caps a single read the way the source's 1 KB recv buffer
// does: a longer line is truncated, and the next read either completes a
// now-malformed line (yielding an error response) or hits EOF.
const maxLineBytes = 1024

const rateLimitWindow = 60 * time.Second

// Handler runs the command loop for one accepted connection.
type Handler struct {
	bankCode             string
	factory              *commands.Factory
	guard                *security.Guard
	connector            *peerconn.Connector
	scanPortLow          int
	scanPortHigh         int
	clientTimeout        time.Duration
	maxRequestsPerMinute int
	maxBadCommands       int
	active               *int64
}

// Config bundles the parameters New needs.
type Config struct {
	BankCode             string
	Factory              *commands.Factory
	Guard                *security.Guard
	Connector            *peerconn.Connector
	ScanPortLow          int
	ScanPortHigh         int
	ClientTimeout        time.Duration
	MaxRequestsPerMinute int
	MaxBadCommands       int
	ActiveConnections    *int64
}

// New creates a Handler from cfg.
func New(cfg Config) *Handler {
	return &Handler{
		bankCode:             cfg.BankCode,
		factory:              cfg.Factory,
		guard:                cfg.Guard,
		connector:            cfg.Connector,
		scanPortLow:          cfg.ScanPortLow,
		scanPortHigh:         cfg.ScanPortHigh,
		clientTimeout:        cfg.ClientTimeout,
		maxRequestsPerMinute: cfg.MaxRequestsPerMinute,
		maxBadCommands:       cfg.MaxBadCommands,
		active:               cfg.ActiveConnections,
	}
}

// Handle runs the command loop for conn until it should close. It always
// closes conn before returning, and always releases the active-connection
// counter on every exit path.
func (h *Handler) Handle(conn net.Conn) {
	if h.active != nil {
		atomic.AddInt64(h.active, 1)
		defer atomic.AddInt64(h.active, -1)
	}
	defer conn.Close()

	ip := remoteIP(conn)
	buf := make([]byte, maxLineBytes)

	var timestamps []time.Time
	badCommands := 0

	for {
		conn.SetReadDeadline(time.Now().Add(h.clientTimeout))

		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		line := string(buf[:n])

		if h.guard.IsBanned(ip) {
			writeResponse(conn, protocol.FormatError("Banned"))
			return
		}

		now := time.Now()
		timestamps = trimWindow(timestamps, now)
		timestamps = append(timestamps, now)
		if len(timestamps) > h.maxRequestsPerMinute {
			h.guard.Ban(ip)
			writeResponse(conn, protocol.FormatError("Rate limit exceeded"))
			return
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		cmd := protocol.ParseCommand(trimmed)

		var response string
		var outcome commands.Outcome
		local := h.isLocal(cmd)
		if local {
			response, outcome = h.dispatchLocal(cmd)
		} else {
			response, outcome = h.dispatchRelay(cmd, trimmed)
		}

		switch {
		case !local:
			// Relayed commands leave bad_commands unchanged.
		case outcome == commands.Success:
			badCommands--
			if badCommands < 0 {
				badCommands = 0
			}
		case outcome == commands.ClientError:
			badCommands++
		}

		if badCommands >= h.maxBadCommands {
			h.guard.Ban(ip)
			writeResponse(conn, protocol.FormatError("Too many errors."))
			return
		}

		if !writeResponse(conn, response) {
			return
		}
	}
}

// isLocal reports whether cmd's first argument (when relay-eligible) routes
// to this bank. Commands with no arguments are always local.
func (h *Handler) isLocal(cmd protocol.Command) bool {
	if len(cmd.Args) == 0 {
		return true
	}
	return protocol.IsCommandForUs(h.bankCode, cmd.Args[0])
}

func (h *Handler) dispatchLocal(cmd protocol.Command) (string, commands.Outcome) {
	cmdObj, err := h.factory.Create(cmd.Code, cmd.Args)
	if cmdObj == nil && err == nil {
		return protocol.FormatError("Invalid command"), commands.ClientError
	}
	if err != nil {
		if err == commands.ErrArgCount {
			return protocol.FormatError("invalid arguments"), commands.ClientError
		}
		return protocol.FormatError("argument value error"), commands.ClientError
	}
	return cmdObj.Execute()
}

// relayableCodes is the set of command codes that may be forwarded to a
// peer bank on the client's behalf.
var relayableCodes = map[string]bool{"AD": true, "AW": true, "AB": true}

// dispatchRelay implements the §4.9.1 proxy algorithm. It never affects the
// caller's bad_commands count: its outcome is always Success, and Handle
// applies no bad-command accounting to relayed commands, mirroring the
// source's proxy path, which has no equivalent of the local
// construction/execute error classification.
func (h *Handler) dispatchRelay(cmd protocol.Command, rawLine string) (string, commands.Outcome) {
	if !relayableCodes[cmd.Code] {
		return protocol.FormatError("Command cannot be proxied"), commands.Success
	}
	if len(cmd.Args) == 0 {
		return protocol.FormatError("Missing arguments for proxy request"), commands.Success
	}

	_, targetIP, ok := protocol.ParseAddress(cmd.Args[0])
	if !ok {
		targetIP = cmd.Args[0]
	}

	if port, cached := h.guard.KnownPort(targetIP); cached {
		if resp, ok := h.tryRelay(targetIP, port, rawLine); ok {
			return resp, commands.Success
		}
		// Cached port went stale; drop it and fall through to a full scan
		// instead of giving up, so the relay self-heals if the peer moved.
		h.guard.ForgetPort(targetIP)
	}

	for port := h.scanPortLow; port <= h.scanPortHigh; port++ {
		if resp, ok := h.tryRelay(targetIP, port, rawLine); ok {
			h.guard.SaveKnownPort(targetIP, port)
			return resp, commands.Success
		}
	}
	return protocol.FormatError("Bank not found on any allowed port"), commands.Success
}

// tryRelay forwards rawLine to ip:port and reports success only for a
// non-error reply.
func (h *Handler) tryRelay(ip string, port int, rawLine string) (string, bool) {
	resp, ok := h.connector.Relay(ip, port, rawLine)
	if !ok || strings.HasPrefix(resp, protocol.ErrorCode) {
		return "", false
	}
	return resp + "\r\n", true
}

func trimWindow(timestamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rateLimitWindow)
	i := 0
	for i < len(timestamps) && timestamps[i].Before(cutoff) {
		i++
	}
	return timestamps[i:]
}

func writeResponse(conn net.Conn, response string) bool {
	_, err := conn.Write([]byte(response))
	if err != nil {
		log.Client.Debugf("write failed for %s: %v", remoteIP(conn), err)
		return false
	}
	return true
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
