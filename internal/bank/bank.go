// Package bank wires every other package together into a running node:
// opens the store, starts the gateway and worker pool, and exposes the
// stable read-only surface an external monitoring collaborator would call.
package bank

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/Martin-Pop/bank-node-collaboration/internal/clienthandler"
	"github.com/Martin-Pop/bank-node-collaboration/internal/commands"
	"github.com/Martin-Pop/bank-node-collaboration/internal/config"
	"github.com/Martin-Pop/bank-node-collaboration/internal/gateway"
	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
	"github.com/Martin-Pop/bank-node-collaboration/internal/peerconn"
	"github.com/Martin-Pop/bank-node-collaboration/internal/scanner"
	"github.com/Martin-Pop/bank-node-collaboration/internal/security"
	"github.com/Martin-Pop/bank-node-collaboration/internal/store"
	"github.com/Martin-Pop/bank-node-collaboration/internal/workerpool"
)

// Stats is the snapshot an external monitoring UI would poll for.
type Stats struct {
	BankCode          string
	GatewayAddress    string
	StartTime         time.Time
	ActiveConnections int
	AccountsCount     int
	TotalAmount       uint64
}

// Bank is one running node: its store, its security guard, its peer
// connector and scanner, its gateway, and its worker pool.
type Bank struct {
	cfg       config.Config
	bankCode  string
	store     *store.Store
	guard     *security.Guard
	connector *peerconn.Connector
	scanner   *scanner.Scanner
	gateway   *gateway.Gateway
	pool      *workerpool.Pool
	active    int64
	startTime time.Time
}

// Open opens the durable store and builds every collaborator, but does not
// yet start listening; call Start for that.
func Open(cfg config.Config) (*Bank, error) {
	st, err := store.Open(cfg.StoragePath, cfg.StorageTimeout())
	if err != nil {
		return nil, fmt.Errorf("bank: open store: %w", err)
	}

	bankCode, err := ownAddress(cfg.Host)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("bank: determine bank code: %w", err)
	}

	guard := security.New(cfg.BanDuration())
	connector := peerconn.New(cfg.NetworkTimeout())
	scn := scanner.New(
		cfg.NetworkScanSubnet,
		cfg.NetworkScanPortRange.Low,
		cfg.NetworkScanPortRange.High,
		connector,
		guard,
	)

	b := &Bank{
		cfg:       cfg,
		bankCode:  bankCode,
		store:     st,
		guard:     guard,
		connector: connector,
		scanner:   scn,
	}
	return b, nil
}

// ownAddress returns host if it's a concrete address, or discovers this
// machine's outbound-facing IP (the Go idiom for it: dial UDP to an
// arbitrary public address and read back the local address the kernel
// picked; no packet is actually sent) when host is the wildcard "0.0.0.0".
func ownAddress(host string) (string, error) {
	if host != "" && host != "0.0.0.0" {
		return host, nil
	}
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// Start opens the gateway's listening socket and launches the worker pool
// that drains it. It returns once the gateway is listening; the accept loop
// runs in the background until Close is called.
func (b *Bank) Start() error {
	bankCtx := commands.BankCodeContext{BankCode: b.bankCode}
	storeCtx := commands.StoreContext{BankCode: b.bankCode, Store: b.store}
	netCtx := commands.NetworkContext{Scanner: b.scanner, OurIP: b.bankCode}

	factory := commands.NewFactory()
	commands.RegisterDefaults(factory, bankCtx, storeCtx, netCtx)

	handler := clienthandler.New(clienthandler.Config{
		BankCode:             b.bankCode,
		Factory:              factory,
		Guard:                b.guard,
		Connector:            b.connector,
		ScanPortLow:          b.cfg.NetworkScanPortRange.Low,
		ScanPortHigh:         b.cfg.NetworkScanPortRange.High,
		ClientTimeout:        b.cfg.ClientTimeout(),
		MaxRequestsPerMinute: b.cfg.MaxRequestsPerMinute,
		MaxBadCommands:       b.cfg.MaxBadCommands,
		ActiveConnections:    &b.active,
	})

	gw, err := gateway.Open(b.cfg.Address())
	if err != nil {
		return fmt.Errorf("bank: start gateway: %w", err)
	}
	b.gateway = gw

	b.pool = workerpool.New(b.cfg.BankWorkers, handler.Handle)
	b.startTime = time.Now()

	go func() {
		if err := b.gateway.Serve(b.pool.Dispatch); err != nil {
			log.Bank.Infof("accept loop stopped: %v", err)
		}
	}()

	log.Bank.Infof("bank %s listening on %s with %d workers", b.bankCode, gw.Addr(), b.cfg.BankWorkers)
	return nil
}

// Close stops the gateway, drains and stops the worker pool, and closes the
// store.
func (b *Bank) Close() error {
	if b.gateway != nil {
		b.gateway.Close()
	}
	if b.pool != nil {
		b.pool.Shutdown()
	}
	return b.store.Close()
}

// Stats returns a snapshot of the node's current state.
func (b *Bank) Stats() Stats {
	return Stats{
		BankCode:          b.bankCode,
		GatewayAddress:    b.GatewayAddress(),
		StartTime:         b.startTime,
		ActiveConnections: int(atomic.LoadInt64(&b.active)),
		AccountsCount:     b.store.AccountsCount(),
		TotalAmount:       b.store.TotalAmount(),
	}
}

// AccountsPaged returns up to limit accounts starting at offset.
func (b *Bank) AccountsPaged(offset, limit int) []store.Account {
	return b.store.AccountsPaged(offset, limit)
}

// AccountsCount returns the total number of accounts.
func (b *Bank) AccountsCount() int {
	return b.store.AccountsCount()
}

// GatewayAddress returns the address the gateway is listening on.
func (b *Bank) GatewayAddress() string {
	if b.gateway == nil {
		return ""
	}
	return b.gateway.Addr()
}

// StartTime returns when Start completed.
func (b *Bank) StartTime() time.Time {
	return b.startTime
}

// BankCode returns this node's bank code.
func (b *Bank) BankCode() string {
	return b.bankCode
}
