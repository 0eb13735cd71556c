// Package gateway wraps the bank node's single listening socket: open, hand
// accepted connections to a sink, close.
package gateway

import (
	"fmt"
	"net"

	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
)

// Gateway owns the node's TCP listener.
type Gateway struct {
	listener net.Listener
}

// Open starts listening on addr ("host:port"), IPv4 only.
func Open(addr string) (*Gateway, error) {
	l, err := net.Listen("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("gateway: listen on %s: %w", addr, err)
	}
	log.Gateway.Infof("listening on %s", l.Addr())
	return &Gateway{listener: l}, nil
}

// Addr returns the address the gateway is listening on.
func (g *Gateway) Addr() string {
	return g.listener.Addr().String()
}

// Serve accepts connections in a loop and passes each to handle. It returns
// when the listener is closed.
func (g *Gateway) Serve(handle func(net.Conn)) error {
	for {
		conn, err := g.listener.Accept()
		if err != nil {
			return err
		}
		handle(conn)
	}
}

// Close stops accepting new connections.
func (g *Gateway) Close() error {
	return g.listener.Close()
}
