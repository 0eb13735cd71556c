// Package commands implements the bank node's command set: one type per
// wire command code, each built from its parsed arguments plus a context
// carrying whatever collaborator it needs to execute.
package commands

import (
	"github.com/Martin-Pop/bank-node-collaboration/internal/scanner"
	"github.com/Martin-Pop/bank-node-collaboration/internal/store"
)

// BankCodeContext is all BC needs: this bank's own code.
type BankCodeContext struct {
	BankCode string
}

// StoreContext is what every account-table command (AC, AR, AD, AW, AB, BA,
// BN) needs: this bank's code (for AC's address response) and its account
// store.
type StoreContext struct {
	BankCode string
	Store    *store.Store
}

// NetworkContext is what ROP needs: the scanner to sweep peers with and this
// node's own address, so it can be excluded from discovery.
type NetworkContext struct {
	Scanner *scanner.Scanner
	OurIP   string
}
