package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Martin-Pop/bank-node-collaboration/internal/protocol"
	"github.com/Martin-Pop/bank-node-collaboration/internal/scanner"
	"github.com/Martin-Pop/bank-node-collaboration/internal/store"
)

// Outcome classifies an Execute result for the client handler's bad_commands
// bookkeeping: Success decrements the counter, ClientError increments it,
// ServerError (a failure the client's request was well-formed for: a missing
// account, lack of funds, no banks found, or a storage/backend failure)
// leaves it untouched.
type Outcome int

const (
	Success Outcome = iota
	ClientError
	ServerError
)

// Command is a constructed, ready-to-run request.
type Command interface {
	// Execute runs the command and returns its full wire response
	// (including the trailing CRLF) and how that result should affect the
	// caller's bad-command count.
	Execute() (string, Outcome)
}

func success(code, text string) (string, Outcome) {
	return protocol.FormatResponse(code, text), Success
}

func clientError(text string) (string, Outcome) {
	return protocol.FormatError(text), ClientError
}

func serverError(text string) (string, Outcome) {
	return protocol.FormatError(text), ServerError
}

// BankCodeCommand handles BC.
type BankCodeCommand struct {
	ctx BankCodeContext
}

func (c *BankCodeCommand) Execute() (string, Outcome) {
	return success("BC", c.ctx.BankCode)
}

// CreateAccountCommand handles AC.
type CreateAccountCommand struct {
	ctx StoreContext
}

func (c *CreateAccountCommand) Execute() (string, Outcome) {
	account, ok := c.ctx.Store.CreateAccount()
	if !ok {
		return serverError("Failed to create account, try again later")
	}
	return success("AC", protocol.FormatAddress(strconv.FormatUint(uint64(account), 10), c.ctx.BankCode))
}

// RemoveAccountCommand handles AR.
type RemoveAccountCommand struct {
	ctx     StoreContext
	account uint32
	valid   bool
}

func (c *RemoveAccountCommand) Execute() (string, Outcome) {
	if !c.valid {
		return clientError(store.ErrAccountNotFound.Error())
	}
	if err := c.ctx.Store.RemoveAccount(c.account); err != nil {
		return serverError(err.Error())
	}
	return success("AR", "")
}

// AccountDepositCommand handles AD.
type AccountDepositCommand struct {
	ctx     StoreContext
	account uint32
	amount  int64
	valid   bool
}

func (c *AccountDepositCommand) Execute() (string, Outcome) {
	if !c.valid {
		return clientError("Invalid parameters")
	}
	if err := c.ctx.Store.Deposit(c.account, c.amount); err != nil {
		return serverError(err.Error())
	}
	return success("AD", "")
}

// AccountWithdrawCommand handles AW.
type AccountWithdrawCommand struct {
	ctx     StoreContext
	account uint32
	amount  int64
	valid   bool
}

func (c *AccountWithdrawCommand) Execute() (string, Outcome) {
	if !c.valid {
		return clientError("Invalid parameters")
	}
	if err := c.ctx.Store.Withdraw(c.account, c.amount); err != nil {
		return serverError(err.Error())
	}
	return success("AW", "")
}

// AccountBalanceCommand handles AB.
type AccountBalanceCommand struct {
	ctx     StoreContext
	account uint32
	valid   bool
}

func (c *AccountBalanceCommand) Execute() (string, Outcome) {
	if !c.valid {
		return clientError("Invalid account number format")
	}
	balance, ok := c.ctx.Store.Balance(c.account)
	if !ok {
		return serverError(store.ErrAccountNotFound.Error())
	}
	return success("AB", strconv.FormatUint(balance, 10))
}

// BankAmountCommand handles BA.
type BankAmountCommand struct {
	ctx StoreContext
}

func (c *BankAmountCommand) Execute() (string, Outcome) {
	return success("BA", strconv.FormatUint(c.ctx.Store.TotalAmount(), 10))
}

// BankClientCountCommand handles BN.
type BankClientCountCommand struct {
	ctx StoreContext
}

func (c *BankClientCountCommand) Execute() (string, Outcome) {
	return success("BN", strconv.Itoa(c.ctx.Store.ClientCount()))
}

// RobberyPlanCommand handles ROP: scan the network and propose a set of
// peer banks to hit for the requested amount.
type RobberyPlanCommand struct {
	ctx    NetworkContext
	amount int64
	valid  bool
}

func (c *RobberyPlanCommand) Execute() (string, Outcome) {
	if !c.valid {
		return clientError("Invalid target amount")
	}

	peers := c.ctx.Scanner.Scan(context.Background(), c.ctx.OurIP)
	if len(peers) == 0 {
		return serverError("No banks found in network")
	}

	targets := scanner.SelectTargets(c.amount, peers)
	if len(targets) == 0 {
		return serverError("Could not create robbery plan")
	}

	text := ""
	for i, t := range targets {
		if i > 0 {
			text += ","
		}
		text += fmt.Sprintf("%s:%d", t.IP, t.Port)
	}
	return success("ROP", text)
}
