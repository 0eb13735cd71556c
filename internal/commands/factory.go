package commands

import (
	"errors"
	"strconv"

	"github.com/Martin-Pop/bank-node-collaboration/internal/protocol"
	"github.com/Martin-Pop/bank-node-collaboration/internal/store"
)

// ErrArgCount is returned by a constructor when the wrong number of
// arguments was supplied for a command code. The client handler maps it to
// the "ER invalid arguments" wire response.
var ErrArgCount = errors.New("invalid arguments")

// ErrArgValue names a constructor error for an argument value that cannot be
// used. None of the constructors in RegisterDefaults return it: they record
// unparsable or out-of-range arguments on the command, which surfaces them
// at Execute time. The client handler maps any constructor error other than
// ErrArgCount to the "ER argument value error" wire response.
var ErrArgValue = errors.New("argument value error")

type constructor func(args []string) (Command, error)

// Factory maps wire command codes to their constructors. Each context type
// (BankCodeContext, StoreContext, NetworkContext) is bound in at
// registration time so constructors close over it.
type Factory struct {
	registry map[string]constructor
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{registry: make(map[string]constructor)}
}

// Register associates code with ctor. A code already registered is left
// untouched.
func (f *Factory) Register(code string, ctor constructor) {
	if _, exists := f.registry[code]; exists {
		return
	}
	f.registry[code] = ctor
}

// Create builds the Command for code from args. cmd is nil and err is nil
// when code isn't registered — the caller sends "ER Invalid command".
func (f *Factory) Create(code string, args []string) (Command, error) {
	ctor, ok := f.registry[code]
	if !ok {
		return nil, nil
	}
	return ctor(args)
}

// RegisterDefaults wires the standard command set: BC, AC, AR, AD, AW, AB,
// BA, BN, ROP.
func RegisterDefaults(f *Factory, bankCtx BankCodeContext, storeCtx StoreContext, netCtx NetworkContext) {
	f.Register("BC", func(args []string) (Command, error) {
		if len(args) != 0 {
			return nil, ErrArgCount
		}
		return &BankCodeCommand{ctx: bankCtx}, nil
	})

	f.Register("AC", func(args []string) (Command, error) {
		if len(args) != 0 {
			return nil, ErrArgCount
		}
		return &CreateAccountCommand{ctx: storeCtx}, nil
	})

	f.Register("AR", func(args []string) (Command, error) {
		if len(args) != 1 {
			return nil, ErrArgCount
		}
		account, valid := parseLocalAccount(bankCtx.BankCode, args[0])
		return &RemoveAccountCommand{ctx: storeCtx, account: account, valid: valid}, nil
	})

	f.Register("AD", func(args []string) (Command, error) {
		if len(args) != 2 {
			return nil, ErrArgCount
		}
		account, validAddr := parseLocalAccount(bankCtx.BankCode, args[0])
		amount, validAmount := parsePositiveAmount(args[1])
		return &AccountDepositCommand{
			ctx:     storeCtx,
			account: account,
			amount:  amount,
			valid:   validAddr && validAmount,
		}, nil
	})

	f.Register("AW", func(args []string) (Command, error) {
		if len(args) != 2 {
			return nil, ErrArgCount
		}
		account, validAddr := parseLocalAccount(bankCtx.BankCode, args[0])
		amount, validAmount := parsePositiveAmount(args[1])
		return &AccountWithdrawCommand{
			ctx:     storeCtx,
			account: account,
			amount:  amount,
			valid:   validAddr && validAmount,
		}, nil
	})

	f.Register("AB", func(args []string) (Command, error) {
		if len(args) != 1 {
			return nil, ErrArgCount
		}
		account, valid := parseAccountInRange(bankCtx.BankCode, args[0])
		return &AccountBalanceCommand{ctx: storeCtx, account: account, valid: valid}, nil
	})

	f.Register("BA", func(args []string) (Command, error) {
		if len(args) != 0 {
			return nil, ErrArgCount
		}
		return &BankAmountCommand{ctx: storeCtx}, nil
	})

	f.Register("BN", func(args []string) (Command, error) {
		if len(args) != 0 {
			return nil, ErrArgCount
		}
		return &BankClientCountCommand{ctx: storeCtx}, nil
	})

	f.Register("ROP", func(args []string) (Command, error) {
		if len(args) != 1 {
			return nil, ErrArgCount
		}
		amount, err := strconv.ParseInt(args[0], 10, 64)
		valid := err == nil && amount > 0
		return &RobberyPlanCommand{ctx: netCtx, amount: amount, valid: valid}, nil
	})
}

// parseLocalAccount parses addr as "account/bank_code" and returns the
// numeric account, treating it as invalid unless the address parses, both
// halves are non-empty, and the numeric part fits a uint32. It doesn't
// range-check against [MinAccountNumber, MaxAccountNumber] — a number
// outside that range simply won't exist in the store.
func parseLocalAccount(ourBankCode, addr string) (uint32, bool) {
	account, bankCode, ok := protocol.ParseAddress(addr)
	if !ok || account == "" || bankCode == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(account, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// parseAccountInRange is parseLocalAccount plus the AB-specific bound check.
func parseAccountInRange(ourBankCode, addr string) (uint32, bool) {
	n, ok := parseLocalAccount(ourBankCode, addr)
	if !ok {
		return 0, false
	}
	if n < uint32(store.MinAccountNumber) || n > uint32(store.MaxAccountNumber) {
		return 0, false
	}
	return n, true
}

func parsePositiveAmount(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
