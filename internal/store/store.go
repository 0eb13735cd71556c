// Package store implements the durable account store: a bbolt-backed table
// of account number -> balance, fronted by a shared in-memory cache so that
// balance lookups (AB) never touch disk; bank totals and counts (BA, BN) are
// read from the durable table. The cache is only ever updated after a
// durable transaction commits.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Martin-Pop/bank-node-collaboration/internal/log"
)

// byteOrder is big-endian so that bbolt cursor scans over account-number
// keys iterate in numeric order.
var byteOrder = binary.BigEndian

var accountsBucket = []byte("accounts")

const (
	// MinAccountNumber and MaxAccountNumber bound the account-number space
	// new accounts are drawn from.
	MinAccountNumber uint32 = 10000
	MaxAccountNumber uint32 = 99999

	maxCreateAttempts = 5
)

// Sentinel errors. Their Error() text is the exact wire-protocol message the
// command layer sends back to the client; keep the strings stable.
var (
	ErrAccountNotFound      = errors.New("Account not found")
	ErrRemoveFailed         = errors.New("Error while removing account")
	ErrInvalidAccountNumber = errors.New("Invalid account number")
	ErrDepositFailed        = errors.New("Error while depositing")
	ErrInsufficientFunds    = errors.New("Lack of funds")
	ErrDatabaseError        = errors.New("Database error")

	errCollision = errors.New("account number already taken")
)

// cache is the shared in-memory mirror of every account's balance. It is
// only ever mutated after the corresponding bbolt transaction has committed.
type cache struct {
	mu   sync.Mutex
	data map[uint32]uint64
}

func newCache() *cache {
	return &cache{data: make(map[uint32]uint64)}
}

func (c *cache) set(account uint32, balance uint64) {
	c.mu.Lock()
	c.data[account] = balance
	c.mu.Unlock()
}

func (c *cache) delete(account uint32) {
	c.mu.Lock()
	delete(c.data, account)
	c.mu.Unlock()
}

func (c *cache) get(account uint32) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	balance, ok := c.data[account]
	return balance, ok
}

func (c *cache) has(account uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[account]
	return ok
}

func (c *cache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// snapshot returns accounts sorted by account number, in the [offset,
// offset+limit) range. It is used only by the monitoring surface.
func (c *cache) snapshot(offset, limit int) []Account {
	c.mu.Lock()
	defer c.mu.Unlock()

	numbers := make([]uint32, 0, len(c.data))
	for n := range c.data {
		numbers = append(numbers, n)
	}
	sortUint32s(numbers)

	if offset >= len(numbers) {
		return nil
	}
	end := offset + limit
	if end > len(numbers) || limit <= 0 {
		end = len(numbers)
	}

	out := make([]Account, 0, end-offset)
	for _, n := range numbers[offset:end] {
		out = append(out, Account{Number: n, Balance: c.data[n]})
	}
	return out
}

func sortUint32s(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Account is a (number, balance) pair, used for paged listing.
type Account struct {
	Number  uint32
	Balance uint64
}

// Store is the durable account table plus its shared cache.
type Store struct {
	db    *bbolt.DB
	cache *cache
}

// Open opens (creating if absent) the bbolt file at path, ensures the
// accounts bucket exists, and bulk-loads every row into the shared cache.
// Both steps are fatal on failure: a bank cannot start serving without a
// consistent cache.
func Open(path string, timeout time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt db: %w", err)
	}

	s := &Store{db: db, cache: newCache()}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	if err := s.loadCache(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: load cache: %w", err)
	}

	log.Store.Infof("loaded %d accounts from %s", s.cache.count(), path)
	return s, nil
}

func (s *Store) loadCache() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		return b.ForEach(func(k, v []byte) error {
			s.cache.data[decodeKey(k)] = decodeBalance(v)
			return nil
		})
	})
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKey(n uint32) []byte {
	buf := make([]byte, 4)
	byteOrder.PutUint32(buf, n)
	return buf
}

func decodeKey(b []byte) uint32 {
	return byteOrder.Uint32(b)
}

func encodeBalance(v uint64) []byte {
	buf := make([]byte, 8)
	byteOrder.PutUint64(buf, v)
	return buf
}

func decodeBalance(b []byte) uint64 {
	return byteOrder.Uint64(b)
}

// CreateAccount picks a random unused account number in
// [MinAccountNumber, MaxAccountNumber], inserts a zero-balance row for it,
// and retries on collision up to maxCreateAttempts times. ok is false if no
// free number was found or the transaction failed.
func (s *Store) CreateAccount() (account uint32, ok bool) {
	span := int(MaxAccountNumber-MinAccountNumber) + 1
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		candidate := MinAccountNumber + uint32(rand.Intn(span))

		err := s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(accountsBucket)
			key := encodeKey(candidate)
			if b.Get(key) != nil {
				return errCollision
			}
			return b.Put(key, encodeBalance(0))
		})
		if err == nil {
			s.cache.set(candidate, 0)
			return candidate, true
		}
		if errors.Is(err, errCollision) {
			continue
		}
		log.Store.Errorf("create account: %v", err)
		return 0, false
	}
	return 0, false
}

// RemoveAccount deletes account's row. It returns ErrAccountNotFound if the
// account doesn't exist, ErrRemoveFailed on a durable-storage failure.
func (s *Store) RemoveAccount(account uint32) error {
	existed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		key := encodeKey(account)
		if b.Get(key) == nil {
			return nil
		}
		existed = true
		return b.Delete(key)
	})
	if err != nil {
		log.Store.Errorf("remove account %d: %v", account, err)
		return ErrRemoveFailed
	}
	if !existed {
		return ErrAccountNotFound
	}
	s.cache.delete(account)
	return nil
}

// Deposit adds amount (assumed already validated as positive) to account's
// balance. It returns ErrInvalidAccountNumber if the account doesn't exist,
// ErrDepositFailed on a durable-storage failure.
func (s *Store) Deposit(account uint32, amount int64) error {
	var newBalance uint64
	found := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		key := encodeKey(account)
		v := b.Get(key)
		if v == nil {
			return nil
		}
		found = true
		newBalance = decodeBalance(v) + uint64(amount)
		return b.Put(key, encodeBalance(newBalance))
	})
	if err != nil {
		log.Store.Errorf("deposit to %d: %v", account, err)
		return ErrDepositFailed
	}
	if !found {
		return ErrInvalidAccountNumber
	}
	s.cache.set(account, newBalance)
	return nil
}

// Withdraw subtracts amount (assumed already validated as positive) from
// account's balance. It returns ErrAccountNotFound if the account doesn't
// exist, ErrInsufficientFunds if the balance is too low, ErrDatabaseError on
// a durable-storage failure.
func (s *Store) Withdraw(account uint32, amount int64) error {
	var newBalance uint64
	var outcome error
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		key := encodeKey(account)
		v := b.Get(key)
		if v == nil {
			outcome = ErrAccountNotFound
			return nil
		}
		balance := decodeBalance(v)
		if balance < uint64(amount) {
			outcome = ErrInsufficientFunds
			return nil
		}
		newBalance = balance - uint64(amount)
		return b.Put(key, encodeBalance(newBalance))
	})
	if err != nil {
		log.Store.Errorf("withdraw from %d: %v", account, err)
		return ErrDatabaseError
	}
	if outcome != nil {
		return outcome
	}
	s.cache.set(account, newBalance)
	return nil
}

// Balance returns the cached balance for account, and whether it exists.
func (s *Store) Balance(account uint32) (uint64, bool) {
	return s.cache.get(account)
}

// TotalAmount returns the sum of every account balance read straight from
// the durable table (unlike Balance, which is cache-sourced), returning 0 on
// a storage-layer failure.
func (s *Store) TotalAmount() uint64 {
	var total uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			total += decodeBalance(v)
		}
		return nil
	})
	if err != nil {
		log.Store.Errorf("total amount: %v", err)
		return 0
	}
	return total
}

// ClientCount returns the number of accounts in the durable table (unlike
// Balance, which is cache-sourced), returning 0 on a storage-layer failure.
func (s *Store) ClientCount() int {
	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		log.Store.Errorf("client count: %v", err)
		return 0
	}
	return count
}

// AccountsPaged returns up to limit accounts starting at offset, ordered by
// account number. It backs the external monitoring surface.
func (s *Store) AccountsPaged(offset, limit int) []Account {
	return s.cache.snapshot(offset, limit)
}

// AccountsCount returns the number of accounts in the shared cache (unlike
// ClientCount, which reads the durable table), for the monitoring surface.
func (s *Store) AccountsCount() int {
	return s.cache.count()
}
