// Package assets provides the reference AssetTransfer implementation: a
// per-(token, account) balance book. The engine only ever sees the
// Transfer method; Mint and Balance exist so hosts and tests can fund
// accounts and observe settlement.
//
// The book enforces the one contract the engine delegates: a transfer
// that would overdraw the source account fails outright, it is never
// clamped. That is what bounds proceeds collection to the escrowed
// balance.
package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/tombola/internal/raffle"
)

// ErrInsufficientFunds is returned when a transfer would overdraw the
// source account.
var ErrInsufficientFunds = errors.New("insufficient funds")

type accountKey struct {
	token   raffle.Token
	account raffle.Identity
}

// Book is an in-memory balance ledger.
//
// Thread-safety: all methods are safe for concurrent use via an internal
// mutex; each Transfer is atomic with respect to other calls.
type Book struct {
	mu       sync.Mutex
	balances map[accountKey]uint64
}

// NewBook creates an empty balance book.
func NewBook() *Book {
	return &Book{balances: make(map[accountKey]uint64)}
}

// Mint credits an account out of thin air. Hosts use it to fund buyers
// and the engine's escrow before a scenario starts.
func (b *Book) Mint(token raffle.Token, account raffle.Identity, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := accountKey{token, account}
	next, ok := raffle.AddChecked(b.balances[key], amount)
	if !ok {
		return fmt.Errorf("mint %d to %s: balance overflow", amount, account)
	}
	b.balances[key] = next
	return nil
}

// Balance returns the current balance of an account.
func (b *Book) Balance(token raffle.Token, account raffle.Identity) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[accountKey{token, account}]
}

// Transfer moves amount from one account to another, failing with
// ErrInsufficientFunds if the source cannot cover it. A zero amount is a
// successful no-op.
func (b *Book) Transfer(ctx context.Context, token raffle.Token, from, to raffle.Identity, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := accountKey{token, from}
	dst := accountKey{token, to}

	if b.balances[src] < amount {
		return fmt.Errorf("transfer %d %s from %s: %w (have %d)", amount, token, from, ErrInsufficientFunds, b.balances[src])
	}
	next, ok := raffle.AddChecked(b.balances[dst], amount)
	if !ok {
		return fmt.Errorf("transfer %d %s to %s: balance overflow", amount, token, to)
	}

	b.balances[src] -= amount
	b.balances[dst] = next
	return nil
}
