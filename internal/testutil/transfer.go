package testutil

import (
	"context"

	"github.com/roach88/tombola/internal/raffle"
)

// FailingTransfer implements engine.AssetTransfer and fails every call
// with the configured error. Used to verify fail-closed ordering: a
// failed payment must leave ledger and claim state untouched.
type FailingTransfer struct {
	Err error
}

// Transfer always returns the configured error.
func (f FailingTransfer) Transfer(ctx context.Context, token raffle.Token, from, to raffle.Identity, amount uint64) error {
	return f.Err
}

// TransferCall records one observed transfer.
type TransferCall struct {
	Token  raffle.Token
	From   raffle.Identity
	To     raffle.Identity
	Amount uint64
}

// RecordingTransfer implements engine.AssetTransfer, succeeds every call,
// and records the legs so tests can assert on transfer ordering and
// amounts without a balance book.
type RecordingTransfer struct {
	Calls []TransferCall

	// Hook, if set, runs before each transfer is recorded. Engine tests
	// use it to reenter the engine mid-transfer and assert the guard
	// rejects the nested call.
	Hook func(ctx context.Context) error
}

// Transfer records the call, running the hook first if present.
func (r *RecordingTransfer) Transfer(ctx context.Context, token raffle.Token, from, to raffle.Identity, amount uint64) error {
	if r.Hook != nil {
		if err := r.Hook(ctx); err != nil {
			return err
		}
	}
	r.Calls = append(r.Calls, TransferCall{Token: token, From: from, To: to, Amount: amount})
	return nil
}
