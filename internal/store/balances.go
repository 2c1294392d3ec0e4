package store

import (
	"context"
	"fmt"

	"github.com/roach88/tombola/internal/assets"
	"github.com/roach88/tombola/internal/raffle"
)

// The SQLite store doubles as the CLI's AssetTransfer implementation so
// that balances survive across invocations of the tool. The semantics
// mirror assets.Book: transfers that would overdraw fail with
// assets.ErrInsufficientFunds, never clamp.

// Mint credits an account, creating the balance row if needed.
func (s *SQLite) Mint(ctx context.Context, token raffle.Token, account raffle.Identity, amount uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (token, account, amount) VALUES (?, ?, ?)
		ON CONFLICT(token, account) DO UPDATE SET amount = amount + excluded.amount
	`, string(token), string(account), int64(amount))
	if err != nil {
		return fmt.Errorf("mint %d %s to %s: %w", amount, token, account, err)
	}
	return nil
}

// Balance returns the current balance of an account. Unknown accounts
// have a zero balance.
func (s *SQLite) Balance(ctx context.Context, token raffle.Token, account raffle.Identity) (uint64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT amount FROM balances WHERE token = ? AND account = ?), 0)
	`, string(token), string(account)).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("balance of %s for %s: %w", account, token, err)
	}
	return uint64(amount), nil
}

// Transfer moves amount between accounts in one transaction. The debit is
// guarded by the balance check inside the same transaction, so concurrent
// CLI invocations cannot overdraw.
func (s *SQLite) Transfer(ctx context.Context, token raffle.Token, from, to raffle.Identity, amount uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	var have int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT amount FROM balances WHERE token = ? AND account = ?), 0)
	`, string(token), string(from)).Scan(&have); err != nil {
		return fmt.Errorf("transfer: read source balance: %w", err)
	}
	if uint64(have) < amount {
		return fmt.Errorf("transfer %d %s from %s: %w (have %d)", amount, token, from, assets.ErrInsufficientFunds, have)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE balances SET amount = amount - ? WHERE token = ? AND account = ?
	`, int64(amount), string(token), string(from)); err != nil {
		return fmt.Errorf("transfer: debit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (token, account, amount) VALUES (?, ?, ?)
		ON CONFLICT(token, account) DO UPDATE SET amount = amount + excluded.amount
	`, string(token), string(to), int64(amount)); err != nil {
		return fmt.Errorf("transfer: credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer: commit: %w", err)
	}
	return nil
}
