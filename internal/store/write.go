package store

import (
	"context"
	"fmt"

	"github.com/roach88/tombola/internal/engine"
	"github.com/roach88/tombola/internal/raffle"
)

// CreateRaffle allocates the next raffle ID and persists the record with
// an empty ledger, all in one transaction. The counter update and the
// insert commit together or not at all, so no two raffles can ever share
// an ID and a crash cannot leave a half-created raffle behind.
func (s *SQLite) CreateRaffle(ctx context.Context, rec *raffle.Record, maxEntrants uint64) (raffle.ID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create raffle: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		UPDATE raffle_counter SET next_id = next_id + 1 WHERE id = 1
	`); err != nil {
		return 0, fmt.Errorf("create raffle: advance counter: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
		SELECT next_id FROM raffle_counter WHERE id = 1
	`).Scan(&id); err != nil {
		return 0, fmt.Errorf("create raffle: read counter: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO raffles
		(id, creator, total_prizes, claimed_prizes, seed, seed_set, end_time, ticket_price, max_entrants)
		VALUES (?, ?, ?, 0, NULL, 0, ?, ?, ?)
	`,
		id,
		string(rec.Creator),
		int64(rec.TotalPrizes),
		rec.EndTime,
		int64(rec.TicketPrice),
		int64(maxEntrants),
	); err != nil {
		return 0, fmt.Errorf("create raffle: insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create raffle: commit: %w", err)
	}

	rec.ID = raffle.ID(id)
	return rec.ID, nil
}

// AppendEntrants appends count tickets held by holder, assigning
// consecutive ticket indices starting at the current total. Runs in a
// transaction so the indices stay dense under a crash.
func (s *SQLite) AppendEntrants(ctx context.Context, id raffle.ID, holder raffle.Identity, count uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append entrants: begin tx: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entrants WHERE raffle_id = ?
	`, int64(id)).Scan(&total); err != nil {
		return fmt.Errorf("append entrants: count: %w", err)
	}

	for i := int64(0); i < int64(count); i++ {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entrants (raffle_id, ticket_index, holder)
			VALUES (?, ?, ?)
		`, int64(id), total+i, string(holder)); err != nil {
			return fmt.Errorf("append entrants: insert ticket %d: %w", total+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append entrants: commit: %w", err)
	}
	return nil
}

// SetSeed stores the revealed seed and flips the seed_set flag.
func (s *SQLite) SetSeed(ctx context.Context, id raffle.ID, seed raffle.Seed) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE raffles SET seed = ?, seed_set = 1 WHERE id = ?
	`, seed[:], int64(id))
	if err != nil {
		return fmt.Errorf("set seed: %w", err)
	}
	return requireRow(res, id)
}

// MarkClaimed records prizeIndex as claimed and bumps the claimed counter
// in the same transaction, keeping the counter equal to the set's
// cardinality.
func (s *SQLite) MarkClaimed(ctx context.Context, id raffle.ID, prizeIndex uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mark claimed: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO claims (raffle_id, prize_index) VALUES (?, ?)
		ON CONFLICT(raffle_id, prize_index) DO NOTHING
	`, int64(id), int64(prizeIndex))
	if err != nil {
		return fmt.Errorf("mark claimed: insert: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark claimed: rows affected: %w", err)
	}

	if inserted > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE raffles SET claimed_prizes = claimed_prizes + 1 WHERE id = ?
		`, int64(id)); err != nil {
			return fmt.Errorf("mark claimed: bump counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mark claimed: commit: %w", err)
	}
	return nil
}

// DeleteRaffle removes the record; the ledger and claim set cascade via
// foreign keys, so the three are deleted together or not at all.
func (s *SQLite) DeleteRaffle(ctx context.Context, id raffle.ID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM raffles WHERE id = ?
	`, int64(id))
	if err != nil {
		return fmt.Errorf("delete raffle: %w", err)
	}
	return requireRow(res, id)
}

// requireRow maps a zero-row update to the engine's missing-record
// sentinel.
func requireRow(res interface{ RowsAffected() (int64, error) }, id raffle.ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for raffle %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	return nil
}
