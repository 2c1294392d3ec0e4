package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tombola/internal/engine"
	"github.com/roach88/tombola/internal/raffle"
)

// Raffle returns the record for id with its claimed-index set loaded.
// Returns engine.ErrNoRecord (wrapped) if the raffle does not exist.
func (s *SQLite) Raffle(ctx context.Context, id raffle.ID) (*raffle.Record, error) {
	rec := &raffle.Record{ID: id, Claimed: make(map[uint64]struct{})}

	var (
		creator       string
		totalPrizes   int64
		claimedPrizes int64
		seed          []byte
		seedSet       int64
		ticketPrice   int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT creator, total_prizes, claimed_prizes, seed, seed_set, end_time, ticket_price
		FROM raffles WHERE id = ?
	`, int64(id)).Scan(&creator, &totalPrizes, &claimedPrizes, &seed, &seedSet, &rec.EndTime, &ticketPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("read raffle %d: %w", id, err)
	}

	rec.Creator = raffle.Identity(creator)
	rec.TotalPrizes = uint64(totalPrizes)
	rec.ClaimedPrizes = uint64(claimedPrizes)
	rec.TicketPrice = uint64(ticketPrice)
	rec.SeedSet = seedSet != 0
	if rec.SeedSet {
		if len(seed) != raffle.SeedSize {
			return nil, fmt.Errorf("read raffle %d: seed has %d bytes, want %d", id, len(seed), raffle.SeedSize)
		}
		copy(rec.Seed[:], seed)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT prize_index FROM claims WHERE raffle_id = ?
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("read claims for raffle %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var prize int64
		if err := rows.Scan(&prize); err != nil {
			return nil, fmt.Errorf("scan claim for raffle %d: %w", id, err)
		}
		rec.Claimed[uint64(prize)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims for raffle %d: %w", id, err)
	}

	return rec, nil
}

// Ledger returns the entrant ledger for id, entrants ordered by ticket
// index. Returns engine.ErrNoRecord (wrapped) if the raffle does not
// exist.
func (s *SQLite) Ledger(ctx context.Context, id raffle.ID) (*raffle.Ledger, error) {
	led := &raffle.Ledger{RaffleID: id}

	var maxEntrants int64
	err := s.db.QueryRowContext(ctx, `
		SELECT max_entrants FROM raffles WHERE id = ?
	`, int64(id)).Scan(&maxEntrants)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %d: %w", id, err)
	}
	led.Max = uint64(maxEntrants)

	rows, err := s.db.QueryContext(ctx, `
		SELECT holder FROM entrants WHERE raffle_id = ?
		ORDER BY ticket_index ASC
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("read entrants for raffle %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var holder string
		if err := rows.Scan(&holder); err != nil {
			return nil, fmt.Errorf("scan entrant for raffle %d: %w", id, err)
		}
		led.Entrants = append(led.Entrants, raffle.Identity(holder))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entrants for raffle %d: %w", id, err)
	}

	return led, nil
}

// RaffleIDs returns the IDs of all open raffles in ascending order.
// Used by the CLI listing.
func (s *SQLite) RaffleIDs(ctx context.Context) ([]raffle.ID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM raffles ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	defer rows.Close()

	var ids []raffle.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan raffle id: %w", err)
		}
		ids = append(ids, raffle.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raffle ids: %w", err)
	}
	return ids, nil
}
