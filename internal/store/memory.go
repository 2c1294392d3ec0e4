package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/tombola/internal/engine"
	"github.com/roach88/tombola/internal/raffle"
)

// Memory is the in-process engine.Store used by tests and the scenario
// harness. Records and ledgers are stored by value and handed out as
// clones, so a caller can never mutate persisted state except through the
// interface.
//
// Thread-safety: all methods are safe for concurrent use; the engine
// serializes mutating calls per raffle on top of this.
type Memory struct {
	mu      sync.Mutex
	counter uint64
	raffles map[raffle.ID]*raffle.Record
	ledgers map[raffle.ID]*raffle.Ledger
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		raffles: make(map[raffle.ID]*raffle.Record),
		ledgers: make(map[raffle.ID]*raffle.Ledger),
	}
}

// CreateRaffle allocates the next ID and stores the record together with
// an empty ledger.
func (m *Memory) CreateRaffle(ctx context.Context, rec *raffle.Record, maxEntrants uint64) (raffle.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	id := raffle.ID(m.counter)
	rec.ID = id
	m.raffles[id] = rec.Clone()
	m.ledgers[id] = &raffle.Ledger{RaffleID: id, Max: maxEntrants}
	return id, nil
}

// Raffle returns a clone of the stored record.
func (m *Memory) Raffle(ctx context.Context, id raffle.ID) (*raffle.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.raffles[id]
	if !ok {
		return nil, fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	return rec.Clone(), nil
}

// Ledger returns a clone of the stored ledger.
func (m *Memory) Ledger(ctx context.Context, id raffle.ID) (*raffle.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	led, ok := m.ledgers[id]
	if !ok {
		return nil, fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	return led.Clone(), nil
}

// AppendEntrants appends count tickets held by holder.
func (m *Memory) AppendEntrants(ctx context.Context, id raffle.ID, holder raffle.Identity, count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	led, ok := m.ledgers[id]
	if !ok {
		return fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	led.Append(holder, count)
	return nil
}

// SetSeed stores the revealed seed and flips the seed-set flag.
func (m *Memory) SetSeed(ctx context.Context, id raffle.ID, seed raffle.Seed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.raffles[id]
	if !ok {
		return fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	rec.Seed = seed
	rec.SeedSet = true
	return nil
}

// MarkClaimed records prizeIndex as claimed.
func (m *Memory) MarkClaimed(ctx context.Context, id raffle.ID, prizeIndex uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.raffles[id]
	if !ok {
		return fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	rec.MarkClaimed(prizeIndex)
	return nil
}

// DeleteRaffle removes the record and its ledger together.
func (m *Memory) DeleteRaffle(ctx context.Context, id raffle.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.raffles[id]; !ok {
		return fmt.Errorf("raffle %d: %w", id, engine.ErrNoRecord)
	}
	delete(m.raffles, id)
	delete(m.ledgers, id)
	return nil
}
