// Package engine orchestrates the raffle lifecycle: create, sell tickets,
// reveal randomness, settle prize claims, collect proceeds, close.
//
// The engine owns its records exclusively between creation and closure.
// Each mutating operation reads the relevant record, validates every
// precondition in a fixed order, performs at most one external transfer,
// and only then writes state — so a failed call never leaves a partial
// mutation behind.
//
// Concurrency model: the host serializes mutating calls per raffle; the
// engine additionally guards every raffle with a busy flag so that an
// AssetTransfer implementation that calls back into the engine mid-payment
// is rejected with REENTRANT_CALL instead of observing half-applied state.
// Time-based transitions are evaluated lazily on each call against the
// Clock collaborator; the engine has no timers and never blocks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tombola/internal/draw"
	"github.com/roach88/tombola/internal/raffle"
)

const (
	// DefaultTimeBuffer is how long after end time a reveal must wait, in
	// time units. The buffer lets the sequence source that seeds the draw
	// settle before it is observed.
	DefaultTimeBuffer = 300

	// DefaultCloseGracePeriod is how long after end time a creator may
	// force closure with prizes still unclaimed: 30 days in seconds.
	DefaultCloseGracePeriod = 30 * 24 * 60 * 60
)

// Engine is the only component with public raffle operations.
type Engine struct {
	store    Store
	clock    Clock
	transfer AssetTransfer
	escrow   raffle.Identity
	opGen    OpTokenGenerator

	timeBuffer int64
	closeGrace int64

	// busy holds the per-raffle reentrancy guard flags. mu protects only
	// the map's check-and-set; it is never held across an external call.
	mu   sync.Mutex
	busy map[raffle.ID]bool
}

// Option configures engine parameters.
type Option func(*Engine)

// WithTimeBuffer overrides the reveal buffer (time units after end time
// before RevealWinners becomes eligible).
func WithTimeBuffer(buffer int64) Option {
	return func(e *Engine) {
		e.timeBuffer = buffer
	}
}

// WithCloseGracePeriod overrides the closure grace period (time units
// after end time before a creator may close with unclaimed prizes).
func WithCloseGracePeriod(grace int64) Option {
	return func(e *Engine) {
		e.closeGrace = grace
	}
}

// WithOpTokens overrides the operation-token generator. Tests use a
// FixedGenerator for deterministic traces.
func WithOpTokens(g OpTokenGenerator) Option {
	return func(e *Engine) {
		e.opGen = g
	}
}

// New creates an engine over the given store and collaborators. escrow is
// the engine's own holding account: prizes are paid out of it and hosts
// route ticket proceeds into it.
func New(s Store, clock Clock, transfer AssetTransfer, escrow raffle.Identity, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		clock:      clock,
		transfer:   transfer,
		escrow:     escrow,
		opGen:      UUIDv7Generator{},
		timeBuffer: DefaultTimeBuffer,
		closeGrace: DefaultCloseGracePeriod,
		busy:       make(map[raffle.ID]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Escrow returns the engine's holding account identity.
func (e *Engine) Escrow() raffle.Identity {
	return e.escrow
}

// CreateRaffle allocates a fresh raffle and its empty entrant ledger.
// endTime must be strictly in the future and maxEntrants must be positive.
// No external transfer occurs.
func (e *Engine) CreateRaffle(ctx context.Context, caller raffle.Identity, endTime int64, ticketPrice, maxEntrants, totalPrizes uint64) (raffle.ID, error) {
	now := e.clock.Now()
	if endTime <= now {
		return 0, raffle.NewError(raffle.CodeInvalidSchedule, 0, "end time %d is not after current time %d", endTime, now)
	}
	if maxEntrants == 0 {
		return 0, raffle.NewError(raffle.CodeInvalidAmount, 0, "max entrants must be positive")
	}

	rec := &raffle.Record{
		Creator:     caller,
		TotalPrizes: totalPrizes,
		EndTime:     endTime,
		TicketPrice: ticketPrice,
		Claimed:     make(map[uint64]struct{}),
	}
	id, err := e.store.CreateRaffle(ctx, rec, maxEntrants)
	if err != nil {
		return 0, fmt.Errorf("create raffle: %w", err)
	}

	slog.Info("raffle created",
		"op", e.opGen.Generate(),
		"raffle", id,
		"creator", caller,
		"end_time", endTime,
		"ticket_price", ticketPrice,
		"max_entrants", maxEntrants,
		"total_prizes", totalPrizes,
	)
	return id, nil
}

// BuyTickets sells amount tickets to caller, paying ticketPrice*amount in
// paymentToken to proceedsRecipient. The payment runs before the ledger
// append: a failed transfer leaves the ledger untouched (fail-closed).
//
// Not idempotent: calling twice with the same arguments buys twice the
// tickets. One ledger entry is appended per ticket so each ticket gets its
// own index at claim time.
func (e *Engine) BuyTickets(ctx context.Context, caller raffle.Identity, id raffle.ID, amount uint64, paymentToken raffle.Token, proceedsRecipient raffle.Identity) error {
	op := e.opGen.Generate()
	if err := e.acquire(id); err != nil {
		return err
	}
	defer e.release(id)

	rec, err := e.loadRaffle(ctx, id)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	if now >= rec.EndTime {
		return raffle.NewError(raffle.CodeRaffleEnded, id, "ticket sales closed at %d, now %d", rec.EndTime, now)
	}

	led, err := e.loadLedger(ctx, id)
	if err != nil {
		return err
	}
	if amount > led.Remaining() {
		return raffle.NewError(raffle.CodeExceedsCapacity, id, "%d tickets requested, %d remaining of %d", amount, led.Remaining(), led.Max)
	}
	if amount == 0 {
		return raffle.NewError(raffle.CodeInvalidAmount, id, "ticket amount must be positive")
	}

	totalPayment, ok := raffle.MulChecked(rec.TicketPrice, amount)
	if !ok {
		return raffle.NewError(raffle.CodeArithmeticOverflow, id, "payment %d * %d overflows", rec.TicketPrice, amount)
	}

	// Payment first: if the transfer fails, no ledger write happens.
	if err := e.transfer.Transfer(ctx, paymentToken, caller, proceedsRecipient, totalPayment); err != nil {
		return raffle.NewTransferFailed(id, err)
	}

	if err := e.store.AppendEntrants(ctx, id, caller, amount); err != nil {
		return fmt.Errorf("append entrants for raffle %d: %w", id, err)
	}

	slog.Info("tickets sold",
		"op", op,
		"raffle", id,
		"buyer", caller,
		"amount", amount,
		"payment", totalPayment,
		"token", paymentToken,
		"recipient", proceedsRecipient,
	)
	return nil
}

// RevealWinners derives and stores the raffle's seed, exactly once, after
// the sale window plus the reveal buffer have passed. The seed comes from
// the Clock's sequence number at call time: unpredictable beforehand,
// reproducible afterwards. A host needing manipulation resistance supplies
// a Clock backed by committed or verifiable randomness; nothing downstream
// changes.
func (e *Engine) RevealWinners(ctx context.Context, id raffle.ID) error {
	op := e.opGen.Generate()
	if err := e.acquire(id); err != nil {
		return err
	}
	defer e.release(id)

	rec, err := e.loadRaffle(ctx, id)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	if now <= rec.EndTime+e.timeBuffer {
		return raffle.NewError(raffle.CodeRaffleStillRunning, id, "reveal eligible after %d, now %d", rec.EndTime+e.timeBuffer, now)
	}
	if rec.SeedSet {
		return raffle.NewError(raffle.CodeAlreadyRevealed, id, "seed already set")
	}

	seq := e.clock.SequenceNumber()
	seed := draw.DeriveSeed(seq)
	if err := e.store.SetSeed(ctx, id, seed); err != nil {
		return fmt.Errorf("set seed for raffle %d: %w", id, err)
	}

	slog.Info("winners revealed",
		"op", op,
		"raffle", id,
		"sequence", seq,
		"seed", fmt.Sprintf("%x", seed[:8]),
	)
	return nil
}

// ClaimPrize settles one prize for its winning ticket holder. The winner
// for prizeIndex is recomputed from the stored seed on every call, never
// cached across the transfer boundary. The prize is paid out of escrow
// before the claim is marked: a failed transfer leaves the prize
// claimable, and the claimed-index check at entry blocks double claims.
func (e *Engine) ClaimPrize(ctx context.Context, caller raffle.Identity, id raffle.ID, prizeIndex, ticketIndex uint64, prizeToken raffle.Token, prizeAmount uint64) error {
	op := e.opGen.Generate()
	if err := e.acquire(id); err != nil {
		return err
	}
	defer e.release(id)

	rec, err := e.loadRaffle(ctx, id)
	if err != nil {
		return err
	}

	if !rec.SeedSet {
		return raffle.NewError(raffle.CodeNotRevealed, id, "seed not yet revealed")
	}
	if prizeIndex >= rec.TotalPrizes {
		return raffle.NewError(raffle.CodeInvalidPrizeIndex, id, "prize index %d out of %d", prizeIndex, rec.TotalPrizes)
	}
	if rec.ClaimedAt(prizeIndex) {
		return raffle.NewError(raffle.CodeAlreadyClaimed, id, "prize %d already claimed", prizeIndex)
	}

	led, err := e.loadLedger(ctx, id)
	if err != nil {
		return err
	}
	if led.Total() == 0 {
		return raffle.NewError(raffle.CodeNotFound, id, "no tickets sold, nothing to claim")
	}

	winner, err := draw.Resolve(rec.Seed, prizeIndex, led.Total())
	if err != nil {
		return fmt.Errorf("resolve winner for raffle %d prize %d: %w", id, prizeIndex, err)
	}
	if ticketIndex != winner {
		return raffle.NewError(raffle.CodeNotWinningTicket, id, "ticket %d did not win prize %d", ticketIndex, prizeIndex)
	}

	holder, ok := led.Holder(ticketIndex)
	if !ok {
		// Unreachable given the modulo, kept as a hard stop.
		return raffle.NewError(raffle.CodeNotFound, id, "ticket index %d out of range", ticketIndex)
	}
	if caller != holder {
		return raffle.NewError(raffle.CodeUnauthorized, id, "caller does not hold ticket %d", ticketIndex)
	}

	// Pay out of escrow first; mark claimed only on transfer success so a
	// failed payout never burns the prize.
	if err := e.transfer.Transfer(ctx, prizeToken, e.escrow, caller, prizeAmount); err != nil {
		return raffle.NewTransferFailed(id, err)
	}

	if err := e.store.MarkClaimed(ctx, id, prizeIndex); err != nil {
		return fmt.Errorf("mark prize %d claimed for raffle %d: %w", prizeIndex, id, err)
	}

	slog.Info("prize claimed",
		"op", op,
		"raffle", id,
		"prize", prizeIndex,
		"ticket", ticketIndex,
		"winner", caller,
		"amount", prizeAmount,
		"token", prizeToken,
	)
	return nil
}

// CollectProceeds transfers accumulated ticket proceeds from escrow to the
// raffle's creator. Only the creator may call, and only after the sale
// window has ended. The escrowed balance bound is the AssetTransfer
// implementation's responsibility: an over-withdrawal must fail there.
func (e *Engine) CollectProceeds(ctx context.Context, caller raffle.Identity, id raffle.ID, token raffle.Token, amount uint64) error {
	op := e.opGen.Generate()
	if err := e.acquire(id); err != nil {
		return err
	}
	defer e.release(id)

	rec, err := e.loadRaffle(ctx, id)
	if err != nil {
		return err
	}

	if caller != rec.Creator {
		return raffle.NewError(raffle.CodeUnauthorized, id, "only the creator may collect proceeds")
	}
	now := e.clock.Now()
	if now <= rec.EndTime {
		return raffle.NewError(raffle.CodeRaffleStillActive, id, "sales run until %d, now %d", rec.EndTime, now)
	}

	if err := e.transfer.Transfer(ctx, token, e.escrow, rec.Creator, amount); err != nil {
		return raffle.NewTransferFailed(id, err)
	}

	slog.Info("proceeds collected",
		"op", op,
		"raffle", id,
		"creator", caller,
		"amount", amount,
		"token", token,
	)
	return nil
}

// CloseRaffle deletes the raffle record and its ledger. Only the creator
// may close, and only once every prize is claimed or the grace period has
// elapsed. The transition is terminal: any later operation on the ID
// fails with NOT_FOUND.
func (e *Engine) CloseRaffle(ctx context.Context, caller raffle.Identity, id raffle.ID) error {
	op := e.opGen.Generate()
	if err := e.acquire(id); err != nil {
		return err
	}
	defer e.release(id)

	rec, err := e.loadRaffle(ctx, id)
	if err != nil {
		return err
	}

	if caller != rec.Creator {
		return raffle.NewError(raffle.CodeUnauthorized, id, "only the creator may close the raffle")
	}
	now := e.clock.Now()
	if rec.ClaimedPrizes != rec.TotalPrizes && now <= rec.EndTime+e.closeGrace {
		return raffle.NewError(raffle.CodeCannotCloseYet, id, "%d of %d prizes claimed, grace ends at %d", rec.ClaimedPrizes, rec.TotalPrizes, rec.EndTime+e.closeGrace)
	}

	if err := e.store.DeleteRaffle(ctx, id); err != nil {
		return fmt.Errorf("delete raffle %d: %w", id, err)
	}

	slog.Info("raffle closed",
		"op", op,
		"raffle", id,
		"creator", caller,
		"claimed", rec.ClaimedPrizes,
		"total_prizes", rec.TotalPrizes,
	)
	return nil
}

// Raffle returns a copy of the raffle record, for inspection and tests.
func (e *Engine) Raffle(ctx context.Context, id raffle.ID) (*raffle.Record, error) {
	return e.loadRaffle(ctx, id)
}

// Ledger returns a copy of the entrant ledger, for inspection and tests.
func (e *Engine) Ledger(ctx context.Context, id raffle.ID) (*raffle.Ledger, error) {
	return e.loadLedger(ctx, id)
}

// acquire sets the busy flag for id, rejecting reentrant calls. The flag
// is cleared by release on every exit path via defer.
func (e *Engine) acquire(id raffle.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[id] {
		return raffle.NewReentrantCall(id)
	}
	e.busy[id] = true
	return nil
}

// release clears the busy flag for id.
func (e *Engine) release(id raffle.ID) {
	e.mu.Lock()
	delete(e.busy, id)
	e.mu.Unlock()
}

// loadRaffle reads a record, mapping a missing row to NOT_FOUND.
func (e *Engine) loadRaffle(ctx context.Context, id raffle.ID) (*raffle.Record, error) {
	rec, err := e.store.Raffle(ctx, id)
	if errors.Is(err, ErrNoRecord) {
		return nil, raffle.NewNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load raffle %d: %w", id, err)
	}
	return rec, nil
}

// loadLedger reads a ledger, mapping a missing row to NOT_FOUND.
func (e *Engine) loadLedger(ctx context.Context, id raffle.ID) (*raffle.Ledger, error) {
	led, err := e.store.Ledger(ctx, id)
	if errors.Is(err, ErrNoRecord) {
		return nil, raffle.NewNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger %d: %w", id, err)
	}
	return led, nil
}
