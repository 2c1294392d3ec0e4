package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tombola/internal/assets"
	"github.com/roach88/tombola/internal/engine"
	"github.com/roach88/tombola/internal/raffle"
	"github.com/roach88/tombola/internal/store"
	"github.com/roach88/tombola/internal/testutil"
)

// EscrowIdentity is the engine holding account every scenario runs with.
const EscrowIdentity raffle.Identity = "escrow"

// TraceEvent records one executed step and its outcome. Outcome is "ok"
// for a successful step or the error code for a failed one.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Raffle  uint64 `json:"raffle,omitempty"`
	Outcome string `json:"outcome"`
}

// Result holds the trace and the live fixtures so callers can assert on
// final state after the run.
type Result struct {
	Trace  []TraceEvent
	Engine *engine.Engine
	Store  *store.Memory
	Book   *assets.Book
	Clock  *testutil.ManualClock
}

// Run executes a scenario from scratch: fresh in-memory store, balance
// book, and a manual clock starting at zero. Each step's outcome must
// match its want_error (empty means success); a mismatch aborts the run.
func Run(s *Scenario) (*Result, error) {
	mem := store.NewMemory()
	book := assets.NewBook()
	clock := testutil.NewManualClock(0)
	eng := engine.New(mem, clock, book, EscrowIdentity,
		engine.WithOpTokens(engine.NewFixedGenerator()),
	)

	for _, a := range s.Accounts {
		if err := book.Mint(raffle.Token(a.Token), raffle.Identity(a.Account), a.Amount); err != nil {
			return nil, fmt.Errorf("fund %s/%s: %w", a.Token, a.Account, err)
		}
	}

	res := &Result{
		Engine: eng,
		Store:  mem,
		Book:   book,
		Clock:  clock,
	}

	ctx := context.Background()
	for i, step := range s.Steps {
		num := i + 1
		id, err := execute(ctx, eng, clock, step)
		outcome := "ok"
		if err != nil {
			code := raffle.CodeOf(err)
			if code == "" {
				return nil, fmt.Errorf("step %d (%s): %w", num, step.Op, err)
			}
			outcome = string(code)
		}
		if outcome != wantOutcome(step) {
			return nil, fmt.Errorf("step %d (%s): outcome %s, want %s", num, step.Op, outcome, wantOutcome(step))
		}
		res.Trace = append(res.Trace, TraceEvent{
			Step:    num,
			Op:      step.Op,
			Raffle:  id,
			Outcome: outcome,
		})
	}

	if s.Final != nil {
		if err := checkFinal(ctx, res, s.Final); err != nil {
			return nil, fmt.Errorf("final state: %w", err)
		}
	}
	return res, nil
}

func wantOutcome(step Step) string {
	if step.WantError == "" {
		return "ok"
	}
	return step.WantError
}

// execute dispatches one step. It returns the raffle ID the step touched
// (the fresh ID for create, zero for advance) for the trace.
func execute(ctx context.Context, eng *engine.Engine, clock *testutil.ManualClock, step Step) (uint64, error) {
	caller := raffle.Identity(step.Caller)
	id := raffle.ID(step.Raffle)

	switch step.Op {
	case "create":
		newID, err := eng.CreateRaffle(ctx, caller, step.EndTime, step.TicketPrice, step.MaxEntrants, step.TotalPrizes)
		return uint64(newID), err
	case "buy":
		return step.Raffle, eng.BuyTickets(ctx, caller, id, step.Amount, raffle.Token(step.Token), EscrowIdentity)
	case "advance":
		if step.To != 0 {
			clock.Set(step.To)
		} else {
			clock.Advance(step.By)
		}
		return 0, nil
	case "reveal":
		return step.Raffle, eng.RevealWinners(ctx, id)
	case "claim":
		return step.Raffle, eng.ClaimPrize(ctx, caller, id, step.Prize, step.Ticket, raffle.Token(step.Token), step.Amount)
	case "collect":
		return step.Raffle, eng.CollectProceeds(ctx, caller, id, raffle.Token(step.Token), step.Amount)
	case "close":
		return step.Raffle, eng.CloseRaffle(ctx, caller, id)
	default:
		return 0, fmt.Errorf("unknown op %q", step.Op)
	}
}

// checkFinal verifies the scenario's final-state assertions.
func checkFinal(ctx context.Context, res *Result, final *FinalState) error {
	if final.Raffle != 0 {
		id := raffle.ID(final.Raffle)
		rec, err := res.Engine.Raffle(ctx, id)
		if final.Deleted {
			if !raffle.IsCode(err, raffle.CodeNotFound) {
				return fmt.Errorf("raffle %d: expected deleted, got err=%v", final.Raffle, err)
			}
		} else {
			if err != nil {
				return fmt.Errorf("raffle %d: %w", final.Raffle, err)
			}
			if final.ClaimedPrizes != nil && rec.ClaimedPrizes != *final.ClaimedPrizes {
				return fmt.Errorf("raffle %d: claimed prizes %d, want %d", final.Raffle, rec.ClaimedPrizes, *final.ClaimedPrizes)
			}
			if final.SeedSet != nil && rec.SeedSet != *final.SeedSet {
				return fmt.Errorf("raffle %d: seed set %v, want %v", final.Raffle, rec.SeedSet, *final.SeedSet)
			}
			if final.TotalEntrants != nil {
				led, err := res.Engine.Ledger(ctx, id)
				if err != nil {
					return fmt.Errorf("ledger %d: %w", final.Raffle, err)
				}
				if led.Total() != *final.TotalEntrants {
					return fmt.Errorf("raffle %d: %d entrants, want %d", final.Raffle, led.Total(), *final.TotalEntrants)
				}
			}
		}
	}

	var errs []error
	for _, b := range final.Balances {
		got := res.Book.Balance(raffle.Token(b.Token), raffle.Identity(b.Account))
		if got != b.Amount {
			errs = append(errs, fmt.Errorf("balance %s/%s: %d, want %d", b.Token, b.Account, got, b.Amount))
		}
	}
	return errors.Join(errs...)
}
