package engine

import (
	"context"
	"errors"

	"github.com/roach88/tombola/internal/raffle"
)

// ErrNoRecord is returned by Store implementations when a raffle is
// unknown. The engine maps it to the NOT_FOUND error code; implementations
// never construct domain errors themselves.
var ErrNoRecord = errors.New("no such raffle")

// Store is the engine's persistence boundary: a raffle-record mapping, an
// entrant-ledger mapping, and a single monotonically increasing raffle
// counter. Nothing else is persisted process-wide.
//
// Implementations must uphold:
//   - CreateRaffle allocates IDs atomically: no two calls receive the same
//     ID, and the record and ledger are written together or not at all.
//   - DeleteRaffle removes the record, its ledger, and its claim set
//     atomically; records are never partially deleted.
//   - Returned records and ledgers are private copies; mutating them does
//     not affect stored state until written back through the interface.
type Store interface {
	// CreateRaffle allocates the next raffle ID, stamps it on rec, and
	// persists the record together with an empty ledger of the given
	// capacity.
	CreateRaffle(ctx context.Context, rec *raffle.Record, maxEntrants uint64) (raffle.ID, error)

	// Raffle returns the record for id, including its claimed-index set.
	Raffle(ctx context.Context, id raffle.ID) (*raffle.Record, error)

	// Ledger returns the entrant ledger for id.
	Ledger(ctx context.Context, id raffle.ID) (*raffle.Ledger, error)

	// AppendEntrants appends count tickets held by holder to the ledger.
	AppendEntrants(ctx context.Context, id raffle.ID, holder raffle.Identity, count uint64) error

	// SetSeed stores the revealed seed and flips the seed-set flag.
	SetSeed(ctx context.Context, id raffle.ID, seed raffle.Seed) error

	// MarkClaimed records prizeIndex as claimed and increments the
	// claimed-prizes counter.
	MarkClaimed(ctx context.Context, id raffle.ID, prizeIndex uint64) error

	// DeleteRaffle removes the record, ledger, and claims for id.
	DeleteRaffle(ctx context.Context, id raffle.ID) error
}
