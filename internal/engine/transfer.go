package engine

import (
	"context"

	"github.com/roach88/tombola/internal/raffle"
)

// AssetTransfer performs value movement between accounts. It is an
// external collaborator: the engine delegates every payment to it and
// treats each call as synchronous, succeeding or failing atomically.
//
// Implementations MUST bound withdrawals from the engine's escrow account:
// the engine does not cap proceeds collection beyond what the transfer
// layer will allow, so a Transfer that would overdraw an account has to
// fail rather than clamp silently.
//
// Implementations MAY invoke untrusted code (token hooks). The engine
// therefore treats every Transfer call as a potential reentry point and
// guards each raffle with a busy flag for the duration of the operation.
type AssetTransfer interface {
	Transfer(ctx context.Context, token raffle.Token, from, to raffle.Identity, amount uint64) error
}
