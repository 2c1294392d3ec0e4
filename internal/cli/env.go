package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/engine"
	"github.com/roach88/tombola/internal/raffle"
	"github.com/roach88/tombola/internal/store"
)

// EscrowAccount is the engine's holding account in the balance book.
// Ticket proceeds accumulate here and prizes are paid out of it.
const EscrowAccount raffle.Identity = "escrow"

// env bundles the opened store and the engine built over it. The SQLite
// store serves double duty: it is both the raffle store and the
// AssetTransfer implementation, so balances persist across invocations.
type env struct {
	store  *store.SQLite
	engine *engine.Engine
}

func openEnv(opts *RootOptions) (*env, error) {
	s, err := store.Open(opts.DB)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", opts.DB, err)
	}
	eng := engine.New(s, engine.NewSystemClock(), s, EscrowAccount)
	return &env{store: s, engine: eng}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// newFormatter builds the command's output formatter from global flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
