package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRevealCommand creates the reveal command.
func NewRevealCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <raffle-id>",
		Short: "Reveal the winning seed for an ended raffle",
		Long: `Derive and store the raffle's seed. Anyone may call this once the sale
window plus the reveal buffer have passed; the seed is set exactly once.

Example:
  tombola reveal 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			id, err := parseRaffleID(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.engine.RevealWinners(cmd.Context(), id); err != nil {
				return f.Fail(err)
			}

			rec, err := e.engine.Raffle(cmd.Context(), id)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(revealResult{
				Raffle: uint64(id),
				Seed:   fmt.Sprintf("%x", rec.Seed),
			})
		},
	}
}

type revealResult struct {
	Raffle uint64 `json:"raffle"`
	Seed   string `json:"seed"`
}

func (r revealResult) String() string {
	return fmt.Sprintf("raffle %d revealed\n  seed=%s", r.Raffle, r.Seed)
}
