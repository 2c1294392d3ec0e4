package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/raffle"
)

// ClaimOptions holds flags for the claim command.
type ClaimOptions struct {
	*RootOptions
	As     string
	Prize  uint64
	Ticket uint64
	Token  string
	Amount uint64
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClaimOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claim <raffle-id>",
		Short: "Claim a prize with a winning ticket",
		Long: `Claim a prize. The caller must hold the winning ticket for the prize
index; the winner is recomputed from the stored seed on every call. The
prize is paid out of escrow.

Use "tombola show" after the reveal to see the winning ticket per prize.

Example:
  tombola claim 1 --as bob --prize 0 --ticket 4 --token GOLD --amount 500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaim(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "calling identity (the ticket holder)")
	cmd.Flags().Uint64Var(&opts.Prize, "prize", 0, "prize index")
	cmd.Flags().Uint64Var(&opts.Ticket, "ticket", 0, "ticket index claimed with")
	cmd.Flags().StringVar(&opts.Token, "token", "", "prize token")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "prize amount")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runClaim(opts *ClaimOptions, rawID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	id, err := parseRaffleID(rawID)
	if err != nil {
		return err
	}

	e, err := openEnv(opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	caller := raffle.NormalizeIdentity(opts.As)
	token := raffle.NormalizeToken(opts.Token)

	err = e.engine.ClaimPrize(cmd.Context(), caller, id, opts.Prize, opts.Ticket, token, opts.Amount)
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(claimResult{
		Raffle: uint64(id),
		Prize:  opts.Prize,
		Ticket: opts.Ticket,
		Winner: string(caller),
		Token:  string(token),
		Amount: opts.Amount,
	})
}

type claimResult struct {
	Raffle uint64 `json:"raffle"`
	Prize  uint64 `json:"prize"`
	Ticket uint64 `json:"ticket"`
	Winner string `json:"winner"`
	Token  string `json:"token"`
	Amount uint64 `json:"amount"`
}

func (r claimResult) String() string {
	return fmt.Sprintf("prize %d of raffle %d claimed by %s (ticket %d): %d %s",
		r.Prize, r.Raffle, r.Winner, r.Ticket, r.Amount, r.Token)
}
