package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/raffle"
)

// BuyOptions holds flags for the buy command.
type BuyOptions struct {
	*RootOptions
	As     string
	Amount uint64
	Token  string
}

// NewBuyCommand creates the buy command.
func NewBuyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "buy <raffle-id>",
		Short: "Buy tickets for a raffle",
		Long: `Buy tickets for a raffle. The payment (ticket price times amount) is
transferred from the buyer's balance into escrow before any ticket is
recorded.

Example:
  tombola buy 1 --as alice --amount 3 --token USDC`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuy(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "calling identity (the buyer)")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 1, "number of tickets")
	cmd.Flags().StringVar(&opts.Token, "token", "", "payment token")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runBuy(opts *BuyOptions, rawID string, cmd *cobra.Command) error {
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

	err = e.engine.BuyTickets(cmd.Context(), caller, id, opts.Amount, token, e.engine.Escrow())
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(buyResult{
		Raffle: uint64(id),
		Buyer:  string(caller),
		Amount: opts.Amount,
		Token:  string(token),
	})
}

type buyResult struct {
	Raffle uint64 `json:"raffle"`
	Buyer  string `json:"buyer"`
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

func (r buyResult) String() string {
	return fmt.Sprintf("bought %d ticket(s) in raffle %d as %s", r.Amount, r.Raffle, r.Buyer)
}

// parseRaffleID parses a positional raffle ID argument.
func parseRaffleID(raw string) (raffle.ID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid raffle id %q", raw)
	}
	return raffle.ID(id), nil
}
