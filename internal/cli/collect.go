package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/raffle"
)

// CollectOptions holds flags for the collect command.
type CollectOptions struct {
	*RootOptions
	As     string
	Token  string
	Amount uint64
}

// NewCollectCommand creates the collect command.
func NewCollectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CollectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "collect <raffle-id>",
		Short: "Collect ticket proceeds as the raffle creator",
		Long: `Transfer accumulated ticket proceeds from escrow to the creator. Only
the creator may collect, and only after the sale window has ended.

Example:
  tombola collect 1 --as carol --token USDC --amount 750`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "calling identity (the creator)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "proceeds token")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "amount to collect")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runCollect(opts *CollectOptions, rawID string, cmd *cobra.Command) error {
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

	err = e.engine.CollectProceeds(cmd.Context(), caller, id, token, opts.Amount)
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(collectResult{
		Raffle:  uint64(id),
		Creator: string(caller),
		Token:   string(token),
		Amount:  opts.Amount,
	})
}

type collectResult struct {
	Raffle  uint64 `json:"raffle"`
	Creator string `json:"creator"`
	Token   string `json:"token"`
	Amount  uint64 `json:"amount"`
}

func (r collectResult) String() string {
	return fmt.Sprintf("collected %d %s from raffle %d", r.Amount, r.Token, r.Raffle)
}
