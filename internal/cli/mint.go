package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/raffle"
)

// NewMintCommand creates the mint command: credit a balance directly.
// This is the funding entry point for local use; a production host
// credits balances from its own payment rails instead.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		account string
		token   string
		amount  uint64
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Credit tokens to an account",
		Long: `Credit tokens to an account in the local balance book.

Example:
  tombola mint --account alice --token USDC --amount 1000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			e, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			acct := raffle.NormalizeIdentity(account)
			tok := raffle.NormalizeToken(token)
			if err := e.store.Mint(cmd.Context(), tok, acct, amount); err != nil {
				return err
			}

			bal, err := e.store.Balance(cmd.Context(), tok, acct)
			if err != nil {
				return err
			}
			return f.Success(balanceResult{
				Account: string(acct),
				Token:   string(tok),
				Balance: bal,
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account to credit")
	cmd.Flags().StringVar(&token, "token", "", "token to credit")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to credit")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		account string
		token   string
	)

	cmd := &cobra.Command{
		Use:           "balance",
		Short:         "Show an account's token balance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			e, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			acct := raffle.NormalizeIdentity(account)
			tok := raffle.NormalizeToken(token)
			bal, err := e.store.Balance(cmd.Context(), tok, acct)
			if err != nil {
				return err
			}
			return f.Success(balanceResult{
				Account: string(acct),
				Token:   string(tok),
				Balance: bal,
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account to query")
	cmd.Flags().StringVar(&token, "token", "", "token to query")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

type balanceResult struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Balance uint64 `json:"balance"`
}

func (r balanceResult) String() string {
	return fmt.Sprintf("%s holds %d %s", r.Account, r.Balance, r.Token)
}
