package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/raffle"
)

// NewCloseCommand creates the close command.
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "close <raffle-id>",
		Short: "Close a settled raffle",
		Long: `Delete the raffle record and its ledger. Only the creator may close,
once every prize is claimed or the grace period has elapsed. Closure is
terminal: the ID is gone afterwards.

Example:
  tombola close 1 --as carol`,
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

			caller := raffle.NormalizeIdentity(as)
			if err := e.engine.CloseRaffle(cmd.Context(), caller, id); err != nil {
				return f.Fail(err)
			}
			return f.Success(closeResult{Raffle: uint64(id)})
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "calling identity (the creator)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

type closeResult struct {
	Raffle uint64 `json:"raffle"`
}

func (r closeResult) String() string {
	return fmt.Sprintf("raffle %d closed", r.Raffle)
}
