package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/config"
	"github.com/roach88/tombola/internal/raffle"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	As         string
	FundPrizes bool
}

// NewCreateCommand creates the create command: allocate a raffle from a
// CUE definition file.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <definition.cue>",
		Short: "Create a raffle from a definition file",
		Long: `Create a raffle from a CUE definition file.

The definition's declared prizes set the raffle's prize count. With
--fund-prizes the declared prize amounts are minted into escrow so
winners can claim immediately; without it the escrow must be funded
separately before claims.

Example:
  tombola create raffles/spring.cue --as carol --fund-prizes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "calling identity (the raffle's creator)")
	cmd.Flags().BoolVar(&opts.FundPrizes, "fund-prizes", false, "mint the declared prize amounts into escrow")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runCreate(opts *CreateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	def, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load definition: %w", err)
	}

	e, err := openEnv(opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	caller := raffle.NormalizeIdentity(opts.As)
	endTime := def.EndsAt(time.Now().Unix())

	id, err := e.engine.CreateRaffle(ctx, caller, endTime, def.TicketPrice, def.MaxEntrants, def.TotalPrizes())
	if err != nil {
		return f.Fail(err)
	}

	if opts.FundPrizes {
		for i, p := range def.Prizes {
			if err := e.store.Mint(ctx, p.Token, EscrowAccount, p.Amount); err != nil {
				return fmt.Errorf("fund prize %d: %w", i, err)
			}
			f.VerboseLog("funded prize %d: %d %s into escrow", i, p.Amount, p.Token)
		}
	}

	return f.Success(createResult{
		Raffle:      uint64(id),
		Name:        def.Name,
		Creator:     string(caller),
		EndTime:     endTime,
		TicketPrice: def.TicketPrice,
		MaxEntrants: def.MaxEntrants,
		TotalPrizes: def.TotalPrizes(),
	})
}

type createResult struct {
	Raffle      uint64 `json:"raffle"`
	Name        string `json:"name"`
	Creator     string `json:"creator"`
	EndTime     int64  `json:"end_time"`
	TicketPrice uint64 `json:"ticket_price"`
	MaxEntrants uint64 `json:"max_entrants"`
	TotalPrizes uint64 `json:"total_prizes"`
}

func (r createResult) String() string {
	return fmt.Sprintf("raffle %d created (%s)\n  creator=%s end_time=%d ticket_price=%d max_entrants=%d prizes=%d",
		r.Raffle, r.Name, r.Creator, r.EndTime, r.TicketPrice, r.MaxEntrants, r.TotalPrizes)
}
