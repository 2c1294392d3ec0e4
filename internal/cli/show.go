package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/draw"
)

// NewShowCommand creates the show command: inspect one raffle.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <raffle-id>",
		Short: "Show a raffle's record, ledger, and winners",
		Long: `Show a raffle's state. After the reveal, the winning ticket and its
holder are resolved from the stored seed for every prize index.

Example:
  tombola show 1`,
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

			ctx := cmd.Context()
			rec, err := e.engine.Raffle(ctx, id)
			if err != nil {
				return f.Fail(err)
			}
			led, err := e.engine.Ledger(ctx, id)
			if err != nil {
				return f.Fail(err)
			}

			res := showResult{
				Raffle:        uint64(id),
				Creator:       string(rec.Creator),
				EndTime:       rec.EndTime,
				TicketPrice:   rec.TicketPrice,
				MaxEntrants:   led.Max,
				TotalEntrants: led.Total(),
				TotalPrizes:   rec.TotalPrizes,
				ClaimedPrizes: rec.ClaimedPrizes,
				SeedSet:       rec.SeedSet,
			}

			if rec.SeedSet && led.Total() > 0 {
				for prize := uint64(0); prize < rec.TotalPrizes; prize++ {
					ticket, err := draw.Resolve(rec.Seed, prize, led.Total())
					if err != nil {
						return err
					}
					holder, _ := led.Holder(ticket)
					res.Winners = append(res.Winners, winnerEntry{
						Prize:   prize,
						Ticket:  ticket,
						Holder:  string(holder),
						Claimed: rec.ClaimedAt(prize),
					})
				}
			}

			return f.Success(res)
		},
	}
}

type winnerEntry struct {
	Prize   uint64 `json:"prize"`
	Ticket  uint64 `json:"ticket"`
	Holder  string `json:"holder"`
	Claimed bool   `json:"claimed"`
}

type showResult struct {
	Raffle        uint64        `json:"raffle"`
	Creator       string        `json:"creator"`
	EndTime       int64         `json:"end_time"`
	TicketPrice   uint64        `json:"ticket_price"`
	MaxEntrants   uint64        `json:"max_entrants"`
	TotalEntrants uint64        `json:"total_entrants"`
	TotalPrizes   uint64        `json:"total_prizes"`
	ClaimedPrizes uint64        `json:"claimed_prizes"`
	SeedSet       bool          `json:"seed_set"`
	Winners       []winnerEntry `json:"winners,omitempty"`
}

func (r showResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "raffle %d\n", r.Raffle)
	fmt.Fprintf(&b, "  creator=%s end_time=%d ticket_price=%d\n", r.Creator, r.EndTime, r.TicketPrice)
	fmt.Fprintf(&b, "  entrants=%d/%d prizes=%d claimed=%d revealed=%v", r.TotalEntrants, r.MaxEntrants, r.TotalPrizes, r.ClaimedPrizes, r.SeedSet)
	for _, w := range r.Winners {
		status := "unclaimed"
		if w.Claimed {
			status = "claimed"
		}
		fmt.Fprintf(&b, "\n  prize %d: ticket %d held by %s (%s)", w.Prize, w.Ticket, w.Holder, status)
	}
	return b.String()
}

// NewListCommand creates the list command: enumerate open raffles.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List open raffles",
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

			ids, err := e.store.RaffleIDs(cmd.Context())
			if err != nil {
				return err
			}

			res := listResult{Raffles: make([]uint64, 0, len(ids))}
			for _, id := range ids {
				res.Raffles = append(res.Raffles, uint64(id))
			}
			return f.Success(res)
		},
	}
}

type listResult struct {
	Raffles []uint64 `json:"raffles"`
}

func (r listResult) String() string {
	if len(r.Raffles) == 0 {
		return "no open raffles"
	}
	parts := make([]string, len(r.Raffles))
	for i, id := range r.Raffles {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "open raffles: " + strings.Join(parts, ", ")
}
