package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tombola/internal/config"
)

// NewValidateCommand creates the validate command: compile a raffle
// definition without touching the database.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition.cue>",
		Short: "Validate a raffle definition file",
		Long: `Compile a raffle definition and report errors with source positions.

Example:
  tombola validate raffles/spring.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			def, err := config.Load(args[0])
			if err != nil {
				var cerr *config.CompileError
				if errors.As(err, &cerr) {
					if f.Format == "json" {
						_ = json.NewEncoder(f.Writer).Encode(Response{
							Status: "error",
							Error:  &CLIError{Code: "INVALID_DEFINITION", Message: cerr.Error()},
						})
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n  %v\n", args[0], cerr)
					}
					return &ExitError{Code: ExitFailure, Message: "invalid definition", Err: err}
				}
				return err
			}

			return f.Success(validateResult{
				File:        args[0],
				Name:        def.Name,
				TicketPrice: def.TicketPrice,
				MaxEntrants: def.MaxEntrants,
				TotalPrizes: def.TotalPrizes(),
			})
		},
	}
}

type validateResult struct {
	File        string `json:"file"`
	Name        string `json:"name"`
	TicketPrice uint64 `json:"ticket_price"`
	MaxEntrants uint64 `json:"max_entrants"`
	TotalPrizes uint64 `json:"total_prizes"`
}

func (r validateResult) String() string {
	return fmt.Sprintf("%s: valid\n  name=%s ticket_price=%d max_entrants=%d prizes=%d",
		r.File, r.Name, r.TicketPrice, r.MaxEntrants, r.TotalPrizes)
}
