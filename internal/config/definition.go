// Package config loads raffle definitions from CUE files. A definition
// declares everything CreateRaffle needs (schedule, ticket price,
// capacity) plus the escrowed prize list the host funds before sales
// open.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tombola/internal/raffle"
)

// Prize is one escrowed prize in a definition. Prize index is the
// position in the definition's prize list.
type Prize struct {
	Token  raffle.Token
	Amount uint64
}

// Definition holds the creation parameters declared in a CUE file.
// Exactly one of EndTime (absolute) or Duration (relative to creation
// time) is set; EndsAt resolves whichever was declared.
type Definition struct {
	Name        string
	EndTime     int64
	Duration    int64
	TicketPrice uint64
	MaxEntrants uint64
	Prizes      []Prize
}

// TotalPrizes returns the number of declared prizes.
func (d *Definition) TotalPrizes() uint64 {
	return uint64(len(d.Prizes))
}

// EndsAt resolves the definition's end time against the given current
// time: absolute end_time wins, otherwise now + duration.
func (d *Definition) EndsAt(now int64) int64 {
	if d.EndTime != 0 {
		return d.EndTime
	}
	return now + d.Duration
}

// Load reads and compiles a raffle definition file. The file declares a
// top-level "raffle" struct:
//
//	raffle: {
//		name:         "spring-fling"
//		duration:     3600
//		ticket_price: 1000000
//		max_entrants: 100
//		prizes: [{token: "USDC", amount: 500}]
//	}
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("raffle"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "raffle",
			Message: "top-level raffle struct is required",
			Pos:     v.Pos(),
		}
	}
	return Compile(root)
}

// Compile parses a CUE value into a Definition and validates it.
func Compile(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Name = name
	}

	endVal := v.LookupPath(cue.ParsePath("end_time"))
	durVal := v.LookupPath(cue.ParsePath("duration"))
	switch {
	case endVal.Exists() && durVal.Exists():
		return nil, &CompileError{
			Field:   "end_time",
			Message: "declare either end_time or duration, not both",
			Pos:     endVal.Pos(),
		}
	case endVal.Exists():
		end, err := endVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.EndTime = end
	case durVal.Exists():
		dur, err := durVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if dur <= 0 {
			return nil, &CompileError{
				Field:   "duration",
				Message: "duration must be positive",
				Pos:     durVal.Pos(),
			}
		}
		def.Duration = dur
	default:
		return nil, &CompileError{
			Field:   "end_time",
			Message: "either end_time or duration is required",
			Pos:     v.Pos(),
		}
	}

	price, err := requireUint(v, "ticket_price")
	if err != nil {
		return nil, err
	}
	def.TicketPrice = price

	maxEntrants, err := requireUint(v, "max_entrants")
	if err != nil {
		return nil, err
	}
	if maxEntrants == 0 {
		return nil, &CompileError{
			Field:   "max_entrants",
			Message: "max_entrants must be positive",
			Pos:     v.LookupPath(cue.ParsePath("max_entrants")).Pos(),
		}
	}
	def.MaxEntrants = maxEntrants

	prizesVal := v.LookupPath(cue.ParsePath("prizes"))
	if !prizesVal.Exists() {
		return nil, &CompileError{
			Field:   "prizes",
			Message: "at least one prize is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := prizesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		prize, err := compilePrize(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Prizes = append(def.Prizes, prize)
	}
	if len(def.Prizes) == 0 {
		return nil, &CompileError{
			Field:   "prizes",
			Message: "at least one prize is required",
			Pos:     prizesVal.Pos(),
		}
	}

	return def, nil
}

// compilePrize parses one prize entry.
func compilePrize(v cue.Value) (Prize, error) {
	tokenVal := v.LookupPath(cue.ParsePath("token"))
	if !tokenVal.Exists() {
		return Prize{}, &CompileError{
			Field:   "prizes.token",
			Message: "token is required",
			Pos:     v.Pos(),
		}
	}
	tok, err := tokenVal.String()
	if err != nil {
		return Prize{}, formatCUEError(err)
	}

	amountVal := v.LookupPath(cue.ParsePath("amount"))
	if !amountVal.Exists() {
		return Prize{}, &CompileError{
			Field:   "prizes.amount",
			Message: "amount is required",
			Pos:     v.Pos(),
		}
	}
	amount, err := amountVal.Int64()
	if err != nil {
		return Prize{}, formatCUEError(err)
	}
	if amount < 0 {
		return Prize{}, &CompileError{
			Field:   "prizes.amount",
			Message: "amount must not be negative",
			Pos:     amountVal.Pos(),
		}
	}

	return Prize{Token: raffle.Token(tok), Amount: uint64(amount)}, nil
}

// requireUint reads a required non-negative integer field.
func requireUint(v cue.Value, field string) (uint64, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	n, err := val.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < 0 {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s must not be negative", field),
			Pos:     val.Pos(),
		}
	}
	return uint64(n), nil
}

// CompileError represents a definition error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
