package raffle

import (
	"errors"
	"fmt"
)

// Code categorizes engine errors. Every precondition violation maps to
// exactly one code so callers can branch on the kind without parsing
// messages.
type Code string

const (
	// CodeNotFound indicates an unknown raffle or an out-of-range ticket index.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidSchedule indicates an end time not in the future.
	CodeInvalidSchedule Code = "INVALID_SCHEDULE"

	// CodeInvalidAmount indicates a zero or otherwise malformed amount.
	CodeInvalidAmount Code = "INVALID_AMOUNT"

	// CodeArithmeticOverflow indicates a payment computation that would
	// overflow. Ticket counts and prices are attacker-influenced, so the
	// multiplication is always checked.
	CodeArithmeticOverflow Code = "ARITHMETIC_OVERFLOW"

	// CodeRaffleEnded indicates a ticket purchase at or after end time.
	CodeRaffleEnded Code = "RAFFLE_ENDED"

	// CodeRaffleStillRunning indicates a reveal attempted before the end
	// time plus the reveal buffer has passed.
	CodeRaffleStillRunning Code = "RAFFLE_STILL_RUNNING"

	// CodeRaffleStillActive indicates proceeds collection before end time.
	CodeRaffleStillActive Code = "RAFFLE_STILL_ACTIVE"

	// CodeCannotCloseYet indicates closure before all prizes are claimed
	// and before the grace period has elapsed.
	CodeCannotCloseYet Code = "CANNOT_CLOSE_YET"

	// CodeExceedsCapacity indicates a purchase that would push the ledger
	// past its maximum.
	CodeExceedsCapacity Code = "EXCEEDS_CAPACITY"

	// CodeAlreadyRevealed indicates a second reveal attempt.
	CodeAlreadyRevealed Code = "ALREADY_REVEALED"

	// CodeNotRevealed indicates a claim before the seed is set.
	CodeNotRevealed Code = "NOT_REVEALED"

	// CodeInvalidPrizeIndex indicates a prize index >= total prizes.
	CodeInvalidPrizeIndex Code = "INVALID_PRIZE_INDEX"

	// CodeAlreadyClaimed indicates a prize index already claimed.
	CodeAlreadyClaimed Code = "ALREADY_CLAIMED"

	// CodeNotWinningTicket indicates the supplied ticket index does not
	// match the resolved winner for the prize.
	CodeNotWinningTicket Code = "NOT_WINNING_TICKET"

	// CodeUnauthorized indicates the caller is neither the creator nor the
	// winning entrant, as the operation requires.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeTransferFailed indicates the AssetTransfer collaborator reported
	// failure. State is never mutated after a failed transfer.
	CodeTransferFailed Code = "TRANSFER_FAILED"

	// CodeReentrantCall indicates a call arrived for a raffle whose guard
	// flag was already set, i.e. an external transfer called back into the
	// engine mid-operation.
	CodeReentrantCall Code = "REENTRANT_CALL"
)

// Error is the typed, recoverable error surfaced by every engine
// operation. Nothing in the engine is fatal: a failed call leaves prior
// state unchanged and the caller decides whether to retry.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// RaffleID identifies the affected raffle (0 when no raffle is in scope).
	RaffleID ID

	// Details contains additional context for diagnostics.
	Details map[string]string

	// cause is the wrapped underlying error, if any (transfer failures).
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RaffleID != 0 {
		return fmt.Sprintf("%s: %s (raffle=%d)", e.Code, e.Message, e.RaffleID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the error code from err, unwrapping as needed.
// Returns the empty code if err is not a raffle error.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// NewError creates an error with the given code, raffle, and message.
func NewError(code Code, id ID, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		RaffleID: id,
	}
}

// NewNotFound creates a NOT_FOUND error for an unknown raffle.
func NewNotFound(id ID) *Error {
	return &Error{
		Code:     CodeNotFound,
		Message:  "no such raffle",
		RaffleID: id,
	}
}

// NewTransferFailed wraps an AssetTransfer failure. The underlying error
// remains reachable through errors.Unwrap for callers that need the
// collaborator's reason.
func NewTransferFailed(id ID, cause error) *Error {
	return &Error{
		Code:     CodeTransferFailed,
		Message:  fmt.Sprintf("asset transfer failed: %v", cause),
		RaffleID: id,
		cause:    cause,
	}
}

// NewReentrantCall creates a REENTRANT_CALL error for a raffle whose busy
// flag was already set on entry.
func NewReentrantCall(id ID) *Error {
	return &Error{
		Code:     CodeReentrantCall,
		Message:  "operation already in progress for raffle",
		RaffleID: id,
	}
}
