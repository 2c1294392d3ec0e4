package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/tombola/internal/raffle"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // operation rejected by the engine
	ExitCommandError = 2 // command error (bad flags, unreadable files, database errors)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error. Non-ExitErrors map
// to ExitCommandError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for JSON responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Raffle  uint64 `json:"raffle,omitempty"`
}

// Success outputs a successful result in the configured format. In text
// mode, data is printed with its String method or default formatting.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail renders an engine error in the configured format and returns an
// ExitError so the process exits nonzero. Errors without a raffle code
// are command errors and pass through untouched.
func (f *OutputFormatter) Fail(err error) error {
	var rerr *raffle.Error
	if !errors.As(err, &rerr) {
		return err
	}

	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error: &CLIError{
				Code:    string(rerr.Code),
				Message: rerr.Message,
				Raffle:  uint64(rerr.RaffleID),
			},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", rerr.Code, rerr.Message)
	}
	return &ExitError{Code: ExitFailure, Message: string(rerr.Code), Err: err}
}

// VerboseLog outputs a message only when verbose mode is enabled. In
// JSON mode the message goes to ErrWriter so it cannot corrupt the
// machine-readable stream.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
