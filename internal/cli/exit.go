package cli

import (
	"errors"
	"fmt"

	"github.com/rshade/pbicli/internal/auth"
	"github.com/rshade/pbicli/internal/powerbi"
)

// Process exit codes. main maps an ExitError onto the process status so
// scripts can tell an authentication problem from a cache miss.
const (
	ExitCodeError     = 1
	ExitCodeAuth      = 2
	ExitCodeCacheMiss = 3
)

// ExitError carries the exit code a failed command should produce.
type ExitError struct {
	ExitCode int
	Reason   string

	// Err preserves the underlying cause for errors.Is checks.
	Err error
}

// Error returns the human-readable reason for the exit.
func (e *ExitError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.ExitCode)
}

// Unwrap exposes the underlying cause.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// classifyExitError maps authentication failures onto ExitCodeAuth so the
// process status says "sign in again" rather than a generic failure. Errors
// already carrying an exit code pass through unchanged.
func classifyExitError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	if errors.Is(err, auth.ErrNotLoggedIn) ||
		errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, powerbi.ErrUnauthorized) {
		return &ExitError{ExitCode: ExitCodeAuth, Reason: err.Error(), Err: err}
	}

	return err
}
