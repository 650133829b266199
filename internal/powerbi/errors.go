package powerbi

import (
	"errors"
	"fmt"
)

// Errors commands can branch on.
var (
	// ErrUnauthorized covers 401 and 403 responses: the token is missing
	// a scope, expired server-side, or the caller lacks the admin role.
	ErrUnauthorized = errors.New("the API rejected the credentials")
	// ErrNotFound covers 404 responses.
	ErrNotFound = errors.New("resource not found")
)

// APIError carries an unexpected HTTP failure, keeping enough of the
// response to diagnose it.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
