// Package errors defines the error taxonomy exposed by the auth service.
//
// Internal failure detail (signature mismatch vs expiry vs revocation, user
// missing vs wrong password) is collapsed into ErrUnauthenticated before it
// leaves the service layer, so callers cannot probe for account existence.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates the resource already exists (e.g. username taken).
	ErrConflict = errors.New("resource already exists")

	// ErrUnauthenticated covers every credential or token failure: bad
	// password, unknown or disabled user, malformed, expired, superseded or
	// revoked token. Intentionally not subdivided toward the caller.
	ErrUnauthenticated = errors.New("authentication failed")

	// ErrUnavailable indicates a dependency store (Mongo, Redis) timed out
	// or is down.
	ErrUnavailable = errors.New("dependency unavailable")

	// ErrInvalidInput indicates a malformed request body or header.
	ErrInvalidInput = errors.New("invalid input")
)

// IsConflict reports whether err is (or wraps) ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsUnauthenticated reports whether err is (or wraps) ErrUnauthenticated.
func IsUnauthenticated(err error) bool { return errors.Is(err, ErrUnauthenticated) }

// IsUnavailable reports whether err is (or wraps) ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsInvalidInput reports whether err is (or wraps) ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// Unauthenticatedf wraps ErrUnauthenticated with internal diagnostic detail.
// The detail is for logs only and must not be surfaced to the caller.
func Unauthenticatedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnauthenticated}, args...)...)
}

// Unavailablef wraps ErrUnavailable with the failing dependency's error.
func Unavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnavailable}, args...)...)
}
