package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure taxonomy exposed to the HTTP boundary. Components wrap
// raw downstream errors (TLS faults, SQL errors, provider rejections) into a
// Kind before they leave the package; handlers only ever switch on Kind.
type Kind int

const (
	// BadRequest covers malformed input, CSRF mismatches and malformed
	// provider subject claims.
	BadRequest Kind = iota
	// Unauthorized covers wrong credentials, bad or expired bearer tokens
	// and failed provider token validation.
	Unauthorized
	// Internal covers store unavailability and unexpected downstream faults.
	Internal
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad request"
	case Unauthorized:
		return "unauthorized"
	case Internal:
		return "internal error"
	}
	return "unknown"
}

// Error carries a Kind and the wrapped cause. The cause is for logs only and
// must never reach a client verbatim.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New wraps err under the given kind. A nil err is allowed for failures that
// carry no useful cause.
func New(k Kind, err error) *Error { return &Error{Kind: k, err: err} }

// KindOf extracts the Kind from err, defaulting to Internal for errors that
// did not come through this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
