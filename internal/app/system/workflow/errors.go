package workflow

import (
	"errors"
	"fmt"
)

// Flash texts shared by several outcomes.
const (
	MsgForbidden = "You don't have permission to do that."
	MsgRetry     = "Something went wrong. Please try again."
)

var (
	// ErrCSRF rejects the request outright; handlers answer 403.
	ErrCSRF = errors.New("invalid csrf token")
	// ErrForbidden means the user is signed in but not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the target does not resolve inside the caller's
	// group. It is reported exactly like ErrForbidden.
	ErrNotFound = errors.New("not found")
)

// ValidationError carries a message the user can act on.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// TransactionError wraps a store failure during a mutation.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &TransactionError{Op: op, Err: err}
}

// Message maps an error to the flash text shown to the user.
func Message(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound):
		return MsgForbidden
	default:
		return MsgRetry
	}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCSRF):
		return "csrf"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
