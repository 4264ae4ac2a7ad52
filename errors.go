package stockledger

import (
	"errors"
	"fmt"

	"github.com/xraph/stockledger/txn"
)

// Kind is the stable, caller-facing error code.
type Kind string

// Error kinds.
const (
	KindInvalidArgument    Kind = "invalid-argument"
	KindFailedPrecondition Kind = "failed-precondition"
	KindAlreadyExists      Kind = "already-exists"
	KindPermissionDenied   Kind = "permission-denied"
	KindUnauthenticated    Kind = "unauthenticated"
	KindInternal           Kind = "internal"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput     = errors.New("stockledger: invalid input")
	ErrPermissionDenied = errors.New("stockledger: permission denied")
	ErrUnauthenticated  = errors.New("stockledger: unauthenticated")

	// Catalog errors
	ErrProductNotFound = errors.New("stockledger: product not found")

	// Sale errors
	ErrSaleExists   = errors.New("stockledger: sale already exists")
	ErrSaleNotFound = errors.New("stockledger: sale not found")

	// Store errors
	ErrStoreClosed     = errors.New("stockledger: store is closed")
	ErrMigrationFailed = errors.New("stockledger: migration failed")

	// ErrConflict is the transaction runtime's conflict error. Backends
	// return it from a commit that lost a race so the runtime retries.
	ErrConflict = txn.ErrConflict
)

// Error is an error with a stable Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("stockledger: %s: %v", e.Message, e.Err)
	case e.Message != "":
		return "stockledger: " + e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "stockledger: " + string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns an *Error of the given kind wrapping err.
func Errorf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("stockledger: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidInput.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "stockledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("stockledger: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Err returns nil when empty, the single error when there is one, and the
// MultiError otherwise.
func (e MultiError) Err() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	default:
		return e
	}
}

// KindOf maps err to its Kind. A nil error has no kind; unrecognized errors
// are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidArgument
	case errors.Is(err, ErrProductNotFound):
		return KindFailedPrecondition
	case errors.Is(err, ErrSaleExists):
		return KindAlreadyExists
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSaleNotFound)
}

// IsRetryable reports whether re-issuing the identical call is safe and may
// succeed: write conflicts and sale commits that already landed. Validation
// and precondition failures need a corrected request instead.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSaleExists)
}
