package treasury

import (
	"errors"
	"fmt"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound       = errors.New("treasury: not found")
	ErrAlreadyExists  = errors.New("treasury: already exists")
	ErrInvalidInput   = errors.New("treasury: invalid input")
	ErrNotStarted     = errors.New("treasury: engine not started")
	ErrAlreadyStarted = errors.New("treasury: engine already started")

	// Ledger errors, surfaced from the bookkeeping core.
	ErrUnauthorized          = book.ErrUnauthorized
	ErrPaused                = book.ErrPaused
	ErrCapExceeded           = book.ErrCapExceeded
	ErrLengthMismatch        = book.ErrLengthMismatch
	ErrInsufficientBalance   = book.ErrInsufficientBalance
	ErrInsufficientAllowance = book.ErrInsufficientAllowance
	ErrZeroAddress           = book.ErrZeroAddress
	ErrInvalidCap            = book.ErrInvalidCap
	ErrCorruptSnapshot       = book.ErrCorruptSnapshot

	// Amount and role errors, surfaced from the types package.
	ErrAmountOverflow = types.ErrAmountOverflow
	ErrAmountNegative = types.ErrAmountNegative
	ErrUnknownRole    = types.ErrUnknownRole

	// Engine errors
	ErrLedgerNotFound    = errors.New("treasury: ledger not found")
	ErrCapMismatch       = errors.New("treasury: configured cap differs from stored cap")
	ErrJournalBufferFull = errors.New("treasury: journal buffer full")

	// Store errors
	ErrStoreNotReady     = errors.New("treasury: store not ready")
	ErrStoreClosed       = errors.New("treasury: store is closed")
	ErrTransactionFailed = errors.New("treasury: transaction failed")
	ErrMigrationFailed   = errors.New("treasury: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("treasury: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "treasury: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("treasury: %d errors occurred", len(e.Errors))
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

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLedgerNotFound)
}

// IsRejected returns true if the ledger refused the operation outright:
// retrying the same call against the same state will fail the same way.
func IsRejected(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrCapExceeded) ||
		errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance) ||
		errors.Is(err, ErrZeroAddress) ||
		errors.Is(err, ErrUnknownRole) ||
		errors.Is(err, ErrAmountOverflow)
}

// IsInsufficient returns true if the error reports a balance or allowance
// that cannot cover the requested amount.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrJournalBufferFull) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
