package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserInactive           = errors.New("user is inactive")
	ErrDuplicateEmail         = errors.New("email already exists")
	ErrValidation             = errors.New("validation failed")
	ErrBillNotFound           = errors.New("bill not found")
	ErrBillCancelled          = errors.New("bill is cancelled")
	ErrBillAlreadyCancelled   = errors.New("bill is already cancelled")
	ErrConcurrentModification = errors.New("bill was modified concurrently")
	ErrNoChanges              = errors.New("no changes to apply")
	ErrInconsistentBill       = errors.New("bill failed consistency check")
	ErrUnknownReport          = errors.New("unknown report")
	ErrInvalidExportFormat    = errors.New("invalid export format")
	ErrUploadFailed           = errors.New("upload to storage failed")
	ErrArchiveDisabled        = errors.New("report archive storage is not configured")
)

// ValidationError is a field-level input rejection raised before the ledger runs.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StateError rejects a mutation that the bill's current lifecycle state forbids.
type StateError struct {
	BillNumber int64
	Status     BillStatus
	Err        error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("bill %d (%s): %v", e.BillNumber, e.Status, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports that a bill's totals/payment/receipt triple broke an invariant.
type ConsistencyError struct {
	BillNumber int64
	Issues     []ConsistencyIssue
}

func (e *ConsistencyError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, is.Invariant+": "+is.Message)
	}
	return fmt.Sprintf("bill %d inconsistent: %s", e.BillNumber, strings.Join(msgs, "; "))
}

func (e *ConsistencyError) Unwrap() error {
	return ErrInconsistentBill
}
