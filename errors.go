package tourdesk

import (
	"errors"
	"fmt"

	"github.com/xraph/tourdesk/booking"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tourdesk: not found")
	ErrAlreadyExists = errors.New("tourdesk: already exists")
	ErrInvalidInput  = errors.New("tourdesk: invalid input")
	ErrForbidden     = errors.New("tourdesk: forbidden")

	// Entity lookups
	ErrTourNotFound         = errors.New("tourdesk: tour not found")
	ErrBookingNotFound      = errors.New("tourdesk: booking not found")
	ErrNotificationNotFound = errors.New("tourdesk: notification not found")
	ErrUserNotFound         = errors.New("tourdesk: user not found")

	// Booking lifecycle
	ErrCapacityExceeded  = errors.New("tourdesk: capacity exceeded")
	ErrInvalidTransition = errors.New("tourdesk: invalid status transition")

	// Store errors
	ErrStoreNotReady     = errors.New("tourdesk: store not ready")
	ErrStoreClosed       = errors.New("tourdesk: store is closed")
	ErrTransactionFailed = errors.New("tourdesk: transaction failed")
	ErrMigrationFailed   = errors.New("tourdesk: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tourdesk: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tourdesk: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tourdesk: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

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

// ErrOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// CapacityError reports a booking that would push a date over capacity.
type CapacityError struct {
	Requested int
	Booked    int
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("tourdesk: capacity exceeded: %d requested, %d of %d booked",
		e.Requested, e.Booked, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// TransitionError reports an action that is not legal from the current status.
type TransitionError struct {
	From   booking.Status
	Action booking.Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("tourdesk: cannot %s a %s booking", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// StoreError wraps a storage backend failure. The transaction it belonged
// to has been rolled back.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("tourdesk: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore wraps err as a StoreError unless it is nil or already a
// domain error the caller should see unchanged.
func WrapStore(op string, err error) error {
	if err == nil || isDomain(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isDomain(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsValidation(err) || errors.Is(err, ErrForbidden)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTourNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict returns true for errors caused by the current state of the
// data rather than by the request itself.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsValidation returns true for malformed or missing input.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput)
}

// IsStoreError returns true if a storage backend failed.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrStoreClosed) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrMigrationFailed)
}

// IsRetryable returns true if the error is temporary and the whole
// operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
