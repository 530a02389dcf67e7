package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied = new(ErrCodePermissionDenied, "permission denied")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")
)

// Numbering and reconciliation errors. Callers branch on these, so each one
// keeps a stable code.
var (
	ErrNoActiveSequence             = new(ErrCodeNoActiveSequence, "no active numbering sequence")
	ErrSequenceExhausted            = new(ErrCodeSequenceExhausted, "numbering sequence exhausted")
	ErrConcurrentAllocationConflict = new(ErrCodeConcurrentAllocationConflict, "concurrent allocation conflict")
	ErrDuplicateActiveSequence      = new(ErrCodeDuplicateActiveSequence, "duplicate active sequence")
	ErrOutstandingBalance           = new(ErrCodeOutstandingBalance, "outstanding balance")
	ErrInvalidPaymentAmount         = new(ErrCodeInvalidPaymentAmount, "invalid payment amount")
	ErrInvalidStatusTransition      = new(ErrCodeInvalidStatusTransition, "invalid status transition")
)

const (
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeDatabase         = "database_error"

	ErrCodeNoActiveSequence             = "no_active_sequence"
	ErrCodeSequenceExhausted            = "sequence_exhausted"
	ErrCodeConcurrentAllocationConflict = "concurrent_allocation_conflict"
	ErrCodeDuplicateActiveSequence      = "duplicate_active_sequence"
	ErrCodeOutstandingBalance           = "outstanding_balance"
	ErrCodeInvalidPaymentAmount         = "invalid_payment_amount"
	ErrCodeInvalidStatusTransition      = "invalid_status_transition"
)

type statusMapping struct {
	err    *InternalError
	status int
}

// domain errors come first so that an error marked with both a domain
// sentinel and a generic one reports the domain status
var statusCodes = []statusMapping{
	{ErrNoActiveSequence, http.StatusNotFound},
	{ErrSequenceExhausted, http.StatusConflict},
	{ErrConcurrentAllocationConflict, http.StatusConflict},
	{ErrDuplicateActiveSequence, http.StatusConflict},
	{ErrOutstandingBalance, http.StatusUnprocessableEntity},
	{ErrInvalidPaymentAmount, http.StatusBadRequest},
	{ErrInvalidStatusTransition, http.StatusUnprocessableEntity},
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrValidation, http.StatusBadRequest},
	{ErrInvalidOperation, http.StatusBadRequest},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrDatabase, http.StatusInternalServerError},
	{ErrSystem, http.StatusInternalServerError},
}

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsNoActiveSequence(err error) bool {
	return errors.Is(err, ErrNoActiveSequence)
}

func IsSequenceExhausted(err error) bool {
	return errors.Is(err, ErrSequenceExhausted)
}

func IsConcurrentAllocationConflict(err error) bool {
	return errors.Is(err, ErrConcurrentAllocationConflict)
}

func IsOutstandingBalance(err error) bool {
	return errors.Is(err, ErrOutstandingBalance)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

// HTTPStatusFromErr returns the status code of the first sentinel the error
// is marked with
func HTTPStatusFromErr(err error) int {
	for _, m := range statusCodes {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr returns the machine-readable code of the first sentinel the
// error is marked with, or system_error
func CodeFromErr(err error) string {
	for _, m := range statusCodes {
		if errors.Is(err, m.err) {
			return m.err.Code
		}
	}
	return ErrCodeSystemError
}
