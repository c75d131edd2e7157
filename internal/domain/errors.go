package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business-logic error raised by the engine. The
// Code is stable and used by the HTTP layer to pick a status code; Message
// is safe to surface to a caller.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error code constants, classified by origin per the error taxonomy.
const (
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	ErrCodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeMissingTransaction  = "MISSING_TRANSACTION"
	ErrCodeMissingUser         = "MISSING_USER"
	ErrCodeDatabaseUnavailable = "DB_UNAVAILABLE"
	ErrCodeValidation          = "VALIDATION_ERROR"
)

func NewUserNotFoundError(userID int64) *DomainError {
	return &DomainError{Code: ErrCodeUserNotFound, Message: fmt.Sprintf("user %d not found", userID)}
}

func NewPaymentNotFoundError(paymentID int64) *DomainError {
	return &DomainError{Code: ErrCodePaymentNotFound, Message: fmt.Sprintf("payment %d not found", paymentID)}
}

func NewInsufficientFundsError() *DomainError {
	return &DomainError{Code: ErrCodeInsufficientFunds, Message: "insufficient_funds"}
}

func NewInvalidAmountError(reason string) *DomainError {
	return &DomainError{Code: ErrCodeInvalidAmount, Message: reason}
}

func NewValidationError(reason string) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: reason}
}

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{Code: ErrCodeInvalidTransition, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// ErrNotFound is returned by repository lookups that have no typed
// not-found domain error of their own (transactions, tasks, DLQ rows),
// analogous to sql.ErrNoRows but adapter-independent.
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdempotencyKey is returned by a PaymentRepository.Create
// call that lost a race against a concurrent insert for the same
// (user_id, idempotency_key) pair. Callers re-read the existing payment
// and return it instead of treating this as a failure.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// IsErrorCode reports whether err is a *DomainError with the given code.
func IsErrorCode(err error, code string) bool {
	de, ok := err.(*DomainError)
	if !ok {
		return false
	}
	return de.Code == code
}
