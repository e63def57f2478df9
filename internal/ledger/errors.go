// Package ledger implements the expense allocation, settlement, and
// balance computation engine. All functions are pure: they operate on
// models passed in by the caller and never touch storage.
package ledger

import (
	"errors"
	"fmt"
)

// ValidationCode classifies why a split configuration was rejected.
type ValidationCode string

const (
	EmptyParticipantSet  ValidationCode = "EMPTY_PARTICIPANT_SET"
	SumMismatch          ValidationCode = "SUM_MISMATCH"
	PercentageSumInvalid ValidationCode = "PERCENTAGE_SUM_INVALID"
	ZeroTotalShares      ValidationCode = "ZERO_TOTAL_SHARES"
	DuplicateParticipant ValidationCode = "DUPLICATE_PARTICIPANT"
	NonPositiveAmount    ValidationCode = "NON_POSITIVE_AMOUNT"
)

// ValidationError reports bad split input. It is surfaced to the caller
// unmodified; the engine never silently corrects input beyond the
// documented rounding/remainder rule.
type ValidationError struct {
	Code   ValidationCode
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid split: %s: %s", e.Code, e.Reason)
}

func validationErrorf(code ValidationCode, format string, args ...any) error {
	return &ValidationError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// StateCode classifies an illegal settlement transition.
type StateCode string

const (
	NotAllPaid StateCode = "NOT_ALL_PAID"
)

// InvalidStateError reports a settlement transition attempted from the
// wrong state, e.g. finalizing an expense that still has unpaid
// allocations.
type InvalidStateError struct {
	Code   StateCode
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s: %s", e.Code, e.Reason)
}

// ErrAllocationNotFound is returned when a settlement operation names a
// user with no allocation on the expense.
var ErrAllocationNotFound = errors.New("no allocation for user on this expense")
