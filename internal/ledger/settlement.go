package ledger

import (
	"time"

	"groupledger/internal/models"
)

// MarkPaid transitions userID's allocation from unpaid to paid and
// records the payment time. Marking an allocation that is already paid
// or settled is a no-op, not an error, so concurrent or retried calls
// converge on the same state. Returns true if the allocation changed.
func MarkPaid(e *models.Expense, userID string, now time.Time) (bool, error) {
	alloc := e.AllocationFor(userID)
	if alloc == nil {
		return false, ErrAllocationNotFound
	}
	if alloc.Paid() {
		return false, nil
	}
	alloc.Status = models.AllocationPaid
	alloc.PaidAt = now.Unix()
	e.UpdatedAt = now.Unix()
	return true, nil
}

// Settle finalizes a fully paid expense: the settled flag is set and
// every allocation moves to the terminal settled state. Settling an
// already settled expense is a no-op. If any allocation is still
// unpaid, Settle fails with InvalidStateError(NotAllPaid) and the
// expense is unchanged.
//
// There is no reverse transition. A mistaken payment is corrected by
// creating a compensating expense, which keeps the history auditable.
func Settle(e *models.Expense, now time.Time) error {
	if e.Settled {
		return nil
	}
	for i := range e.Allocations {
		if !e.Allocations[i].Paid() {
			return &InvalidStateError{
				Code:   NotAllPaid,
				Reason: "allocation for " + e.Allocations[i].UserID + " is unpaid",
			}
		}
	}
	for i := range e.Allocations {
		e.Allocations[i].Status = models.AllocationSettled
	}
	e.Settled = true
	e.UpdatedAt = now.Unix()
	return nil
}
