package models

import "github.com/shopspring/decimal"

// SplitType identifies how an expense total is divided among participants.
type SplitType string

const (
	// SplitEqual divides the total evenly among all participants.
	SplitEqual SplitType = "equal"
	// SplitAmount uses caller-supplied fixed amounts per participant.
	SplitAmount SplitType = "amount"
	// SplitPercentage uses caller-supplied percentages summing to 100.
	SplitPercentage SplitType = "percentage"
	// SplitShares divides the total proportionally to integer share counts.
	SplitShares SplitType = "shares"
)

// AllocationStatus is the payment lifecycle state of a single allocation.
// Transitions only move forward: unpaid -> paid -> settled.
type AllocationStatus string

const (
	AllocationUnpaid  AllocationStatus = "unpaid"
	AllocationPaid    AllocationStatus = "paid"
	AllocationSettled AllocationStatus = "settled"
)

// Allocation is one member's share of an expense total.
type Allocation struct {
	// UserID identifies the member this share belongs to.
	UserID string `json:"userId"`

	// Amount is this member's share. The sum of all allocation amounts
	// on an expense equals the expense amount exactly.
	Amount decimal.Decimal `json:"amount"`

	// Percentage is set for percentage splits (0-100).
	Percentage *decimal.Decimal `json:"percentage,omitempty"`

	// Shares is set for share-based splits.
	Shares *int64 `json:"shares,omitempty"`

	// Status is the payment state of this allocation.
	Status AllocationStatus `json:"status"`

	// PaidAt is the Unix timestamp when the allocation was marked paid.
	// Zero while unpaid.
	PaidAt int64 `json:"paidAt,omitempty"`
}

// Paid reports whether the allocation has been paid or settled.
func (a *Allocation) Paid() bool {
	return a.Status == AllocationPaid || a.Status == AllocationSettled
}

// Expense is a monetary event scoped to one group, split among members.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// GroupID is the group this expense belongs to.
	GroupID string `json:"groupId"`

	// Description is the human-readable label for the expense.
	Description string `json:"description"`

	// Amount is the positive total. Immutable except through an explicit
	// update that resupplies the split.
	Amount decimal.Decimal `json:"amount"`

	// Category is a free-form classification (e.g. "groceries").
	Category string `json:"category,omitempty"`

	// Frequency is an optional recurrence tag (e.g. "monthly").
	Frequency string `json:"frequency,omitempty"`

	// PaidByUserID is the member who fronted the money.
	PaidByUserID string `json:"paidByUserId"`

	// SplitType records how the allocations were derived.
	SplitType SplitType `json:"splitType"`

	// Allocations holds exactly one share per participating member.
	Allocations []Allocation `json:"allocations"`

	// Settled is true once every allocation has been paid and the
	// expense was finalized.
	Settled bool `json:"settled"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// AllocationFor returns a pointer to the allocation belonging to userID,
// or nil if the user has no share of this expense.
func (e *Expense) AllocationFor(userID string) *Allocation {
	for i := range e.Allocations {
		if e.Allocations[i].UserID == userID {
			return &e.Allocations[i]
		}
	}
	return nil
}

// AllPaid reports whether every allocation on the expense is paid or settled.
func (e *Expense) AllPaid() bool {
	for i := range e.Allocations {
		if !e.Allocations[i].Paid() {
			return false
		}
	}
	return true
}
