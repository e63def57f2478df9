package models

import "github.com/shopspring/decimal"

// Settlement is an audit record of one allocation being paid off. It is
// written when a member settles their share of an expense and is never
// updated or reversed; a mistaken payment is corrected by a compensating
// expense.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// GroupID is the group the settled expense belongs to.
	GroupID string `json:"groupId"`

	// ExpenseID is the expense whose allocation was settled.
	ExpenseID string `json:"expenseId"`

	// FromUserID is the debtor whose allocation was paid.
	FromUserID string `json:"fromUserId"`

	// ToUserID is the member who fronted the expense.
	ToUserID string `json:"toUserId"`

	// Amount is the allocation amount that was cleared.
	Amount decimal.Decimal `json:"amount"`

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64 `json:"createdAt"`

	// CreatedBy is the user who recorded the settlement (the debtor, or
	// a group admin settling on their behalf).
	CreatedBy string `json:"createdBy"`

	// Note is an optional free-form annotation.
	Note string `json:"note,omitempty"`
}
