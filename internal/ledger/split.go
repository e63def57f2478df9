package ledger

import (
	"github.com/shopspring/decimal"

	"groupledger/internal/models"
)

// oneCent is the smallest representable amount; the allocation sum
// tolerance is one cent per participant.
var oneCent = decimal.New(1, -2)

// hundred is the percentage denominator.
var hundred = decimal.NewFromInt(100)

// percentEpsilon is how far a percentage split may deviate from 100.
var percentEpsilon = decimal.New(1, -2)

// SplitSpec is the tagged split configuration for one expense. Each
// variant carries exactly the input its split type needs, so Allocate
// can switch exhaustively over the concrete type.
type SplitSpec interface {
	Type() models.SplitType
}

// EqualSplit divides the total evenly among Participants.
type EqualSplit struct {
	Participants []string
}

func (EqualSplit) Type() models.SplitType { return models.SplitEqual }

// MemberAmount is a fixed amount assigned to one participant.
type MemberAmount struct {
	UserID string
	Amount decimal.Decimal
}

// AmountSplit uses caller-supplied fixed amounts. The amounts must sum
// to the expense total within the rounding tolerance.
type AmountSplit struct {
	Amounts []MemberAmount
}

func (AmountSplit) Type() models.SplitType { return models.SplitAmount }

// MemberPercent is a percentage (0-100) assigned to one participant.
type MemberPercent struct {
	UserID  string
	Percent decimal.Decimal
}

// PercentageSplit divides the total by caller-supplied percentages,
// which must sum to 100.
type PercentageSplit struct {
	Percents []MemberPercent
}

func (PercentageSplit) Type() models.SplitType { return models.SplitPercentage }

// MemberShares is an integer share count assigned to one participant.
type MemberShares struct {
	UserID string
	Shares int64
}

// SharesSplit divides the total proportionally to share counts.
type SharesSplit struct {
	Shares []MemberShares
}

func (SharesSplit) Type() models.SplitType { return models.SplitShares }

// Allocate converts an expense total and a split configuration into one
// allocation per participant. The allocation amounts always sum to the
// total exactly: each share is rounded to two decimal places with
// banker's rounding and any residual cents are assigned to the first
// participant in the supplied order.
func Allocate(total decimal.Decimal, spec SplitSpec) ([]models.Allocation, error) {
	if !total.IsPositive() {
		return nil, validationErrorf(NonPositiveAmount, "expense amount must be positive, got %s", total)
	}

	switch s := spec.(type) {
	case EqualSplit:
		return allocateEqual(total, s)
	case AmountSplit:
		return allocateAmounts(total, s)
	case PercentageSplit:
		return allocatePercentages(total, s)
	case SharesSplit:
		return allocateShares(total, s)
	default:
		return nil, validationErrorf(NonPositiveAmount, "unsupported split spec %T", spec)
	}
}

func allocateEqual(total decimal.Decimal, s EqualSplit) ([]models.Allocation, error) {
	if err := checkParticipants(s.Participants); err != nil {
		return nil, err
	}

	n := decimal.NewFromInt(int64(len(s.Participants)))
	share := total.Div(n).RoundBank(2)

	allocs := make([]models.Allocation, len(s.Participants))
	for i, userID := range s.Participants {
		allocs[i] = models.Allocation{
			UserID: userID,
			Amount: share,
			Status: models.AllocationUnpaid,
		}
	}
	return reconcile(total, allocs)
}

func allocateAmounts(total decimal.Decimal, s AmountSplit) ([]models.Allocation, error) {
	participants := make([]string, len(s.Amounts))
	for i, m := range s.Amounts {
		participants[i] = m.UserID
	}
	if err := checkParticipants(participants); err != nil {
		return nil, err
	}

	sum := decimal.Zero
	allocs := make([]models.Allocation, len(s.Amounts))
	for i, m := range s.Amounts {
		if m.Amount.IsNegative() {
			return nil, validationErrorf(NonPositiveAmount, "amount for %s is negative", m.UserID)
		}
		amt := m.Amount.RoundBank(2)
		sum = sum.Add(amt)
		allocs[i] = models.Allocation{
			UserID: m.UserID,
			Amount: amt,
			Status: models.AllocationUnpaid,
		}
	}

	tolerance := oneCent.Mul(decimal.NewFromInt(int64(len(s.Amounts))))
	if total.Sub(sum).Abs().GreaterThan(tolerance) {
		return nil, validationErrorf(SumMismatch, "amounts sum to %s, expense total is %s", sum, total)
	}
	return reconcile(total, allocs)
}

func allocatePercentages(total decimal.Decimal, s PercentageSplit) ([]models.Allocation, error) {
	participants := make([]string, len(s.Percents))
	for i, m := range s.Percents {
		participants[i] = m.UserID
	}
	if err := checkParticipants(participants); err != nil {
		return nil, err
	}

	pctSum := decimal.Zero
	for _, m := range s.Percents {
		if m.Percent.IsNegative() {
			return nil, validationErrorf(PercentageSumInvalid, "percentage for %s is negative", m.UserID)
		}
		pctSum = pctSum.Add(m.Percent)
	}
	if pctSum.Sub(hundred).Abs().GreaterThan(percentEpsilon) {
		return nil, validationErrorf(PercentageSumInvalid, "percentages sum to %s, want 100", pctSum)
	}

	allocs := make([]models.Allocation, len(s.Percents))
	for i, m := range s.Percents {
		pct := m.Percent
		allocs[i] = models.Allocation{
			UserID:     m.UserID,
			Amount:     total.Mul(pct).Div(hundred).RoundBank(2),
			Percentage: &pct,
			Status:     models.AllocationUnpaid,
		}
	}
	return reconcile(total, allocs)
}

func allocateShares(total decimal.Decimal, s SharesSplit) ([]models.Allocation, error) {
	participants := make([]string, len(s.Shares))
	for i, m := range s.Shares {
		participants[i] = m.UserID
	}
	if err := checkParticipants(participants); err != nil {
		return nil, err
	}

	var totalShares int64
	for _, m := range s.Shares {
		if m.Shares < 0 {
			return nil, validationErrorf(NonPositiveAmount, "share count for %s is negative", m.UserID)
		}
		totalShares += m.Shares
	}
	if totalShares == 0 {
		return nil, validationErrorf(ZeroTotalShares, "total share count is zero")
	}

	totalSharesDec := decimal.NewFromInt(totalShares)
	allocs := make([]models.Allocation, len(s.Shares))
	for i, m := range s.Shares {
		shares := m.Shares
		allocs[i] = models.Allocation{
			UserID: m.UserID,
			Amount: total.Mul(decimal.NewFromInt(shares)).Div(totalSharesDec).RoundBank(2),
			Shares: &shares,
			Status: models.AllocationUnpaid,
		}
	}
	return reconcile(total, allocs)
}

// checkParticipants enforces the non-empty and allocation-identity rules.
func checkParticipants(userIDs []string) error {
	if len(userIDs) == 0 {
		return validationErrorf(EmptyParticipantSet, "split has no participants")
	}
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			return validationErrorf(EmptyParticipantSet, "participant user id is empty")
		}
		if seen[id] {
			return validationErrorf(DuplicateParticipant, "user %s appears more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// reconcile assigns the rounding residual to the first participant so
// the allocation amounts sum to the total exactly.
func reconcile(total decimal.Decimal, allocs []models.Allocation) ([]models.Allocation, error) {
	sum := decimal.Zero
	for i := range allocs {
		sum = sum.Add(allocs[i].Amount)
	}
	residual := total.Sub(sum)
	if !residual.IsZero() {
		allocs[0].Amount = allocs[0].Amount.Add(residual)
		if allocs[0].Amount.IsNegative() {
			return nil, validationErrorf(SumMismatch, "rounding residual %s exceeds first participant's share", residual)
		}
	}
	return allocs, nil
}
