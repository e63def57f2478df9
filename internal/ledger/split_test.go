package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"groupledger/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sumAllocations(allocs []models.Allocation) decimal.Decimal {
	sum := decimal.Zero
	for i := range allocs {
		sum = sum.Add(allocs[i].Amount)
	}
	return sum
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name        string
		total       decimal.Decimal
		spec        SplitSpec
		wantCode    ValidationCode // empty means no error expected
		wantAmounts map[string]string
	}{
		{
			name:  "equal split divides evenly",
			total: dec("90.00"),
			spec:  EqualSplit{Participants: []string{"alice", "bob", "carol"}},
			wantAmounts: map[string]string{
				"alice": "30", "bob": "30", "carol": "30",
			},
		},
		{
			name:  "equal split assigns remainder to first participant",
			total: dec("100.00"),
			spec:  EqualSplit{Participants: []string{"alice", "bob", "carol"}},
			wantAmounts: map[string]string{
				"alice": "33.34", "bob": "33.33", "carol": "33.33",
			},
		},
		{
			name:  "equal split with negative residual",
			total: dec("0.20"),
			spec:  EqualSplit{Participants: []string{"alice", "bob", "carol"}},
			wantAmounts: map[string]string{
				"alice": "0.06", "bob": "0.07", "carol": "0.07",
			},
		},
		{
			name:     "equal split with no participants",
			total:    dec("10.00"),
			spec:     EqualSplit{},
			wantCode: EmptyParticipantSet,
		},
		{
			name:     "duplicate participant rejected",
			total:    dec("10.00"),
			spec:     EqualSplit{Participants: []string{"alice", "alice"}},
			wantCode: DuplicateParticipant,
		},
		{
			name:     "zero total rejected",
			total:    decimal.Zero,
			spec:     EqualSplit{Participants: []string{"alice"}},
			wantCode: NonPositiveAmount,
		},
		{
			name:  "amount split accepted when sum matches",
			total: dec("50.00"),
			spec: AmountSplit{Amounts: []MemberAmount{
				{UserID: "alice", Amount: dec("30.00")},
				{UserID: "bob", Amount: dec("20.00")},
			}},
			wantAmounts: map[string]string{"alice": "30", "bob": "20"},
		},
		{
			name:  "amount split reconciles within tolerance",
			total: dec("50.00"),
			spec: AmountSplit{Amounts: []MemberAmount{
				{UserID: "alice", Amount: dec("30.00")},
				{UserID: "bob", Amount: dec("19.99")},
			}},
			wantAmounts: map[string]string{"alice": "30.01", "bob": "19.99"},
		},
		{
			name:  "amount split sum mismatch",
			total: dec("50.00"),
			spec: AmountSplit{Amounts: []MemberAmount{
				{UserID: "alice", Amount: dec("30.00")},
				{UserID: "bob", Amount: dec("10.00")},
			}},
			wantCode: SumMismatch,
		},
		{
			name:  "amount split negative amount",
			total: dec("50.00"),
			spec: AmountSplit{Amounts: []MemberAmount{
				{UserID: "alice", Amount: dec("60.00")},
				{UserID: "bob", Amount: dec("-10.00")},
			}},
			wantCode: NonPositiveAmount,
		},
		{
			name:  "percentage split",
			total: dec("80.00"),
			spec: PercentageSplit{Percents: []MemberPercent{
				{UserID: "alice", Percent: dec("25")},
				{UserID: "bob", Percent: dec("75")},
			}},
			wantAmounts: map[string]string{"alice": "20", "bob": "60"},
		},
		{
			name:  "percentage split with fractional percents",
			total: dec("100.00"),
			spec: PercentageSplit{Percents: []MemberPercent{
				{UserID: "alice", Percent: dec("33.33")},
				{UserID: "bob", Percent: dec("33.33")},
				{UserID: "carol", Percent: dec("33.34")},
			}},
			wantAmounts: map[string]string{"alice": "33.33", "bob": "33.33", "carol": "33.34"},
		},
		{
			name:  "percentages summing to 99 rejected",
			total: dec("100.00"),
			spec: PercentageSplit{Percents: []MemberPercent{
				{UserID: "alice", Percent: dec("50")},
				{UserID: "bob", Percent: dec("49")},
			}},
			wantCode: PercentageSumInvalid,
		},
		{
			name:  "shares split",
			total: dec("90.00"),
			spec: SharesSplit{Shares: []MemberShares{
				{UserID: "alice", Shares: 2},
				{UserID: "bob", Shares: 1},
			}},
			wantAmounts: map[string]string{"alice": "60", "bob": "30"},
		},
		{
			name:  "shares split with remainder",
			total: dec("100.00"),
			spec: SharesSplit{Shares: []MemberShares{
				{UserID: "alice", Shares: 1},
				{UserID: "bob", Shares: 1},
				{UserID: "carol", Shares: 1},
			}},
			wantAmounts: map[string]string{"alice": "33.34", "bob": "33.33", "carol": "33.33"},
		},
		{
			name:  "zero total shares rejected",
			total: dec("100.00"),
			spec: SharesSplit{Shares: []MemberShares{
				{UserID: "alice", Shares: 0},
				{UserID: "bob", Shares: 0},
			}},
			wantCode: ZeroTotalShares,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, err := Allocate(tt.total, tt.spec)

			if tt.wantCode != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Allocate() error = %v, want ValidationError(%s)", err, tt.wantCode)
				}
				if verr.Code != tt.wantCode {
					t.Errorf("validation code = %s, want %s", verr.Code, tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("Allocate() unexpected error: %v", err)
			}
			if len(allocs) != len(tt.wantAmounts) {
				t.Fatalf("got %d allocations, want %d", len(allocs), len(tt.wantAmounts))
			}
			for _, a := range allocs {
				want, ok := tt.wantAmounts[a.UserID]
				if !ok {
					t.Errorf("unexpected allocation for %s", a.UserID)
					continue
				}
				if !a.Amount.Equal(dec(want)) {
					t.Errorf("%s amount = %s, want %s", a.UserID, a.Amount, want)
				}
				if a.Status != models.AllocationUnpaid {
					t.Errorf("%s status = %s, want unpaid", a.UserID, a.Status)
				}
			}
			if !sumAllocations(allocs).Equal(tt.total) {
				t.Errorf("allocation sum = %s, want exactly %s", sumAllocations(allocs), tt.total)
			}
		})
	}
}

func TestAllocateSumAlwaysExact(t *testing.T) {
	// Awkward totals across varying participant counts must still sum
	// exactly after rounding reconciliation.
	totals := []string{"0.01", "0.10", "1.00", "9.99", "100.00", "33.33", "1234.56", "0.07"}
	for _, totalStr := range totals {
		total := dec(totalStr)
		for n := 1; n <= 7; n++ {
			participants := make([]string, n)
			for i := range participants {
				participants[i] = string(rune('a' + i))
			}
			allocs, err := Allocate(total, EqualSplit{Participants: participants})
			if err != nil {
				t.Fatalf("Allocate(%s, %d participants): %v", totalStr, n, err)
			}
			if !sumAllocations(allocs).Equal(total) {
				t.Errorf("Allocate(%s, %d participants): sum = %s", totalStr, n, sumAllocations(allocs))
			}
		}
	}
}
