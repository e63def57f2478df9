package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"groupledger/internal/models"
)

// expense builds a test expense with an equal split among participants.
func expense(t *testing.T, id, payer, total string, participants ...string) *models.Expense {
	t.Helper()
	allocs, err := Allocate(dec(total), EqualSplit{Participants: participants})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return &models.Expense{
		ID:           id,
		GroupID:      "grp-1",
		Amount:       dec(total),
		PaidByUserID: payer,
		SplitType:    models.SplitEqual,
		Allocations:  allocs,
	}
}

func TestUserOwedAndOwes(t *testing.T) {
	// Alice fronts $100 split equally with Bob.
	e := expense(t, "e1", "alice", "100.00", "alice", "bob")
	expenses := []*models.Expense{e}

	if got := UserOwedAmount(expenses, "alice"); !got.Equal(dec("50.00")) {
		t.Errorf("alice owed = %s, want 50.00", got)
	}
	if got := UserOwesAmount(expenses, "bob"); !got.Equal(dec("50.00")) {
		t.Errorf("bob owes = %s, want 50.00", got)
	}
	// The payer's own share is not a debt.
	if got := UserOwesAmount(expenses, "alice"); !got.IsZero() {
		t.Errorf("alice owes = %s, want 0", got)
	}

	// After Bob pays, nothing is owed.
	if _, err := MarkPaid(e, "bob", time.Now()); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if got := UserOwedAmount(expenses, "alice"); !got.IsZero() {
		t.Errorf("alice owed after payment = %s, want 0", got)
	}
	if got := UserOwesAmount(expenses, "bob"); !got.IsZero() {
		t.Errorf("bob owes after payment = %s, want 0", got)
	}
}

func TestUserOwedNoExpenses(t *testing.T) {
	if got := UserOwedAmount(nil, "alice"); !got.IsZero() {
		t.Errorf("owed = %s, want 0", got)
	}
	if got := UserOwesAmount([]*models.Expense{}, "alice"); !got.IsZero() {
		t.Errorf("owes = %s, want 0", got)
	}
}

func TestOwedOwesNeverNegative(t *testing.T) {
	expenses := []*models.Expense{
		expense(t, "e1", "alice", "100.00", "alice", "bob"),
		expense(t, "e2", "bob", "40.00", "alice", "bob"),
	}
	for _, user := range []string{"alice", "bob", "carol"} {
		if UserOwedAmount(expenses, user).IsNegative() {
			t.Errorf("%s owed is negative", user)
		}
		if UserOwesAmount(expenses, user).IsNegative() {
			t.Errorf("%s owes is negative", user)
		}
	}
}

func TestMemberBalances(t *testing.T) {
	expenses := []*models.Expense{
		expense(t, "e1", "alice", "100.00", "alice", "bob"),
		expense(t, "e2", "bob", "60.00", "alice", "bob", "carol"),
	}

	balances := MemberBalances(expenses)
	if len(balances) != 3 {
		t.Fatalf("got %d balances, want 3", len(balances))
	}

	byUser := make(map[string]MemberBalance)
	for _, b := range balances {
		byUser[b.UserID] = b
	}

	// Alice paid 100, owes her own shares 50 + 20 = 70.
	if got := byUser["alice"]; !got.TotalPaid.Equal(dec("100.00")) || !got.Net.Equal(dec("30.00")) {
		t.Errorf("alice balance = paid %s net %s, want paid 100.00 net 30.00", got.TotalPaid, got.Net)
	}
	// Carol paid nothing, owes 20.
	if got := byUser["carol"]; !got.TotalPaid.IsZero() || !got.Net.Equal(dec("-20.00")) {
		t.Errorf("carol balance = paid %s net %s, want paid 0 net -20.00", got.TotalPaid, got.Net)
	}
}

func TestDebtMatrixPairwise(t *testing.T) {
	// Triangular scenario the flat owed/owes aggregates cannot
	// distinguish: alice->bob and bob->carol debts stay separate.
	expenses := []*models.Expense{
		expense(t, "e1", "bob", "40.00", "alice", "bob"),   // alice owes bob 20
		expense(t, "e2", "carol", "60.00", "bob", "carol"), // bob owes carol 30
	}

	debts := DebtMatrix(expenses)
	if got := debts["alice"]["bob"]; !got.Equal(dec("20.00")) {
		t.Errorf("alice->bob = %s, want 20.00", got)
	}
	if got := debts["bob"]["carol"]; !got.Equal(dec("30.00")) {
		t.Errorf("bob->carol = %s, want 30.00", got)
	}
	if _, ok := debts["carol"]; ok {
		t.Error("carol should owe nobody")
	}
}

func TestDebtMatrixCancelsOpposingDebts(t *testing.T) {
	expenses := []*models.Expense{
		expense(t, "e1", "alice", "100.00", "alice", "bob"), // bob owes alice 50
		expense(t, "e2", "bob", "40.00", "alice", "bob"),    // alice owes bob 20
	}

	debts := DebtMatrix(expenses)
	if got := debts["bob"]["alice"]; !got.Equal(dec("30.00")) {
		t.Errorf("bob->alice = %s, want 30.00 after cancellation", got)
	}
	if _, ok := debts["alice"]; ok {
		t.Error("alice->bob debt should be fully cancelled")
	}
}

func TestSimplifyDebts(t *testing.T) {
	debts := map[string]map[string]decimal.Decimal{
		"bob":   {"alice": dec("30.00")},
		"carol": {"alice": dec("20.00")},
	}

	edges := SimplifyDebts(debts)
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	// Largest debtor first.
	if edges[0].FromUserID != "bob" || !edges[0].Amount.Equal(dec("30.00")) {
		t.Errorf("edge[0] = %+v, want bob->alice 30.00", edges[0])
	}
	if edges[1].FromUserID != "carol" || !edges[1].Amount.Equal(dec("20.00")) {
		t.Errorf("edge[1] = %+v, want carol->alice 20.00", edges[1])
	}
}

func TestSimplifyDebtsCollapsesChain(t *testing.T) {
	// alice owes bob 20, bob owes carol 20: one transfer remains.
	debts := map[string]map[string]decimal.Decimal{
		"alice": {"bob": dec("20.00")},
		"bob":   {"carol": dec("20.00")},
	}

	edges := SimplifyDebts(debts)
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1: %+v", len(edges), edges)
	}
	e := edges[0]
	if e.FromUserID != "alice" || e.ToUserID != "carol" || !e.Amount.Equal(dec("20.00")) {
		t.Errorf("edge = %+v, want alice->carol 20.00", e)
	}
}
