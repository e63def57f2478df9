package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"groupledger/internal/models"
)

// MemberBalance is one member's aggregate position within a group.
type MemberBalance struct {
	UserID string `json:"userId"`

	// TotalPaid is the sum of expense totals this member fronted.
	TotalPaid decimal.Decimal `json:"totalPaid"`

	// TotalOwed is the sum of this member's unpaid allocations.
	TotalOwed decimal.Decimal `json:"totalOwed"`

	// Net is TotalPaid minus TotalOwed; positive means the group owes
	// this member money.
	Net decimal.Decimal `json:"net"`
}

// DebtEdge is a single directional debt between two members.
type DebtEdge struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
}

// UserOwedAmount is the total other members still owe userID: across
// expenses userID paid for, the sum of everyone else's unpaid
// allocations. The payer's own allocation is their share of the cost,
// not a debt to themselves, so it is excluded. Returns zero for a user
// with no matching expenses.
func UserOwedAmount(expenses []*models.Expense, userID string) decimal.Decimal {
	owed := decimal.Zero
	for _, e := range expenses {
		if e.PaidByUserID != userID {
			continue
		}
		for i := range e.Allocations {
			a := &e.Allocations[i]
			if a.UserID != userID && !a.Paid() {
				owed = owed.Add(a.Amount)
			}
		}
	}
	return owed
}

// UserOwesAmount is the total userID still owes others: across expenses
// somebody else paid for, the sum of userID's own unpaid allocations.
// Returns zero for a user with no matching expenses.
func UserOwesAmount(expenses []*models.Expense, userID string) decimal.Decimal {
	owes := decimal.Zero
	for _, e := range expenses {
		if e.PaidByUserID == userID {
			continue
		}
		for i := range e.Allocations {
			a := &e.Allocations[i]
			if a.UserID == userID && !a.Paid() {
				owes = owes.Add(a.Amount)
			}
		}
	}
	return owes
}

// MemberBalances aggregates paid and owed totals for every member that
// appears in the expense history, sorted by user ID. Balances are
// recomputed from the full history on every call rather than kept as
// running totals, so they cannot drift from the allocation state.
func MemberBalances(expenses []*models.Expense) []MemberBalance {
	paid := make(map[string]decimal.Decimal)
	owed := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		paid[e.PaidByUserID] = amount(paid, e.PaidByUserID).Add(e.Amount)
		for i := range e.Allocations {
			a := &e.Allocations[i]
			if !a.Paid() {
				owed[a.UserID] = amount(owed, a.UserID).Add(a.Amount)
			}
		}
	}

	ids := make(map[string]bool, len(paid)+len(owed))
	for id := range paid {
		ids[id] = true
	}
	for id := range owed {
		ids[id] = true
	}

	balances := make([]MemberBalance, 0, len(ids))
	for id := range ids {
		p := amount(paid, id)
		o := amount(owed, id)
		balances = append(balances, MemberBalance{
			UserID:    id,
			TotalPaid: p,
			TotalOwed: o,
			Net:       p.Sub(o),
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].UserID < balances[j].UserID })
	return balances
}

// DebtMatrix builds the pairwise debt ledger for a group: for every
// expense, each non-payer's unpaid allocation is a debt from that
// member to the payer. Opposing debts between the same pair are then
// cancelled so at most one directional entry remains per pair. Unlike
// the owed/owes aggregates, the matrix keeps track of who is owed by
// whom, which matters in triangular-debt scenarios.
func DebtMatrix(expenses []*models.Expense) map[string]map[string]decimal.Decimal {
	debts := make(map[string]map[string]decimal.Decimal)
	add := func(from, to string, amt decimal.Decimal) {
		if debts[from] == nil {
			debts[from] = make(map[string]decimal.Decimal)
		}
		debts[from][to] = amount(debts[from], to).Add(amt)
	}

	for _, e := range expenses {
		for i := range e.Allocations {
			a := &e.Allocations[i]
			if a.UserID != e.PaidByUserID && !a.Paid() {
				add(a.UserID, e.PaidByUserID, a.Amount)
			}
		}
	}

	// Cancel opposing debts: if A owes B and B owes A, keep one
	// directional net debt.
	for from, row := range debts {
		for to, fwd := range row {
			back := amount(debts[to], from)
			if back.IsZero() {
				continue
			}
			if fwd.GreaterThan(back) {
				row[to] = fwd.Sub(back)
				delete(debts[to], from)
			} else if back.GreaterThan(fwd) {
				debts[to][from] = back.Sub(fwd)
				delete(row, to)
			} else {
				delete(row, to)
				delete(debts[to], from)
			}
		}
	}
	for from, row := range debts {
		if len(row) == 0 {
			delete(debts, from)
		}
	}
	return debts
}

// SimplifyDebts reduces a debt matrix to a minimal set of transfer
// edges by greedily matching the largest net debtors against the
// largest net creditors. Ties break on user ID so the output is
// deterministic. Edges below one cent are dropped.
func SimplifyDebts(debts map[string]map[string]decimal.Decimal) []DebtEdge {
	net := make(map[string]decimal.Decimal)
	for from, row := range debts {
		for to, amt := range row {
			net[from] = amount(net, from).Sub(amt)
			net[to] = amount(net, to).Add(amt)
		}
	}

	type position struct {
		userID string
		amount decimal.Decimal // always positive
	}
	var debtors, creditors []position
	for id, n := range net {
		switch {
		case n.IsNegative():
			debtors = append(debtors, position{id, n.Neg()})
		case n.IsPositive():
			creditors = append(creditors, position{id, n})
		}
	}
	byLargest := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if !ps[i].amount.Equal(ps[j].amount) {
				return ps[i].amount.GreaterThan(ps[j].amount)
			}
			return ps[i].userID < ps[j].userID
		}
	}
	sort.Slice(debtors, byLargest(debtors))
	sort.Slice(creditors, byLargest(creditors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		transfer := debtors[i].amount
		if creditors[j].amount.LessThan(transfer) {
			transfer = creditors[j].amount
		}
		if transfer.GreaterThanOrEqual(oneCent) {
			edges = append(edges, DebtEdge{
				FromUserID: debtors[i].userID,
				ToUserID:   creditors[j].userID,
				Amount:     transfer,
			})
		}
		debtors[i].amount = debtors[i].amount.Sub(transfer)
		creditors[j].amount = creditors[j].amount.Sub(transfer)
		if debtors[i].amount.LessThan(oneCent) {
			i++
		}
		if creditors[j].amount.LessThan(oneCent) {
			j++
		}
	}
	return edges
}

func amount(m map[string]decimal.Decimal, key string) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return decimal.Zero
}
