package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"groupledger/internal/ledger"
	"groupledger/internal/models"
	"groupledger/internal/storage"
)

// ExpenseInput carries the caller-supplied fields for a new expense.
type ExpenseInput struct {
	GroupID      string
	Description  string
	Amount       decimal.Decimal
	Category     string
	Frequency    string
	PaidByUserID string
	Split        ledger.SplitSpec
}

// ExpenseUpdate carries the fields an expense update may change. Nil
// pointers leave the stored value untouched. Changing Amount requires
// Split to be resupplied so the allocations are rederived; supplying
// Split alone re-splits against the stored amount. Either way the
// payment state of all allocations resets to unpaid.
type ExpenseUpdate struct {
	Description  *string
	Category     *string
	Frequency    *string
	Amount       *decimal.Decimal
	PaidByUserID *string
	Split        ledger.SplitSpec
}

// GroupBalances is the full balance picture for one group.
type GroupBalances struct {
	Members []ledger.MemberBalance `json:"members"`

	// Debts is the pairwise debt matrix flattened to directional edges.
	Debts []ledger.DebtEdge `json:"debts"`

	// Suggested is the simplified transfer plan that clears all debts
	// with the fewest payments.
	Suggested []ledger.DebtEdge `json:"suggested"`
}

// GroupLedgerService manages the expense lifecycle within groups:
// creation, updates, settlement, and balance queries.
type GroupLedgerService struct {
	store        storage.Store
	locks        *keyedMutex
	storeTimeout time.Duration
}

// NewGroupLedgerService creates a ledger service backed by the given store.
func NewGroupLedgerService(store storage.Store) *GroupLedgerService {
	return &GroupLedgerService{
		store:        store,
		locks:        newKeyedMutex(),
		storeTimeout: defaultStoreTimeout,
	}
}

// CreateExpense validates the split against the group's membership,
// derives the allocations, and persists the expense atomically.
func (s *GroupLedgerService) CreateExpense(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error) {
	slog.Info("CreateExpense request received", "group_id", in.GroupID, "user_id", userID, "amount", in.Amount)

	group, err := s.getGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, ErrNotGroupMember
	}

	paidBy := in.PaidByUserID
	if paidBy == "" {
		paidBy = userID
	}
	if !group.IsMember(paidBy) {
		return nil, fmt.Errorf("payer %s: %w", paidBy, ErrNotGroupMember)
	}

	allocs, err := ledger.Allocate(in.Amount, in.Split)
	if err != nil {
		return nil, err
	}
	for i := range allocs {
		if !group.IsMember(allocs[i].UserID) {
			return nil, fmt.Errorf("participant %s: %w", allocs[i].UserID, ErrNotGroupMember)
		}
	}

	now := time.Now()
	expense := &models.Expense{
		ID:           uuid.NewString(),
		GroupID:      in.GroupID,
		Description:  in.Description,
		Amount:       in.Amount,
		Category:     in.Category,
		Frequency:    in.Frequency,
		PaidByUserID: paidBy,
		SplitType:    in.Split.Type(),
		Allocations:  allocs,
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if err := storeErr(s.store.CreateExpense(opCtx, expense)); err != nil {
		slog.Error("CreateExpense failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	slog.Info("Expense created", "expense_id", expense.ID, "group_id", expense.GroupID)
	return expense, nil
}

// GetExpense retrieves an expense visible to the caller.
func (s *GroupLedgerService) GetExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, expense.GroupID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListGroupExpenses retrieves every expense in a group, newest first.
func (s *GroupLedgerService) ListGroupExpenses(ctx context.Context, userID, groupID string) ([]*models.Expense, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	expenses, err := s.store.ListExpensesByGroup(opCtx, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	return expenses, nil
}

// UpdateExpense applies a partial update. When the amount or the split
// changes, the allocations are rederived and all payment state resets,
// so a settled expense reopens. The update is serialized against
// concurrent settlements of the same expense.
func (s *GroupLedgerService) UpdateExpense(ctx context.Context, userID, expenseID string, in ExpenseUpdate) (*models.Expense, error) {
	slog.Info("UpdateExpense request received", "expense_id", expenseID, "user_id", userID)

	unlock := s.locks.Lock(expenseID)
	defer unlock()

	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	group, err := s.getGroup(ctx, expense.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, ErrNotGroupMember
	}

	if in.Description != nil {
		expense.Description = *in.Description
	}
	if in.Category != nil {
		expense.Category = *in.Category
	}
	if in.Frequency != nil {
		expense.Frequency = *in.Frequency
	}
	if in.PaidByUserID != nil {
		if !group.IsMember(*in.PaidByUserID) {
			return nil, fmt.Errorf("payer %s: %w", *in.PaidByUserID, ErrNotGroupMember)
		}
		expense.PaidByUserID = *in.PaidByUserID
	}

	amountChanged := in.Amount != nil && !in.Amount.Equal(expense.Amount)
	if amountChanged && in.Split == nil {
		return nil, ErrSplitRequired
	}
	if in.Amount != nil {
		expense.Amount = *in.Amount
	}
	if in.Split != nil {
		allocs, err := ledger.Allocate(expense.Amount, in.Split)
		if err != nil {
			return nil, err
		}
		for i := range allocs {
			if !group.IsMember(allocs[i].UserID) {
				return nil, fmt.Errorf("participant %s: %w", allocs[i].UserID, ErrNotGroupMember)
			}
		}
		expense.SplitType = in.Split.Type()
		expense.Allocations = allocs
		expense.Settled = false
	}
	expense.UpdatedAt = time.Now().Unix()

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if err := storeErr(s.store.UpdateExpense(opCtx, expense)); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expenseID, "error", err)
		return nil, err
	}

	slog.Info("Expense updated", "expense_id", expense.ID)
	return expense, nil
}

// DeleteExpense removes an expense. Only the payer or a group manager
// may delete.
func (s *GroupLedgerService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	slog.Info("DeleteExpense request received", "expense_id", expenseID, "user_id", userID)

	unlock := s.locks.Lock(expenseID)
	defer unlock()

	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	group, err := s.getGroup(ctx, expense.GroupID)
	if err != nil {
		return err
	}
	if !group.IsMember(userID) {
		return ErrNotGroupMember
	}
	if userID != expense.PaidByUserID && !group.CanManage(userID) {
		return ErrPermissionDenied
	}

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if err := storeErr(s.store.DeleteExpense(opCtx, expenseID)); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expenseID, "error", err)
		return err
	}

	slog.Info("Expense deleted", "expense_id", expenseID)
	return nil
}

// SettleExpense marks the debtor's allocation paid, records a
// settlement audit entry, and finalizes the expense once every
// allocation is paid. A zero amount settles the full allocation; a
// non-zero amount must match the allocation exactly, partial payments
// are not supported. Settling an allocation that is already paid is a
// no-op. The payer closing their own share is not a transfer between
// members, so it records no audit row. The whole sequence holds the
// per-expense lock so concurrent settlements of the same expense cannot
// race the finalization check, and the expense and its audit row are
// persisted in a single store transaction.
func (s *GroupLedgerService) SettleExpense(ctx context.Context, callerID, expenseID, debtorID string, amount decimal.Decimal, note string) (*models.Expense, error) {
	slog.Info("SettleExpense request received", "expense_id", expenseID, "caller_id", callerID, "debtor_id", debtorID)

	unlock := s.locks.Lock(expenseID)
	defer unlock()

	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	group, err := s.getGroup(ctx, expense.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(callerID) {
		return nil, ErrNotGroupMember
	}

	if debtorID == "" {
		debtorID = callerID
	}
	if debtorID != callerID && !group.CanManage(callerID) {
		return nil, ErrPermissionDenied
	}

	alloc := expense.AllocationFor(debtorID)
	if alloc == nil {
		return nil, ledger.ErrAllocationNotFound
	}
	if !amount.IsZero() && !amount.Equal(alloc.Amount) {
		return nil, &ledger.ValidationError{
			Code:   ledger.SumMismatch,
			Reason: fmt.Sprintf("settlement amount %s does not match allocation %s", amount, alloc.Amount),
		}
	}

	now := time.Now()
	changed, err := ledger.MarkPaid(expense, debtorID, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		slog.Info("SettleExpense no-op, allocation already paid", "expense_id", expenseID, "debtor_id", debtorID)
		return expense, nil
	}
	if expense.AllPaid() {
		if err := ledger.Settle(expense, now); err != nil {
			return nil, err
		}
	}

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if debtorID == expense.PaidByUserID {
		if err := storeErr(s.store.UpdateExpense(opCtx, expense)); err != nil {
			slog.Error("SettleExpense failed to persist expense", "expense_id", expenseID, "error", err)
			return nil, err
		}
	} else {
		settlement := &models.Settlement{
			ID:         uuid.NewString(),
			GroupID:    expense.GroupID,
			ExpenseID:  expense.ID,
			FromUserID: debtorID,
			ToUserID:   expense.PaidByUserID,
			Amount:     alloc.Amount,
			CreatedAt:  now.Unix(),
			CreatedBy:  callerID,
			Note:       note,
		}
		if err := storeErr(s.store.UpdateExpenseWithSettlement(opCtx, expense, settlement)); err != nil {
			slog.Error("SettleExpense failed to persist settlement", "expense_id", expenseID, "error", err)
			return nil, err
		}
	}

	slog.Info("Allocation settled",
		"expense_id", expense.ID,
		"debtor_id", debtorID,
		"amount", alloc.Amount,
		"expense_settled", expense.Settled,
	)
	return expense, nil
}

// GetUserOwedAmount returns the total other members still owe userID
// across the group's unsettled allocations.
func (s *GroupLedgerService) GetUserOwedAmount(ctx context.Context, callerID, groupID, userID string) (decimal.Decimal, error) {
	expenses, err := s.groupExpensesFor(ctx, callerID, groupID, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.UserOwedAmount(expenses, userID), nil
}

// GetUserOwesAmount returns the total userID still owes other members
// across the group's unsettled allocations.
func (s *GroupLedgerService) GetUserOwesAmount(ctx context.Context, callerID, groupID, userID string) (decimal.Decimal, error) {
	expenses, err := s.groupExpensesFor(ctx, callerID, groupID, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.UserOwesAmount(expenses, userID), nil
}

// GetGroupBalances computes per-member balances, the pairwise debt
// matrix, and a simplified transfer plan from the group's expense
// history.
func (s *GroupLedgerService) GetGroupBalances(ctx context.Context, callerID, groupID string) (*GroupBalances, error) {
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	expenses, err := s.store.ListExpensesByGroup(opCtx, groupID)
	if err != nil {
		return nil, storeErr(err)
	}

	matrix := ledger.DebtMatrix(expenses)
	balances := &GroupBalances{
		Members:   ledger.MemberBalances(expenses),
		Debts:     flattenDebts(matrix),
		Suggested: ledger.SimplifyDebts(matrix),
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"members_count", len(balances.Members),
		"debts_count", len(balances.Debts),
	)
	return balances, nil
}

// ListSettlements retrieves the group's settlement history, newest first.
func (s *GroupLedgerService) ListSettlements(ctx context.Context, callerID, groupID string) ([]*models.Settlement, error) {
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	settlements, err := s.store.ListSettlementsByGroup(opCtx, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	return settlements, nil
}

func (s *GroupLedgerService) groupExpensesFor(ctx context.Context, callerID, groupID, userID string) ([]*models.Expense, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(callerID) {
		return nil, ErrNotGroupMember
	}
	if !group.IsMember(userID) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotGroupMember)
	}
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	expenses, err := s.store.ListExpensesByGroup(opCtx, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	return expenses, nil
}

func (s *GroupLedgerService) requireMember(ctx context.Context, groupID, userID string) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsMember(userID) {
		return ErrNotGroupMember
	}
	return nil
}

func (s *GroupLedgerService) getGroup(ctx context.Context, groupID string) (*models.Group, error) {
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	group, err := s.store.GetGroup(opCtx, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	return group, nil
}

func (s *GroupLedgerService) getExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	expense, err := s.store.GetExpense(opCtx, expenseID)
	if err != nil {
		return nil, storeErr(err)
	}
	return expense, nil
}

// flattenDebts converts the debt matrix into a deterministic edge list,
// sorted by debtor then creditor.
func flattenDebts(matrix map[string]map[string]decimal.Decimal) []ledger.DebtEdge {
	var edges []ledger.DebtEdge
	for from, row := range matrix {
		for to, amt := range row {
			edges = append(edges, ledger.DebtEdge{FromUserID: from, ToUserID: to, Amount: amt})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromUserID != edges[j].FromUserID {
			return edges[i].FromUserID < edges[j].FromUserID
		}
		return edges[i].ToUserID < edges[j].ToUserID
	})
	return edges
}
