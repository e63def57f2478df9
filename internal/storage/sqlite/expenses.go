package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"groupledger/internal/models"
	"groupledger/internal/storage"
)

// CreateExpense persists a new expense and its allocations in a single
// transaction. A partially written expense is never observable.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, category, frequency, paid_by_user_id, split_type, settled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.Amount.String(),
		expense.Category, expense.Frequency, expense.PaidByUserID, string(expense.SplitType),
		boolToInt(expense.Settled), expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertAllocations(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including all allocations.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount string
	var settled int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, description, amount, category, frequency, paid_by_user_id, split_type, settled, created_at, updated_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.Description, &amount,
		&expense.Category, &expense.Frequency, &expense.PaidByUserID,
		(*string)(&expense.SplitType), &settled, &expense.CreatedAt, &expense.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expense.Amount, err = parseDecimal(amount)
	if err != nil {
		return nil, err
	}
	expense.Settled = settled != 0

	expense.Allocations, err = s.loadAllocations(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// UpdateExpense replaces an expense and its allocations atomically.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateExpenseTx(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateExpenseWithSettlement replaces the expense and appends the
// settlement audit row in one transaction, so a settled allocation can
// never be persisted without its audit record.
func (s *SQLiteStore) UpdateExpenseWithSettlement(ctx context.Context, expense *models.Expense, settlement *models.Settlement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateExpenseTx(ctx, tx, expense); err != nil {
		return err
	}
	if err := insertSettlement(ctx, tx, settlement); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func updateExpenseTx(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, category = ?, frequency = ?, paid_by_user_id = ?, split_type = ?, settled = ?, updated_at = ?
		 WHERE id = ?`,
		expense.Description, expense.Amount.String(), expense.Category, expense.Frequency,
		expense.PaidByUserID, string(expense.SplitType), boolToInt(expense.Settled),
		expense.UpdatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM allocations WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	return insertAllocations(ctx, tx, expense)
}

// DeleteExpense removes an expense; its allocations cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// ListExpensesByGroup retrieves all expenses for a group, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, description, amount, category, frequency, paid_by_user_id, split_type, settled, created_at, updated_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var amount string
		var settled int
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.Description, &amount,
			&expense.Category, &expense.Frequency, &expense.PaidByUserID,
			(*string)(&expense.SplitType), &settled, &expense.CreatedAt, &expense.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.Amount, err = parseDecimal(amount)
		if err != nil {
			return nil, err
		}
		expense.Settled = settled != 0
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		expense.Allocations, err = s.loadAllocations(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func insertAllocations(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i := range expense.Allocations {
		a := &expense.Allocations[i]

		var percentage any
		if a.Percentage != nil {
			percentage = a.Percentage.String()
		}
		var shares any
		if a.Shares != nil {
			shares = *a.Shares
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO allocations (expense_id, user_id, amount, percentage, shares, status, paid_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, a.UserID, a.Amount.String(), percentage, shares, string(a.Status), a.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadAllocations(ctx context.Context, expenseID string) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, amount, percentage, shares, status, paid_at
		 FROM allocations WHERE expense_id = ? ORDER BY user_id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	defer rows.Close()

	var allocations []models.Allocation
	for rows.Next() {
		var a models.Allocation
		var amount string
		var percentage sql.NullString
		var shares sql.NullInt64
		if err := rows.Scan(&a.UserID, &amount, &percentage, &shares, (*string)(&a.Status), &a.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.Amount, err = parseDecimal(amount)
		if err != nil {
			return nil, err
		}
		if percentage.Valid {
			pct, err := parseDecimal(percentage.String)
			if err != nil {
				return nil, err
			}
			a.Percentage = &pct
		}
		if shares.Valid {
			v := shares.Int64
			a.Shares = &v
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocations, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
