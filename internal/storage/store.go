// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"groupledger/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrTimeout is returned when a store operation exceeded its deadline.
// Callers may retry with backoff; the engine itself never retries, to
// avoid duplicate writes.
var ErrTimeout = errors.New("store operation timed out")

// Store defines the interface for ledger storage operations. This
// abstraction allows swapping storage backends (SQLite, an in-memory
// store, a remote service) without changing the service layer.
//
// An expense and its allocations are the unit of atomicity: a store
// must never expose an expense without its allocations.
type Store interface {
	// CreateExpense persists a new expense together with all of its
	// allocations in a single transaction. The expense ID is populated
	// if unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense and its allocations by ID.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// UpdateExpense replaces the expense and its allocations atomically.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// UpdateExpenseWithSettlement replaces the expense and appends the
	// settlement audit row in the same transaction. Either both writes
	// are visible or neither is, so a paid allocation is never persisted
	// without its audit record.
	UpdateExpenseWithSettlement(ctx context.Context, expense *models.Expense, settlement *models.Settlement) error

	// DeleteExpense removes the expense and its allocations.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup retrieves every expense in a group, newest
	// first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// CreateGroup persists a new group with its initial members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group and its membership by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// UpdateGroup replaces the group record and its membership.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes the group and its membership records.
	DeleteGroup(ctx context.Context, groupID string) error

	// ListGroupsByMember retrieves every group the user belongs to.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateSettlement appends a settlement audit record.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsByGroup retrieves a group's settlement history,
	// newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}
