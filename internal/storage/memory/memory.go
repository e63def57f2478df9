// Package memory provides an in-memory implementation of storage.Store,
// used in tests and for local development without a database file.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"groupledger/internal/models"
	"groupledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store with mutex-guarded maps. Records are
// deep-copied on both read and write so callers never share memory with
// the store's internal state.
type Store struct {
	mu sync.RWMutex

	expenses    map[string]*models.Expense
	groups      map[string]*models.Group
	users       map[string]*models.User
	settlements map[string]*models.Settlement
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		expenses:    make(map[string]*models.Expense),
		groups:      make(map[string]*models.Group),
		users:       make(map[string]*models.User),
		settlements: make(map[string]*models.Settlement),
	}
}

// Close is a no-op for the in-memory store.
func (m *Store) Close() error { return nil }

// Expense operations

func (m *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	m.expenses[expense.ID] = copyExpense(expense)
	return nil
}

func (m *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	expense, ok := m.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return copyExpense(expense), nil
}

func (m *Store) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expenses[expense.ID]; !ok {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}
	m.expenses[expense.ID] = copyExpense(expense)
	return nil
}

func (m *Store) UpdateExpenseWithSettlement(ctx context.Context, expense *models.Expense, settlement *models.Settlement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expenses[expense.ID]; !ok {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	m.expenses[expense.ID] = copyExpense(expense)
	s := *settlement
	m.settlements[settlement.ID] = &s
	return nil
}

func (m *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expenses[expenseID]; !ok {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	delete(m.expenses, expenseID)
	return nil
}

func (m *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expenses []*models.Expense
	for _, e := range m.expenses {
		if e.GroupID == groupID {
			expenses = append(expenses, copyExpense(e))
		}
	}
	sort.Slice(expenses, func(i, j int) bool {
		if expenses[i].CreatedAt != expenses[j].CreatedAt {
			return expenses[i].CreatedAt > expenses[j].CreatedAt
		}
		return expenses[i].ID < expenses[j].ID
	})
	return expenses, nil
}

// Group operations

func (m *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	m.groups[group.ID] = copyGroup(group)
	return nil
}

func (m *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return copyGroup(group), nil
}

func (m *Store) UpdateGroup(ctx context.Context, group *models.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[group.ID]; !ok {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrNotFound)
	}
	m.groups[group.ID] = copyGroup(group)
	return nil
}

func (m *Store) DeleteGroup(ctx context.Context, groupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[groupID]; !ok {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	delete(m.groups, groupID)
	return nil
}

func (m *Store) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var groups []*models.Group
	for _, g := range m.groups {
		if g.IsMember(userID) {
			groups = append(groups, copyGroup(g))
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt != groups[j].CreatedAt {
			return groups[i].CreatedAt > groups[j].CreatedAt
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

// User operations

func (m *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (m *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

// Settlement operations

func (m *Store) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	s := *settlement
	m.settlements[settlement.ID] = &s
	return nil
}

func (m *Store) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var settlements []*models.Settlement
	for _, s := range m.settlements {
		if s.GroupID == groupID {
			c := *s
			settlements = append(settlements, &c)
		}
	}
	sort.Slice(settlements, func(i, j int) bool {
		if settlements[i].CreatedAt != settlements[j].CreatedAt {
			return settlements[i].CreatedAt > settlements[j].CreatedAt
		}
		return settlements[i].ID < settlements[j].ID
	})
	return settlements, nil
}

func copyExpense(e *models.Expense) *models.Expense {
	c := *e
	c.Allocations = make([]models.Allocation, len(e.Allocations))
	copy(c.Allocations, e.Allocations)
	for i := range c.Allocations {
		if p := c.Allocations[i].Percentage; p != nil {
			v := *p
			c.Allocations[i].Percentage = &v
		}
		if s := c.Allocations[i].Shares; s != nil {
			v := *s
			c.Allocations[i].Shares = &v
		}
	}
	return &c
}

func copyGroup(g *models.Group) *models.Group {
	c := *g
	c.Members = make(map[string]models.Member, len(g.Members))
	for id, m := range g.Members {
		c.Members[id] = m
	}
	return &c
}
