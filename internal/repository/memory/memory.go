// Package memory is a process-local repository.Store used for tests and
// for running the server without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	users    map[int64]core.User
	expenses map[int64]core.Expense
	budgets  map[int64]core.Budget
}

func New() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[int64]core.User),
		expenses: make(map[int64]core.Expense),
		budgets:  make(map[int64]core.Budget),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrDuplicate
		}
	}
	u.ID = s.id()
	u.CreatedAt = s.now().UTC()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (s *Store) UpdateUserName(_ context.Context, id int64, name string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("update user name: %w", core.ErrNotFound)
	}
	u.Name = name
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return u, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("delete user %d: %w", id, core.ErrNotFound)
	}
	for eid, e := range s.expenses {
		if e.OwnerID == id {
			delete(s.expenses, eid)
		}
	}
	for bid, b := range s.budgets {
		if b.OwnerID == id {
			delete(s.budgets, bid)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.Amount = e.Amount.Round(2)
	e.CreatedAt = s.now().UTC()
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, ownerID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, ownerID, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.expenses[e.ID]
	if !ok || current.OwnerID != e.OwnerID {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, core.ErrNotFound)
	}
	current.Title = e.Title
	current.Amount = e.Amount.Round(2)
	current.Category = e.Category
	current.Date = e.Date
	current.Description = e.Description
	s.expenses[e.ID] = current
	return current, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.budgets {
		if existing.OwnerID == b.OwnerID && existing.Category == b.Category && existing.Period() == b.Period() {
			return core.Budget{}, core.ErrDuplicate
		}
	}
	b.ID = s.id()
	b.Amount = b.Amount.Round(2)
	b.CreatedAt = s.now().UTC()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID int64, period *core.Period) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.OwnerID != ownerID || (period != nil && b.Period() != *period) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, ownerID, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) FindBudget(_ context.Context, ownerID int64, category core.Category, period core.Period) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.OwnerID == ownerID && b.Category == category && b.Period() == period {
			return b, nil
		}
	}
	return core.Budget{}, fmt.Errorf("find budget: %w", core.ErrNotFound)
}

func (s *Store) UpdateBudgetAmount(_ context.Context, ownerID, id int64, amount decimal.Decimal) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", id, core.ErrNotFound)
	}
	b.Amount = amount.Round(2)
	s.budgets[id] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return fmt.Errorf("delete budget %d: %w", id, core.ErrNotFound)
	}
	delete(s.budgets, id)
	return nil
}
