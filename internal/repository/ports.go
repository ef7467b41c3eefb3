// Package repository declares the persistence ports implemented by the
// SQL storage layer and the in-memory store.
//
// Every read and write is scoped to an owner: a record that exists but
// belongs to someone else is reported as core.ErrNotFound.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

type (
	UserRepository interface {
		// CreateUser returns core.ErrDuplicate when the email is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUserName(ctx context.Context, id int64, name string) (core.User, error)
		UpdatePasswordHash(ctx context.Context, id int64, hash string) error
		// DeleteUser removes the user with all of their expenses and budgets.
		DeleteUser(ctx context.Context, id int64) error
	}

	ExpenseRepository interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// ListExpenses returns every expense of the owner, newest date first.
		ListExpenses(ctx context.Context, ownerID int64) ([]core.Expense, error)
		GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error)
		// UpdateExpense replaces all mutable fields of e, matched by e.ID and e.OwnerID.
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, ownerID, id int64) error
	}

	BudgetRepository interface {
		// CreateBudget returns core.ErrDuplicate when the owner already has a
		// budget for the same category and month.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		// ListBudgets returns the owner's budgets ordered by category; a nil
		// period means every month.
		ListBudgets(ctx context.Context, ownerID int64, period *core.Period) ([]core.Budget, error)
		GetBudget(ctx context.Context, ownerID, id int64) (core.Budget, error)
		FindBudget(ctx context.Context, ownerID int64, category core.Category, period core.Period) (core.Budget, error)
		UpdateBudgetAmount(ctx context.Context, ownerID, id int64, amount decimal.Decimal) (core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id int64) error
	}

	// Store is the full persistence surface used by the server.
	Store interface {
		UserRepository
		ExpenseRepository
		BudgetRepository
		Ping(ctx context.Context) error
		Close() error
	}
)
