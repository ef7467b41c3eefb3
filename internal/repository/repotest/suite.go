// Package repotest holds the behavioural contract shared by every
// repository.Store implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"spendwise/internal/core"
	"spendwise/internal/repository"
)

// StoreSuite runs the contract against a fresh store per test.
type StoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) repository.Store

	store repository.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) createUser(email string) core.User {
	u, err := s.store.CreateUser(s.ctx, core.User{Email: email, Name: "Test", PasswordHash: "hash"})
	s.Require().NoError(err)
	s.Require().NotZero(u.ID)
	return u
}

func (s *StoreSuite) createExpense(owner int64, title, amount string, cat core.Category, date core.Date) core.Expense {
	e, err := s.store.CreateExpense(s.ctx, core.Expense{
		OwnerID:  owner,
		Title:    title,
		Amount:   decimal.RequireFromString(amount),
		Category: cat,
		Date:     date,
	})
	s.Require().NoError(err)
	return e
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *StoreSuite) TestUsers() {
	u := s.createUser("ada@example.com")
	s.False(u.CreatedAt.IsZero())

	_, err := s.store.CreateUser(s.ctx, core.User{Email: "ada@example.com", Name: "Other", PasswordHash: "x"})
	s.ErrorIs(err, core.ErrDuplicate)

	got, err := s.store.GetUserByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.store.GetUserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, core.ErrNotFound)

	renamed, err := s.store.UpdateUserName(s.ctx, u.ID, "Ada Lovelace")
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", renamed.Name)

	s.Require().NoError(s.store.UpdatePasswordHash(s.ctx, u.ID, "new-hash"))
	got, err = s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("new-hash", got.PasswordHash)

	s.ErrorIs(s.store.UpdatePasswordHash(s.ctx, 9999, "x"), core.ErrNotFound)
}

func (s *StoreSuite) TestExpensesAreOrderedAndOwned() {
	alice := s.createUser("alice@example.com")
	bob := s.createUser("bob@example.com")

	s.createExpense(alice.ID, "Old", "1.00", core.Food, core.NewDate(2024, 1, 5))
	newest := s.createExpense(alice.ID, "New", "2.50", core.Transport, core.NewDate(2024, 3, 20))
	s.createExpense(alice.ID, "Mid", "3.10", core.Other, core.NewDate(2024, 2, 11))
	s.createExpense(bob.ID, "Bob's", "9.99", core.Food, core.NewDate(2024, 3, 1))

	list, err := s.store.ListExpenses(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]string{"New", "Mid", "Old"}, []string{list[0].Title, list[1].Title, list[2].Title})
	s.Equal("2.50", list[0].Amount.StringFixed(2))
	s.Equal("2024-03-20", list[0].Date.String())
	s.Equal(core.Transport, list[0].Category)

	_, err = s.store.GetExpense(s.ctx, bob.ID, newest.ID)
	s.ErrorIs(err, core.ErrNotFound, "other owners cannot read")

	empty, err := s.store.ListExpenses(s.ctx, 4242)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)
}

func (s *StoreSuite) TestExpenseUpdateAndDelete() {
	alice := s.createUser("alice@example.com")
	bob := s.createUser("bob@example.com")
	e := s.createExpense(alice.ID, "Taxi", "12.00", core.Transport, core.NewDate(2024, 3, 2))

	e.Title = "Train"
	e.Amount = decimal.RequireFromString("8.40")
	e.Category = core.Transport
	e.Date = core.NewDate(2024, 3, 3)
	e.Description = "commute"
	updated, err := s.store.UpdateExpense(s.ctx, e)
	s.Require().NoError(err)
	s.Equal("Train", updated.Title)
	s.Equal("8.40", updated.Amount.StringFixed(2))
	s.Equal("2024-03-03", updated.Date.String())
	s.Equal("commute", updated.Description)
	s.Equal(e.CreatedAt.Unix(), updated.CreatedAt.Unix())

	stolen := e
	stolen.OwnerID = bob.ID
	_, err = s.store.UpdateExpense(s.ctx, stolen)
	s.ErrorIs(err, core.ErrNotFound)

	s.ErrorIs(s.store.DeleteExpense(s.ctx, bob.ID, e.ID), core.ErrNotFound)
	s.Require().NoError(s.store.DeleteExpense(s.ctx, alice.ID, e.ID))
	s.ErrorIs(s.store.DeleteExpense(s.ctx, alice.ID, e.ID), core.ErrNotFound)
}

func (s *StoreSuite) TestBudgets() {
	alice := s.createUser("alice@example.com")
	march := core.Period{Year: 2024, Month: 3}

	food, err := s.store.CreateBudget(s.ctx, core.Budget{OwnerID: alice.ID, Category: core.Food, Amount: decimal.NewFromInt(400), Month: 3, Year: 2024})
	s.Require().NoError(err)
	_, err = s.store.CreateBudget(s.ctx, core.Budget{OwnerID: alice.ID, Category: core.Entertainment, Amount: decimal.NewFromInt(100), Month: 3, Year: 2024})
	s.Require().NoError(err)
	_, err = s.store.CreateBudget(s.ctx, core.Budget{OwnerID: alice.ID, Category: core.Food, Amount: decimal.NewFromInt(350), Month: 2, Year: 2024})
	s.Require().NoError(err)

	_, err = s.store.CreateBudget(s.ctx, core.Budget{OwnerID: alice.ID, Category: core.Food, Amount: decimal.NewFromInt(1), Month: 3, Year: 2024})
	s.ErrorIs(err, core.ErrDuplicate)

	inMarch, err := s.store.ListBudgets(s.ctx, alice.ID, &march)
	s.Require().NoError(err)
	s.Require().Len(inMarch, 2)
	s.Equal(core.Entertainment, inMarch[0].Category, "ordered by category")
	s.Equal(core.Food, inMarch[1].Category)

	all, err := s.store.ListBudgets(s.ctx, alice.ID, nil)
	s.Require().NoError(err)
	s.Len(all, 3)

	found, err := s.store.FindBudget(s.ctx, alice.ID, core.Food, march)
	s.Require().NoError(err)
	s.Equal(food.ID, found.ID)
	_, err = s.store.FindBudget(s.ctx, alice.ID, core.Healthcare, march)
	s.ErrorIs(err, core.ErrNotFound)

	updated, err := s.store.UpdateBudgetAmount(s.ctx, alice.ID, food.ID, decimal.RequireFromString("450.5"))
	s.Require().NoError(err)
	s.Equal("450.50", updated.Amount.StringFixed(2))
	s.Equal(3, updated.Month)

	_, err = s.store.UpdateBudgetAmount(s.ctx, alice.ID+1, food.ID, decimal.NewFromInt(1))
	s.ErrorIs(err, core.ErrNotFound)

	s.Require().NoError(s.store.DeleteBudget(s.ctx, alice.ID, food.ID))
	_, err = s.store.GetBudget(s.ctx, alice.ID, food.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestDeleteUserCascades() {
	alice := s.createUser("alice@example.com")
	bob := s.createUser("bob@example.com")
	s.createExpense(alice.ID, "Lunch", "10.00", core.Food, core.NewDate(2024, 3, 1))
	s.createExpense(bob.ID, "Dinner", "20.00", core.Food, core.NewDate(2024, 3, 1))
	_, err := s.store.CreateBudget(s.ctx, core.Budget{OwnerID: alice.ID, Category: core.Food, Amount: decimal.NewFromInt(100), Month: 3, Year: 2024})
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteUser(s.ctx, alice.ID))

	_, err = s.store.GetUser(s.ctx, alice.ID)
	s.ErrorIs(err, core.ErrNotFound)
	expenses, err := s.store.ListExpenses(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Empty(expenses)
	budgets, err := s.store.ListBudgets(s.ctx, alice.ID, nil)
	s.Require().NoError(err)
	s.Empty(budgets)

	bobs, err := s.store.ListExpenses(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Len(bobs, 1, "other users are untouched")

	s.ErrorIs(s.store.DeleteUser(s.ctx, alice.ID), core.ErrNotFound)
}

func (s *StoreSuite) TestExpenseTimestamps() {
	alice := s.createUser("alice@example.com")
	e := s.createExpense(alice.ID, "Coffee", "3.20", core.Food, core.NewDate(2024, 3, 1))
	got, err := s.store.GetExpense(s.ctx, alice.ID, e.ID)
	s.Require().NoError(err)
	s.WithinDuration(e.CreatedAt, got.CreatedAt, time.Second)
}
