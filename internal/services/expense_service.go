package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/repository"
)

// ExpenseInput carries the client supplied fields of an expense.
type ExpenseInput struct {
	Title       string
	Amount      decimal.Decimal
	Category    core.Category
	Date        core.Date
	Description string
}

// ExpenseService validates and stores expenses, then announces the write
type ExpenseService struct {
	expenses repository.ExpenseRepository
	events   events
	sl       *applog.StructuredLogger
}

// NewExpenseService wires the repository and an optional publisher (nil disables events).
func NewExpenseService(expenses repository.ExpenseRepository, pub EventPublisher, logger *applog.Logger) *ExpenseService {
	logger = logger.WithComponent(applog.ComponentExpense)
	return &ExpenseService{
		expenses: expenses,
		events:   events{pub: pub, logger: logger},
		sl:       applog.NewStructuredLogger(logger),
	}
}

func (s *ExpenseService) List(ctx context.Context, ownerID int64) ([]core.Expense, error) {
	list, err := s.expenses.ListExpenses(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// Create stores a new expense for ownerID.
func (s *ExpenseService) Create(ctx context.Context, ownerID int64, in ExpenseInput) (core.Expense, error) {
	e := core.Expense{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		s.logFailure(ctx, "Failed to create expense", err, applog.OpCreate, ownerID)
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logWrite(ctx, applog.OpCreate, created)
	s.events.publish(ctx, amqp.ExpenseCreated, ownerID, core.PeriodOf(created.Date.Time))
	return created, nil
}

// Update replaces the expense's fields. A blank title keeps the stored one.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id int64, in ExpenseInput) (core.Expense, error) {
	current, err := s.expenses.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		ID:          id,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
	}
	if e.Title == "" {
		e.Title = current.Title
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.expenses.UpdateExpense(ctx, e)
	if err != nil {
		s.logFailure(ctx, "Failed to update expense", err, applog.OpUpdate, ownerID)
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logWrite(ctx, applog.OpUpdate, updated)
	before, after := core.PeriodOf(current.Date.Time), core.PeriodOf(updated.Date.Time)
	s.events.publish(ctx, amqp.ExpenseUpdated, ownerID, after)
	if before != after {
		s.events.publish(ctx, amqp.ExpenseUpdated, ownerID, before)
	}
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, ownerID, id int64) error {
	current, err := s.expenses.GetExpense(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.expenses.DeleteExpense(ctx, ownerID, id); err != nil {
		s.logFailure(ctx, "Failed to delete expense", err, applog.OpDelete, ownerID)
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logWrite(ctx, applog.OpDelete, current)
	s.events.publish(ctx, amqp.ExpenseDeleted, ownerID, core.PeriodOf(current.Date.Time))
	return nil
}

func (s *ExpenseService) logWrite(ctx context.Context, op string, e core.Expense) {
	s.sl.LogLedgerWrite(ctx, applog.ComponentExpense, op,
		applog.NewFields().WithOwner(e.OwnerID).WithExpense(e.ID, string(e.Category), core.FormatAmount(e.Amount)))
}

func (s *ExpenseService) logFailure(ctx context.Context, msg string, err error, op string, ownerID int64) {
	s.sl.LogError(ctx, msg, err, applog.ComponentExpense, op,
		applog.NewFields().WithOwner(ownerID).WithErrorType(applog.ErrorTypeDatabase))
}
