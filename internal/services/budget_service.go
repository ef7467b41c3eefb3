package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/repository"
)

// BudgetService manages per-category monthly limits.
type BudgetService struct {
	budgets repository.BudgetRepository
	events  events
	sl      *applog.StructuredLogger
}

func NewBudgetService(budgets repository.BudgetRepository, pub EventPublisher, logger *applog.Logger) *BudgetService {
	logger = logger.WithComponent(applog.ComponentBudget)
	return &BudgetService{
		budgets: budgets,
		events:  events{pub: pub, logger: logger},
		sl:      applog.NewStructuredLogger(logger),
	}
}

// List returns the owner's budgets, restricted to one month when period is set.
func (s *BudgetService) List(ctx context.Context, ownerID int64, period *core.Period) ([]core.Budget, error) {
	list, err := s.budgets.ListBudgets(ctx, ownerID, period)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return list, nil
}

// Create adds a budget. A second budget for the same category and month
// yields core.ErrDuplicate.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	_, err := s.budgets.FindBudget(ctx, b.OwnerID, b.Category, b.Period())
	switch {
	case err == nil:
		return core.Budget{}, fmt.Errorf("budget %s %s: %w", b.Category, b.Period(), core.ErrDuplicate)
	case !errors.Is(err, core.ErrNotFound):
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}

	created, err := s.budgets.CreateBudget(ctx, b)
	if err != nil {
		if !errors.Is(err, core.ErrDuplicate) {
			s.logFailure(ctx, "Failed to create budget", err, applog.OpCreate, b.OwnerID)
		}
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	s.logWrite(ctx, applog.OpCreate, created)
	s.events.publish(ctx, amqp.BudgetCreated, created.OwnerID, created.Period())
	return created, nil
}

// UpdateAmount changes only the limit of an existing budget.
func (s *BudgetService) UpdateAmount(ctx context.Context, ownerID, id int64, amount decimal.Decimal) (core.Budget, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Budget{}, err
	}

	updated, err := s.budgets.UpdateBudgetAmount(ctx, ownerID, id, amount)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logFailure(ctx, "Failed to update budget", err, applog.OpUpdate, ownerID)
		}
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}

	s.logWrite(ctx, applog.OpUpdate, updated)
	s.events.publish(ctx, amqp.BudgetUpdated, ownerID, updated.Period())
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id int64) error {
	current, err := s.budgets.GetBudget(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.budgets.DeleteBudget(ctx, ownerID, id); err != nil {
		s.logFailure(ctx, "Failed to delete budget", err, applog.OpDelete, ownerID)
		return fmt.Errorf("delete budget: %w", err)
	}

	s.logWrite(ctx, applog.OpDelete, current)
	s.events.publish(ctx, amqp.BudgetDeleted, ownerID, current.Period())
	return nil
}

func (s *BudgetService) logWrite(ctx context.Context, op string, b core.Budget) {
	s.sl.LogLedgerWrite(ctx, applog.ComponentBudget, op,
		applog.NewFields().WithOwner(b.OwnerID).WithBudget(b.ID, string(b.Category), b.Year, b.Month))
}

func (s *BudgetService) logFailure(ctx context.Context, msg string, err error, op string, ownerID int64) {
	s.sl.LogError(ctx, msg, err, applog.ComponentBudget, op,
		applog.NewFields().WithOwner(ownerID).WithErrorType(applog.ErrorTypeDatabase))
}
