// Package assistant turns an owner's ledger into a grounded system prompt
// and relays one chat turn to the language model.
//
// The pipeline is stateless: every request re-reads the ledger, builds a
// fresh ExpenseContext, renders it and makes exactly one model call.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// RecentLimit caps the recent transactions kept in the context.
const RecentLimit = 10

// ErrDataUnavailable wraps any failure to read the ledger while building a context.
var ErrDataUnavailable = errors.New("financial data unavailable")

// Transaction is the projection of an expense shown to the model.
type Transaction struct {
	Title    string
	Amount   decimal.Decimal
	Category core.Category
	Date     core.Date
}

// BudgetStatus pairs a budget limit with this month's spend in its category.
type BudgetStatus struct {
	Category core.Category
	Amount   decimal.Decimal
	Spent    decimal.Decimal
}

// Status labels how close spending is to the limit.
type Status string

const (
	OnTrack    Status = "On track"
	NearLimit  Status = "Near limit"
	OverBudget Status = "OVER BUDGET"
)

var nearLimitRatio = decimal.RequireFromString("0.8")

// Status is OVER BUDGET above the limit, Near limit from 80% up to and
// including the limit, and On track below 80%.
func (b BudgetStatus) Status() Status {
	switch {
	case b.Spent.GreaterThan(b.Amount):
		return OverBudget
	case b.Spent.GreaterThanOrEqual(b.Amount.Mul(nearLimitRatio)):
		return NearLimit
	default:
		return OnTrack
	}
}

// ExpenseContext is the per-request financial snapshot behind a prompt.
type ExpenseContext struct {
	Period             core.Period
	TotalExpenses      decimal.Decimal
	ThisMonthTotal     decimal.Decimal
	LastMonthTotal     decimal.Decimal
	CategoryBreakdown  map[core.Category]decimal.Decimal
	RecentTransactions []Transaction
	Budgets            []BudgetStatus
}

// MonthOverMonthChange is the percentage change from last month, or zero
// when nothing was spent last month.
func (c ExpenseContext) MonthOverMonthChange() decimal.Decimal {
	if c.LastMonthTotal.IsZero() {
		return decimal.Zero
	}
	return c.ThisMonthTotal.Sub(c.LastMonthTotal).Div(c.LastMonthTotal).Mul(decimal.NewFromInt(100))
}

// Breakdown returns the category totals sorted by category name.
func (c ExpenseContext) Breakdown() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(c.CategoryBreakdown))
	for cat, amount := range c.CategoryBreakdown {
		out = append(out, core.CategoryAmount{Category: cat, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Summarize builds the context for the month containing ref.
// budgets are expected to belong to that month already.
func Summarize(expenses []core.Expense, budgets []core.Budget, ref time.Time) ExpenseContext {
	thisMonth := core.PeriodOf(ref)
	lastMonth := thisMonth.Prev()

	var all, current, previous []decimal.Decimal
	byCategory := make(map[core.Category][]decimal.Decimal)
	for _, e := range expenses {
		all = append(all, e.Amount)
		switch {
		case thisMonth.Contains(e.Date):
			current = append(current, e.Amount)
			byCategory[e.Category] = append(byCategory[e.Category], e.Amount)
		case lastMonth.Contains(e.Date):
			previous = append(previous, e.Amount)
		}
	}

	ctx := ExpenseContext{
		Period:             thisMonth,
		TotalExpenses:      core.SumAmounts(all...),
		ThisMonthTotal:     core.SumAmounts(current...),
		LastMonthTotal:     core.SumAmounts(previous...),
		CategoryBreakdown:  make(map[core.Category]decimal.Decimal, len(byCategory)),
		RecentTransactions: make([]Transaction, 0, min(len(expenses), RecentLimit)),
		Budgets:            make([]BudgetStatus, 0, len(budgets)),
	}
	for c, amounts := range byCategory {
		ctx.CategoryBreakdown[c] = core.SumAmounts(amounts...)
	}

	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date.Time) })
	for _, e := range sorted[:min(len(sorted), RecentLimit)] {
		ctx.RecentTransactions = append(ctx.RecentTransactions, Transaction{
			Title:    e.Title,
			Amount:   e.Amount,
			Category: e.Category,
			Date:     e.Date,
		})
	}

	for _, b := range budgets {
		ctx.Budgets = append(ctx.Budgets, BudgetStatus{
			Category: b.Category,
			Amount:   b.Amount,
			Spent:    ctx.CategoryBreakdown[b.Category],
		})
	}

	return ctx
}

// ExpenseLister reads every expense of an owner.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, ownerID int64) ([]core.Expense, error)
}

// BudgetLister reads an owner's budgets for one month.
type BudgetLister interface {
	ListBudgets(ctx context.Context, ownerID int64, period *core.Period) ([]core.Budget, error)
}

// Aggregator loads ledger data and summarizes it.
type Aggregator struct {
	expenses ExpenseLister
	budgets  BudgetLister
}

func NewAggregator(expenses ExpenseLister, budgets BudgetLister) *Aggregator {
	return &Aggregator{expenses: expenses, budgets: budgets}
}

// BuildContext returns the owner's snapshot for the month containing ref.
// Any read failure aborts with ErrDataUnavailable; partial contexts are never returned.
func (a *Aggregator) BuildContext(ctx context.Context, ownerID int64, ref time.Time) (ExpenseContext, error) {
	expenses, err := a.expenses.ListExpenses(ctx, ownerID)
	if err != nil {
		return ExpenseContext{}, fmt.Errorf("%w: list expenses: %w", ErrDataUnavailable, err)
	}

	period := core.PeriodOf(ref)
	budgets, err := a.budgets.ListBudgets(ctx, ownerID, &period)
	if err != nil {
		return ExpenseContext{}, fmt.Errorf("%w: list budgets: %w", ErrDataUnavailable, err)
	}

	return Summarize(expenses, budgets, ref), nil
}
