package assistant

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/repository/memory"
)

var refTime = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(title, amount string, cat core.Category, y, m, d int) core.Expense {
	return core.Expense{OwnerID: 1, Title: title, Amount: dec(amount), Category: cat, Date: core.NewDate(y, m, d)}
}

func TestSummarize_CategoryBreakdownAndNearLimit(t *testing.T) {
	expenses := []core.Expense{
		expense("Groceries", "50.00", core.Food, 2024, 3, 2),
		expense("Dinner", "30.00", core.Food, 2024, 3, 10),
		expense("Bus pass", "40.00", core.Transport, 2024, 3, 1),
	}
	budgets := []core.Budget{{OwnerID: 1, Category: core.Food, Amount: dec("100.00"), Month: 3, Year: 2024}}

	c := Summarize(expenses, budgets, refTime)

	assert.True(t, c.ThisMonthTotal.Equal(dec("120.00")))
	require.Len(t, c.CategoryBreakdown, 2)
	assert.True(t, c.CategoryBreakdown[core.Food].Equal(dec("80")))
	assert.True(t, c.CategoryBreakdown[core.Transport].Equal(dec("40")))

	require.Len(t, c.Budgets, 1)
	assert.True(t, c.Budgets[0].Spent.Equal(dec("80")))
	assert.Equal(t, NearLimit, c.Budgets[0].Status())
}

func TestSummarize_MonthOverMonthZeroWhenLastMonthEmpty(t *testing.T) {
	c := Summarize([]core.Expense{expense("Lunch", "50.00", core.Food, 2024, 3, 5)}, nil, refTime)

	assert.True(t, c.LastMonthTotal.IsZero())
	assert.True(t, c.MonthOverMonthChange().IsZero())
}

func TestSummarize_MonthOverMonthChange(t *testing.T) {
	c := Summarize([]core.Expense{
		expense("March", "150.00", core.Food, 2024, 3, 5),
		expense("February", "100.00", core.Food, 2024, 2, 29),
		expense("January", "999.00", core.Food, 2024, 1, 31),
	}, nil, refTime)

	assert.True(t, c.LastMonthTotal.Equal(dec("100")))
	assert.True(t, c.TotalExpenses.Equal(dec("1249")))
	assert.True(t, c.MonthOverMonthChange().Equal(dec("50")))
}

func TestSummarize_JanuaryComparesWithPreviousDecember(t *testing.T) {
	c := Summarize([]core.Expense{
		expense("New year", "20.00", core.Other, 2024, 1, 2),
		expense("Gifts", "80.00", core.Shopping, 2023, 12, 20),
	}, nil, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC))

	assert.True(t, c.ThisMonthTotal.Equal(dec("20")))
	assert.True(t, c.LastMonthTotal.Equal(dec("80")))
}

func TestSummarize_EmptyMonth(t *testing.T) {
	budgets := []core.Budget{{OwnerID: 1, Category: core.Utilities, Amount: dec("60.00"), Month: 3, Year: 2024}}
	c := Summarize([]core.Expense{expense("Old", "10.00", core.Utilities, 2023, 6, 1)}, budgets, refTime)

	assert.Empty(t, c.CategoryBreakdown)
	assert.True(t, c.ThisMonthTotal.IsZero())
	require.Len(t, c.Budgets, 1)
	assert.True(t, c.Budgets[0].Spent.IsZero())
	assert.Equal(t, OnTrack, c.Budgets[0].Status())
}

func TestSummarize_SumsAreExactAndOrderIndependent(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 100; i++ {
		expenses = append(expenses, expense("Coffee", "0.10", core.Food, 2024, 3, 1+i%28))
	}
	want := Summarize(expenses, nil, refTime)
	assert.Equal(t, "10.00", want.ThisMonthTotal.StringFixed(2))
	assert.True(t, want.ThisMonthTotal.Equal(dec("10")))

	rng := rand.New(rand.NewSource(42))
	for range 5 {
		shuffled := append([]core.Expense(nil), expenses...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Summarize(shuffled, nil, refTime)
		assert.True(t, got.ThisMonthTotal.Equal(want.ThisMonthTotal))
		assert.True(t, got.TotalExpenses.Equal(want.TotalExpenses))
	}
}

func TestSummarize_RecentTransactions(t *testing.T) {
	var expenses []core.Expense
	for d := 1; d <= 15; d++ {
		expenses = append(expenses, expense("Day", "1.00", core.Other, 2024, 2, d))
	}
	c := Summarize(expenses, nil, refTime)

	require.Len(t, c.RecentTransactions, RecentLimit)
	assert.Equal(t, "2024-02-15", c.RecentTransactions[0].Date.String())
	for i := 1; i < len(c.RecentTransactions); i++ {
		assert.False(t, c.RecentTransactions[i].Date.After(c.RecentTransactions[i-1].Date.Time))
	}
}

func TestBudgetStatus_Boundaries(t *testing.T) {
	tests := []struct {
		spent string
		want  Status
	}{
		{"0", OnTrack},
		{"79.99", OnTrack},
		{"80.00", NearLimit},
		{"99.99", NearLimit},
		{"100.00", NearLimit},
		{"100.01", OverBudget},
	}
	for _, tt := range tests {
		t.Run(tt.spent, func(t *testing.T) {
			b := BudgetStatus{Category: core.Food, Amount: dec("100.00"), Spent: dec(tt.spent)}
			assert.Equal(t, tt.want, b.Status())
		})
	}
}

func TestExpenseContext_BreakdownSorted(t *testing.T) {
	c := ExpenseContext{CategoryBreakdown: map[core.Category]decimal.Decimal{
		core.Utilities: dec("1"),
		core.Food:      dec("2"),
		core.Other:     dec("3"),
	}}
	got := c.Breakdown()
	require.Len(t, got, 3)
	assert.Equal(t, []core.Category{core.Food, core.Other, core.Utilities},
		[]core.Category{got[0].Category, got[1].Category, got[2].Category})
}

func TestAggregator_BuildContext(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	for _, e := range []core.Expense{
		expense("Groceries", "80.00", core.Food, 2024, 3, 2),
		expense("Train", "40.00", core.Transport, 2024, 3, 3),
	} {
		_, err := store.CreateExpense(ctx, e)
		require.NoError(t, err)
	}
	_, err := store.CreateBudget(ctx, core.Budget{OwnerID: 1, Category: core.Food, Amount: dec("100"), Month: 3, Year: 2024})
	require.NoError(t, err)
	_, err = store.CreateBudget(ctx, core.Budget{OwnerID: 1, Category: core.Food, Amount: dec("10"), Month: 2, Year: 2024})
	require.NoError(t, err)
	_, err = store.CreateExpense(ctx, core.Expense{OwnerID: 2, Title: "Other owner", Amount: dec("500"), Category: core.Food, Date: core.NewDate(2024, 3, 4)})
	require.NoError(t, err)

	c, err := NewAggregator(store, store).BuildContext(ctx, 1, refTime)
	require.NoError(t, err)

	assert.True(t, c.ThisMonthTotal.Equal(dec("120")))
	require.Len(t, c.Budgets, 1, "only the current month's budgets")
	assert.True(t, c.Budgets[0].Amount.Equal(dec("100")))
	assert.Equal(t, NearLimit, c.Budgets[0].Status())
}

type failingLister struct{ err error }

func (f failingLister) ListExpenses(context.Context, int64) ([]core.Expense, error) {
	return nil, f.err
}

func (f failingLister) ListBudgets(context.Context, int64, *core.Period) ([]core.Budget, error) {
	return nil, f.err
}

func TestAggregator_DataUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	store := memory.New()

	_, err := NewAggregator(failingLister{boom}, store).BuildContext(context.Background(), 1, refTime)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, boom)

	_, err = NewAggregator(store, failingLister{boom}).BuildContext(context.Background(), 1, refTime)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
