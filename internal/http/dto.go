package http

import (
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// money renders as a JSON number with exactly two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type userJSON struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func toUser(u core.User, withCreated bool) userJSON {
	out := userJSON{ID: u.ID, Email: u.Email, Name: u.Name}
	if withCreated {
		created := u.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

// expenseJSON mirrors the expenses row.
type expenseJSON struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Amount      money     `json:"amount"`
	Category    string    `json:"category"`
	Description *string   `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

func toExpense(e core.Expense) expenseJSON {
	out := expenseJSON{
		ID:        e.ID,
		UserID:    e.OwnerID,
		Title:     e.Title,
		Amount:    money(e.Amount),
		Category:  string(e.Category),
		Date:      e.Date.String(),
		CreatedAt: e.CreatedAt,
	}
	if e.Description != "" {
		desc := e.Description
		out.Description = &desc
	}
	return out
}

func toExpenses(list []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(list))
	for _, e := range list {
		out = append(out, toExpense(e))
	}
	return out
}

// budgetJSON mirrors the budgets row.
type budgetJSON struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Category  string    `json:"category"`
	Amount    money     `json:"amount"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
}

func toBudget(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:        b.ID,
		UserID:    b.OwnerID,
		Category:  string(b.Category),
		Amount:    money(b.Amount),
		Month:     b.Month,
		Year:      b.Year,
		CreatedAt: b.CreatedAt,
	}
}

func toBudgets(list []core.Budget) []budgetJSON {
	out := make([]budgetJSON, 0, len(list))
	for _, b := range list {
		out = append(out, toBudget(b))
	}
	return out
}
