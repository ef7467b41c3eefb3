package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/services"
)

type expenseRequest struct {
	Title       string     `json:"title"`
	Amount      flexString `json:"amount"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
}

// input converts the request into service input. requireTitle is false
// for updates, where a blank title keeps the stored one.
func (req expenseRequest) input(requireTitle bool) (services.ExpenseInput, error) {
	title := sanitizeInput(req.Title)
	if requireTitle && title == "" {
		return services.ExpenseInput{}, core.ErrEmptyTitle
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return services.ExpenseInput{}, err
	}
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		Title:       title,
		Amount:      amount,
		Category:    category,
		Date:        date,
		Description: sanitizeInput(req.Description),
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Expenses.List(r.Context(), principal(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "Expense not found")
		return
	}
	NewJSONResponse().Body(toExpenses(list)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	in, err := req.input(true)
	if err != nil {
		s.writeServiceError(w, r, err, "Expense not found")
		return
	}

	expense, err := s.svc.Expenses.Create(r.Context(), principal(r).UserID, in)
	if err != nil {
		s.writeServiceError(w, r, err, "Expense not found")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toExpense(expense)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	in, err := req.input(false)
	if err != nil {
		s.writeServiceError(w, r, err, "Expense not found")
		return
	}

	expense, err := s.svc.Expenses.Update(r.Context(), principal(r).UserID, id, in)
	if err != nil {
		s.writeServiceError(w, r, err, "Expense not found")
		return
	}
	NewJSONResponse().Body(map[string]any{"expense": toExpense(expense)}).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), principal(r).UserID, id); err != nil {
		s.writeServiceError(w, r, err, "Expense not found")
		return
	}
	NewJSONResponse().Message("Expense deleted successfully").Write(w)
}
