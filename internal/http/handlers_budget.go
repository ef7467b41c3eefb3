package http

import (
	"net/http"

	"spendwise/internal/core"
)

type budgetRequest struct {
	Category string     `json:"category"`
	Amount   flexString `json:"amount"`
	Month    flexString `json:"month"`
	Year     flexString `json:"year"`
}

func (req budgetRequest) budget(ownerID int64) (core.Budget, error) {
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Budget{}, err
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return core.Budget{}, err
	}
	month, ok, err := req.Month.Int()
	if !ok || err != nil {
		return core.Budget{}, core.ErrInvalidMonth
	}
	year, ok, err := req.Year.Int()
	if !ok || err != nil {
		return core.Budget{}, core.ErrInvalidYear
	}
	return core.Budget{
		OwnerID:  ownerID,
		Category: category,
		Amount:   amount,
		Month:    month,
		Year:     year,
	}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	period, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}
	list, err := s.svc.Budgets.List(r.Context(), principal(r).UserID, period)
	if err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}
	NewJSONResponse().Body(toBudgets(list)).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	b, err := req.budget(principal(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}

	created, err := s.svc.Budgets.Create(r.Context(), b)
	if err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toBudget(created)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	var req struct {
		Amount flexString `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}

	updated, err := s.svc.Budgets.UpdateAmount(r.Context(), principal(r).UserID, id, amount)
	if err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}
	NewJSONResponse().Body(toBudget(updated)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), principal(r).UserID, id); err != nil {
		s.writeServiceError(w, r, err, "Budget not found")
		return
	}
	NewJSONResponse().Message("Budget deleted successfully").Write(w)
}
