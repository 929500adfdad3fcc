package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finbudget/internal/core"
	"finbudget/internal/store"
)

type createBudgetRequest struct {
	Month       string          `json:"month"`
	Name        string          `json:"name"`
	TotalIncome decimal.Decimal `json:"totalIncome"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.store.CreateBudget(r.Context(), req.Month, sanitizeInput(req.Name), req.TotalIncome)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Budgets())
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b := s.store.Budget(month)
	if b == nil {
		writeError(w, r, store.ErrBudgetNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type updateIncomeRequest struct {
	Income decimal.Decimal `json:"income"`
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateIncomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.store.UpdateBudgetIncome(r.Context(), month, req.Income)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, b)
}

type categoryRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Allocation    string          `json:"allocation"`
	PlannedAmount decimal.Decimal `json:"plannedAmount"`
	Proportion    decimal.Decimal `json:"proportion"`
	Color         string          `json:"color"`
	Permanent     bool            `json:"permanent"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.store.AddCategory(r.Context(), month, store.CategoryInput{
		Name:          sanitizeInput(req.Name),
		Type:          core.CategoryType(req.Type),
		Allocation:    core.Allocation(req.Allocation),
		PlannedAmount: req.PlannedAmount,
		Proportion:    req.Proportion,
		Color:         sanitizeInput(req.Color),
		Permanent:     req.Permanent,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, c)
}

type categoryPatchRequest struct {
	Name          *string          `json:"name"`
	PlannedAmount *decimal.Decimal `json:"plannedAmount"`
	Proportion    *decimal.Decimal `json:"proportion"`
	Color         *string          `json:"color"`
	Permanent     *bool            `json:"permanent"`
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req categoryPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patch := store.CategoryPatch{
		PlannedAmount: req.PlannedAmount,
		Proportion:    req.Proportion,
		Permanent:     req.Permanent,
	}
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		patch.Name = &name
	}
	if req.Color != nil {
		color := sanitizeInput(*req.Color)
		patch.Color = &color
	}

	c, err := s.store.UpdateCategory(r.Context(), month, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.RemoveCategory(r.Context(), month, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePropagateCategory(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	months, err := s.store.PropagateCategory(r.Context(), month, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

func (s *Server) handleCategoryTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs := s.store.TransactionsByCategory(r.PathValue("id"), month)
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCategoryActual(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actual, err := s.store.CategoryActualAmount(month, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":        month,
		"categoryId":   r.PathValue("id"),
		"actualAmount": actual,
	})
}
