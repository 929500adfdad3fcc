package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finbudget/internal/core"
	"finbudget/internal/store"
)

type transactionRequest struct {
	CategoryID  string          `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.store.AddTransaction(r.Context(), store.TransactionInput{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, tx)
}

type transactionPatchRequest struct {
	CategoryID  *string          `json:"categoryId"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patch := store.TransactionPatch{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		patch.Description = &desc
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Date = &date
	}

	tx, err := s.store.UpdateTransaction(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions returns the month's transactions, or everything
// when no month filter is given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" && !core.ValidMonth(month) {
		writeError(w, r, core.ErrInvalidMonth)
		return
	}

	txs := s.store.Transactions(month)
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
