package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"finbudget/internal/charts"
	"finbudget/internal/core"
)

// summaryMonth resolves the month to summarize: explicit query parameter,
// falling back to the settings' current month.
func (s *Server) summaryMonth(r *http.Request) (string, error) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = s.store.Settings().CurrentMonth
	}
	if !core.ValidMonth(month) {
		return "", core.ErrInvalidMonth
	}
	return month, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := s.summaryMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if cached, ok := s.summaryCache.Get(month); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary := s.store.Summary(month)
	s.summaryCache.Set(month, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	summary := s.store.SavingsSummary()
	if summary.ByMonth == nil {
		summary.ByMonth = []core.MonthlySavings{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months := s.store.AvailableMonths()
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"months":       months,
		"currentMonth": s.store.Settings().CurrentMonth,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Settings())
}

type settingsRequest struct {
	CurrentMonth           *string          `json:"currentMonth"`
	SavingsGoal            *decimal.Decimal `json:"savingsGoal"`
	SavingsGoalDescription *string          `json:"savingsGoalDescription"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	settings := s.store.Settings()
	var err error
	if req.CurrentMonth != nil {
		settings, err = s.store.SetCurrentMonth(r.Context(), *req.CurrentMonth)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.SavingsGoal != nil || req.SavingsGoalDescription != nil {
		goal := settings.SavingsGoal
		if req.SavingsGoal != nil {
			goal = *req.SavingsGoal
		}
		description := ""
		if req.SavingsGoalDescription != nil {
			description = sanitizeInput(*req.SavingsGoalDescription)
		}
		settings, err = s.store.SetSavingsGoal(r.Context(), goal, description)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummaryChart(w http.ResponseWriter, r *http.Request) {
	month, err := s.summaryMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	png, ok := s.chartCache.Get(month)
	if !ok {
		png, err = charts.RenderSummary(s.store.Summary(month))
		if err != nil {
			slog.ErrorContext(r.Context(), "Chart rendering failed", "month", month, "error", err)
			http.Error(w, "chart rendering failed", http.StatusInternalServerError)
			return
		}
		s.chartCache.Set(month, png)
	}

	if len(png) == 0 {
		http.Error(w, "no data for month", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(png)
}
