package store

import (
	"sort"

	"github.com/shopspring/decimal"

	"finbudget/internal/core"
)

func sortMonths(months []string) {
	sort.Strings(months)
}

// Budget returns a copy of the month's budget, or nil when none exists.
func (s *Store) Budget(month string) *core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgetCopy(month)
	if !ok {
		return nil
	}
	return &b
}

// Budgets returns all budgets ordered by month key.
func (s *Store) Budgets() []core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	months := make([]string, 0, len(s.state.Budgets))
	for m := range s.state.Budgets {
		months = append(months, m)
	}
	sortMonths(months)
	out := make([]core.Budget, 0, len(months))
	for _, m := range months {
		b, _ := s.budgetCopy(m)
		out = append(out, b)
	}
	return out
}

// CurrentBudget returns the budget for the settings' current month, or nil.
func (s *Store) CurrentBudget() *core.Budget {
	s.mu.RLock()
	month := s.state.Settings.CurrentMonth
	s.mu.RUnlock()
	return s.Budget(month)
}

// AvailableMonths lists every month key that has a budget or at least one
// transaction, ascending.
func (s *Store) AvailableMonths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.state.Budgets))
	for m := range s.state.Budgets {
		seen[m] = true
	}
	for _, t := range s.state.Transactions {
		seen[t.Month] = true
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sortMonths(months)
	return months
}

// Transactions returns the month's transactions, newest first. An empty
// month returns everything.
func (s *Store) Transactions(month string) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, t := range s.state.Transactions {
		if month == "" || t.Month == month {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// TransactionsByCategory returns a category's transactions, newest first,
// optionally narrowed to one month.
func (s *Store) TransactionsByCategory(categoryID, month string) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, t := range s.state.Transactions {
		if t.CategoryID != categoryID {
			continue
		}
		if month != "" && t.Month != month {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Settings returns the user settings.
func (s *Store) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// Summary computes the month's plan-vs-actual summary. Missing months
// yield an all-zero summary with the month key set.
func (s *Store) Summary(month string) core.BudgetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Budgets[month]
	if !ok {
		return core.BudgetSummary{Month: month}
	}
	return core.ComputeSummary(&b, s.monthTransactions(month))
}

// CategoryActualAmount computes a category's actual spend for the month.
func (s *Store) CategoryActualAmount(month, categoryID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Budgets[month]
	if !ok {
		return decimal.Zero, ErrBudgetNotFound
	}
	c := b.Category(categoryID)
	if c == nil {
		return decimal.Zero, ErrCategoryNotFound
	}
	return core.CategoryActual(*c, s.monthTransactions(month)), nil
}

// SavingsSummary aggregates remainder savings across every budgeted month
// against the configured goal.
func (s *Store) SavingsSummary() core.SavingsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months := make([]string, 0, len(s.state.Budgets))
	for m := range s.state.Budgets {
		months = append(months, m)
	}
	sortMonths(months)

	out := core.SavingsSummary{
		TotalPlannedSavings: decimal.Zero,
		TotalActualSavings:  decimal.Zero,
		Goal:                s.state.Settings.SavingsGoal,
		GoalDescription:     s.state.Settings.SavingsGoalDescription,
	}
	for _, m := range months {
		b := s.state.Budgets[m]
		sum := core.ComputeSummary(&b, s.monthTransactions(m))
		out.ByMonth = append(out.ByMonth, core.MonthlySavings{
			Month:   m,
			Planned: sum.PlannedSavings,
			Actual:  sum.ActualSavings,
		})
		out.TotalPlannedSavings = out.TotalPlannedSavings.Add(sum.PlannedSavings)
		out.TotalActualSavings = out.TotalActualSavings.Add(sum.ActualSavings)
	}
	return out
}
