package core

import "github.com/shopspring/decimal"

// BudgetSummary is the plan-vs-actual projection for one month.
type BudgetSummary struct {
	Month                 string          `json:"month"`
	TotalIncome           decimal.Decimal `json:"totalIncome"`
	TotalFixedExpenses    decimal.Decimal `json:"totalFixedExpenses"`
	TotalVariableExpenses decimal.Decimal `json:"totalVariableExpenses"`
	TotalPlannedExpenses  decimal.Decimal `json:"totalPlannedExpenses"`
	TotalActualExpenses   decimal.Decimal `json:"totalActualExpenses"`
	PlannedSavings        decimal.Decimal `json:"plannedSavings"`
	ActualSavings         decimal.Decimal `json:"actualSavings"`
	AvailableForVariable  decimal.Decimal `json:"availableForVariable"`
}

// MonthlySavings is one month's remainder savings, planned and actual.
type MonthlySavings struct {
	Month   string          `json:"month"`
	Planned decimal.Decimal `json:"planned"`
	Actual  decimal.Decimal `json:"actual"`
}

// SavingsSummary aggregates remainder savings across all budgeted months
// against the configured goal.
type SavingsSummary struct {
	TotalPlannedSavings decimal.Decimal  `json:"totalPlannedSavings"`
	TotalActualSavings  decimal.Decimal  `json:"totalActualSavings"`
	ByMonth             []MonthlySavings `json:"byMonth"`
	Goal                decimal.Decimal  `json:"goal"`
	GoalDescription     string           `json:"goalDescription"`
}

// CategoryActual returns the category's actual spend for one month.
// Fixed categories are assumed to spend exactly as planned; variable and
// savings categories sum that month's transactions against the category.
func CategoryActual(c BudgetCategory, monthTx []Transaction) decimal.Decimal {
	if c.Allocation == AllocationFixed && c.Type == CategoryExpense {
		return c.PlannedAmount
	}
	sum := decimal.Zero
	for _, t := range monthTx {
		if t.CategoryID == c.ID {
			sum = sum.Add(t.Amount.Abs())
		}
	}
	return sum
}

// ComputeSummary derives the month's plan-vs-actual summary from a budget
// and the transactions recorded in that month. A nil budget yields an
// all-zero summary; callers never need to special-case missing months.
func ComputeSummary(b *Budget, monthTx []Transaction) BudgetSummary {
	if b == nil {
		return BudgetSummary{}
	}

	totalFixed := decimal.Zero
	totalVariable := decimal.Zero
	actualVariable := decimal.Zero
	for _, c := range b.Categories {
		if c.Type != CategoryExpense {
			continue
		}
		switch c.Allocation {
		case AllocationFixed:
			totalFixed = totalFixed.Add(c.PlannedAmount)
		case AllocationVariable:
			totalVariable = totalVariable.Add(c.PlannedAmount)
			actualVariable = actualVariable.Add(CategoryActual(c, monthTx))
		}
	}

	totalPlanned := totalFixed.Add(totalVariable)
	// Fixed spend is not independently tracked: actual fixed = planned fixed.
	totalActual := totalFixed.Add(actualVariable)

	return BudgetSummary{
		Month:                 b.Month,
		TotalIncome:           b.TotalIncome,
		TotalFixedExpenses:    totalFixed,
		TotalVariableExpenses: totalVariable,
		TotalPlannedExpenses:  totalPlanned,
		TotalActualExpenses:   totalActual,
		PlannedSavings:        clampZero(b.TotalIncome.Sub(totalPlanned)),
		ActualSavings:         clampZero(b.TotalIncome.Sub(totalActual)),
		AvailableForVariable:  b.TotalIncome.Sub(totalFixed),
	}
}
