package core

import "github.com/shopspring/decimal"

// Redistribute recomputes the planned amounts of the budget's variable
// expense categories as proportional shares of the income remaining after
// fixed expenses. Savings are not allocated here: they are the implicit
// remainder income - fixed - variable, surfaced by ComputeSummary.
//
// The function is idempotent: planned amounts depend only on total income,
// fixed planned amounts and variable proportions, never on the previous
// variable amounts.
func Redistribute(b *Budget) {
	if b == nil {
		return
	}

	totalFixed := decimal.Zero
	totalProportion := decimal.Zero
	for _, c := range b.Categories {
		if c.Type != CategoryExpense {
			continue
		}
		switch c.Allocation {
		case AllocationFixed:
			totalFixed = totalFixed.Add(c.PlannedAmount)
		case AllocationVariable:
			totalProportion = totalProportion.Add(c.Proportion)
		}
	}

	// Zero total proportion would divide by zero; leave variable amounts
	// untouched.
	if totalProportion.IsZero() {
		return
	}

	available := clampZero(b.TotalIncome.Sub(totalFixed))
	for i := range b.Categories {
		c := &b.Categories[i]
		if c.Type != CategoryExpense || c.Allocation != AllocationVariable {
			continue
		}
		c.PlannedAmount = clampZero(available.Mul(c.Proportion).Div(totalProportion).Round(2))
	}
}
