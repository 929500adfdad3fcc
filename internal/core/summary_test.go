package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeSummaryMissingBudget(t *testing.T) {
	s := ComputeSummary(nil, nil)
	for name, v := range map[string]decimal.Decimal{
		"totalIncome":          s.TotalIncome,
		"totalFixed":           s.TotalFixedExpenses,
		"totalVariable":        s.TotalVariableExpenses,
		"totalPlanned":         s.TotalPlannedExpenses,
		"totalActual":          s.TotalActualExpenses,
		"plannedSavings":       s.PlannedSavings,
		"actualSavings":        s.ActualSavings,
		"availableForVariable": s.AvailableForVariable,
	} {
		if !v.IsZero() {
			t.Fatalf("%s = %s, want 0 for missing budget", name, v)
		}
	}
}

func TestComputeSummaryPlannedFigures(t *testing.T) {
	b := testBudget()
	Redistribute(b)
	s := ComputeSummary(b, nil)

	if !s.TotalFixedExpenses.Equal(dec("45000")) {
		t.Fatalf("fixed = %s", s.TotalFixedExpenses)
	}
	if !s.TotalVariableExpenses.Equal(dec("105000")) {
		t.Fatalf("variable = %s", s.TotalVariableExpenses)
	}
	if !s.TotalPlannedExpenses.Equal(dec("150000")) {
		t.Fatalf("planned = %s", s.TotalPlannedExpenses)
	}
	if !s.AvailableForVariable.Equal(dec("105000")) {
		t.Fatalf("available = %s", s.AvailableForVariable)
	}
	// Fully allocated plan leaves zero planned savings.
	if !s.PlannedSavings.IsZero() {
		t.Fatalf("plannedSavings = %s", s.PlannedSavings)
	}
}

func TestComputeSummaryActualsFromTransactions(t *testing.T) {
	b := testBudget()
	Redistribute(b)

	txs := []Transaction{{
		ID:         "t1",
		CategoryID: "groceries",
		Amount:     dec("20000"),
		Date:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Month:      "2024-06",
		Type:       CategoryExpense,
	}}
	s := ComputeSummary(b, txs)

	// actual = fixed(45000) + actual variable(20000)
	if !s.TotalActualExpenses.Equal(dec("65000")) {
		t.Fatalf("actual = %s, want 65000", s.TotalActualExpenses)
	}
	// actual savings = 150000 - 65000
	if !s.ActualSavings.Equal(dec("85000")) {
		t.Fatalf("actualSavings = %s, want 85000", s.ActualSavings)
	}
}

func TestCategoryActual(t *testing.T) {
	fixed := BudgetCategory{ID: "f", Type: CategoryExpense, Allocation: AllocationFixed, PlannedAmount: dec("45000")}
	variable := BudgetCategory{ID: "v", Type: CategoryExpense, Allocation: AllocationVariable, Proportion: dec("1"), PlannedAmount: dec("100")}

	txs := []Transaction{
		{ID: "1", CategoryID: "v", Amount: dec("15.50"), Type: CategoryExpense},
		{ID: "2", CategoryID: "v", Amount: dec("4.50"), Type: CategoryExpense},
		{ID: "3", CategoryID: "other", Amount: dec("999"), Type: CategoryExpense},
	}

	// Fixed spend occurs exactly as planned, regardless of transactions.
	if got := CategoryActual(fixed, txs); !got.Equal(dec("45000")) {
		t.Fatalf("fixed actual = %s, want planned amount", got)
	}
	if got := CategoryActual(variable, txs); !got.Equal(dec("20")) {
		t.Fatalf("variable actual = %s, want 20", got)
	}
	if got := CategoryActual(variable, nil); !got.IsZero() {
		t.Fatalf("variable actual with no transactions = %s, want 0", got)
	}
}

func TestComputeSummaryOverspentClampsSavings(t *testing.T) {
	b := &Budget{Month: "2024-06", TotalIncome: dec("100"), Categories: []BudgetCategory{
		{ID: "v", Type: CategoryExpense, Allocation: AllocationVariable, Proportion: dec("1"), PlannedAmount: dec("100")},
	}}
	txs := []Transaction{{ID: "t", CategoryID: "v", Amount: dec("250"), Type: CategoryExpense}}
	s := ComputeSummary(b, txs)
	if !s.ActualSavings.IsZero() {
		t.Fatalf("overspent month must clamp actual savings to zero, got %s", s.ActualSavings)
	}
}
