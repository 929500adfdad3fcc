package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategorySavings CategoryType = "savings"

	AllocationFixed    Allocation = "fixed"
	AllocationVariable Allocation = "variable"
)

type (
	// CategoryType is the semantic type of a category or transaction.
	CategoryType string

	// Allocation determines how a category's planned amount is authored:
	// fixed amounts are set directly, variable amounts are recomputed from
	// the owning budget's income and the category's proportion.
	Allocation string

	// BudgetCategory belongs to exactly one Budget.
	BudgetCategory struct {
		ID            string          `json:"id"`
		BudgetID      string          `json:"budgetId"`
		Name          string          `json:"name"`
		PlannedAmount decimal.Decimal `json:"plannedAmount"`
		ActualAmount  decimal.Decimal `json:"actualAmount"`
		Type          CategoryType    `json:"type"`
		Allocation    Allocation      `json:"allocation"`
		Proportion    decimal.Decimal `json:"proportion"` // weight, variable allocation only
		Color         string          `json:"color,omitempty"`
		Permanent     bool            `json:"permanent"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// Budget is one calendar month's plan. Exactly one budget exists per
	// month key at any time.
	Budget struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		Month       string           `json:"month"` // YYYY-MM
		TotalIncome decimal.Decimal  `json:"totalIncome"`
		Categories  []BudgetCategory `json:"categories"`
		CreatedAt   time.Time        `json:"createdAt"`
		UpdatedAt   time.Time        `json:"updatedAt"`
	}

	// Transaction is a recorded income/expense event against a category.
	// Month is always the month key derived from Date.
	Transaction struct {
		ID          string          `json:"id"`
		CategoryID  string          `json:"categoryId"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		Month       string          `json:"month"` // YYYY-MM, derived from Date
		Type        CategoryType    `json:"type"`  // income or expense only
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Settings is the single per-user configuration row.
	Settings struct {
		ID                     string          `json:"id"`
		SavingsGoal            decimal.Decimal `json:"savingsGoal"`
		SavingsGoalDescription string          `json:"savingsGoalDescription"`
		CurrentMonth           string          `json:"currentMonth"` // YYYY-MM
		UpdatedAt              time.Time       `json:"updatedAt"`
	}
)

// ErrValidation is the root of every input validation error, so transport
// layers can map the whole family to one status code.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidMonth      = fmt.Errorf("%w: invalid month key", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidProportion = fmt.Errorf("%w: invalid proportion", ErrValidation)
	ErrInvalidType       = fmt.Errorf("%w: invalid category type", ErrValidation)
	ErrInvalidAllocation = fmt.Errorf("%w: invalid allocation", ErrValidation)
	ErrEmptyName         = fmt.Errorf("%w: empty name", ErrValidation)
	ErrEmptyDescription  = fmt.Errorf("%w: empty description", ErrValidation)
	ErrZeroDate          = fmt.Errorf("%w: date cannot be zero", ErrValidation)
)

// MonthOf truncates a date to its YYYY-MM month key.
func MonthOf(t time.Time) string {
	return t.Format("2006-01")
}

// ValidMonth reports whether s is a well-formed YYYY-MM month key.
func ValidMonth(s string) bool {
	t, err := time.Parse("2006-01", s)
	return err == nil && MonthOf(t) == s
}

// PrevMonth returns the month key immediately before month. Invalid input
// comes back unchanged.
func PrevMonth(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return MonthOf(t.AddDate(0, -1, 0))
}

func (ct CategoryType) Valid() bool {
	switch ct {
	case CategoryIncome, CategoryExpense, CategorySavings:
		return true
	}
	return false
}

func (a Allocation) Valid() bool {
	return a == AllocationFixed || a == AllocationVariable
}

func (c BudgetCategory) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 255 {
		return fmt.Errorf("%w: name too long (max 255 characters)", ErrValidation)
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if !c.Allocation.Valid() {
		return ErrInvalidAllocation
	}
	if c.PlannedAmount.IsNegative() {
		return ErrInvalidAmount
	}
	switch c.Allocation {
	case AllocationVariable:
		// Weight in (0, 1], relative to the sum of all variable
		// proportions in the same budget.
		if !c.Proportion.IsPositive() || c.Proportion.GreaterThan(decimal.NewFromInt(1)) {
			return ErrInvalidProportion
		}
	case AllocationFixed:
		if !c.Proportion.IsZero() {
			return fmt.Errorf("%w: proportion only applies to variable categories", ErrValidation)
		}
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.CategoryID == "" {
		return fmt.Errorf("%w: empty category id", ErrValidation)
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Type != CategoryIncome && t.Type != CategoryExpense {
		return ErrInvalidType
	}
	if t.Month != "" && t.Month != MonthOf(t.Date) {
		return ErrInvalidMonth
	}
	return nil
}

func (b Budget) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if !ValidMonth(b.Month) {
		return ErrInvalidMonth
	}
	if b.TotalIncome.IsNegative() {
		return ErrInvalidAmount
	}
	for _, c := range b.Categories {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Category returns the category with the given id, or nil.
func (b *Budget) Category(id string) *BudgetCategory {
	if b == nil {
		return nil
	}
	for i := range b.Categories {
		if b.Categories[i].ID == id {
			return &b.Categories[i]
		}
	}
	return nil
}
