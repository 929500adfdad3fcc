// Package persist defines the persistence boundary of the budget store.
package persist

import (
	"context"

	"github.com/shopspring/decimal"

	"finbudget/internal/core"
)

// State is the full persisted store state, loaded once at startup to build
// the in-memory mirror.
type State struct {
	Budgets      map[string]core.Budget `json:"budgets"` // keyed by month
	Transactions []core.Transaction     `json:"transactions"`
	Settings     core.Settings          `json:"settings"`
}

// Adapter is the operation set the store requires of any backend. Two
// implementations exist: a local JSON snapshot (persist/snapshot) and a
// SQLite repository (internal/storage).
type Adapter interface {
	// LoadState reads everything persisted so far. Backends return an
	// empty state with default settings on first use.
	LoadState(ctx context.Context) (*State, error)

	CreateBudget(ctx context.Context, b core.Budget) error
	GetBudget(ctx context.Context, month string) (*core.Budget, error)
	GetAllBudgets(ctx context.Context) ([]core.Budget, error)
	UpdateBudgetIncome(ctx context.Context, month string, income decimal.Decimal) error

	AddCategory(ctx context.Context, c core.BudgetCategory) error
	UpdateCategory(ctx context.Context, c core.BudgetCategory) error
	RemoveCategory(ctx context.Context, categoryID string) error

	AddTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	RemoveTransaction(ctx context.Context, transactionID string) error
	GetTransactionsByCategory(ctx context.Context, categoryID, month string) ([]core.Transaction, error)

	GetUserSettings(ctx context.Context) (core.Settings, error)
	UpdateUserSettings(ctx context.Context, s core.Settings) error

	// Reset wipes everything and restores default settings.
	Reset(ctx context.Context) error

	// Ping verifies the backend is reachable (readiness checks).
	Ping(ctx context.Context) error
	Close() error
}
