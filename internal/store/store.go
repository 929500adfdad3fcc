// Package store holds the authoritative in-memory budget state and pushes
// every mutation through the configured persistence adapter before
// committing it.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"finbudget/internal/core"
	"finbudget/internal/persist"
)

var (
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Notifier is told which month's budget changed after a successful
// mutation. A nil Notifier disables notifications.
type Notifier interface {
	BudgetChanged(ctx context.Context, month string) error
}

// Store serves reads from memory and writes adapter-first: if the adapter
// rejects a mutation, memory is left untouched and the error is returned.
type Store struct {
	mu       sync.RWMutex
	adapter  persist.Adapter
	notifier Notifier
	state    *persist.State
}

// New loads the full persisted state into memory.
func New(ctx context.Context, adapter persist.Adapter, notifier Notifier) (*Store, error) {
	state, err := adapter.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if state.Budgets == nil {
		state.Budgets = map[string]core.Budget{}
	}
	slog.InfoContext(ctx, "Store initialized",
		"budgets", len(state.Budgets), "transactions", len(state.Transactions))
	return &Store{adapter: adapter, notifier: notifier, state: state}, nil
}

// notifyBudgetChanged is fire-and-forget: a broker outage must not fail the
// mutation that already persisted.
func (s *Store) notifyBudgetChanged(ctx context.Context, month string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BudgetChanged(ctx, month); err != nil {
		slog.WarnContext(ctx, "Failed to publish budget change", "month", month, "error", err)
	}
}

// monthTransactions returns the transactions recorded in month. Callers
// must hold s.mu.
func (s *Store) monthTransactions(month string) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.state.Transactions {
		if t.Month == month {
			out = append(out, t)
		}
	}
	return out
}

// budgetCopy returns a deep copy of the month's budget so callers can
// mutate it freely before the adapter accepts the change. Callers must
// hold s.mu.
func (s *Store) budgetCopy(month string) (core.Budget, bool) {
	b, ok := s.state.Budgets[month]
	if !ok {
		return core.Budget{}, false
	}
	b.Categories = append([]core.BudgetCategory(nil), b.Categories...)
	return b, true
}

// persistRedistribution writes back every category whose planned amount
// changed when the budget was redistributed. The category identified by
// exclude is skipped: the caller persists it itself (insert or full update).
func (s *Store) persistRedistribution(ctx context.Context, before, after core.Budget, exclude string) error {
	for _, c := range after.Categories {
		if c.ID == exclude {
			continue
		}
		prev := before.Category(c.ID)
		if prev == nil || prev.PlannedAmount.Equal(c.PlannedAmount) {
			continue
		}
		if err := s.adapter.UpdateCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.adapter.Close()
}

// Ping reports backend reachability for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.adapter.Ping(ctx)
}
