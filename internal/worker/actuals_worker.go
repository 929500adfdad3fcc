// Package worker keeps the denormalized category actuals in the database
// up to date with the transactions recorded against each budget.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finbudget/internal/amqp"
	"finbudget/internal/core"
)

// ActualsStore is the slice of the SQLite repository the worker needs.
type ActualsStore interface {
	GetAllBudgets(ctx context.Context) ([]core.Budget, error)
	RefreshCategoryActuals(ctx context.Context, month string) error
}

// ActualsWorker recomputes stored category actuals whenever a budget change
// message arrives.
type ActualsWorker struct {
	storage ActualsStore
}

func NewActualsWorker(storage ActualsStore) *ActualsWorker {
	return &ActualsWorker{storage: storage}
}

// HandleBudgetChanged processes a single budget change message from AMQP
func (w *ActualsWorker) HandleBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	if !core.ValidMonth(msg.Month) {
		// Bad month keys are dropped, requeueing would loop forever.
		slog.WarnContext(ctx, "Ignoring message with invalid month", "month", msg.Month)
		return nil
	}

	slog.InfoContext(ctx, "Processing budget change", "month", msg.Month)

	if err := w.storage.RefreshCategoryActuals(ctx, msg.Month); err != nil {
		return fmt.Errorf("refresh actuals for %s: %w", msg.Month, err)
	}
	return nil
}

// StartupRefresh recomputes actuals for every budgeted month. Run once at
// worker start to recover from messages missed while the worker was down.
func (w *ActualsWorker) StartupRefresh(ctx context.Context) error {
	budgets, err := w.storage.GetAllBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets for startup refresh: %w", err)
	}

	if len(budgets) == 0 {
		slog.InfoContext(ctx, "No budgets found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Refreshing actuals for all budgets", "count", len(budgets))

	errorCount := 0
	for _, b := range budgets {
		if err := w.storage.RefreshCategoryActuals(ctx, b.Month); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh actuals during startup",
				"month", b.Month, "error", err)
			errorCount++
		}
	}

	slog.InfoContext(ctx, "Startup refresh completed",
		"total", len(budgets), "errors", errorCount)

	if errorCount == len(budgets) {
		return fmt.Errorf("startup refresh failed for all %d budgets", errorCount)
	}
	return nil
}
