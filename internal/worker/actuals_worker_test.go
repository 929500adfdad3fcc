package worker

import (
	"context"
	"errors"
	"testing"

	"finbudget/internal/amqp"
	"finbudget/internal/core"
)

type fakeActualsStore struct {
	budgets   []core.Budget
	refreshed []string
	failOn    map[string]error
}

func (f *fakeActualsStore) GetAllBudgets(_ context.Context) ([]core.Budget, error) {
	return f.budgets, nil
}

func (f *fakeActualsStore) RefreshCategoryActuals(_ context.Context, month string) error {
	if err, ok := f.failOn[month]; ok {
		return err
	}
	f.refreshed = append(f.refreshed, month)
	return nil
}

func TestHandleBudgetChanged(t *testing.T) {
	store := &fakeActualsStore{}
	w := NewActualsWorker(store)

	msg := amqp.NewBudgetChangedMessage("2024-06")
	if err := w.HandleBudgetChanged(context.Background(), msg); err != nil {
		t.Fatalf("HandleBudgetChanged: %v", err)
	}
	if len(store.refreshed) != 1 || store.refreshed[0] != "2024-06" {
		t.Errorf("refreshed = %v, want [2024-06]", store.refreshed)
	}
}

func TestHandleBudgetChangedInvalidMonthDropped(t *testing.T) {
	store := &fakeActualsStore{}
	w := NewActualsWorker(store)

	msg := amqp.NewBudgetChangedMessage("garbage")
	if err := w.HandleBudgetChanged(context.Background(), msg); err != nil {
		t.Fatalf("invalid month should be dropped, got error: %v", err)
	}
	if len(store.refreshed) != 0 {
		t.Errorf("refresh ran for invalid month: %v", store.refreshed)
	}
}

func TestHandleBudgetChangedPropagatesError(t *testing.T) {
	refreshErr := errors.New("db locked")
	store := &fakeActualsStore{failOn: map[string]error{"2024-06": refreshErr}}
	w := NewActualsWorker(store)

	err := w.HandleBudgetChanged(context.Background(), amqp.NewBudgetChangedMessage("2024-06"))
	if !errors.Is(err, refreshErr) {
		t.Errorf("err = %v, want wrapped %v", err, refreshErr)
	}
}

func TestStartupRefresh(t *testing.T) {
	store := &fakeActualsStore{
		budgets: []core.Budget{{Month: "2024-05"}, {Month: "2024-06"}},
	}
	w := NewActualsWorker(store)

	if err := w.StartupRefresh(context.Background()); err != nil {
		t.Fatalf("StartupRefresh: %v", err)
	}
	if len(store.refreshed) != 2 {
		t.Errorf("refreshed = %v, want both months", store.refreshed)
	}
}

func TestStartupRefreshAllFailures(t *testing.T) {
	store := &fakeActualsStore{
		budgets: []core.Budget{{Month: "2024-05"}},
		failOn:  map[string]error{"2024-05": errors.New("boom")},
	}
	w := NewActualsWorker(store)

	if err := w.StartupRefresh(context.Background()); err == nil {
		t.Error("StartupRefresh should fail when every refresh fails")
	}
}

func TestStartupRefreshNoBudgets(t *testing.T) {
	w := NewActualsWorker(&fakeActualsStore{})
	if err := w.StartupRefresh(context.Background()); err != nil {
		t.Errorf("StartupRefresh with no budgets: %v", err)
	}
}
