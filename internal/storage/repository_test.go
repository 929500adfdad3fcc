package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbudget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finbudget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testBudget(month string) core.Budget {
	now := time.Now().UTC()
	budgetID := uuid.NewString()
	return core.Budget{
		ID:          budgetID,
		Name:        "Budget " + month,
		Month:       month,
		TotalIncome: decimal.NewFromInt(150000),
		Categories: []core.BudgetCategory{
			{
				ID:            uuid.NewString(),
				BudgetID:      budgetID,
				Name:          "Rent",
				PlannedAmount: decimal.NewFromInt(45000),
				Type:          core.CategoryExpense,
				Allocation:    core.AllocationFixed,
				Permanent:     true,
				CreatedAt:     now,
			},
			{
				ID:         uuid.NewString(),
				BudgetID:   budgetID,
				Name:       "Groceries",
				Type:       core.CategoryExpense,
				Allocation: core.AllocationVariable,
				Proportion: decimal.RequireFromString("0.5"),
				CreatedAt:  now.Add(time.Second),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := testBudget("2024-06")
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	got, err := repo.GetBudget(ctx, "2024-06")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got == nil {
		t.Fatal("expected budget, got nil")
	}
	if got.ID != b.ID {
		t.Errorf("id = %s, want %s", got.ID, b.ID)
	}
	if !got.TotalIncome.Equal(decimal.NewFromInt(150000)) {
		t.Errorf("income = %s, want 150000", got.TotalIncome)
	}
	if len(got.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(got.Categories))
	}
	if got.Categories[0].Name != "Rent" {
		t.Errorf("first category = %s, want Rent (created_at order)", got.Categories[0].Name)
	}
	if !got.Categories[1].Proportion.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("proportion = %s, want 0.5", got.Categories[1].Proportion)
	}
}

func TestGetBudgetMissingMonth(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetBudget(context.Background(), "2031-01")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil budget, got %+v", got)
	}
}

func TestCreateBudgetReplacesExistingMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := testBudget("2024-06")
	if err := repo.CreateBudget(ctx, first); err != nil {
		t.Fatalf("CreateBudget first: %v", err)
	}

	second := testBudget("2024-06")
	second.Name = "Replacement"
	if err := repo.CreateBudget(ctx, second); err != nil {
		t.Fatalf("CreateBudget second: %v", err)
	}

	all, err := repo.GetAllBudgets(ctx)
	if err != nil {
		t.Fatalf("GetAllBudgets: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("budgets = %d, want 1", len(all))
	}
	if all[0].Name != "Replacement" {
		t.Errorf("name = %s, want Replacement", all[0].Name)
	}
}

func TestRemoveCategoryCascadesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := testBudget("2024-06")
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	catID := b.Categories[1].ID
	tx := core.Transaction{
		ID:          uuid.NewString(),
		CategoryID:  catID,
		Amount:      decimal.RequireFromString("19.90"),
		Description: "Weekly shop",
		Date:        time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
		Month:       "2024-06",
		Type:        core.CategoryExpense,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := repo.RemoveCategory(ctx, catID); err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}

	txs, err := repo.GetTransactionsByCategory(ctx, catID, "")
	if err != nil {
		t.Fatalf("GetTransactionsByCategory: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("transactions after cascade = %d, want 0", len(txs))
	}
}

func TestTransactionsByCategoryOrderAndMonthFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := testBudget("2024-06")
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	catID := b.Categories[1].ID

	dates := []time.Time{
		time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		tx := core.Transaction{
			ID:          uuid.NewString(),
			CategoryID:  catID,
			Amount:      decimal.NewFromInt(int64(10 + i)),
			Description: "tx",
			Date:        d,
			Month:       core.MonthOf(d),
			Type:        core.CategoryExpense,
			CreatedAt:   time.Now().UTC(),
		}
		if err := repo.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}

	june, err := repo.GetTransactionsByCategory(ctx, catID, "2024-06")
	if err != nil {
		t.Fatalf("GetTransactionsByCategory: %v", err)
	}
	if len(june) != 2 {
		t.Fatalf("june transactions = %d, want 2", len(june))
	}
	if !june[0].Date.After(june[1].Date) {
		t.Errorf("expected date-descending order, got %s before %s", june[0].Date, june[1].Date)
	}

	all, err := repo.GetTransactionsByCategory(ctx, catID, "")
	if err != nil {
		t.Fatalf("GetTransactionsByCategory all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all transactions = %d, want 3", len(all))
	}
}

func TestUpdateBudgetIncome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateBudget(ctx, testBudget("2024-06")); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := repo.UpdateBudgetIncome(ctx, "2024-06", decimal.NewFromInt(200000)); err != nil {
		t.Fatalf("UpdateBudgetIncome: %v", err)
	}

	got, err := repo.GetBudget(ctx, "2024-06")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if !got.TotalIncome.Equal(decimal.NewFromInt(200000)) {
		t.Errorf("income = %s, want 200000", got.TotalIncome)
	}
}

func TestUserSettingsDefaultsAndUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.GetUserSettings(ctx)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if !s.SavingsGoal.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("default goal = %s, want 100000", s.SavingsGoal)
	}
	if !core.ValidMonth(s.CurrentMonth) {
		t.Errorf("default current month %q is not valid", s.CurrentMonth)
	}

	s.SavingsGoal = decimal.NewFromInt(250000)
	s.SavingsGoalDescription = "House deposit"
	if err := repo.UpdateUserSettings(ctx, s); err != nil {
		t.Fatalf("UpdateUserSettings: %v", err)
	}

	got, err := repo.GetUserSettings(ctx)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if !got.SavingsGoal.Equal(decimal.NewFromInt(250000)) {
		t.Errorf("goal = %s, want 250000", got.SavingsGoal)
	}
	if got.SavingsGoalDescription != "House deposit" {
		t.Errorf("description = %s", got.SavingsGoalDescription)
	}
}

func TestRefreshCategoryActuals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := testBudget("2024-06")
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	catID := b.Categories[1].ID

	tx := core.Transaction{
		ID:          uuid.NewString(),
		CategoryID:  catID,
		Amount:      decimal.RequireFromString("42.10"),
		Description: "Market",
		Date:        time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Month:       "2024-06",
		Type:        core.CategoryExpense,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := repo.RefreshCategoryActuals(ctx, "2024-06"); err != nil {
		t.Fatalf("RefreshCategoryActuals: %v", err)
	}

	got, err := repo.GetBudget(ctx, "2024-06")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	variable := got.Category(catID)
	if variable == nil {
		t.Fatal("variable category missing")
	}
	if !variable.ActualAmount.Equal(decimal.RequireFromString("42.10")) {
		t.Errorf("variable actual = %s, want 42.10", variable.ActualAmount)
	}
	fixed := got.Category(b.Categories[0].ID)
	if !fixed.ActualAmount.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("fixed actual = %s, want planned 45000", fixed.ActualAmount)
	}

	// No budget for the month is a no-op.
	if err := repo.RefreshCategoryActuals(ctx, "2030-01"); err != nil {
		t.Errorf("RefreshCategoryActuals missing month: %v", err)
	}
}

func TestLoadState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateBudget(ctx, testBudget("2024-05")); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := repo.CreateBudget(ctx, testBudget("2024-06")); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	st, err := repo.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(st.Budgets) != 2 {
		t.Errorf("budgets = %d, want 2", len(st.Budgets))
	}
	if _, ok := st.Budgets["2024-05"]; !ok {
		t.Error("missing 2024-05 budget")
	}
	if st.Settings.ID == "" {
		t.Error("settings not initialized")
	}
}
