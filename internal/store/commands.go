package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbudget/internal/core"
)

// CategoryInput carries the caller-supplied fields of a new category.
type CategoryInput struct {
	Name          string
	Type          core.CategoryType
	Allocation    core.Allocation
	PlannedAmount decimal.Decimal
	Proportion    decimal.Decimal
	Color         string
	Permanent     bool
}

// CategoryPatch updates a category in place; nil fields are left unchanged.
type CategoryPatch struct {
	Name          *string
	PlannedAmount *decimal.Decimal
	Proportion    *decimal.Decimal
	Color         *string
	Permanent     *bool
}

// TransactionInput carries the caller-supplied fields of a new transaction.
// Month and Type are derived: Month from Date, Type from the category.
type TransactionInput struct {
	CategoryID  string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// TransactionPatch updates a transaction; nil fields are left unchanged.
type TransactionPatch struct {
	CategoryID  *string
	Amount      *decimal.Decimal
	Description *string
	Date        *time.Time
}

// CreateBudget creates an empty budget for the month, replacing any budget
// already stored under that key. Transactions of the replaced budget's
// categories are dropped with it.
func (s *Store) CreateBudget(ctx context.Context, month, name string, income decimal.Decimal) (core.Budget, error) {
	if !core.ValidMonth(month) {
		return core.Budget{}, core.ErrInvalidMonth
	}
	if income.IsNegative() {
		return core.Budget{}, core.ErrInvalidAmount
	}
	if name == "" {
		name = "Budget " + month
	}

	now := time.Now().UTC()
	b := core.Budget{
		ID:          uuid.NewString(),
		Name:        name,
		Month:       month,
		TotalIncome: income.Round(2),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replacing a month discards the old budget's categories, so their
	// transactions have to go from the adapter too. The relational backend
	// cascades this on its own; the snapshot backend needs explicit deletes.
	if old, ok := s.state.Budgets[month]; ok {
		for _, id := range s.transactionIDsOfBudget(old) {
			if err := s.adapter.RemoveTransaction(ctx, id); err != nil {
				return core.Budget{}, fmt.Errorf("remove replaced transaction: %w", err)
			}
		}
	}
	if err := s.adapter.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	// Creating a budget makes its month the active one.
	settings := s.state.Settings
	settings.CurrentMonth = month
	settings.UpdatedAt = now
	if err := s.adapter.UpdateUserSettings(ctx, settings); err != nil {
		return core.Budget{}, fmt.Errorf("update settings: %w", err)
	}

	if old, ok := s.state.Budgets[month]; ok {
		s.dropTransactionsOfBudget(old)
	}
	s.state.Budgets[month] = b
	s.state.Settings = settings
	slog.InfoContext(ctx, "Budget created", "month", month, "id", b.ID)
	s.notifyBudgetChanged(ctx, month)
	return b, nil
}

// transactionIDsOfBudget lists the ids of every transaction recorded against
// the budget's categories. Callers must hold s.mu.
func (s *Store) transactionIDsOfBudget(b core.Budget) []string {
	ids := make(map[string]struct{}, len(b.Categories))
	for _, c := range b.Categories {
		ids[c.ID] = struct{}{}
	}
	var out []string
	for _, t := range s.state.Transactions {
		if _, gone := ids[t.CategoryID]; gone {
			out = append(out, t.ID)
		}
	}
	return out
}

// dropTransactionsOfBudget removes all transactions recorded against the
// budget's categories. Callers must hold s.mu.
func (s *Store) dropTransactionsOfBudget(b core.Budget) {
	ids := make(map[string]struct{}, len(b.Categories))
	for _, c := range b.Categories {
		ids[c.ID] = struct{}{}
	}
	kept := s.state.Transactions[:0]
	for _, t := range s.state.Transactions {
		if _, gone := ids[t.CategoryID]; !gone {
			kept = append(kept, t)
		}
	}
	s.state.Transactions = kept
}

// UpdateBudgetIncome sets the month's total income and redistributes the
// variable expense categories.
func (s *Store) UpdateBudgetIncome(ctx context.Context, month string, income decimal.Decimal) (core.Budget, error) {
	if income.IsNegative() {
		return core.Budget{}, core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgetCopy(month)
	if !ok {
		return core.Budget{}, ErrBudgetNotFound
	}
	before := s.state.Budgets[month]

	b.TotalIncome = income.Round(2)
	b.UpdatedAt = time.Now().UTC()
	core.Redistribute(&b)

	if err := s.adapter.UpdateBudgetIncome(ctx, month, b.TotalIncome); err != nil {
		return core.Budget{}, fmt.Errorf("update income: %w", err)
	}
	if err := s.persistRedistribution(ctx, before, b, ""); err != nil {
		return core.Budget{}, fmt.Errorf("persist redistribution: %w", err)
	}

	s.state.Budgets[month] = b
	slog.InfoContext(ctx, "Budget income updated", "month", month, "income", b.TotalIncome)
	s.notifyBudgetChanged(ctx, month)
	return b, nil
}

// AddCategory appends a category to the month's budget and redistributes.
func (s *Store) AddCategory(ctx context.Context, month string, in CategoryInput) (core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgetCopy(month)
	if !ok {
		return core.BudgetCategory{}, ErrBudgetNotFound
	}
	before := s.state.Budgets[month]

	c := core.BudgetCategory{
		ID:            uuid.NewString(),
		BudgetID:      b.ID,
		Name:          in.Name,
		PlannedAmount: in.PlannedAmount.Round(2),
		Type:          in.Type,
		Allocation:    in.Allocation,
		Proportion:    in.Proportion,
		Color:         in.Color,
		Permanent:     in.Permanent,
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return core.BudgetCategory{}, err
	}

	b.Categories = append(b.Categories, c)
	b.UpdatedAt = time.Now().UTC()
	core.Redistribute(&b)
	c = *b.Category(c.ID) // pick up the redistributed planned amount

	if err := s.adapter.AddCategory(ctx, c); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("add category: %w", err)
	}
	if err := s.persistRedistribution(ctx, before, b, c.ID); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("persist redistribution: %w", err)
	}

	s.state.Budgets[month] = b
	slog.InfoContext(ctx, "Category added", "month", month, "name", c.Name, "type", c.Type, "allocation", c.Allocation)
	s.notifyBudgetChanged(ctx, month)
	return c, nil
}

// UpdateCategory applies a patch to a category of the month's budget and
// redistributes.
func (s *Store) UpdateCategory(ctx context.Context, month, categoryID string, patch CategoryPatch) (core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgetCopy(month)
	if !ok {
		return core.BudgetCategory{}, ErrBudgetNotFound
	}
	before := s.state.Budgets[month]

	c := b.Category(categoryID)
	if c == nil {
		return core.BudgetCategory{}, ErrCategoryNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.PlannedAmount != nil {
		c.PlannedAmount = patch.PlannedAmount.Round(2)
	}
	if patch.Proportion != nil {
		c.Proportion = *patch.Proportion
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if patch.Permanent != nil {
		c.Permanent = *patch.Permanent
	}
	if err := c.Validate(); err != nil {
		return core.BudgetCategory{}, err
	}

	b.UpdatedAt = time.Now().UTC()
	core.Redistribute(&b)

	if err := s.adapter.UpdateCategory(ctx, *c); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("update category: %w", err)
	}
	if err := s.persistRedistribution(ctx, before, b, c.ID); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("persist redistribution: %w", err)
	}

	s.state.Budgets[month] = b
	slog.InfoContext(ctx, "Category updated", "month", month, "category_id", categoryID)
	s.notifyBudgetChanged(ctx, month)
	return *c, nil
}

// RemoveCategory deletes a category from the month's budget along with its
// transactions, then redistributes what remains.
func (s *Store) RemoveCategory(ctx context.Context, month, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgetCopy(month)
	if !ok {
		return ErrBudgetNotFound
	}
	before := s.state.Budgets[month]
	if b.Category(categoryID) == nil {
		return ErrCategoryNotFound
	}

	kept := b.Categories[:0]
	for _, c := range b.Categories {
		if c.ID != categoryID {
			kept = append(kept, c)
		}
	}
	b.Categories = kept
	b.UpdatedAt = time.Now().UTC()
	core.Redistribute(&b)

	// Categories are scoped to their month: only this month's transactions
	// go with the category, same-category transactions in other months stay.
	var dropIDs []string
	for _, t := range s.state.Transactions {
		if t.CategoryID == categoryID && t.Month == month {
			dropIDs = append(dropIDs, t.ID)
		}
	}
	for _, id := range dropIDs {
		if err := s.adapter.RemoveTransaction(ctx, id); err != nil {
			return fmt.Errorf("remove category transaction: %w", err)
		}
	}
	if err := s.adapter.RemoveCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("remove category: %w", err)
	}
	if err := s.persistRedistribution(ctx, before, b, categoryID); err != nil {
		return fmt.Errorf("persist redistribution: %w", err)
	}

	keptTx := s.state.Transactions[:0]
	for _, t := range s.state.Transactions {
		if t.CategoryID != categoryID || t.Month != month {
			keptTx = append(keptTx, t)
		}
	}
	s.state.Transactions = keptTx
	s.state.Budgets[month] = b
	slog.InfoContext(ctx, "Category removed", "month", month, "category_id", categoryID)
	s.notifyBudgetChanged(ctx, month)
	return nil
}

// AddTransaction records a transaction against an existing category. The
// transaction's month comes from its date and its type from the category.
func (s *Store) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat := s.findCategory(in.CategoryID)
	if cat == nil {
		return core.Transaction{}, ErrCategoryNotFound
	}

	txType := core.CategoryExpense
	if cat.Type == core.CategoryIncome {
		txType = core.CategoryIncome
	}
	t := core.Transaction{
		ID:          uuid.NewString(),
		CategoryID:  in.CategoryID,
		Amount:      in.Amount.Round(2),
		Description: in.Description,
		Date:        in.Date,
		Month:       core.MonthOf(in.Date),
		Type:        txType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.adapter.AddTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.state.Transactions = append(s.state.Transactions, t)
	slog.InfoContext(ctx, "Transaction added",
		"category_id", t.CategoryID, "month", t.Month, "amount", t.Amount)
	s.notifyBudgetChanged(ctx, t.Month)
	return t, nil
}

// findCategory scans all budgets for a category id. Callers must hold s.mu.
func (s *Store) findCategory(id string) *core.BudgetCategory {
	for _, b := range s.state.Budgets {
		if c := b.Category(id); c != nil {
			return c
		}
	}
	return nil
}

// UpdateTransaction applies a patch to a transaction. Changing the date
// re-derives the month key; changing the category re-derives the type.
func (s *Store) UpdateTransaction(ctx context.Context, transactionID string, patch TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.state.Transactions {
		if s.state.Transactions[i].ID == transactionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Transaction{}, ErrTransactionNotFound
	}

	t := s.state.Transactions[idx]
	oldMonth := t.Month
	if patch.CategoryID != nil {
		cat := s.findCategory(*patch.CategoryID)
		if cat == nil {
			return core.Transaction{}, ErrCategoryNotFound
		}
		t.CategoryID = cat.ID
		t.Type = core.CategoryExpense
		if cat.Type == core.CategoryIncome {
			t.Type = core.CategoryIncome
		}
	}
	if patch.Amount != nil {
		t.Amount = patch.Amount.Round(2)
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Date != nil {
		t.Date = *patch.Date
		t.Month = core.MonthOf(t.Date)
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.adapter.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.state.Transactions[idx] = t
	slog.InfoContext(ctx, "Transaction updated", "transaction_id", t.ID, "month", t.Month)
	s.notifyBudgetChanged(ctx, t.Month)
	if oldMonth != t.Month {
		s.notifyBudgetChanged(ctx, oldMonth)
	}
	return t, nil
}

// RemoveTransaction deletes a transaction.
func (s *Store) RemoveTransaction(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.state.Transactions {
		if s.state.Transactions[i].ID == transactionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTransactionNotFound
	}
	month := s.state.Transactions[idx].Month

	if err := s.adapter.RemoveTransaction(ctx, transactionID); err != nil {
		return fmt.Errorf("remove transaction: %w", err)
	}

	s.state.Transactions = append(s.state.Transactions[:idx], s.state.Transactions[idx+1:]...)
	slog.InfoContext(ctx, "Transaction removed", "transaction_id", transactionID, "month", month)
	s.notifyBudgetChanged(ctx, month)
	return nil
}

// SetCurrentMonth switches the month the UI treats as active.
func (s *Store) SetCurrentMonth(ctx context.Context, month string) (core.Settings, error) {
	if !core.ValidMonth(month) {
		return core.Settings{}, core.ErrInvalidMonth
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.state.Settings
	settings.CurrentMonth = month
	settings.UpdatedAt = time.Now().UTC()
	if err := s.adapter.UpdateUserSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	s.state.Settings = settings
	return settings, nil
}

// SetSavingsGoal updates the savings target. An empty description keeps the
// current one.
func (s *Store) SetSavingsGoal(ctx context.Context, goal decimal.Decimal, description string) (core.Settings, error) {
	if goal.IsNegative() {
		return core.Settings{}, core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.state.Settings
	settings.SavingsGoal = goal.Round(2)
	if description != "" {
		settings.SavingsGoalDescription = description
	}
	settings.UpdatedAt = time.Now().UTC()
	if err := s.adapter.UpdateUserSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	s.state.Settings = settings
	slog.InfoContext(ctx, "Savings goal updated", "goal", settings.SavingsGoal)
	return settings, nil
}

// PropagateCategory copies a permanent category into every later month's
// budget that has no category of the same name yet. Returns the months that
// received a copy.
func (s *Store) PropagateCategory(ctx context.Context, month, categoryID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.state.Budgets[month]
	if !ok {
		return nil, ErrBudgetNotFound
	}
	template := src.Category(categoryID)
	if template == nil {
		return nil, ErrCategoryNotFound
	}
	if !template.Permanent {
		return nil, fmt.Errorf("%w: only permanent categories propagate", core.ErrValidation)
	}

	var updated []string
	for m := range s.state.Budgets {
		if m <= month {
			continue
		}
		b, _ := s.budgetCopy(m)
		if hasCategoryNamed(b, template.Name) {
			continue
		}
		before := s.state.Budgets[m]

		c := *template
		c.ID = uuid.NewString()
		c.BudgetID = b.ID
		c.ActualAmount = decimal.Zero
		c.CreatedAt = time.Now().UTC()
		b.Categories = append(b.Categories, c)
		b.UpdatedAt = time.Now().UTC()
		core.Redistribute(&b)
		c = *b.Category(c.ID)

		if err := s.adapter.AddCategory(ctx, c); err != nil {
			return updated, fmt.Errorf("propagate to %s: %w", m, err)
		}
		if err := s.persistRedistribution(ctx, before, b, c.ID); err != nil {
			return updated, fmt.Errorf("persist redistribution for %s: %w", m, err)
		}
		s.state.Budgets[m] = b
		updated = append(updated, m)
	}
	sortMonths(updated)

	for _, m := range updated {
		s.notifyBudgetChanged(ctx, m)
	}
	slog.InfoContext(ctx, "Category propagated",
		"name", template.Name, "from", month, "months", len(updated))
	return updated, nil
}

func hasCategoryNamed(b core.Budget, name string) bool {
	for _, c := range b.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// SeedDemoData creates a starter budget for the current month. It is a
// no-op when any budget already exists.
func (s *Store) SeedDemoData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Budgets) > 0 {
		slog.InfoContext(ctx, "Demo seed skipped, budgets already exist")
		return nil
	}

	month := s.state.Settings.CurrentMonth
	if !core.ValidMonth(month) {
		month = core.MonthOf(time.Now())
	}
	previous := core.PrevMonth(month)

	for _, m := range []string{previous, month} {
		b := demoBudget(m)
		if err := s.adapter.CreateBudget(ctx, b); err != nil {
			return fmt.Errorf("seed demo budget %s: %w", m, err)
		}
		s.state.Budgets[m] = b
		s.notifyBudgetChanged(ctx, m)
	}
	slog.InfoContext(ctx, "Demo data seeded", "months", []string{previous, month})
	return nil
}

func demoBudget(month string) core.Budget {
	now := time.Now().UTC()
	budgetID := uuid.NewString()
	b := core.Budget{
		ID:          budgetID,
		Name:        "Budget " + month,
		Month:       month,
		TotalIncome: decimal.NewFromInt(150000),
		Categories: []core.BudgetCategory{
			{
				ID: uuid.NewString(), BudgetID: budgetID, Name: "Rent",
				PlannedAmount: decimal.NewFromInt(45000),
				Type:          core.CategoryExpense, Allocation: core.AllocationFixed,
				Permanent: true, CreatedAt: now,
			},
			{
				ID: uuid.NewString(), BudgetID: budgetID, Name: "Groceries",
				Type: core.CategoryExpense, Allocation: core.AllocationVariable,
				Proportion: decimal.RequireFromString("0.5"), CreatedAt: now,
			},
			{
				ID: uuid.NewString(), BudgetID: budgetID, Name: "Transport",
				Type: core.CategoryExpense, Allocation: core.AllocationVariable,
				Proportion: decimal.RequireFromString("0.2"), CreatedAt: now,
			},
			{
				ID: uuid.NewString(), BudgetID: budgetID, Name: "Leisure",
				Type: core.CategoryExpense, Allocation: core.AllocationVariable,
				Proportion: decimal.RequireFromString("0.3"), CreatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	core.Redistribute(&b)
	return b
}

// ClearAll wipes all budgets, transactions and settings.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Reset(ctx); err != nil {
		return fmt.Errorf("reset backend: %w", err)
	}
	state, err := s.adapter.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("reload state: %w", err)
	}
	if state.Budgets == nil {
		state.Budgets = map[string]core.Budget{}
	}
	s.state = state
	slog.WarnContext(ctx, "All data cleared")
	return nil
}
