// Package storage implements the SQLite-backed persistence adapter.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbudget/internal/core"
	"finbudget/internal/persist"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements persist.Adapter on top of a SQLite database.
// Amounts are stored as fixed-precision decimal text: (12,2) for money,
// (5,4) for proportions.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys must be enabled per connection for the budget ->
	// categories -> transactions cascade to work.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CreateBudget inserts the budget and its categories, replacing any existing
// budget for the same month (the store's replace-on-existing-month contract).
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create budget: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE month = ?`, b.Month); err != nil {
		return fmt.Errorf("replace budget for month %s: %w", b.Month, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO budgets (id, name, month, total_income, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Month, b.TotalIncome.StringFixed(2), encodeTime(b.CreatedAt), encodeTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}

	for _, c := range b.Categories {
		if err := insertCategory(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved", "id", b.ID, "month", b.Month, "income", b.TotalIncome)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCategory(ctx context.Context, ex execer, c core.BudgetCategory) error {
	var proportion sql.NullString
	if c.Allocation == core.AllocationVariable {
		proportion = sql.NullString{String: c.Proportion.StringFixed(4), Valid: true}
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO budget_categories
		 (id, budget_id, name, planned_amount, actual_amount, type, allocation, proportion, color, is_permanent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BudgetID, c.Name, c.PlannedAmount.StringFixed(2), c.ActualAmount.StringFixed(2),
		string(c.Type), string(c.Allocation), proportion, c.Color, c.Permanent, encodeTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert category %s: %w", c.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, month string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, month, total_income, created_at, updated_at FROM budgets WHERE month = ?`, month)

	var b core.Budget
	var income, createdAt, updatedAt string
	if err := row.Scan(&b.ID, &b.Name, &b.Month, &income, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get budget for month %s: %w", month, err)
	}
	b.TotalIncome = decodeDecimal(income)
	b.CreatedAt = decodeTime(createdAt)
	b.UpdatedAt = decodeTime(updatedAt)

	cats, err := r.categoriesForBudget(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Categories = cats
	return &b, nil
}

func (r *SQLiteRepository) GetAllBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, month, total_income, created_at, updated_at FROM budgets ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var income, createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.Name, &b.Month, &income, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.TotalIncome = decodeDecimal(income)
		b.CreatedAt = decodeTime(createdAt)
		b.UpdatedAt = decodeTime(updatedAt)
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}

	for i := range budgets {
		cats, err := r.categoriesForBudget(ctx, budgets[i].ID)
		if err != nil {
			return nil, err
		}
		budgets[i].Categories = cats
	}
	return budgets, nil
}

func (r *SQLiteRepository) categoriesForBudget(ctx context.Context, budgetID string) ([]core.BudgetCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_id, name, planned_amount, actual_amount, type, allocation, proportion, color, is_permanent, created_at
		 FROM budget_categories WHERE budget_id = ? ORDER BY created_at, id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list categories for budget %s: %w", budgetID, err)
	}
	defer rows.Close()

	var cats []core.BudgetCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func scanCategory(rows *sql.Rows) (core.BudgetCategory, error) {
	var c core.BudgetCategory
	var planned, actual, ctype, allocation, createdAt string
	var proportion, color sql.NullString
	if err := rows.Scan(&c.ID, &c.BudgetID, &c.Name, &planned, &actual, &ctype, &allocation,
		&proportion, &color, &c.Permanent, &createdAt); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("scan category: %w", err)
	}
	c.PlannedAmount = decodeDecimal(planned)
	c.ActualAmount = decodeDecimal(actual)
	c.Type = core.CategoryType(ctype)
	c.Allocation = core.Allocation(allocation)
	if proportion.Valid {
		c.Proportion = decodeDecimal(proportion.String)
	}
	c.Color = color.String
	c.CreatedAt = decodeTime(createdAt)
	return c, nil
}

func (r *SQLiteRepository) UpdateBudgetIncome(ctx context.Context, month string, income decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET total_income = ?, updated_at = ? WHERE month = ?`,
		income.StringFixed(2), encodeTime(time.Now()), month)
	if err != nil {
		return fmt.Errorf("update income for month %s: %w", month, err)
	}
	return nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, c core.BudgetCategory) error {
	return insertCategory(ctx, r.db, c)
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.BudgetCategory) error {
	var proportion sql.NullString
	if c.Allocation == core.AllocationVariable {
		proportion = sql.NullString{String: c.Proportion.StringFixed(4), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE budget_categories
		 SET name = ?, planned_amount = ?, actual_amount = ?, type = ?, allocation = ?, proportion = ?, color = ?, is_permanent = ?
		 WHERE id = ?`,
		c.Name, c.PlannedAmount.StringFixed(2), c.ActualAmount.StringFixed(2),
		string(c.Type), string(c.Allocation), proportion, c.Color, c.Permanent, c.ID)
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveCategory(ctx context.Context, categoryID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM budget_categories WHERE id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("remove category %s: %w", categoryID, err)
	}
	return nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, category_id, amount, description, date, month, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CategoryID, t.Amount.StringFixed(2), t.Description,
		encodeTime(t.Date), t.Month, string(t.Type), encodeTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, amount = ?, description = ?, date = ?, month = ?, type = ? WHERE id = ?`,
		t.CategoryID, t.Amount.StringFixed(2), t.Description,
		encodeTime(t.Date), t.Month, string(t.Type), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveTransaction(ctx context.Context, transactionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("remove transaction %s: %w", transactionID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransactionsByCategory(ctx context.Context, categoryID, month string) ([]core.Transaction, error) {
	query := `SELECT id, category_id, amount, description, date, month, type, created_at
	          FROM transactions WHERE category_id = ?`
	args := []any{categoryID}
	if month != "" {
		query += ` AND month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions for category %s: %w", categoryID, err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *SQLiteRepository) allTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, amount, description, date, month, type, created_at FROM transactions ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var amount, date, ttype, createdAt string
		if err := rows.Scan(&t.ID, &t.CategoryID, &amount, &t.Description, &date, &t.Month, &ttype, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = decodeDecimal(amount)
		t.Date = decodeTime(date)
		t.Type = core.CategoryType(ttype)
		t.CreatedAt = decodeTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetUserSettings(ctx context.Context) (core.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, savings_goal, savings_goal_description, current_month, updated_at FROM user_settings LIMIT 1`)

	var s core.Settings
	var goal, updatedAt string
	err := row.Scan(&s.ID, &goal, &s.SavingsGoalDescription, &s.CurrentMonth, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// First use: create the default row, as the original service did.
		s = core.Settings{
			ID:                     uuid.NewString(),
			SavingsGoal:            decimal.NewFromInt(100000),
			SavingsGoalDescription: "Savings goal",
			CurrentMonth:           core.MonthOf(time.Now()),
			UpdatedAt:              time.Now().UTC(),
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO user_settings (id, savings_goal, savings_goal_description, current_month, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.SavingsGoal.StringFixed(2), s.SavingsGoalDescription, s.CurrentMonth,
			encodeTime(s.UpdatedAt), encodeTime(s.UpdatedAt))
		if err != nil {
			return core.Settings{}, fmt.Errorf("insert default settings: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	s.SavingsGoal = decodeDecimal(goal)
	s.UpdatedAt = decodeTime(updatedAt)
	return s, nil
}

func (r *SQLiteRepository) UpdateUserSettings(ctx context.Context, s core.Settings) error {
	current, err := r.GetUserSettings(ctx)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE user_settings SET savings_goal = ?, savings_goal_description = ?, current_month = ?, updated_at = ? WHERE id = ?`,
		s.SavingsGoal.StringFixed(2), s.SavingsGoalDescription, s.CurrentMonth, encodeTime(time.Now()), current.ID)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// Reset deletes all rows. The next GetUserSettings recreates defaults.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "budget_categories", "budgets", "user_settings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	slog.WarnContext(ctx, "All data cleared")
	return nil
}

func (r *SQLiteRepository) LoadState(ctx context.Context) (*persist.State, error) {
	budgets, err := r.GetAllBudgets(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := r.allTransactions(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := r.GetUserSettings(ctx)
	if err != nil {
		return nil, err
	}

	st := &persist.State{
		Budgets:      make(map[string]core.Budget, len(budgets)),
		Transactions: txs,
		Settings:     settings,
	}
	for _, b := range budgets {
		st.Budgets[b.Month] = b
	}
	return st, nil
}

// RefreshCategoryActuals recomputes the stored actual_amount denormalization
// for every category of the given month's budget. Run by the worker after a
// budget-change event so external readers of the table see consistent
// actuals.
func (r *SQLiteRepository) RefreshCategoryActuals(ctx context.Context, month string) error {
	b, err := r.GetBudget(ctx, month)
	if err != nil {
		return err
	}
	if b == nil {
		slog.InfoContext(ctx, "No budget for month, nothing to refresh", "month", month)
		return nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, amount, description, date, month, type, created_at FROM transactions WHERE month = ?`, month)
	if err != nil {
		return fmt.Errorf("list month transactions: %w", err)
	}
	monthTx, err := scanTransactions(rows)
	rows.Close()
	if err != nil {
		return err
	}

	for _, c := range b.Categories {
		actual := core.CategoryActual(c, monthTx)
		if actual.Equal(c.ActualAmount) {
			continue
		}
		_, err := r.db.ExecContext(ctx,
			`UPDATE budget_categories SET actual_amount = ? WHERE id = ?`,
			actual.StringFixed(2), c.ID)
		if err != nil {
			return fmt.Errorf("refresh actual for category %s: %w", c.ID, err)
		}
		slog.InfoContext(ctx, "Category actual refreshed",
			"category_id", c.ID, "name", c.Name, "month", month, "actual", actual)
	}
	return nil
}
