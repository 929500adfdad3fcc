// Package snapshot persists the full store state as a single JSON document,
// the server-side analog of the original local-storage persistence.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbudget/internal/core"
	"finbudget/internal/persist"
)

// DefaultSavingsGoal mirrors the user_settings column default.
var DefaultSavingsGoal = decimal.NewFromInt(100000)

// Store is a file-backed persist.Adapter. Every mutation rewrites the
// snapshot file atomically (temp file + rename), so a crash never leaves a
// half-written document behind.
type Store struct {
	mu    sync.Mutex
	path  string
	state persist.State
}

func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultState() persist.State {
	return persist.State{
		Budgets: map[string]core.Budget{},
		Settings: core.Settings{
			ID:                     uuid.NewString(),
			SavingsGoal:            DefaultSavingsGoal,
			SavingsGoalDescription: "Savings goal",
			CurrentMonth:           core.MonthOf(time.Now()),
			UpdatedAt:              time.Now().UTC(),
		},
	}
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.state = defaultState()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var st persist.State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	if st.Budgets == nil {
		st.Budgets = map[string]core.Budget{}
	}
	s.state = st
	slog.Info("Snapshot loaded", "path", s.path, "budgets", len(st.Budgets), "transactions", len(st.Transactions))
	return nil
}

// save must be called with s.mu held.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *Store) LoadState(_ context.Context) (*persist.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := persist.State{
		Budgets:      make(map[string]core.Budget, len(s.state.Budgets)),
		Transactions: append([]core.Transaction(nil), s.state.Transactions...),
		Settings:     s.state.Settings,
	}
	for m, b := range s.state.Budgets {
		b.Categories = append([]core.BudgetCategory(nil), b.Categories...)
		st.Budgets[m] = b
	}
	return &st, nil
}

// CreateBudget replaces any existing budget for the same month.
func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Budgets[b.Month] = b
	return s.save()
}

func (s *Store) GetBudget(_ context.Context, month string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.Budgets[month]
	if !ok {
		return nil, nil
	}
	b.Categories = append([]core.BudgetCategory(nil), b.Categories...)
	return &b, nil
}

func (s *Store) GetAllBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	months := make([]string, 0, len(s.state.Budgets))
	for m := range s.state.Budgets {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]core.Budget, 0, len(months))
	for _, m := range months {
		b := s.state.Budgets[m]
		b.Categories = append([]core.BudgetCategory(nil), b.Categories...)
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) UpdateBudgetIncome(_ context.Context, month string, income decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.Budgets[month]
	if !ok {
		return nil
	}
	b.TotalIncome = income
	b.UpdatedAt = time.Now().UTC()
	s.state.Budgets[month] = b
	return s.save()
}

func (s *Store) AddCategory(_ context.Context, c core.BudgetCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for month, b := range s.state.Budgets {
		if b.ID == c.BudgetID {
			b.Categories = append(b.Categories, c)
			b.UpdatedAt = time.Now().UTC()
			s.state.Budgets[month] = b
			return s.save()
		}
	}
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.BudgetCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for month, b := range s.state.Budgets {
		for i := range b.Categories {
			if b.Categories[i].ID == c.ID {
				b.Categories[i] = c
				b.UpdatedAt = time.Now().UTC()
				s.state.Budgets[month] = b
				return s.save()
			}
		}
	}
	return nil
}

func (s *Store) RemoveCategory(_ context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for month, b := range s.state.Budgets {
		kept := b.Categories[:0]
		removed := false
		for _, c := range b.Categories {
			if c.ID == categoryID {
				removed = true
				continue
			}
			kept = append(kept, c)
		}
		if removed {
			b.Categories = kept
			b.UpdatedAt = time.Now().UTC()
			s.state.Budgets[month] = b
			return s.save()
		}
	}
	return nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Transactions = append(s.state.Transactions, t)
	return s.save()
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Transactions {
		if s.state.Transactions[i].ID == t.ID {
			s.state.Transactions[i] = t
			return s.save()
		}
	}
	return nil
}

func (s *Store) RemoveTransaction(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.state.Transactions[:0]
	for _, t := range s.state.Transactions {
		if t.ID != transactionID {
			kept = append(kept, t)
		}
	}
	s.state.Transactions = kept
	return s.save()
}

func (s *Store) GetTransactionsByCategory(_ context.Context, categoryID, month string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.state.Transactions {
		if t.CategoryID != categoryID {
			continue
		}
		if month != "" && t.Month != month {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) GetUserSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings, nil
}

func (s *Store) UpdateUserSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UpdatedAt = time.Now().UTC()
	if settings.ID == "" {
		settings.ID = s.state.Settings.ID
	}
	s.state.Settings = settings
	return s.save()
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = defaultState()
	return s.save()
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The snapshot directory must remain writable for mutations to persist.
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("stat snapshot directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot parent %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *Store) Close() error { return nil }
