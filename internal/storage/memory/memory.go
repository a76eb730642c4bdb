// Package memory provides an in-memory ledger store. It backs the tests
// and the zero-configuration backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

type mirrorState int

const (
	mirrorPending mirrorState = iota
	mirrorDone
	mirrorFailed
)

type Store struct {
	mu            sync.Mutex
	definitions   map[uuid.UUID]core.RecurringDefinition
	transactions  map[uuid.UUID]core.Transaction
	txOrder       []uuid.UUID
	mirror        map[uuid.UUID]mirrorState
	budgets       map[uuid.UUID]core.Budget
	goals         map[uuid.UUID]core.Goal
	contributions map[uuid.UUID][]core.Contribution
	categories    map[uuid.UUID]core.Category
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		definitions:   make(map[uuid.UUID]core.RecurringDefinition),
		transactions:  make(map[uuid.UUID]core.Transaction),
		mirror:        make(map[uuid.UUID]mirrorState),
		budgets:       make(map[uuid.UUID]core.Budget),
		goals:         make(map[uuid.UUID]core.Goal),
		contributions: make(map[uuid.UUID][]core.Contribution),
		categories:    make(map[uuid.UUID]core.Category),
	}
}

func (s *Store) LoadDefinition(ctx context.Context, id uuid.UUID) (core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.definitions[id]
	if !ok {
		return core.RecurringDefinition{}, core.ErrNotFound
	}
	return def, nil
}

func (s *Store) ListDefinitionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringDefinition
	for _, def := range s.definitions {
		if def.OwnerID == ownerID {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListActiveOwners(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, def := range s.definitions {
		if def.Status != core.DefinitionActive {
			continue
		}
		if _, ok := seen[def.OwnerID]; ok {
			continue
		}
		seen[def.OwnerID] = struct{}{}
		out = append(out, def.OwnerID)
	}
	return out, nil
}

func (s *Store) CreateDefinition(ctx context.Context, def core.RecurringDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[def.ID] = def
	return nil
}

func (s *Store) UpdateDefinition(ctx context.Context, def core.RecurringDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[def.ID]; !ok {
		return core.ErrNotFound
	}
	s.definitions[def.ID] = def
	return nil
}

func (s *Store) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.definitions, id)
	return nil
}

func (s *Store) SaveDefinitionCursor(ctx context.Context, def core.RecurringDefinition, prevDue *core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.definitions[def.ID]
	if !ok {
		return core.ErrNotFound
	}
	if !sameDate(stored.NextDueDate, prevDue) {
		return core.ErrConcurrencyConflict
	}
	s.definitions[def.ID] = def
	return nil
}

func sameDate(a, b *core.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *Store) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	s.mirror[tx.ID] = mirrorPending
	return nil
}

func (s *Store) LoadTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, r *storage.DateRange) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, id := range s.txOrder {
		tx := s.transactions[id]
		if tx.OwnerID != ownerID {
			continue
		}
		if r != nil && !r.Contains(tx.Date) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ListPendingMirror(ctx context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, id := range s.txOrder {
		if s.mirror[id] != mirrorPending {
			continue
		}
		out = append(out, s.transactions[id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkMirrored(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.ErrNotFound
	}
	s.mirror[id] = mirrorDone
	return nil
}

func (s *Store) MarkMirrorError(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.ErrNotFound
	}
	s.mirror[id] = mirrorFailed
	return nil
}

func (s *Store) ListBudgetsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddBudget seeds a budget; used by tests and fixtures.
func (s *Store) AddBudget(b core.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
}

func (s *Store) LoadGoal(ctx context.Context, id uuid.UUID) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGoalsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveGoal(ctx context.Context, goal core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goal.ID] = goal
	return nil
}

func (s *Store) AppendContribution(ctx context.Context, c core.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[c.GoalID]; !ok {
		return core.ErrNotFound
	}
	s.contributions[c.GoalID] = append(s.contributions[c.GoalID], c)
	return nil
}

// Contributions returns the recorded contributions for a goal.
func (s *Store) Contributions(goalID uuid.UUID) []core.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Contribution, len(s.contributions[goalID]))
	copy(out, s.contributions[goalID])
	return out
}

func (s *Store) LoadCategory(ctx context.Context, id uuid.UUID) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

// AddCategory seeds a category; used by tests and fixtures.
func (s *Store) AddCategory(c core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}
