// Package storage defines the persistence ports consumed by the services
// and provides the SQLite implementation.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
)

// DateRange is an optional inclusive filter on transaction dates.
// A zero From or To leaves that side unbounded.
type DateRange struct {
	From core.Date
	To   core.Date
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d core.Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// DefinitionStore persists recurring definitions. SaveDefinitionCursor is
// the only write the projection path uses: it is conditional on the
// previously observed next_due_date so concurrent projectors cannot both
// consume the same occurrence.
type DefinitionStore interface {
	LoadDefinition(ctx context.Context, id uuid.UUID) (core.RecurringDefinition, error)
	ListDefinitionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.RecurringDefinition, error)
	ListActiveOwners(ctx context.Context) ([]uuid.UUID, error)
	CreateDefinition(ctx context.Context, def core.RecurringDefinition) error
	UpdateDefinition(ctx context.Context, def core.RecurringDefinition) error
	DeleteDefinition(ctx context.Context, id uuid.UUID) error

	// SaveDefinitionCursor persists the advanced cursor and status of def,
	// but only if the stored next_due_date still equals prevDue. Returns
	// core.ErrConcurrencyConflict when another writer got there first.
	SaveDefinitionCursor(ctx context.Context, def core.RecurringDefinition, prevDue *core.Date) error
}

// TransactionStore owns the ledger. Entries are immutable once inserted;
// the mirror flag only tracks replication to the external read model.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) error
	LoadTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, r *DateRange) ([]core.Transaction, error)
	ListPendingMirror(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkMirrored(ctx context.Context, id uuid.UUID) error
	MarkMirrorError(ctx context.Context, id uuid.UUID) error
}

type BudgetStore interface {
	ListBudgetsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.Budget, error)
}

type GoalStore interface {
	LoadGoal(ctx context.Context, id uuid.UUID) (core.Goal, error)
	ListGoalsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.Goal, error)
	SaveGoal(ctx context.Context, goal core.Goal) error
	AppendContribution(ctx context.Context, c core.Contribution) error
}

type CategoryStore interface {
	LoadCategory(ctx context.Context, id uuid.UUID) (core.Category, error)
}

// Store is the full ledger collaborator surface; both the SQLite and the
// in-memory backends satisfy it.
type Store interface {
	DefinitionStore
	TransactionStore
	BudgetStore
	GoalStore
	CategoryStore
}
