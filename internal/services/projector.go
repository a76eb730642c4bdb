package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// maxClaimRetries bounds how often a projection reloads and retries after
// losing the cursor race to another writer.
const maxClaimRetries = 3

// EventPublisher receives the asynchronous side effects of projection.
// A nil publisher disables events without changing projection behavior.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id, ownerID uuid.UUID) error
	PublishDueReminder(ctx context.Context, def core.RecurringDefinition, dueDate core.Date, daysUntil int) error
}

// ProjectionReport summarizes one processing run.
type ProjectionReport struct {
	CreatedCount int
	SkippedCount int
	Errors       []ProjectionError
}

// ProjectionError records a per-definition failure; one bad definition
// never aborts the run.
type ProjectionError struct {
	DefinitionID uuid.UUID
	Err          error
}

// Projector turns due occurrences of recurring definitions into ledger
// transactions. Each occurrence is consumed exactly once: the cursor
// advance is a conditional write keyed on the previously observed due
// date, so two concurrent runs cannot both claim the same occurrence.
type Projector struct {
	defs      storage.DefinitionStore
	txs       storage.TransactionStore
	publisher EventPublisher

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewProjector(defs storage.DefinitionStore, txs storage.TransactionStore, publisher EventPublisher) *Projector {
	return &Projector{
		defs:      defs,
		txs:       txs,
		publisher: publisher,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor serializes in-process projections of the same definition.
func (p *Projector) lockFor(id uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	return l
}

// ProjectOne catches up a single definition: every occurrence due on or
// before today becomes one transaction, oldest first, until the cursor
// moves past today or the definition completes. Returns the number of
// transactions created.
func (p *Projector) ProjectOne(ctx context.Context, id uuid.UUID, today core.Date) (int, error) {
	l := p.lockFor(id)
	l.Lock()
	defer l.Unlock()

	def, err := p.defs.LoadDefinition(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load definition: %w", err)
	}

	return p.catchUp(ctx, def, today)
}

// catchUp consumes due occurrences one at a time. The cursor is claimed
// before the transaction is inserted, so a crash in between loses at most
// one ledger entry and never duplicates one.
func (p *Projector) catchUp(ctx context.Context, def core.RecurringDefinition, today core.Date) (int, error) {
	created := 0
	retries := 0

	for IsDue(def, today) {
		if !def.AutoCreate {
			break
		}

		occurrence := *def.NextDueDate

		advanced, err := AdvanceCursor(def)
		if err != nil {
			return created, err
		}

		prev := occurrence
		err = p.defs.SaveDefinitionCursor(ctx, advanced, &prev)
		if errors.Is(err, core.ErrConcurrencyConflict) {
			retries++
			if retries > maxClaimRetries {
				return created, fmt.Errorf("definition %s: %w", def.ID, core.ErrConcurrencyConflict)
			}
			def, err = p.defs.LoadDefinition(ctx, def.ID)
			if err != nil {
				return created, fmt.Errorf("reload definition after conflict: %w", err)
			}
			continue
		}
		if err != nil {
			return created, fmt.Errorf("save cursor: %w", err)
		}

		if err := p.emit(ctx, def, occurrence); err != nil {
			return created, err
		}

		created++
		def = advanced
	}

	return created, nil
}

// emit inserts the ledger entry for one claimed occurrence and announces
// it to the mirror pipeline.
func (p *Projector) emit(ctx context.Context, def core.RecurringDefinition, occurrence core.Date) error {
	tx := core.Transaction{
		ID:          uuid.New(),
		OwnerID:     def.OwnerID,
		Amount:      def.Amount,
		Direction:   def.Direction,
		CategoryID:  def.CategoryID,
		Date:        occurrence,
		Description: def.Name,
		RecurringID: &def.ID,
	}

	if err := p.txs.InsertTransaction(ctx, tx); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Projected transaction from recurring definition",
		"definition_id", def.ID,
		"transaction_id", tx.ID,
		"date", occurrence,
		"amount_cents", tx.Amount.Cents)

	if p.publisher != nil {
		if err := p.publisher.PublishTransactionSync(ctx, tx.ID, tx.OwnerID); err != nil {
			// The mirror backup path picks up the pending flag later.
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"transaction_id", tx.ID,
				"error", err)
		}
	}

	return nil
}

// ProjectOnDemand creates one transaction for the definition's current
// occurrence right now, regardless of auto_create, and advances the
// cursor once. The definition must be active and hold a cursor.
func (p *Projector) ProjectOnDemand(ctx context.Context, id uuid.UUID, today core.Date) (core.Transaction, error) {
	l := p.lockFor(id)
	l.Lock()
	defer l.Unlock()

	var out core.Transaction

	def, err := p.defs.LoadDefinition(ctx, id)
	if err != nil {
		return out, fmt.Errorf("load definition: %w", err)
	}

	if def.Status != core.DefinitionActive {
		return out, fmt.Errorf("definition %s is %s: %w", def.ID, def.Status, core.ErrInvalidStateTransition)
	}
	if def.NextDueDate == nil {
		return out, fmt.Errorf("definition %s has no cursor: %w", def.ID, core.ErrInvalidStateTransition)
	}

	occurrence := *def.NextDueDate

	advanced, err := AdvanceCursor(def)
	if err != nil {
		return out, err
	}

	prev := occurrence
	if err := p.defs.SaveDefinitionCursor(ctx, advanced, &prev); err != nil {
		return out, fmt.Errorf("save cursor: %w", err)
	}

	tx := core.Transaction{
		ID:          uuid.New(),
		OwnerID:     def.OwnerID,
		Amount:      def.Amount,
		Direction:   def.Direction,
		CategoryID:  def.CategoryID,
		Date:        today,
		Description: def.Name,
		RecurringID: &def.ID,
	}

	if err := p.txs.InsertTransaction(ctx, tx); err != nil {
		return out, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Created on-demand transaction",
		"definition_id", def.ID,
		"transaction_id", tx.ID,
		"scheduled_for", occurrence,
		"created_on", today)

	if p.publisher != nil {
		if err := p.publisher.PublishTransactionSync(ctx, tx.ID, tx.OwnerID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"transaction_id", tx.ID,
				"error", err)
		}
	}

	return tx, nil
}

// ProjectAllDue runs a full processing pass: every active definition of
// every owner is caught up, and upcoming occurrences inside a notify
// window produce reminder events. Failures are collected per definition.
func (p *Projector) ProjectAllDue(ctx context.Context, today core.Date) (ProjectionReport, error) {
	var report ProjectionReport

	owners, err := p.defs.ListActiveOwners(ctx)
	if err != nil {
		return report, fmt.Errorf("list active owners: %w", err)
	}

	for _, owner := range owners {
		p.projectOwner(ctx, owner, today, &report)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", report.CreatedCount,
		"skipped", report.SkippedCount,
		"errors", len(report.Errors))

	return report, nil
}

// ProjectOwnerDue catches up a single owner's definitions, with the same
// per-definition error isolation as a full pass.
func (p *Projector) ProjectOwnerDue(ctx context.Context, ownerID uuid.UUID, today core.Date) (ProjectionReport, error) {
	var report ProjectionReport
	p.projectOwner(ctx, ownerID, today, &report)

	slog.InfoContext(ctx, "Recurring processing complete for owner",
		"owner_id", ownerID,
		"created", report.CreatedCount,
		"skipped", report.SkippedCount,
		"errors", len(report.Errors))

	return report, nil
}

func (p *Projector) projectOwner(ctx context.Context, owner uuid.UUID, today core.Date, report *ProjectionReport) {
	defs, err := p.defs.ListDefinitionsByOwner(ctx, owner)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list definitions for owner",
			"owner_id", owner,
			"error", err)
		report.Errors = append(report.Errors, ProjectionError{Err: err})
		return
	}

	for _, def := range defs {
		if def.Status != core.DefinitionActive {
			continue
		}

		p.remindIfUpcoming(ctx, def, today)

		if !IsDue(def, today) {
			continue
		}
		if !def.AutoCreate {
			report.SkippedCount++
			continue
		}

		created, err := p.ProjectOne(ctx, def.ID, today)
		report.CreatedCount += created
		if err != nil {
			slog.ErrorContext(ctx, "Failed to project definition",
				"definition_id", def.ID,
				"error", err)
			report.Errors = append(report.Errors, ProjectionError{DefinitionID: def.ID, Err: err})
		}
	}
}

// remindIfUpcoming publishes a due reminder when the next occurrence
// falls inside the definition's notify window but is not yet due.
func (p *Projector) remindIfUpcoming(ctx context.Context, def core.RecurringDefinition, today core.Date) {
	if p.publisher == nil || def.NotifyBeforeDays <= 0 || def.NextDueDate == nil {
		return
	}

	daysUntil := today.DaysUntil(*def.NextDueDate)
	if daysUntil <= 0 || daysUntil > def.NotifyBeforeDays {
		return
	}

	if err := p.publisher.PublishDueReminder(ctx, def, *def.NextDueDate, daysUntil); err != nil {
		slog.ErrorContext(ctx, "Failed to publish due reminder",
			"definition_id", def.ID,
			"error", err)
	}
}
