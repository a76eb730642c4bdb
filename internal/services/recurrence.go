// Package services holds the scheduling, projection, and aggregation
// logic that sits between the HTTP layer and storage.
package services

import (
	"fmt"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
)

// IsDue reports whether def has an unprocessed occurrence on or before
// today. Paused and completed definitions are never due, and neither is
// a cursor that an end-date edit has left stranded past the end date.
func IsDue(def core.RecurringDefinition, today core.Date) bool {
	if def.Status != core.DefinitionActive {
		return false
	}
	if def.NextDueDate == nil {
		return false
	}
	if def.EndDate != nil && def.NextDueDate.After(*def.EndDate) {
		return false
	}
	return !def.NextDueDate.After(today)
}

// AdvanceCursor moves the scheduling cursor one occurrence forward and
// returns the updated definition. When the next occurrence would land past
// the end date, the definition completes and the cursor is cleared.
func AdvanceCursor(def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if def.NextDueDate == nil {
		return def, fmt.Errorf("definition %s has no cursor: %w", def.ID, core.ErrInvalidStateTransition)
	}

	next, err := core.AdvanceDate(*def.NextDueDate, def.Frequency)
	if err != nil {
		return def, fmt.Errorf("advance cursor for %s: %w", def.ID, err)
	}

	if def.EndDate != nil && next.After(*def.EndDate) {
		def.Status = core.DefinitionCompleted
		def.NextDueDate = nil
		return def, nil
	}

	def.NextDueDate = &next
	return def, nil
}

// Toggle flips a definition between active and paused. Completed is
// terminal. Resuming keeps the cursor where it was, so missed occurrences
// are caught up on the next processing run.
func Toggle(def core.RecurringDefinition) (core.RecurringDefinition, error) {
	switch def.Status {
	case core.DefinitionActive:
		def.Status = core.DefinitionPaused
		return def, nil
	case core.DefinitionPaused:
		def.Status = core.DefinitionActive
		return def, nil
	case core.DefinitionCompleted:
		return def, fmt.Errorf("definition %s is completed: %w", def.ID, core.ErrInvalidStateTransition)
	default:
		return def, fmt.Errorf("definition %s has unknown status %q: %w", def.ID, def.Status, core.ErrInvalidStateTransition)
	}
}

// InitCursor sets the cursor of a freshly created definition to its start
// date and marks it active.
func InitCursor(def core.RecurringDefinition) core.RecurringDefinition {
	start := def.StartDate
	def.NextDueDate = &start
	def.Status = core.DefinitionActive
	return def
}
