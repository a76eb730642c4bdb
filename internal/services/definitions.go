package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// DefinitionService manages the lifecycle of recurring definitions.
type DefinitionService struct {
	defs       storage.DefinitionStore
	categories storage.CategoryStore
}

func NewDefinitionService(defs storage.DefinitionStore, categories storage.CategoryStore) *DefinitionService {
	return &DefinitionService{defs: defs, categories: categories}
}

// Create validates the definition, checks its category reference, seeds
// the scheduling cursor at the start date, and persists it.
func (s *DefinitionService) Create(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}

	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}

	if def.CategoryID != nil {
		if _, err := s.categories.LoadCategory(ctx, *def.CategoryID); err != nil {
			return core.RecurringDefinition{}, fmt.Errorf("category %s: %w", def.CategoryID, core.ErrReference)
		}
	}

	def = InitCursor(def)

	if err := s.defs.CreateDefinition(ctx, def); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("create definition: %w", err)
	}

	slog.InfoContext(ctx, "Created recurring definition",
		"id", def.ID,
		"name", def.Name,
		"frequency", def.Frequency,
		"start_date", def.StartDate)

	return def, nil
}

// List returns all definitions of an owner.
func (s *DefinitionService) List(ctx context.Context, ownerID uuid.UUID) ([]core.RecurringDefinition, error) {
	return s.defs.ListDefinitionsByOwner(ctx, ownerID)
}

// Get loads one definition.
func (s *DefinitionService) Get(ctx context.Context, id uuid.UUID) (core.RecurringDefinition, error) {
	return s.defs.LoadDefinition(ctx, id)
}

// UpdatePatch carries the editable fields of a definition. Frequency,
// start date and the scheduling cursor are fixed at creation; delete
// and recreate to reschedule.
type UpdatePatch struct {
	Name             *string
	Description      *string
	Amount           *core.Money
	Direction        *core.Direction
	CategoryID       *uuid.UUID
	ClearCategory    bool
	EndDate          *core.Date
	AutoCreate       *bool
	NotifyBeforeDays *int
}

// Update applies a patch to an existing definition and persists it.
func (s *DefinitionService) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (core.RecurringDefinition, error) {
	def, err := s.defs.LoadDefinition(ctx, id)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("load definition: %w", err)
	}

	if patch.Name != nil {
		def.Name = *patch.Name
	}
	if patch.Description != nil {
		def.Description = *patch.Description
	}
	if patch.Amount != nil {
		def.Amount = *patch.Amount
	}
	if patch.Direction != nil {
		def.Direction = *patch.Direction
	}
	if patch.ClearCategory {
		def.CategoryID = nil
	} else if patch.CategoryID != nil {
		def.CategoryID = patch.CategoryID
	}
	if patch.EndDate != nil {
		def.EndDate = patch.EndDate
	}
	if patch.AutoCreate != nil {
		def.AutoCreate = *patch.AutoCreate
	}
	if patch.NotifyBeforeDays != nil {
		def.NotifyBeforeDays = *patch.NotifyBeforeDays
	}

	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}

	if def.CategoryID != nil {
		if _, err := s.categories.LoadCategory(ctx, *def.CategoryID); err != nil {
			return core.RecurringDefinition{}, fmt.Errorf("category %s: %w", def.CategoryID, core.ErrReference)
		}
	}

	// A shortened end date can undercut the cursor; no occurrence past
	// the end date may ever be projected, so the definition completes.
	if def.EndDate != nil && def.NextDueDate != nil && def.NextDueDate.After(*def.EndDate) {
		def.Status = core.DefinitionCompleted
		def.NextDueDate = nil
	}

	if err := s.defs.UpdateDefinition(ctx, def); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("update definition: %w", err)
	}

	slog.InfoContext(ctx, "Updated recurring definition", "id", def.ID, "name", def.Name, "status", def.Status)

	return def, nil
}

// Toggle pauses an active definition or resumes a paused one.
func (s *DefinitionService) Toggle(ctx context.Context, id uuid.UUID) (core.RecurringDefinition, error) {
	def, err := s.defs.LoadDefinition(ctx, id)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("load definition: %w", err)
	}

	toggled, err := Toggle(def)
	if err != nil {
		return core.RecurringDefinition{}, err
	}

	if err := s.defs.UpdateDefinition(ctx, toggled); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("update definition: %w", err)
	}

	slog.InfoContext(ctx, "Toggled recurring definition",
		"id", toggled.ID,
		"status", toggled.Status)

	return toggled, nil
}

// Delete removes a definition. Already-projected transactions stay in
// the ledger.
func (s *DefinitionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.defs.DeleteDefinition(ctx, id); err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	slog.InfoContext(ctx, "Deleted recurring definition", "id", id)
	return nil
}
