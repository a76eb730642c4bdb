package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// GoalReport is the derived progress view of one savings goal.
type GoalReport struct {
	Goal       core.Goal
	Percentage float64
	Remaining  int64
}

// EvaluateGoal computes progress toward the target. Percentage caps at
// 100 even when contributions overshoot.
func EvaluateGoal(g core.Goal) GoalReport {
	report := GoalReport{
		Goal:      g,
		Remaining: g.TargetAmount.Cents - g.CurrentAmount.Cents,
	}
	if report.Remaining < 0 {
		report.Remaining = 0
	}
	if g.TargetAmount.Cents > 0 {
		report.Percentage = float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents) * 100.0
		if report.Percentage > 100.0 {
			report.Percentage = 100.0
		}
	}
	return report
}

// GoalService mutates goals through contributions.
type GoalService struct {
	store storage.GoalStore
}

func NewGoalService(store storage.GoalStore) *GoalService {
	return &GoalService{store: store}
}

// AddContribution records a contribution and rolls it into the goal's
// running total. Reaching the target completes the goal; completion is
// one-way and completed goals accept no further contributions.
func (s *GoalService) AddContribution(ctx context.Context, goalID uuid.UUID, amount core.Money, date core.Date, note string) (core.Goal, error) {
	var out core.Goal

	if err := amount.Validate(); err != nil {
		return out, err
	}

	goal, err := s.store.LoadGoal(ctx, goalID)
	if err != nil {
		return out, fmt.Errorf("load goal: %w", err)
	}

	if goal.Status == core.GoalCompleted {
		return out, fmt.Errorf("goal %s is completed: %w", goal.ID, core.ErrInvalidStateTransition)
	}

	contribution := core.Contribution{
		ID:     uuid.New(),
		GoalID: goal.ID,
		Amount: amount,
		Date:   date,
		Note:   note,
	}
	if err := s.store.AppendContribution(ctx, contribution); err != nil {
		return out, fmt.Errorf("append contribution: %w", err)
	}

	goal.CurrentAmount.Cents += amount.Cents
	if goal.CurrentAmount.Cents >= goal.TargetAmount.Cents {
		goal.Status = core.GoalCompleted
	}

	if err := s.store.SaveGoal(ctx, goal); err != nil {
		return out, fmt.Errorf("save goal: %w", err)
	}

	return goal, nil
}
