package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage/memory"
)

func seedGoal(t *testing.T, store *memory.Store, current, target int64) core.Goal {
	t.Helper()
	goal := core.Goal{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Name:          "Emergency fund",
		TargetAmount:  core.Money{Cents: target},
		CurrentAmount: core.Money{Cents: current},
		Status:        core.GoalActive,
	}
	if err := store.SaveGoal(context.Background(), goal); err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	return goal
}

func TestAddContribution(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewGoalService(store)

	goal := seedGoal(t, store, 0, 100000)
	date := core.NewDate(2024, 3, 1)

	updated, err := svc.AddContribution(ctx, goal.ID, core.Money{Cents: 30000}, date, "payday")
	if err != nil {
		t.Fatalf("AddContribution() error = %v", err)
	}
	if updated.CurrentAmount.Cents != 30000 {
		t.Errorf("CurrentAmount = %d, want 30000", updated.CurrentAmount.Cents)
	}
	if updated.Status != core.GoalActive {
		t.Errorf("Status = %v, want active", updated.Status)
	}

	contributions := store.Contributions(goal.ID)
	if len(contributions) != 1 {
		t.Fatalf("contributions = %d, want 1", len(contributions))
	}
	if contributions[0].Note != "payday" {
		t.Errorf("note = %q, want %q", contributions[0].Note, "payday")
	}
}

func TestAddContributionCompletesGoal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewGoalService(store)

	goal := seedGoal(t, store, 90000, 100000)

	updated, err := svc.AddContribution(ctx, goal.ID, core.Money{Cents: 15000}, core.NewDate(2024, 3, 1), "")
	if err != nil {
		t.Fatalf("AddContribution() error = %v", err)
	}
	if updated.Status != core.GoalCompleted {
		t.Errorf("Status = %v, want completed on overshoot", updated.Status)
	}

	// Completion is one-way: further contributions are rejected.
	_, err = svc.AddContribution(ctx, goal.ID, core.Money{Cents: 100}, core.NewDate(2024, 3, 2), "")
	if !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Errorf("error = %v, want ErrInvalidStateTransition", err)
	}
}

func TestAddContributionRejectsInvalidAmount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewGoalService(store)

	goal := seedGoal(t, store, 0, 100000)

	for _, cents := range []int64{0, -500} {
		_, err := svc.AddContribution(ctx, goal.ID, core.Money{Cents: cents}, core.NewDate(2024, 3, 1), "")
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("AddContribution(%d) error = %v, want ErrInvalidAmount", cents, err)
		}
	}

	if got := store.Contributions(goal.ID); len(got) != 0 {
		t.Errorf("contributions = %d, want 0", len(got))
	}
}

func TestEvaluateGoal(t *testing.T) {
	tests := []struct {
		name          string
		current       int64
		target        int64
		wantPct       float64
		wantRemaining int64
	}{
		{"empty", 0, 100000, 0.0, 100000},
		{"halfway", 50000, 100000, 50.0, 50000},
		{"complete", 100000, 100000, 100.0, 0},
		{"overshoot caps at 100", 150000, 100000, 100.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := EvaluateGoal(core.Goal{
				TargetAmount:  core.Money{Cents: tt.target},
				CurrentAmount: core.Money{Cents: tt.current},
			})
			if report.Percentage != tt.wantPct {
				t.Errorf("Percentage = %v, want %v", report.Percentage, tt.wantPct)
			}
			if report.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", report.Remaining, tt.wantRemaining)
			}
		})
	}
}
