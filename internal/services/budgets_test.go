package services

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage/memory"
)

func expenseTx(owner uuid.UUID, date core.Date, cents int64, category *uuid.UUID) core.Transaction {
	return core.Transaction{
		ID:         uuid.New(),
		OwnerID:    owner,
		Amount:     core.Money{Cents: cents},
		Direction:  core.Expense,
		CategoryID: category,
		Date:       date,
	}
}

func TestEvaluateBudgetStatusThresholds(t *testing.T) {
	owner := uuid.New()
	today := core.NewDate(2024, 3, 15)
	budget := core.Budget{
		ID:       uuid.New(),
		OwnerID:  owner,
		Name:     "Groceries",
		Amount:   core.Money{Cents: 100000}, // 1000.00
		Period:   core.PeriodMonthly,
		IsActive: true,
	}

	tests := []struct {
		name       string
		spentCents int64
		wantPct    float64
		wantStatus core.BudgetStatus
	}{
		{"well under", 50000, 50.0, core.BudgetGood},
		{"just under warning", 79999, 79.999, core.BudgetGood},
		{"at warning boundary", 80000, 80.0, core.BudgetWarning},
		{"85 percent", 85000, 85.0, core.BudgetWarning},
		{"just under limit", 99999, 99.999, core.BudgetWarning},
		{"at the limit", 100000, 100.0, core.BudgetDanger},
		{"over the limit", 130000, 130.0, core.BudgetDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []core.Transaction{expenseTx(owner, today, tt.spentCents, nil)}
			report := EvaluateBudget(budget, txs, today)

			if math.Abs(report.Percentage-tt.wantPct) > 0.001 {
				t.Errorf("Percentage = %v, want %v", report.Percentage, tt.wantPct)
			}
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", report.Status, tt.wantStatus)
			}
			if report.Spent.Cents != tt.spentCents {
				t.Errorf("Spent = %d, want %d", report.Spent.Cents, tt.spentCents)
			}
			if report.Remaining != budget.Amount.Cents-tt.spentCents {
				t.Errorf("Remaining = %d, want %d", report.Remaining, budget.Amount.Cents-tt.spentCents)
			}
		})
	}
}

func TestEvaluateBudgetWindowAndFilters(t *testing.T) {
	owner := uuid.New()
	category := uuid.New()
	other := uuid.New()
	today := core.NewDate(2024, 3, 15)

	budget := core.Budget{
		ID:         uuid.New(),
		OwnerID:    owner,
		Name:       "Dining",
		Amount:     core.Money{Cents: 50000},
		CategoryID: &category,
		Period:     core.PeriodMonthly,
		IsActive:   true,
	}

	txs := []core.Transaction{
		expenseTx(owner, core.NewDate(2024, 3, 5), 10000, &category),
		// Different category, same month: excluded.
		expenseTx(owner, core.NewDate(2024, 3, 6), 99999, &other),
		// Uncategorized: excluded from a categorized budget.
		expenseTx(owner, core.NewDate(2024, 3, 7), 5000, nil),
		// Previous month: outside the window.
		expenseTx(owner, core.NewDate(2024, 2, 28), 20000, &category),
		// Income never counts against a budget.
		{
			ID:         uuid.New(),
			OwnerID:    owner,
			Amount:     core.Money{Cents: 300000},
			Direction:  core.Income,
			CategoryID: &category,
			Date:       core.NewDate(2024, 3, 10),
		},
	}

	report := EvaluateBudget(budget, txs, today)
	if report.Spent.Cents != 10000 {
		t.Errorf("Spent = %d, want 10000", report.Spent.Cents)
	}
	if !report.Window.From.Equal(core.NewDate(2024, 3, 1)) || !report.Window.To.Equal(core.NewDate(2024, 3, 31)) {
		t.Errorf("Window = %v..%v, want 2024-03-01..2024-03-31", report.Window.From, report.Window.To)
	}
}

func TestEvaluateBudgetUncategorizedTracksAllSpending(t *testing.T) {
	owner := uuid.New()
	category := uuid.New()
	today := core.NewDate(2024, 3, 15)

	budget := core.Budget{
		ID:       uuid.New(),
		OwnerID:  owner,
		Name:     "Everything",
		Amount:   core.Money{Cents: 100000},
		Period:   core.PeriodMonthly,
		IsActive: true,
	}

	txs := []core.Transaction{
		expenseTx(owner, core.NewDate(2024, 3, 5), 10000, &category),
		expenseTx(owner, core.NewDate(2024, 3, 6), 5000, nil),
	}

	report := EvaluateBudget(budget, txs, today)
	if report.Spent.Cents != 15000 {
		t.Errorf("Spent = %d, want 15000", report.Spent.Cents)
	}
}

func TestResolveWindow(t *testing.T) {
	today := core.NewDate(2024, 2, 10)

	t.Run("monthly follows the calendar month", func(t *testing.T) {
		w := resolveWindow(core.Budget{Period: core.PeriodMonthly}, today)
		if !w.From.Equal(core.NewDate(2024, 2, 1)) || !w.To.Equal(core.NewDate(2024, 2, 29)) {
			t.Errorf("window = %v..%v, want leap February", w.From, w.To)
		}
	})

	t.Run("yearly follows the calendar year", func(t *testing.T) {
		w := resolveWindow(core.Budget{Period: core.PeriodYearly}, today)
		if !w.From.Equal(core.NewDate(2024, 1, 1)) || !w.To.Equal(core.NewDate(2024, 12, 31)) {
			t.Errorf("window = %v..%v", w.From, w.To)
		}
	})

	t.Run("custom uses the budget's own dates", func(t *testing.T) {
		b := core.Budget{
			Period:    core.PeriodCustom,
			StartDate: core.NewDate(2024, 1, 10),
			EndDate:   core.NewDate(2024, 4, 10),
		}
		w := resolveWindow(b, today)
		if !w.From.Equal(b.StartDate) || !w.To.Equal(b.EndDate) {
			t.Errorf("window = %v..%v", w.From, w.To)
		}
	})
}

func TestOverviewSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := uuid.New()
	today := core.NewDate(2024, 3, 15)

	store.AddBudget(core.Budget{
		ID:       uuid.New(),
		OwnerID:  owner,
		Name:     "Groceries",
		Amount:   core.Money{Cents: 100000},
		Period:   core.PeriodMonthly,
		IsActive: true,
	})
	store.AddBudget(core.Budget{
		ID:       uuid.New(),
		OwnerID:  owner,
		Name:     "Old budget",
		Amount:   core.Money{Cents: 100},
		Period:   core.PeriodMonthly,
		IsActive: false,
	})

	if err := store.InsertTransaction(ctx, expenseTx(owner, today, 85000, nil)); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	goal := core.Goal{
		ID:            uuid.New(),
		OwnerID:       owner,
		Name:          "Vacation",
		TargetAmount:  core.Money{Cents: 200000},
		CurrentAmount: core.Money{Cents: 50000},
		Status:        core.GoalActive,
	}
	if err := store.SaveGoal(ctx, goal); err != nil {
		t.Fatalf("seed goal: %v", err)
	}

	svc := NewOverviewService(store)
	overview, err := svc.Snapshot(ctx, owner, today)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if len(overview.Budgets) != 1 {
		t.Fatalf("budgets = %d, want 1 (inactive excluded)", len(overview.Budgets))
	}
	if overview.Budgets[0].Status != core.BudgetWarning {
		t.Errorf("budget status = %v, want warning at 85%%", overview.Budgets[0].Status)
	}
	if len(overview.Goals) != 1 || overview.Goals[0].Percentage != 25.0 {
		t.Errorf("goals = %+v, want one at 25%%", overview.Goals)
	}
	if len(overview.Alerts) != 1 || overview.Alerts[0].Severity != core.SeverityDanger {
		t.Errorf("alerts = %+v, want one danger alert", overview.Alerts)
	}
	// Totals cover only active budgets.
	if overview.Totals.BudgetCents != 100000 || overview.Totals.SpentCents != 85000 {
		t.Errorf("totals = %+v, want 100000 budget / 85000 spent", overview.Totals)
	}
	if overview.Totals.RemainingCents != 15000 || overview.Totals.Percentage != 85.0 {
		t.Errorf("totals = %+v, want 15000 remaining at 85%%", overview.Totals)
	}
}
