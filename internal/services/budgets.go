package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// Budget status thresholds, in percent of the budget limit.
const (
	budgetWarningPct = 80.0
	budgetDangerPct  = 100.0
)

// BudgetReport is the derived view of one budget over its current window.
// Nothing here is ever stored; it is recomputed from the ledger on read.
type BudgetReport struct {
	Budget     core.Budget
	Window     storage.DateRange
	Spent      core.Money
	Remaining  int64
	Percentage float64
	Status     core.BudgetStatus
}

// resolveWindow maps a budget's period onto concrete dates. Monthly and
// yearly windows follow the calendar around today; custom windows come
// from the budget itself.
func resolveWindow(b core.Budget, today core.Date) storage.DateRange {
	switch b.Period {
	case core.PeriodMonthly:
		first := core.NewDate(today.Year(), today.Month(), 1)
		last := first.AddDays(core.DaysInMonth(today.Year(), today.Month()) - 1)
		return storage.DateRange{From: first, To: last}
	case core.PeriodYearly:
		return storage.DateRange{
			From: core.NewDate(today.Year(), 1, 1),
			To:   core.NewDate(today.Year(), 12, 31),
		}
	default:
		return storage.DateRange{From: b.StartDate, To: b.EndDate}
	}
}

// EvaluateBudget computes spent, remaining, and status for one budget
// against a set of transactions. Only expense entries count; a budget
// without a category tracks all spending.
func EvaluateBudget(b core.Budget, txs []core.Transaction, today core.Date) BudgetReport {
	window := resolveWindow(b, today)

	var spent int64
	for _, tx := range txs {
		if tx.Direction != core.Expense {
			continue
		}
		if !window.Contains(tx.Date) {
			continue
		}
		if b.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *b.CategoryID) {
			continue
		}
		spent += tx.Amount.Cents
	}

	report := BudgetReport{
		Budget:    b,
		Window:    window,
		Spent:     core.Money{Cents: spent},
		Remaining: b.Amount.Cents - spent,
		Status:    core.BudgetGood,
	}

	if b.Amount.Cents > 0 {
		report.Percentage = float64(spent) / float64(b.Amount.Cents) * 100.0
	}

	switch {
	case report.Percentage >= budgetDangerPct:
		report.Status = core.BudgetDanger
	case report.Percentage >= budgetWarningPct:
		report.Status = core.BudgetWarning
	}

	return report
}

// OverviewTotals rolls all active budgets up into one figure set.
type OverviewTotals struct {
	BudgetCents    int64
	SpentCents     int64
	RemainingCents int64
	Percentage     float64
}

// Overview is the combined financial snapshot for one owner.
type Overview struct {
	Budgets []BudgetReport
	Goals   []GoalReport
	Alerts  []Alert
	Totals  OverviewTotals
}

// sumBudgetReports folds per-budget figures into the overall totals.
func sumBudgetReports(reports []BudgetReport) OverviewTotals {
	var t OverviewTotals
	for _, r := range reports {
		t.BudgetCents += r.Budget.Amount.Cents
		t.SpentCents += r.Spent.Cents
	}
	t.RemainingCents = t.BudgetCents - t.SpentCents
	if t.BudgetCents > 0 {
		t.Percentage = float64(t.SpentCents) / float64(t.BudgetCents) * 100.0
	}
	return t
}

// OverviewService assembles the per-owner snapshot. Budgets and goals
// load concurrently since they touch independent tables.
type OverviewService struct {
	store storage.Store
}

func NewOverviewService(store storage.Store) *OverviewService {
	return &OverviewService{store: store}
}

// BudgetReports evaluates every active budget of an owner as of today.
func (s *OverviewService) BudgetReports(ctx context.Context, ownerID uuid.UUID, today core.Date) ([]BudgetReport, error) {
	budgets, err := s.store.ListBudgetsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	txs, err := s.store.ListTransactionsByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	reports := make([]BudgetReport, 0, len(budgets))
	for _, b := range budgets {
		if !b.IsActive {
			continue
		}
		reports = append(reports, EvaluateBudget(b, txs, today))
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Budget.Name < reports[j].Budget.Name
	})

	return reports, nil
}

// Snapshot builds the full overview for one owner.
func (s *OverviewService) Snapshot(ctx context.Context, ownerID uuid.UUID, today core.Date) (Overview, error) {
	var out Overview

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reports, err := s.BudgetReports(gctx, ownerID, today)
		if err != nil {
			return err
		}
		out.Budgets = reports
		return nil
	})

	g.Go(func() error {
		goals, err := s.store.ListGoalsByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		reports := make([]GoalReport, 0, len(goals))
		for _, goal := range goals {
			reports = append(reports, EvaluateGoal(goal))
		}
		out.Goals = reports
		return nil
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	out.Alerts = EvaluateAlerts(out.Budgets)
	out.Totals = sumBudgetReports(out.Budgets)
	return out, nil
}
