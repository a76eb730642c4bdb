package services

import "github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"

// Alert flags one budget that crossed a spending threshold. Budgets below
// the warning threshold produce no alert at all.
type Alert struct {
	BudgetID   string             `json:"budget_id"`
	BudgetName string             `json:"budget_name"`
	Severity   core.AlertSeverity `json:"severity"`
	Percentage float64            `json:"percentage"`
	SpentCents int64              `json:"spent_cents"`
	LimitCents int64              `json:"limit_cents"`
	Remaining  int64              `json:"remaining_cents"`
}

// EvaluateAlerts derives the sparse alert list from budget reports.
// Spending in [80%, 100%) is danger; at or over the limit is exceeded.
func EvaluateAlerts(reports []BudgetReport) []Alert {
	var alerts []Alert
	for _, r := range reports {
		var severity core.AlertSeverity
		switch {
		case r.Percentage >= budgetDangerPct:
			severity = core.SeverityExceeded
		case r.Percentage >= budgetWarningPct:
			severity = core.SeverityDanger
		default:
			continue
		}
		alerts = append(alerts, Alert{
			BudgetID:   r.Budget.ID.String(),
			BudgetName: r.Budget.Name,
			Severity:   severity,
			Percentage: r.Percentage,
			SpentCents: r.Spent.Cents,
			LimitCents: r.Budget.Amount.Cents,
			Remaining:  r.Remaining,
		})
	}
	return alerts
}
