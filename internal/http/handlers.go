package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/services"
)

type definitionRequest struct {
	OwnerID          uuid.UUID  `json:"owner_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Amount           string     `json:"amount"`
	Direction        string     `json:"direction"`
	CategoryID       *uuid.UUID `json:"category_id"`
	Frequency        string     `json:"frequency"`
	StartDate        core.Date  `json:"start_date"`
	EndDate          *core.Date `json:"end_date"`
	AutoCreate       bool       `json:"auto_create"`
	NotifyBeforeDays int        `json:"notify_before_days"`
}

type definitionResponse struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Amount           string     `json:"amount"`
	AmountCents      int64      `json:"amount_cents"`
	Direction        string     `json:"direction"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	Frequency        string     `json:"frequency"`
	StartDate        core.Date  `json:"start_date"`
	EndDate          *core.Date `json:"end_date,omitempty"`
	NextDueDate      *core.Date `json:"next_due_date,omitempty"`
	Status           string     `json:"status"`
	AutoCreate       bool       `json:"auto_create"`
	NotifyBeforeDays int        `json:"notify_before_days,omitempty"`
}

func toDefinitionResponse(def core.RecurringDefinition) definitionResponse {
	return definitionResponse{
		ID:               def.ID,
		OwnerID:          def.OwnerID,
		Name:             def.Name,
		Description:      def.Description,
		Amount:           def.Amount.Decimal(),
		AmountCents:      def.Amount.Cents,
		Direction:        string(def.Direction),
		CategoryID:       def.CategoryID,
		Frequency:        string(def.Frequency),
		StartDate:        def.StartDate,
		EndDate:          def.EndDate,
		NextDueDate:      def.NextDueDate,
		Status:           string(def.Status),
		AutoCreate:       def.AutoCreate,
		NotifyBeforeDays: def.NotifyBeforeDays,
	}
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	defs, err := s.definitions.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]definitionResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, toDefinitionResponse(def))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	def := core.RecurringDefinition{
		OwnerID:          req.OwnerID,
		Name:             req.Name,
		Description:      req.Description,
		Amount:           core.Money{Cents: cents},
		Direction:        core.Direction(req.Direction),
		CategoryID:       req.CategoryID,
		Frequency:        core.Frequency(req.Frequency),
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AutoCreate:       req.AutoCreate,
		NotifyBeforeDays: req.NotifyBeforeDays,
	}

	created, err := s.definitions.Create(r.Context(), def)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDefinitionResponse(created))
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	def, err := s.definitions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionResponse(def))
}

type definitionPatchRequest struct {
	Name             *string    `json:"name"`
	Description      *string    `json:"description"`
	Amount           *string    `json:"amount"`
	Direction        *string    `json:"direction"`
	CategoryID       *uuid.UUID `json:"category_id"`
	ClearCategory    bool       `json:"clear_category"`
	EndDate          *core.Date `json:"end_date"`
	AutoCreate       *bool      `json:"auto_create"`
	NotifyBeforeDays *int       `json:"notify_before_days"`
}

func (s *Server) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req definitionPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	patch := services.UpdatePatch{
		Name:             req.Name,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		ClearCategory:    req.ClearCategory,
		EndDate:          req.EndDate,
		AutoCreate:       req.AutoCreate,
		NotifyBeforeDays: req.NotifyBeforeDays,
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if req.Direction != nil {
		dir := core.Direction(*req.Direction)
		patch.Direction = &dir
	}

	def, err := s.definitions.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	s.overviewCache.Delete(def.OwnerID.String())
	writeJSON(w, http.StatusOK, toDefinitionResponse(def))
}

func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.definitions.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	def, err := s.definitions.Toggle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionResponse(def))
}

type transactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Amount      string     `json:"amount"`
	AmountCents int64      `json:"amount_cents"`
	Direction   string     `json:"direction"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description,omitempty"`
	RecurringID *uuid.UUID `json:"recurring_id,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		OwnerID:     tx.OwnerID,
		Amount:      tx.Amount.Decimal(),
		AmountCents: tx.Amount.Cents,
		Direction:   string(tx.Direction),
		CategoryID:  tx.CategoryID,
		Date:        tx.Date,
		Description: tx.Description,
		RecurringID: tx.RecurringID,
	}
}

func (s *Server) handleCreateNow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	tx, err := s.projector.ProjectOnDemand(r.Context(), id, core.DateOf(time.Now()))
	if err != nil {
		writeError(w, err)
		return
	}

	s.overviewCache.Delete(tx.OwnerID.String())
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

type processResponse struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var (
		report services.ProjectionReport
		err    error
	)
	today := core.DateOf(time.Now())

	// Without an owner the pass covers every owner, worker-style.
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		owner, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			writeBadRequest(w, "invalid owner_id")
			return
		}
		report, err = s.projector.ProjectOwnerDue(r.Context(), owner, today)
	} else {
		report, err = s.projector.ProjectAllDue(r.Context(), today)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	// Projections change derived spending everywhere.
	s.overviewCache.Purge()
	s.seriesCache.Purge()

	out := processResponse{
		Created: report.CreatedCount,
		Skipped: report.SkippedCount,
	}
	for _, pe := range report.Errors {
		out.Errors = append(out.Errors, pe.Err.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	txs, err := s.store.ListTransactionsByOwner(r.Context(), owner, rng)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

type budgetReportResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	LimitCents int64     `json:"limit_cents"`
	SpentCents int64     `json:"spent_cents"`
	Remaining  int64     `json:"remaining_cents"`
	Percentage float64   `json:"percentage"`
	Status     string    `json:"status"`
	WindowFrom core.Date `json:"window_from"`
	WindowTo   core.Date `json:"window_to"`
}

type goalReportResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	TargetCents  int64     `json:"target_cents"`
	CurrentCents int64     `json:"current_cents"`
	Percentage   float64   `json:"percentage"`
	Status       string    `json:"status"`
}

type overviewResponse struct {
	Budgets           []budgetReportResponse `json:"budgets"`
	Goals             []goalReportResponse   `json:"goals"`
	Alerts            []services.Alert       `json:"alerts"`
	TotalBudget       int64                  `json:"total_budget_cents"`
	TotalSpent        int64                  `json:"total_spent_cents"`
	TotalRemaining    int64                  `json:"total_remaining_cents"`
	OverallPercentage float64                `json:"overall_percentage"`
}

func toOverviewResponse(o services.Overview) overviewResponse {
	out := overviewResponse{
		Budgets:           make([]budgetReportResponse, 0, len(o.Budgets)),
		Goals:             make([]goalReportResponse, 0, len(o.Goals)),
		Alerts:            o.Alerts,
		TotalBudget:       o.Totals.BudgetCents,
		TotalSpent:        o.Totals.SpentCents,
		TotalRemaining:    o.Totals.RemainingCents,
		OverallPercentage: o.Totals.Percentage,
	}
	for _, b := range o.Budgets {
		out.Budgets = append(out.Budgets, budgetReportResponse{
			ID:         b.Budget.ID,
			Name:       b.Budget.Name,
			LimitCents: b.Budget.Amount.Cents,
			SpentCents: b.Spent.Cents,
			Remaining:  b.Remaining,
			Percentage: b.Percentage,
			Status:     string(b.Status),
			WindowFrom: b.Window.From,
			WindowTo:   b.Window.To,
		})
	}
	for _, g := range o.Goals {
		out.Goals = append(out.Goals, goalReportResponse{
			ID:           g.Goal.ID,
			Name:         g.Goal.Name,
			TargetCents:  g.Goal.TargetAmount.Cents,
			CurrentCents: g.Goal.CurrentAmount.Cents,
			Percentage:   g.Percentage,
			Status:       string(g.Goal.Status),
		})
	}
	if out.Alerts == nil {
		out.Alerts = []services.Alert{}
	}
	return out
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := owner.String()
	if cached, ok := s.overviewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toOverviewResponse(cached))
		return
	}

	overview, err := s.overview.Snapshot(r.Context(), owner, core.DateOf(time.Now()))
	if err != nil {
		writeError(w, err)
		return
	}

	s.overviewCache.Set(key, overview)
	writeJSON(w, http.StatusOK, toOverviewResponse(overview))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reports, err := s.overview.BudgetReports(r.Context(), owner, core.DateOf(time.Now()))
	if err != nil {
		writeError(w, err)
		return
	}

	alerts := services.EvaluateAlerts(reports)
	if alerts == nil {
		alerts = []services.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

type bucketResponse struct {
	Label        string    `json:"label"`
	Start        core.Date `json:"start"`
	IncomeCents  int64     `json:"income_cents"`
	ExpenseCents int64     `json:"expense_cents"`
	NetCents     int64     `json:"net_cents"`
}

func (s *Server) handleAnalyticsSeries(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := "series:" + owner.String() + ":" + r.URL.RawQuery
	if cached, ok := s.seriesCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	buckets, err := s.analytics.Series(r.Context(), owner, rng)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketResponse{
			Label:        b.Label,
			Start:        b.Start,
			IncomeCents:  b.IncomeTotal.Cents,
			ExpenseCents: b.ExpenseTotal.Cents,
			NetCents:     b.Net.Cents,
		})
	}

	body, err := json.Marshal(out)
	if err != nil {
		writeError(w, err)
		return
	}
	s.seriesCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type analyticsSummaryResponse struct {
	TotalIncomeCents   int64                   `json:"total_income_cents"`
	TotalExpensesCents int64                   `json:"total_expenses_cents"`
	TotalSavingsCents  int64                   `json:"total_savings_cents"`
	Buckets            []bucketResponse        `json:"buckets"`
	Categories         []categoryTotalResponse `json:"category_data"`
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := "summary:" + owner.String() + ":" + r.URL.RawQuery
	if cached, ok := s.seriesCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	summary, err := s.analytics.Summarize(r.Context(), owner, rng)
	if err != nil {
		writeError(w, err)
		return
	}

	out := analyticsSummaryResponse{
		TotalIncomeCents:   summary.TotalIncome.Cents,
		TotalExpensesCents: summary.TotalExpenses.Cents,
		TotalSavingsCents:  summary.TotalSavings.Cents,
		Buckets:            make([]bucketResponse, 0, len(summary.Buckets)),
		Categories:         make([]categoryTotalResponse, 0, len(summary.Categories)),
	}
	for _, b := range summary.Buckets {
		out.Buckets = append(out.Buckets, bucketResponse{
			Label:        b.Label,
			Start:        b.Start,
			IncomeCents:  b.IncomeTotal.Cents,
			ExpenseCents: b.ExpenseTotal.Cents,
			NetCents:     b.Net.Cents,
		})
	}
	for _, ct := range summary.Categories {
		out.Categories = append(out.Categories, categoryTotalResponse{
			CategoryID: ct.CategoryID,
			TotalCents: ct.Total.Cents,
		})
	}

	body, err := json.Marshal(out)
	if err != nil {
		writeError(w, err)
		return
	}
	s.seriesCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type categoryTotalResponse struct {
	CategoryID *uuid.UUID `json:"category_id"`
	TotalCents int64      `json:"total_cents"`
}

func (s *Server) handleAnalyticsCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	totals, err := s.analytics.SpendingByCategory(r.Context(), owner, rng)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]categoryTotalResponse, 0, len(totals))
	for _, ct := range totals {
		out = append(out, categoryTotalResponse{
			CategoryID: ct.CategoryID,
			TotalCents: ct.Total.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type contributionRequest struct {
	Amount string    `json:"amount"`
	Date   core.Date `json:"date"`
	Note   string    `json:"note"`
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req contributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	date := req.Date
	if date.IsZero() {
		date = core.DateOf(time.Now())
	}

	goal, err := s.goals.AddContribution(r.Context(), id, core.Money{Cents: cents}, date, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Recorded goal contribution",
		"goal_id", goal.ID,
		"amount_cents", cents,
		"status", goal.Status)

	s.overviewCache.Delete(goal.OwnerID.String())

	report := services.EvaluateGoal(goal)
	writeJSON(w, http.StatusCreated, goalReportResponse{
		ID:           goal.ID,
		Name:         goal.Name,
		TargetCents:  goal.TargetAmount.Cents,
		CurrentCents: goal.CurrentAmount.Cents,
		Percentage:   report.Percentage,
		Status:       string(goal.Status),
	})
}
