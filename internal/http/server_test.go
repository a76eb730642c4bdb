package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/services"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	projector := services.NewProjector(store, store, nil)
	return NewServer(":0", store, projector), store
}

func doJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestCreateAndListDefinitions(t *testing.T) {
	s, _ := newTestServer(t)
	owner := uuid.New()

	payload := map[string]any{
		"owner_id":    owner,
		"name":        "Rent",
		"amount":      "1200.00",
		"direction":   "expense",
		"frequency":   "monthly",
		"start_date":  "2024-01-15",
		"auto_create": true,
	}

	rec := doJSON(t, s, http.MethodPost, "/api/recurring", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created definitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.AmountCents != 120000 {
		t.Errorf("AmountCents = %d, want 120000", created.AmountCents)
	}
	if created.Status != "active" {
		t.Errorf("Status = %q, want active", created.Status)
	}
	if created.NextDueDate == nil || created.NextDueDate.String() != "2024-01-15" {
		t.Errorf("NextDueDate = %v, want 2024-01-15", created.NextDueDate)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/recurring?owner_id="+owner.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []definitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v, want the created definition", listed)
	}
}

func TestCreateDefinitionValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{
			name:       "garbage body",
			payload:    nil,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad amount",
			payload: map[string]any{
				"owner_id": uuid.New(), "name": "X", "amount": "-5",
				"direction": "expense", "frequency": "monthly", "start_date": "2024-01-01",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "bad frequency",
			payload: map[string]any{
				"owner_id": uuid.New(), "name": "X", "amount": "5.00",
				"direction": "expense", "frequency": "fortnightly", "start_date": "2024-01-01",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "empty name",
			payload: map[string]any{
				"owner_id": uuid.New(), "name": "  ", "amount": "5.00",
				"direction": "expense", "frequency": "monthly", "start_date": "2024-01-01",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.payload == nil {
				req := httptest.NewRequest(http.MethodPost, "/api/recurring", bytes.NewBufferString("{not json"))
				rec = httptest.NewRecorder()
				s.Server.Handler.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, s, http.MethodPost, "/api/recurring", tt.payload)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestToggleDefinition(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()
	due := core.NewDate(2024, 1, 15)

	def := core.RecurringDefinition{
		ID: uuid.New(), OwnerID: owner, Name: "Gym",
		Amount: core.Money{Cents: 3000}, Direction: core.Expense,
		Frequency: core.Monthly, StartDate: due, NextDueDate: &due,
		Status: core.DefinitionActive, AutoCreate: true,
	}
	if err := store.CreateDefinition(context.Background(), def); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/recurring/"+def.ID.String()+"/toggle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	var toggled definitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
		t.Fatal(err)
	}
	if toggled.Status != "paused" {
		t.Errorf("status = %q, want paused", toggled.Status)
	}

	// Completed definitions cannot be toggled.
	def.Status = core.DefinitionCompleted
	def.NextDueDate = nil
	if err := store.UpdateDefinition(context.Background(), def); err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/recurring/"+def.ID.String()+"/toggle", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("toggle completed status = %d, want 409", rec.Code)
	}
}

func TestUpdateDefinition(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()
	due := core.NewDate(2024, 2, 1)

	def := core.RecurringDefinition{
		ID: uuid.New(), OwnerID: owner, Name: "Streaming",
		Amount: core.Money{Cents: 999}, Direction: core.Expense,
		Frequency: core.Monthly, StartDate: due, NextDueDate: &due,
		Status: core.DefinitionActive, AutoCreate: true,
	}
	if err := store.CreateDefinition(context.Background(), def); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPut, "/api/recurring/"+def.ID.String(), map[string]any{
		"name":   "Streaming bundle",
		"amount": "14.99",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated definitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Streaming bundle" {
		t.Errorf("Name = %q, want Streaming bundle", updated.Name)
	}
	if updated.AmountCents != 1499 {
		t.Errorf("AmountCents = %d, want 1499", updated.AmountCents)
	}
	// Untouched fields keep their values, including the cursor.
	if updated.NextDueDate == nil || updated.NextDueDate.String() != "2024-02-01" {
		t.Errorf("NextDueDate = %v, want 2024-02-01", updated.NextDueDate)
	}

	// Patch validation goes through the same rules as create.
	rec = doJSON(t, s, http.MethodPut, "/api/recurring/"+def.ID.String(), map[string]any{
		"name": "  ",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/recurring/"+uuid.NewString(), map[string]any{
		"name": "Ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestToggleUnknownDefinition(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/recurring/"+uuid.NewString()+"/toggle", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestProcessEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()
	due := core.NewDate(2000, 1, 1) // far in the past, due immediately

	end := core.NewDate(2000, 1, 3)
	def := core.RecurringDefinition{
		ID: uuid.New(), OwnerID: owner, Name: "Daily coffee",
		Amount: core.Money{Cents: 300}, Direction: core.Expense,
		Frequency: core.Daily, StartDate: due, EndDate: &end,
		NextDueDate: &due, Status: core.DefinitionActive, AutoCreate: true,
	}
	if err := store.CreateDefinition(context.Background(), def); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/recurring/process", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d", rec.Code)
	}
	var report processResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Created != 3 {
		t.Errorf("Created = %d, want 3 (Jan 1-3)", report.Created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?owner_id="+owner.String(), nil)
	var txs []transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Errorf("transactions = %d, want 3", len(txs))
	}
}

func TestOverviewAndAlerts(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()
	today := core.DateOf(time.Now())

	store.AddBudget(core.Budget{
		ID: uuid.New(), OwnerID: owner, Name: "Groceries",
		Amount: core.Money{Cents: 100000}, Period: core.PeriodMonthly, IsActive: true,
	})
	tx := core.Transaction{
		ID: uuid.New(), OwnerID: owner,
		Amount: core.Money{Cents: 85000}, Direction: core.Expense,
		Date: today,
	}
	if err := store.InsertTransaction(context.Background(), tx); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/budgets/overview?owner_id="+owner.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d", rec.Code)
	}
	var overview overviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
		t.Fatal(err)
	}
	if len(overview.Budgets) != 1 {
		t.Fatalf("budgets = %d, want 1", len(overview.Budgets))
	}
	if overview.TotalBudget != 100000 || overview.TotalSpent != 85000 || overview.TotalRemaining != 15000 {
		t.Errorf("totals = %d/%d/%d, want 100000/85000/15000",
			overview.TotalBudget, overview.TotalSpent, overview.TotalRemaining)
	}
	if overview.OverallPercentage != 85.0 {
		t.Errorf("OverallPercentage = %v, want 85", overview.OverallPercentage)
	}
	if overview.Budgets[0].Status != "warning" {
		t.Errorf("budget status = %q, want warning at 85%%", overview.Budgets[0].Status)
	}
	if len(overview.Alerts) != 1 || overview.Alerts[0].Severity != core.SeverityDanger {
		t.Errorf("alerts = %+v, want one danger", overview.Alerts)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/alerts?owner_id="+owner.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("alerts status = %d", rec.Code)
	}
	var alerts []services.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(alerts))
	}
}

func TestAnalyticsSeries(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()

	for day := 1; day <= 3; day++ {
		tx := core.Transaction{
			ID: uuid.New(), OwnerID: owner,
			Amount: core.Money{Cents: int64(1000 * day)}, Direction: core.Expense,
			Date: core.NewDate(2024, 3, day),
		}
		if err := store.InsertTransaction(context.Background(), tx); err != nil {
			t.Fatal(err)
		}
	}

	target := fmt.Sprintf("/api/analytics/series?owner_id=%s&from=2024-03-01&to=2024-03-31", owner)
	rec := doJSON(t, s, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("series status = %d", rec.Code)
	}
	var buckets []bucketResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &buckets); err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 3 {
		t.Fatalf("buckets = %d, want 3 daily buckets", len(buckets))
	}
	if buckets[0].Label != "2024-03-01" || buckets[0].ExpenseCents != 1000 {
		t.Errorf("first bucket = %+v", buckets[0])
	}

	// Second request hits the response cache and must match.
	rec2 := doJSON(t, s, http.MethodGet, target, nil)
	if rec2.Code != http.StatusOK || rec2.Body.String() != rec.Body.String() {
		t.Errorf("cached series response differs")
	}
}

func TestAnalyticsSummary(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()
	cat := uuid.New()

	entries := []core.Transaction{
		{ID: uuid.New(), OwnerID: owner, Amount: core.Money{Cents: 250000},
			Direction: core.Income, Date: core.NewDate(2024, 5, 1)},
		{ID: uuid.New(), OwnerID: owner, Amount: core.Money{Cents: 40000},
			Direction: core.Expense, CategoryID: &cat, Date: core.NewDate(2024, 5, 3)},
		{ID: uuid.New(), OwnerID: owner, Amount: core.Money{Cents: 15000},
			Direction: core.Expense, Date: core.NewDate(2024, 5, 10)},
	}
	for _, tx := range entries {
		if err := store.InsertTransaction(context.Background(), tx); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/analytics?owner_id="+owner.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var summary analyticsSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalIncomeCents != 250000 {
		t.Errorf("income = %d, want 250000", summary.TotalIncomeCents)
	}
	if summary.TotalExpensesCents != 55000 {
		t.Errorf("expenses = %d, want 55000", summary.TotalExpensesCents)
	}
	if summary.TotalSavingsCents != 195000 {
		t.Errorf("savings = %d, want 195000", summary.TotalSavingsCents)
	}
	if len(summary.Buckets) != 3 {
		t.Errorf("buckets = %d, want 3 daily buckets", len(summary.Buckets))
	}
	if len(summary.Categories) != 2 {
		t.Errorf("categories = %d, want 2 (one category, one uncategorized)", len(summary.Categories))
	}
}

func TestProcessScopedToOwner(t *testing.T) {
	s, store := newTestServer(t)
	ownerA := uuid.New()
	ownerB := uuid.New()
	due := core.NewDate(2024, 1, 1)
	end := core.NewDate(2024, 1, 1)

	for _, owner := range []uuid.UUID{ownerA, ownerB} {
		def := core.RecurringDefinition{
			ID: uuid.New(), OwnerID: owner, Name: "Subscription",
			Amount: core.Money{Cents: 500}, Direction: core.Expense,
			Frequency: core.Monthly, StartDate: due, EndDate: &end,
			NextDueDate: &due, Status: core.DefinitionActive, AutoCreate: true,
		}
		if err := store.CreateDefinition(context.Background(), def); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, s, http.MethodPost, "/api/recurring/process?owner_id="+ownerA.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d", rec.Code)
	}
	var report processResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1 (only owner A)", report.Created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?owner_id="+ownerB.String(), nil)
	var txs []transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Errorf("owner B transactions = %d, want 0", len(txs))
	}

	rec = doJSON(t, s, http.MethodPost, "/api/recurring/process?owner_id=not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad owner status = %d, want 400", rec.Code)
	}
}

func TestMissingOwnerID(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{
		"/api/recurring",
		"/api/transactions",
		"/api/budgets/overview",
		"/api/alerts",
		"/api/analytics",
		"/api/analytics/series",
	} {
		rec := doJSON(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestAddContributionEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	owner := uuid.New()

	goal := core.Goal{
		ID: uuid.New(), OwnerID: owner, Name: "Vacation",
		TargetAmount: core.Money{Cents: 100000}, Status: core.GoalActive,
	}
	if err := store.SaveGoal(context.Background(), goal); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/goals/"+goal.ID.String()+"/contributions", map[string]any{
		"amount": "250.00",
		"date":   "2024-03-01",
		"note":   "bonus",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var report goalReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.CurrentCents != 25000 {
		t.Errorf("CurrentCents = %d, want 25000", report.CurrentCents)
	}
	if report.Percentage != 25.0 {
		t.Errorf("Percentage = %v, want 25", report.Percentage)
	}
}
