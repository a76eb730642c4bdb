package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage/memory"
)

func TestChooseGranularity(t *testing.T) {
	tests := []struct {
		spanDays int
		want     Granularity
	}{
		{1, GranularityDaily},
		{60, GranularityDaily},
		{61, GranularityWeekly},
		{180, GranularityWeekly},
		{181, GranularityMonthly},
		{730, GranularityMonthly},
	}

	for _, tt := range tests {
		if got := ChooseGranularity(tt.spanDays); got != tt.want {
			t.Errorf("ChooseGranularity(%d) = %v, want %v", tt.spanDays, got, tt.want)
		}
	}
}

func txOn(date core.Date, dir core.Direction, cents int64) core.Transaction {
	return core.Transaction{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Amount:    core.Money{Cents: cents},
		Direction: dir,
		Date:      date,
	}
}

func TestBucketTransactionsDaily(t *testing.T) {
	txs := []core.Transaction{
		txOn(core.NewDate(2024, 3, 1), core.Expense, 1000),
		txOn(core.NewDate(2024, 3, 1), core.Income, 5000),
		// Gap on the 2nd: no bucket should appear for it.
		txOn(core.NewDate(2024, 3, 3), core.Expense, 2000),
	}

	buckets := BucketTransactions(txs)
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (sparse)", len(buckets))
	}

	first := buckets[0]
	if first.Label != "2024-03-01" {
		t.Errorf("label = %q, want %q", first.Label, "2024-03-01")
	}
	if first.IncomeTotal.Cents != 5000 || first.ExpenseTotal.Cents != 1000 {
		t.Errorf("totals = income %d / expense %d", first.IncomeTotal.Cents, first.ExpenseTotal.Cents)
	}
	if first.Net.Cents != 4000 {
		t.Errorf("net = %d, want 4000", first.Net.Cents)
	}

	if buckets[1].Label != "2024-03-03" {
		t.Errorf("second label = %q, want %q", buckets[1].Label, "2024-03-03")
	}
}

func TestBucketTransactionsWeeklyAnchorsOnMonday(t *testing.T) {
	// ~90-day span forces weekly buckets.
	txs := []core.Transaction{
		// 2024-03-13 is a Wednesday; its week starts Monday 2024-03-11.
		txOn(core.NewDate(2024, 3, 13), core.Expense, 1000),
		txOn(core.NewDate(2024, 3, 17), core.Expense, 2000), // Sunday, same week
		txOn(core.NewDate(2024, 6, 10), core.Income, 3000),  // Monday, own week
	}

	buckets := BucketTransactions(txs)
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
	if buckets[0].Label != "2024-03-11" {
		t.Errorf("week label = %q, want Monday %q", buckets[0].Label, "2024-03-11")
	}
	if buckets[0].ExpenseTotal.Cents != 3000 {
		t.Errorf("week expense = %d, want 3000", buckets[0].ExpenseTotal.Cents)
	}
	if buckets[1].Label != "2024-06-10" {
		t.Errorf("second week label = %q, want %q", buckets[1].Label, "2024-06-10")
	}
}

func TestBucketTransactionsMonthly(t *testing.T) {
	// Span over a year: monthly buckets labelled YYYY-MM.
	txs := []core.Transaction{
		txOn(core.NewDate(2023, 1, 15), core.Expense, 1000),
		txOn(core.NewDate(2023, 1, 31), core.Expense, 500),
		txOn(core.NewDate(2024, 1, 2), core.Income, 9000),
	}

	buckets := BucketTransactions(txs)
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
	if buckets[0].Label != "2023-01" {
		t.Errorf("label = %q, want %q", buckets[0].Label, "2023-01")
	}
	if buckets[0].ExpenseTotal.Cents != 1500 {
		t.Errorf("January expense = %d, want 1500", buckets[0].ExpenseTotal.Cents)
	}
	if buckets[1].Label != "2024-01" {
		t.Errorf("label = %q, want %q", buckets[1].Label, "2024-01")
	}
}

func TestBucketTransactionsEmpty(t *testing.T) {
	if got := BucketTransactions(nil); got != nil {
		t.Errorf("BucketTransactions(nil) = %v, want nil", got)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := uuid.New()

	seed := []core.Transaction{
		txOn(core.NewDate(2024, 5, 1), core.Income, 250000),
		txOn(core.NewDate(2024, 5, 3), core.Expense, 40000),
		txOn(core.NewDate(2024, 5, 10), core.Expense, 15000),
	}
	for i := range seed {
		seed[i].OwnerID = owner
		if err := store.InsertTransaction(ctx, seed[i]); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}

	svc := NewAnalyticsService(store)
	summary, err := svc.Summarize(ctx, owner, nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if summary.TotalIncome.Cents != 250000 {
		t.Errorf("income = %d, want 250000", summary.TotalIncome.Cents)
	}
	if summary.TotalExpenses.Cents != 55000 {
		t.Errorf("expenses = %d, want 55000", summary.TotalExpenses.Cents)
	}
	if summary.TotalSavings.Cents != 195000 {
		t.Errorf("savings = %d, want 195000", summary.TotalSavings.Cents)
	}
	if len(summary.Buckets) != 3 {
		t.Errorf("buckets = %d, want 3 daily buckets", len(summary.Buckets))
	}
	if len(summary.Categories) != 1 || summary.Categories[0].CategoryID != nil {
		t.Errorf("categories = %+v, want one uncategorized total", summary.Categories)
	}
}

func TestTotalsByCategory(t *testing.T) {
	catA := uuid.New()
	catB := uuid.New()

	txs := []core.Transaction{
		txOn(core.NewDate(2024, 3, 1), core.Expense, 1000),
		txOn(core.NewDate(2024, 3, 2), core.Income, 99999),
	}
	txs[0].CategoryID = &catA
	txs = append(txs,
		func() core.Transaction {
			tx := txOn(core.NewDate(2024, 3, 3), core.Expense, 5000)
			tx.CategoryID = &catB
			return tx
		}(),
		txOn(core.NewDate(2024, 3, 4), core.Expense, 300), // uncategorized
	)

	totals := TotalsByCategory(txs)
	if len(totals) != 3 {
		t.Fatalf("totals = %d, want 3", len(totals))
	}
	if totals[0].CategoryID == nil || *totals[0].CategoryID != catB || totals[0].Total.Cents != 5000 {
		t.Errorf("largest total = %+v, want category B at 5000", totals[0])
	}
	if totals[2].CategoryID != nil || totals[2].Total.Cents != 300 {
		t.Errorf("smallest total = %+v, want uncategorized at 300", totals[2])
	}
}
