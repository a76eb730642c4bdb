package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// Granularity is the bucket width of a time series.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// Span thresholds in inclusive days between the earliest and latest
// transaction.
const (
	maxDailySpanDays  = 60
	maxWeeklySpanDays = 180
)

// ChooseGranularity picks the bucket width for a span of that many
// inclusive days.
func ChooseGranularity(spanDays int) Granularity {
	switch {
	case spanDays <= maxDailySpanDays:
		return GranularityDaily
	case spanDays <= maxWeeklySpanDays:
		return GranularityWeekly
	default:
		return GranularityMonthly
	}
}

// bucketStart maps a transaction date to its bucket anchor: the day
// itself, the Monday of its week, or the first of its month.
func bucketStart(d core.Date, g Granularity) core.Date {
	switch g {
	case GranularityWeekly:
		offset := (int(d.Time.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDays(-offset)
	case GranularityMonthly:
		return core.NewDate(d.Year(), d.Month(), 1)
	default:
		return d
	}
}

func bucketLabel(start core.Date, g Granularity) string {
	if g == GranularityMonthly {
		return start.Time.Format("2006-01")
	}
	return start.Time.Format("2006-01-02")
}

// BucketTransactions aggregates transactions into a sparse, ascending
// time series. Granularity follows the span of the data itself; buckets
// with no transactions are omitted.
func BucketTransactions(txs []core.Transaction) []core.AnalyticsBucket {
	if len(txs) == 0 {
		return nil
	}

	earliest, latest := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(earliest) {
			earliest = tx.Date
		}
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}

	spanDays := earliest.DaysUntil(latest) + 1
	g := ChooseGranularity(spanDays)

	byStart := make(map[time.Time]*core.AnalyticsBucket)
	for _, tx := range txs {
		start := bucketStart(tx.Date, g)
		b, ok := byStart[start.Time]
		if !ok {
			b = &core.AnalyticsBucket{Start: start, Label: bucketLabel(start, g)}
			byStart[start.Time] = b
		}
		switch tx.Direction {
		case core.Income:
			b.IncomeTotal.Cents += tx.Amount.Cents
		case core.Expense:
			b.ExpenseTotal.Cents += tx.Amount.Cents
		}
	}

	buckets := make([]core.AnalyticsBucket, 0, len(byStart))
	for _, b := range byStart {
		b.Net.Cents = b.IncomeTotal.Cents - b.ExpenseTotal.Cents
		buckets = append(buckets, *b)
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})

	return buckets
}

// CategoryTotal is the spend total of one category over a range.
type CategoryTotal struct {
	CategoryID *uuid.UUID
	Total      core.Money
}

// TotalsByCategory sums expense transactions per category, uncategorized
// entries grouped under a nil key, largest first.
func TotalsByCategory(txs []core.Transaction) []CategoryTotal {
	byCat := make(map[uuid.UUID]int64)
	var uncategorized int64
	hasUncategorized := false

	for _, tx := range txs {
		if tx.Direction != core.Expense {
			continue
		}
		if tx.CategoryID == nil {
			uncategorized += tx.Amount.Cents
			hasUncategorized = true
			continue
		}
		byCat[*tx.CategoryID] += tx.Amount.Cents
	}

	totals := make([]CategoryTotal, 0, len(byCat)+1)
	for id, cents := range byCat {
		id := id
		totals = append(totals, CategoryTotal{CategoryID: &id, Total: core.Money{Cents: cents}})
	}
	if hasUncategorized {
		totals = append(totals, CategoryTotal{Total: core.Money{Cents: uncategorized}})
	}

	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Total.Cents > totals[j].Total.Cents
	})

	return totals
}

// AnalyticsService serves bucketed time series from the ledger.
type AnalyticsService struct {
	store storage.TransactionStore
}

func NewAnalyticsService(store storage.TransactionStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Series loads an owner's transactions, optionally range-filtered, and
// buckets them.
func (s *AnalyticsService) Series(ctx context.Context, ownerID uuid.UUID, r *storage.DateRange) ([]core.AnalyticsBucket, error) {
	txs, err := s.store.ListTransactionsByOwner(ctx, ownerID, r)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return BucketTransactions(txs), nil
}

// Summary combines ledger totals with the bucketed series and the
// per-category spend breakdown.
type Summary struct {
	TotalIncome   core.Money
	TotalExpenses core.Money
	TotalSavings  core.Money
	Buckets       []core.AnalyticsBucket
	Categories    []CategoryTotal
}

// Summarize builds the full analytics view from one ledger load.
func (s *AnalyticsService) Summarize(ctx context.Context, ownerID uuid.UUID, r *storage.DateRange) (Summary, error) {
	txs, err := s.store.ListTransactionsByOwner(ctx, ownerID, r)
	if err != nil {
		return Summary{}, fmt.Errorf("list transactions: %w", err)
	}

	var out Summary
	for _, tx := range txs {
		switch tx.Direction {
		case core.Income:
			out.TotalIncome.Cents += tx.Amount.Cents
		case core.Expense:
			out.TotalExpenses.Cents += tx.Amount.Cents
		}
	}
	out.TotalSavings.Cents = out.TotalIncome.Cents - out.TotalExpenses.Cents
	out.Buckets = BucketTransactions(txs)
	out.Categories = TotalsByCategory(txs)

	return out, nil
}

// SpendingByCategory loads an owner's transactions, optionally
// range-filtered, and totals expenses per category.
func (s *AnalyticsService) SpendingByCategory(ctx context.Context, ownerID uuid.UUID, r *storage.DateRange) ([]CategoryTotal, error) {
	txs, err := s.store.ListTransactionsByOwner(ctx, ownerID, r)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return TotalsByCategory(txs), nil
}
