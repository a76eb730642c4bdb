package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

const (
	DefinitionActive    DefinitionStatus = "active"
	DefinitionPaused    DefinitionStatus = "paused"
	DefinitionCompleted DefinitionStatus = "completed"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
	PeriodCustom  BudgetPeriod = "custom"
)

const (
	BudgetGood    BudgetStatus = "good"
	BudgetWarning BudgetStatus = "warning"
	BudgetDanger  BudgetStatus = "danger"
)

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityDanger   AlertSeverity = "danger"
	SeverityExceeded AlertSeverity = "exceeded"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// MaxNotifyBeforeDays bounds the reminder window on a definition.
const MaxNotifyBeforeDays = 30

type (
	Frequency        string
	Direction        string
	DefinitionStatus string
	GoalStatus       string
	BudgetPeriod     string
	BudgetStatus     string
	AlertSeverity    string
	CategoryType     string

	// Date is a calendar day; the time-of-day part is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Category carries an explicit type so income and expense categories
	// are never told apart by display name.
	Category struct {
		ID   uuid.UUID
		Name string
		Type CategoryType
	}

	// RecurringDefinition is the template for a recurring obligation.
	// NextDueDate is the scheduling cursor: always the next unprocessed
	// occurrence, nil once the definition is completed.
	RecurringDefinition struct {
		ID               uuid.UUID
		OwnerID          uuid.UUID
		Name             string
		Description      string
		Amount           Money
		Direction        Direction
		CategoryID       *uuid.UUID
		Frequency        Frequency
		StartDate        Date
		EndDate          *Date
		NextDueDate      *Date
		Status           DefinitionStatus
		AutoCreate       bool
		NotifyBeforeDays int
	}

	// Transaction is one ledger entry. RecurringID links an entry back to
	// the definition that projected it.
	Transaction struct {
		ID          uuid.UUID
		OwnerID     uuid.UUID
		Amount      Money
		Direction   Direction
		CategoryID  *uuid.UUID
		Date        Date
		Description string
		RecurringID *uuid.UUID
	}

	// Budget holds only the target; spent/remaining/percentage are derived
	// on demand from the ledger and never stored.
	Budget struct {
		ID         uuid.UUID
		OwnerID    uuid.UUID
		Name       string
		Amount     Money
		CategoryID *uuid.UUID
		Period     BudgetPeriod
		StartDate  Date
		EndDate    Date
		IsActive   bool
	}

	Goal struct {
		ID            uuid.UUID
		OwnerID       uuid.UUID
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    *Date
		Status        GoalStatus
	}

	Contribution struct {
		ID     uuid.UUID
		GoalID uuid.UUID
		Amount Money
		Date   Date
		Note   string
	}

	// AnalyticsBucket is an ephemeral time-bucketed aggregate.
	AnalyticsBucket struct {
		Start        Date
		Label        string
		IncomeTotal  Money
		ExpenseTotal Money
		Net          Money
	}
)

var (
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidDirection       = errors.New("invalid direction")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrReference              = errors.New("referenced record does not exist")
	ErrConcurrencyConflict    = errors.New("concurrent cursor update lost the race")
	ErrNotFound               = errors.New("not found")
	ErrEmptyName              = errors.New("empty name")
	ErrEndBeforeStart         = errors.New("end date before start date")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

func (d Date) Day() int    { return d.Time.Day() }
func (d Date) Month() int  { return int(d.Time.Month()) }
func (d Date) Year() int   { return d.Time.Year() }
func (d Date) IsZero() bool { return d.Time.IsZero() }

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (d Direction) Valid() bool {
	return d == Income || d == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the amount with expense entries negated, for net math.
func (m Money) Signed(dir Direction) int64 {
	if dir == Expense {
		return -m.Cents
	}
	return m.Cents
}

// Validate rejects malformed definitions at creation time so the
// scheduling engine only ever sees well-formed input.
func (rd RecurringDefinition) Validate() error {
	if strings.TrimSpace(rd.Name) == "" {
		return ErrEmptyName
	}
	if len(rd.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := rd.Amount.Validate(); err != nil {
		return err
	}
	if !rd.Direction.Valid() {
		return ErrInvalidDirection
	}
	if !rd.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if rd.StartDate.IsZero() {
		return errors.New("start date is required")
	}
	if rd.EndDate != nil && rd.EndDate.Before(rd.StartDate) {
		return ErrEndBeforeStart
	}
	if rd.NotifyBeforeDays < 0 || rd.NotifyBeforeDays > MaxNotifyBeforeDays {
		return errors.New("notify_before_days out of range")
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if t.Date.IsZero() {
		return errors.New("date is required")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	switch b.Period {
	case PeriodMonthly, PeriodYearly:
	case PeriodCustom:
		if b.StartDate.IsZero() || b.EndDate.IsZero() {
			return errors.New("custom period requires start and end dates")
		}
		if b.EndDate.Before(b.StartDate) {
			return ErrEndBeforeStart
		}
	default:
		return errors.New("invalid budget period")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	return nil
}
