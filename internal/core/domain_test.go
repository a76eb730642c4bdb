package core

import (
	"testing"

	"github.com/google/uuid"
)

func validDefinition() RecurringDefinition {
	start := NewDate(2024, 1, 15)
	return RecurringDefinition{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        "Rent",
		Amount:      Money{Cents: 85000},
		Direction:   Expense,
		Frequency:   Monthly,
		StartDate:   start,
		NextDueDate: &start,
		Status:      DefinitionActive,
	}
}

func TestRecurringDefinitionValidate(t *testing.T) {
	end := NewDate(2023, 12, 31)

	tests := []struct {
		name    string
		mutate  func(*RecurringDefinition)
		wantErr error
	}{
		{"valid", func(rd *RecurringDefinition) {}, nil},
		{"empty name", func(rd *RecurringDefinition) { rd.Name = "  " }, ErrEmptyName},
		{"zero amount", func(rd *RecurringDefinition) { rd.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(rd *RecurringDefinition) { rd.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"bad direction", func(rd *RecurringDefinition) { rd.Direction = "transfer" }, ErrInvalidDirection},
		{"bad frequency", func(rd *RecurringDefinition) { rd.Frequency = "hourly" }, ErrInvalidFrequency},
		{"end before start", func(rd *RecurringDefinition) { rd.EndDate = &end }, ErrEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := validDefinition()
			tt.mutate(&rd)
			err := rd.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("notify window out of range", func(t *testing.T) {
		rd := validDefinition()
		rd.NotifyBeforeDays = MaxNotifyBeforeDays + 1
		if rd.Validate() == nil {
			t.Error("expected error for notify_before_days above the limit")
		}
	})
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Groceries",
		Amount:  Money{Cents: 100000},
		Period:  PeriodMonthly,
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("monthly budget should validate: %v", err)
	}

	b.Period = PeriodCustom
	if b.Validate() == nil {
		t.Error("custom budget without window should be rejected")
	}

	b.StartDate = NewDate(2024, 3, 1)
	b.EndDate = NewDate(2024, 2, 1)
	if err := b.Validate(); err != ErrEndBeforeStart {
		t.Errorf("expected ErrEndBeforeStart, got %v", err)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-29"` {
		t.Fatalf("marshal = %s", b)
	}

	var got Date
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(d) {
		t.Errorf("round trip = %s, want %s", got, d)
	}
}

func TestDateDaysUntil(t *testing.T) {
	a := NewDate(2024, 1, 1)
	b := NewDate(2024, 1, 31)
	if got := a.DaysUntil(b); got != 30 {
		t.Errorf("DaysUntil = %d, want 30", got)
	}
	if got := b.DaysUntil(a); got != -30 {
		t.Errorf("reverse DaysUntil = %d, want -30", got)
	}
}
