package core

import "time"

// AdvanceDate returns the next occurrence date strictly after d for the
// given frequency. Pure function, no state.
//
// Month-based frequencies clamp to the last day of a shorter target month
// (Jan 31 -> Feb 28/29). The clamped day does not remember the original
// day-of-month: advancing from Feb 28 lands on Mar 28.
func AdvanceDate(d Date, f Frequency) (Date, error) {
	switch f {
	case Daily:
		return d.AddDays(1), nil
	case Weekly:
		return d.AddDays(7), nil
	case Biweekly:
		return d.AddDays(14), nil
	case Monthly:
		return addMonthsClamped(d, 1), nil
	case Quarterly:
		return addMonthsClamped(d, 3), nil
	case Yearly:
		return addMonthsClamped(d, 12), nil
	default:
		// Unreachable with a validated definition; a raw enum value that
		// slipped past validation is a programmer error.
		return Date{}, ErrInvalidFrequency
	}
}

// addMonthsClamped moves n months forward keeping the day-of-month,
// clamping to the target month's last day when it is shorter. Plain
// AddDate would normalize Jan 31 + 1 month to Mar 2/3, which is wrong
// for billing dates.
func addMonthsClamped(d Date, n int) Date {
	year, month, day := d.Time.Date()
	target := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := lastDayOfMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return NewDate(target.Year(), int(target.Month()), day)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	return lastDayOfMonth(year, time.Month(month))
}
