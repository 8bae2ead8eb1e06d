package schedule

import (
	"fmt"
	"time"
)

// CivilDate is a timezone-free calendar date. It is the only representation
// calendar dates take inside the scheduler: formatting goes through String,
// which uses the date's own components, so a date can never roll forward or
// backward the way a UTC instant does near midnight.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date from t in t's own location.
func DateOf(t time.Time) CivilDate {
	year, month, day := t.Date()
	return CivilDate{Year: year, Month: month, Day: day}
}

// Today returns the current calendar date in the given location.
func Today(loc *time.Location) CivilDate {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses the canonical YYYY-MM-DD key.
func ParseDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String renders the canonical YYYY-MM-DD key.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero date.
func (d CivilDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d falls strictly earlier than other.
func (d CivilDate) Before(other CivilDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Equal reports whether both values name the same calendar date.
func (d CivilDate) Equal(other CivilDate) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Weekday returns the day of week, Sunday = 0. The weekday of a civil date
// does not depend on any timezone.
func (d CivilDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsPast reports whether d is strictly earlier than today. Today itself is
// not past and remains bookable.
func IsPast(d, today CivilDate) bool {
	return d.Before(today)
}

// MonthCells produces a 7-column month grid: nil placeholders for the cells
// before the 1st (one per weekday index of the 1st, Sunday = 0) followed by
// one cell per day of the month. The grid carries layout only, no status.
func MonthCells(year int, month time.Month) []*CivilDate {
	first := CivilDate{Year: year, Month: month, Day: 1}
	lead := int(first.Weekday())
	days := DaysIn(year, month)

	cells := make([]*CivilDate, 0, lead+days)
	for i := 0; i < lead; i++ {
		cells = append(cells, nil)
	}
	for day := 1; day <= days; day++ {
		d := CivilDate{Year: year, Month: month, Day: day}
		cells = append(cells, &d)
	}
	return cells
}
