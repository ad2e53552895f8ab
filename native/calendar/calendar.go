package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrBackwards is returned when a day-count span ends before it starts.
var ErrBackwards = errors.New("calendar: end date precedes start date")

// DaysInYear is the 30/360 convention year length used for all accrual math.
const DaysInYear = 30 * 12

// DaysInMonth is the 30/360 convention month length.
const DaysInMonth = 30

// PeriodDuration enumerates the supported settlement period lengths.
type PeriodDuration uint8

const (
	Monthly PeriodDuration = iota
	Quarterly
	SemiAnnually
)

// String implements fmt.Stringer for log output.
func (d PeriodDuration) String() string {
	switch d {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case SemiAnnually:
		return "semiannually"
	default:
		return fmt.Sprintf("periodduration(%d)", uint8(d))
	}
}

// ParsePeriodDuration converts the configuration label into a PeriodDuration.
func ParsePeriodDuration(label string) (PeriodDuration, error) {
	switch label {
	case "monthly":
		return Monthly, nil
	case "quarterly":
		return Quarterly, nil
	case "semiannually":
		return SemiAnnually, nil
	}
	return Monthly, fmt.Errorf("calendar: unknown period duration %q", label)
}

// DaysInFullPeriod returns the 30/360 day count of one full period.
func DaysInFullPeriod(d PeriodDuration) int {
	switch d {
	case Quarterly:
		return 3 * DaysInMonth
	case SemiAnnually:
		return 6 * DaysInMonth
	default:
		return DaysInMonth
	}
}

// StartOfDay truncates the timestamp to its UTC day boundary.
func StartOfDay(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfNextDay returns the UTC day boundary strictly after the timestamp.
func StartOfNextDay(ts time.Time) time.Time {
	return StartOfDay(ts).AddDate(0, 0, 1)
}

// DaysDiff computes the whole number of 30/360 days between two dates. Both
// inputs are normalized to UTC day boundaries and a day-of-month of 31 is
// treated as 30, matching the convention used for yield accrual.
func DaysDiff(start, end time.Time) (int, error) {
	start = StartOfDay(start)
	end = StartOfDay(end)
	if start.After(end) {
		return 0, ErrBackwards
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sd == 31 {
		sd = 30
	}
	if ed == 31 {
		ed = 30
	}
	days := (ey-sy)*DaysInYear + (int(em)-int(sm))*DaysInMonth + (ed - sd)
	if days < 0 {
		days = 0
	}
	return days, nil
}

// Thirty360 adapts the package functions to consumers that accept a calendar
// interface, such as the tranche settlement engine.
type Thirty360 struct{}

func (Thirty360) DaysDiff(start, end time.Time) (int, error) { return DaysDiff(start, end) }
func (Thirty360) StartOfNextDay(ts time.Time) time.Time      { return StartOfNextDay(ts) }
func (Thirty360) DaysInYear() int                            { return DaysInYear }

// StartDateOfPeriod returns the UTC start of the period containing the
// timestamp for the given duration: the first day of the month, quarter, or
// half-year respectively.
func StartDateOfPeriod(d PeriodDuration, ts time.Time) time.Time {
	ts = ts.UTC()
	year, month, _ := ts.Date()
	switch d {
	case Quarterly:
		month = month - (month-1)%3
	case SemiAnnually:
		if month >= time.July {
			month = time.July
		} else {
			month = time.January
		}
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// StartDateOfNextPeriod returns the UTC start of the period immediately after
// the one containing the timestamp.
func StartDateOfNextPeriod(d PeriodDuration, ts time.Time) time.Time {
	start := StartDateOfPeriod(d, ts)
	switch d {
	case Quarterly:
		return start.AddDate(0, 3, 0)
	case SemiAnnually:
		return start.AddDate(0, 6, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}
