package timeexpr

import (
	"time"

	"grapetimer/pkg/schederr"
)

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month of year, or 0 for an invalid month.
func DaysIn(year int, month time.Month) int {
	if month < time.January || month > time.December {
		return 0
	}
	if month == time.February && IsLeap(year) {
		return 29
	}
	return monthDays[month-1]
}

// Next returns the first instant strictly after now at which e fires, evaluated
// in the reference frame selected by tz.
func Next(e Expression, now time.Time, tz TZ) (time.Time, error) {
	if tz == UTC {
		return NextUTC(e, now)
	}
	return NextLocal(e, now)
}

// NextLocal evaluates e against now in the process local time zone.
func NextLocal(e Expression, now time.Time) (time.Time, error) {
	return nextIn(e, now.In(time.Local), time.Local)
}

// NextUTC evaluates e against now in UTC.
func NextUTC(e Expression, now time.Time) (time.Time, error) {
	return nextIn(e, now.In(time.UTC), time.UTC)
}

// NextUnix is Next for the local frame, returned as Unix seconds.
func NextUnix(e Expression, now time.Time) (int64, error) {
	t, err := NextLocal(e, now)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// NextUnixUTC is Next for the UTC frame, returned as Unix seconds.
func NextUnixUTC(e Expression, now time.Time) (int64, error) {
	t, err := NextUTC(e, now)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// ParseNext parses s and computes its next occurrence after now.
func ParseNext(s string, now time.Time, tz TZ) (time.Time, error) {
	e, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return Next(e, now, tz)
}

func nextIn(e Expression, now time.Time, loc *time.Location) (time.Time, error) {
	y, m, d := now.Date()
	at := func(y int, m time.Month, d int) time.Time {
		return wallClock(y, m, d, e.Clock, loc)
	}

	switch e.Kind {
	case Daily:
		c := at(y, m, d)
		if !c.After(now) {
			c = at(y, m, d+1)
		}
		return c, nil

	case Weekly:
		if e.Weekday < 0 || e.Weekday > 6 {
			return time.Time{}, schederr.Newf(schederr.KindWeekDay, "bad week day %d: want 0..6", e.Weekday)
		}
		offset := (e.Weekday - int(now.Weekday()) + 7) % 7
		c := at(y, m, d+offset)
		if offset == 0 && !c.After(now) {
			c = at(y, m, d+7)
		}
		return c, nil

	case Monthly:
		if maxDay := DaysIn(y, m); e.Day < 1 || e.Day > maxDay {
			return time.Time{}, schederr.Newf(schederr.KindDateOverflow, "date overflow: day %d not in %s %d", e.Day, m, y)
		}
		c := at(y, m, e.Day)
		if c.After(now) {
			return c, nil
		}
		ny, nm := y, m+1
		if nm > time.December {
			nm = time.January
			ny++
		}
		if e.Day > DaysIn(ny, nm) {
			return time.Time{}, schederr.Newf(schederr.KindDateOverflow, "date overflow: day %d not in %s %d", e.Day, nm, ny)
		}
		return at(ny, nm, e.Day), nil

	default:
		return time.Time{}, schederr.ErrBadFormat
	}
}

// wallClock returns clock on the given date in loc. A clock that falls into a
// daylight saving gap resolves to the end of the gap, the first instant the
// wall clock has passed it.
func wallClock(y int, m time.Month, d int, c Clock, loc *time.Location) time.Time {
	t := time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, loc)
	if t.Hour() == c.Hour && t.Minute() == c.Minute && t.Second() == c.Second {
		return t
	}
	want := time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	start, end := t.ZoneBounds()
	if got.Before(want) {
		if !end.IsZero() {
			return end
		}
	} else if !start.IsZero() {
		return start
	}
	return t
}
