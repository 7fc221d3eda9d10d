package timeexpr

import (
	"fmt"
	"time"
)

// Kind selects the cadence family of an Expression.
type Kind int

const (
	Daily Kind = iota + 1
	Weekly
	Monthly
)

func (k Kind) String() string {
	switch k {
	case Daily:
		return "Day"
	case Weekly:
		return "Week"
	case Monthly:
		return "Month"
	default:
		return "Unknown"
	}
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Expression is an immutable, parsed cadence.
//
// Weekday is set only for Weekly, Day only for Monthly.
type Expression struct {
	Kind    Kind
	Clock   Clock
	Weekday int // 0 = Sunday
	Day     int // 1..31
}

// IsZero reports whether e is the zero Expression (as returned on parse failure).
func (e Expression) IsZero() bool { return e == Expression{} }

// String renders the canonical cadence string; Parse(e.String()) == e.
func (e Expression) String() string {
	switch e.Kind {
	case Weekly:
		return fmt.Sprintf("%s %d %s", e.Kind, e.Weekday, e.Clock)
	case Monthly:
		return fmt.Sprintf("%s %d %s", e.Kind, e.Day, e.Clock)
	case Daily:
		return fmt.Sprintf("%s %s", e.Kind, e.Clock)
	default:
		return ""
	}
}

// TZ selects the reference frame used for next-occurrence calculation.
type TZ int

const (
	Local TZ = iota
	UTC
)

// Location returns the time.Location backing tz.
func (tz TZ) Location() *time.Location {
	if tz == UTC {
		return time.UTC
	}
	return time.Local
}

func (tz TZ) String() string {
	if tz == UTC {
		return "UTC"
	}
	return "Local"
}
