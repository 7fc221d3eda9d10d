package timeexpr

import (
	"strconv"
	"strings"
	"time"

	"grapetimer/pkg/schederr"
)

const clockLayout = "15:04:05"

// Parse parses a cadence string into an Expression.
//
// Errors:
//   - schederr.ErrBadFormat for an unknown keyword, a wrong token count or a bad clock
//   - a KindOther error wrapping the strconv failure when the weekday/day is not an integer
func Parse(s string) (Expression, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return Expression{}, schederr.Newf(schederr.KindBadFormat, "bad date format %q", s)
	}

	var e Expression
	clock := ""
	switch strings.ToLower(fields[0]) {
	case "day":
		if len(fields) != 2 {
			return Expression{}, schederr.Newf(schederr.KindBadFormat, "bad date format %q: want \"Day HH:MM:SS\"", s)
		}
		e.Kind = Daily
		clock = fields[1]
	case "week", "month":
		if len(fields) < 3 {
			return Expression{}, schederr.Newf(schederr.KindBadFormat, "bad date format %q: missing clock", s)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Expression{}, schederr.Other(err)
		}
		if strings.EqualFold(fields[0], "week") {
			e.Kind = Weekly
			e.Weekday = n
		} else {
			e.Kind = Monthly
			e.Day = n
		}
		clock = fields[2]
	default:
		return Expression{}, schederr.Newf(schederr.KindBadFormat, "bad date format %q: unknown keyword %q", s, fields[0])
	}

	c, err := parseClock(clock)
	if err != nil {
		return Expression{}, err
	}
	e.Clock = c
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and static tables.
func MustParse(s string) Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func parseClock(s string) (Clock, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return Clock{}, &schederr.Error{Kind: schederr.KindBadFormat, Msg: "bad clock " + strconv.Quote(s), Err: err}
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}
