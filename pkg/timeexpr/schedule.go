package timeexpr

import (
	"time"

	"github.com/robfig/cron/v3"
)

type cronSchedule struct {
	expr Expression
	tz   TZ
}

var _ cron.Schedule = cronSchedule{}

// Schedule adapts e to robfig/cron's Schedule interface.
//
// Following the cron convention, Next returns the zero time when e cannot fire
// (invalid weekday, day missing from the resolved month).
func Schedule(e Expression, tz TZ) cron.Schedule {
	return cronSchedule{expr: e, tz: tz}
}

func (s cronSchedule) Next(t time.Time) time.Time {
	n, err := Next(s.expr, t, s.tz)
	if err != nil {
		return time.Time{}
	}
	return n
}

// Preview returns up to n upcoming fire times of sched after from. It stops
// early at the first zero time.
func Preview(sched cron.Schedule, from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, max(n, 0))
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}
