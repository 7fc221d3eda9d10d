package timeexpr

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"grapetimer/pkg/schederr"
)

func utc(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestNextUTC(t *testing.T) {
	t.Parallel()
	// Wednesday.
	ref := utc(2024, time.June, 12, 10, 0, 0)

	tests := []struct {
		name string
		expr string
		now  time.Time
		want time.Time
	}{
		{name: "daily elapsed", expr: "Day 05:00:00", now: ref, want: utc(2024, time.June, 13, 5, 0, 0)},
		{name: "daily later today", expr: "Day 12:30:00", now: ref, want: utc(2024, time.June, 12, 12, 30, 0)},
		{name: "daily equal rolls", expr: "Day 10:00:00", now: ref, want: utc(2024, time.June, 13, 10, 0, 0)},
		{name: "daily month end", expr: "Day 01:00:00", now: utc(2024, time.June, 30, 23, 0, 0), want: utc(2024, time.July, 1, 1, 0, 0)},
		{name: "weekly ahead", expr: "Week 1 00:00:00", now: ref, want: utc(2024, time.June, 17, 0, 0, 0)},
		{name: "weekly later today", expr: "Week 3 11:00:00", now: ref, want: utc(2024, time.June, 12, 11, 0, 0)},
		{name: "weekly same day elapsed", expr: "Week 3 09:00:00", now: ref, want: utc(2024, time.June, 19, 9, 0, 0)},
		{name: "weekly same day equal", expr: "Week 3 10:00:00", now: ref, want: utc(2024, time.June, 19, 10, 0, 0)},
		{name: "weekly sunday", expr: "Week 0 08:00:00", now: ref, want: utc(2024, time.June, 16, 8, 0, 0)},
		{name: "monthly ahead", expr: "Month 15 00:00:00", now: ref, want: utc(2024, time.June, 15, 0, 0, 0)},
		{name: "monthly elapsed", expr: "Month 12 09:00:00", now: ref, want: utc(2024, time.July, 12, 9, 0, 0)},
		{name: "monthly leap day", expr: "Month 29 06:00:00", now: utc(2024, time.February, 1, 0, 0, 0), want: utc(2024, time.February, 29, 6, 0, 0)},
		{name: "monthly december rollover", expr: "Month 5 00:00:00", now: utc(2024, time.December, 20, 0, 0, 0), want: utc(2025, time.January, 5, 0, 0, 0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextUTC(MustParse(tt.expr), tt.now)
			if err != nil {
				t.Fatalf("NextUTC(%q) error: %v", tt.expr, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NextUTC(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNextErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		expr string
		now  time.Time
		want error
	}{
		{name: "weekday too large", expr: "Week 7 00:00:00", now: utc(2024, time.June, 12, 0, 0, 0), want: schederr.ErrWeekDay},
		{name: "weekday negative", expr: "Week -1 00:00:00", now: utc(2024, time.June, 12, 0, 0, 0), want: schederr.ErrWeekDay},
		{name: "day 31 in february", expr: "Month 31 00:00:00", now: utc(2023, time.February, 10, 0, 0, 0), want: schederr.ErrDateOverflow},
		{name: "day 29 non leap february", expr: "Month 29 00:00:00", now: utc(2023, time.February, 1, 0, 0, 0), want: schederr.ErrDateOverflow},
		{name: "rollover into short month", expr: "Month 31 00:00:00", now: utc(2023, time.January, 31, 12, 0, 0), want: schederr.ErrDateOverflow},
		{name: "rollover into april", expr: "Month 31 08:00:00", now: utc(2024, time.March, 31, 9, 0, 0), want: schederr.ErrDateOverflow},
		{name: "day zero", expr: "Month 0 00:00:00", now: utc(2024, time.June, 1, 0, 0, 0), want: schederr.ErrDateOverflow},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextUTC(MustParse(tt.expr), tt.now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NextUTC(%q) error = %v, want %v", tt.expr, err, tt.want)
			}
			if !got.IsZero() {
				t.Fatalf("NextUTC(%q) returned %s alongside error", tt.expr, got)
			}
		})
	}
}

func TestNextProperties(t *testing.T) {
	t.Parallel()
	start := utc(2023, time.December, 25, 0, 0, 0)
	clocks := []string{"00:00:00", "05:30:15", "12:00:00", "23:59:59"}

	for h := 0; h < 24*70; h += 7 {
		now := start.Add(time.Duration(h)*time.Hour + 13*time.Minute)
		for _, c := range clocks {
			d, err := NextUTC(MustParse("Day "+c), now)
			if err != nil {
				t.Fatalf("daily error: %v", err)
			}
			if !d.After(now) || d.Sub(now) > 24*time.Hour {
				t.Fatalf("daily %s at %s = %s, want within (now, now+24h]", c, now, d)
			}

			for wd := 0; wd < 7; wd++ {
				e := Expression{Kind: Weekly, Weekday: wd, Clock: MustParse("Day " + c).Clock}
				w, err := NextUTC(e, now)
				if err != nil {
					t.Fatalf("weekly error: %v", err)
				}
				if int(w.Weekday()) != wd {
					t.Fatalf("weekly %d at %s landed on %s", wd, now, w.Weekday())
				}
				if !w.After(now) || w.Sub(now) > 7*24*time.Hour {
					t.Fatalf("weekly %d at %s = %s, want within a week", wd, now, w)
				}
			}

			for day := 1; day <= 31; day++ {
				e := Expression{Kind: Monthly, Day: day, Clock: MustParse("Day " + c).Clock}
				m, err := NextUTC(e, now)
				if err != nil {
					if !errors.Is(err, schederr.ErrDateOverflow) {
						t.Fatalf("monthly %d at %s: unexpected error %v", day, now, err)
					}
					continue
				}
				if m.Day() != day {
					t.Fatalf("monthly %d at %s landed on day %d", day, now, m.Day())
				}
				if !m.After(now) {
					t.Fatalf("monthly %d at %s = %s, not in the future", day, now, m)
				}
			}
		}
	}
}

func TestNextInZoneMatchesUTCWallClock(t *testing.T) {
	t.Parallel()
	// Fixed offset so the comparison holds whatever zone the host runs in.
	zone := time.FixedZone("UTC+05:30", 5*3600+30*60)
	nowUTC := utc(2024, time.June, 12, 10, 0, 0)
	nowZone := time.Date(2024, time.June, 12, 10, 0, 0, 0, zone)

	for _, raw := range []string{"Day 05:00:00", "Day 18:00:00", "Week 5 07:00:00", "Month 20 00:00:00"} {
		e := MustParse(raw)
		z, err := nextIn(e, nowZone, zone)
		if err != nil {
			t.Fatalf("nextIn(%q) error: %v", raw, err)
		}
		u, err := NextUTC(e, nowUTC)
		if err != nil {
			t.Fatalf("NextUTC(%q) error: %v", raw, err)
		}
		if z.Format("2006-01-02 15:04:05") != u.Format("2006-01-02 15:04:05") {
			t.Fatalf("%q: zone %s and utc %s differ beyond the offset", raw, z, u)
		}
		if got := u.Sub(z); got != 5*time.Hour+30*time.Minute {
			t.Fatalf("%q: utc-zone = %s, want 5h30m", raw, got)
		}
	}

	l, err := NextLocal(MustParse("Day 05:00:00"), nowUTC)
	if err != nil {
		t.Fatal(err)
	}
	if l.Location() != time.Local {
		t.Fatalf("NextLocal location = %v", l.Location())
	}
}

func TestNextAcrossDaylightSavingGap(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// 2024-03-10 is a Sunday; clocks jump from 02:00 EST to 03:00 EDT.
	gapEnd := time.Date(2024, time.March, 10, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		now  time.Time
		want time.Time
	}{
		{name: "daily in gap", expr: "Day 02:30:00", now: time.Date(2024, time.March, 10, 1, 0, 0, 0, ny), want: gapEnd},
		{name: "weekly in gap", expr: "Week 0 02:00:00", now: time.Date(2024, time.March, 9, 12, 0, 0, 0, ny), want: gapEnd},
		{name: "monthly in gap", expr: "Month 10 02:59:59", now: time.Date(2024, time.March, 1, 0, 0, 0, 0, ny), want: gapEnd},
		{name: "after gap", expr: "Day 03:30:00", now: time.Date(2024, time.March, 10, 1, 0, 0, 0, ny), want: time.Date(2024, time.March, 10, 7, 30, 0, 0, time.UTC)},
		{name: "gap passed today", expr: "Day 02:30:00", now: time.Date(2024, time.March, 10, 4, 0, 0, 0, ny), want: time.Date(2024, time.March, 11, 6, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextIn(MustParse(tt.expr), tt.now, ny)
			if err != nil {
				t.Fatalf("nextIn(%q) error: %v", tt.expr, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("nextIn(%q) = %s, want %s", tt.expr, got, tt.want.In(ny))
			}
		})
	}
}

func TestNextDispatchAndUnix(t *testing.T) {
	t.Parallel()
	now := utc(2024, time.June, 12, 10, 0, 0)
	e := MustParse("Day 11:00:00")

	viaTZ, err := Next(e, now, UTC)
	if err != nil {
		t.Fatal(err)
	}
	direct, _ := NextUTC(e, now)
	if !viaTZ.Equal(direct) {
		t.Fatalf("Next(UTC) = %s, NextUTC = %s", viaTZ, direct)
	}
	sec, err := NextUnixUTC(e, now)
	if err != nil {
		t.Fatal(err)
	}
	if sec != direct.Unix() {
		t.Fatalf("NextUnixUTC = %d, want %d", sec, direct.Unix())
	}

	if _, err := ParseNext("bogus", now, Local); !errors.Is(err, schederr.ErrBadFormat) {
		t.Fatalf("ParseNext(bogus) error = %v", err)
	}
}

func TestDaysIn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2009, time.January, 31},
		{2023, time.February, 28},
		{2024, time.February, 29},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.Month(13), 0},
		{2024, time.Month(0), 0},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Fatalf("DaysIn(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestSchedulePreview(t *testing.T) {
	t.Parallel()
	from := utc(2024, time.June, 12, 10, 0, 0)

	got := Preview(Schedule(MustParse("Week 1 06:00:00"), UTC), from, 3)
	if len(got) != 3 {
		t.Fatalf("preview len = %d, want 3", len(got))
	}
	for i, ts := range got {
		if ts.Weekday() != time.Monday {
			t.Fatalf("preview[%d] = %s, want Monday", i, ts)
		}
		if i > 0 && ts.Sub(got[i-1]) != 7*24*time.Hour {
			t.Fatalf("preview[%d] not a week after previous", i)
		}
	}

	// Day 31 stops at the first month that lacks it.
	got = Preview(Schedule(MustParse("Month 31 00:00:00"), UTC), utc(2024, time.January, 15, 0, 0, 0), 5)
	if len(got) != 1 || !got[0].Equal(utc(2024, time.January, 31, 0, 0, 0)) {
		t.Fatalf("preview = %v, want just Jan 31", got)
	}
}
