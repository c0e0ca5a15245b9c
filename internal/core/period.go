package core

import "time"

// Period is an inclusive date range. Start carries start-of-day semantics,
// End carries end-of-day semantics, so the bounds can be compared directly
// against timestamps.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodBounds returns the inclusive calendar-period range containing d.
// Weeks start on Monday and end on the following Sunday.
func PeriodBounds(d Date, g Granularity) Period {
	day := startOfDay(d.Time)
	switch g {
	case Week:
		// Monday-based offset: Sunday counts as 6 days into the week.
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Period{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
	case Month:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return Period{Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
	default:
		return Period{Start: day, End: endOfDay(day)}
	}
}

// Contains reports whether t falls inside the period, comparing by calendar
// date only. Time-of-day is normalized away to avoid boundary off-by-ones.
func (p Period) Contains(t time.Time) bool {
	day := startOfDay(t)
	return !day.Before(startOfDay(p.Start)) && !day.After(startOfDay(p.End))
}

// ActivitiesInRange filters activities whose date falls within [start, end]
// inclusive. The input slice is not modified.
func ActivitiesInRange(activities []Activity, p Period) []Activity {
	out := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if p.Contains(a.Date.Time) {
			out = append(out, a)
		}
	}
	return out
}

// IsSameDay compares year, month and day components only.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
