package dashboard

import (
	"fmt"
	"time"
)

// Period units accepted by the report endpoint.
const (
	PeriodMonth    = "month"
	PeriodQuarter  = "quarter"
	PeriodSemester = "semester"
	PeriodYear     = "year"
)

// dayStart truncates to local midnight.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// monthKey renders a bucket key like "2026-01".
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// monthKeys lists every calendar month key spanning from..to inclusive.
func monthKeys(from, to time.Time) []string {
	var keys []string
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, to.Location())
	for !cur.After(end) {
		keys = append(keys, monthKey(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	return keys
}

// quarterKey maps a monthly key to its quarter ("2026-Q1").
func quarterKey(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// semesterKey maps a monthly key to its semester ("2026-S1").
func semesterKey(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return fmt.Sprintf("%d-S%d", t.Year(), (int(t.Month())-1)/6+1)
}

// rebucket folds the monthly series into coarser buckets. The coarser
// series are only ever derived from the monthly one, so their sums
// cannot drift from it.
func rebucket(monthly []Bucket, keyOf func(string) string) []Bucket {
	var out []Bucket
	index := map[string]int{}
	for _, m := range monthly {
		key := keyOf(m.Key)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, Bucket{Key: key})
			i = len(out) - 1
		}
		out[i].Revenue += m.Revenue
		out[i].Sales += m.Sales
	}
	return out
}

// periodStart returns the first day of the calendar period containing t.
func periodStart(unit string, t time.Time) (time.Time, bool) {
	y, m := t.Year(), int(t.Month())
	switch unit {
	case PeriodMonth:
		return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, t.Location()), true
	case PeriodQuarter:
		return time.Date(y, time.Month((m-1)/3*3+1), 1, 0, 0, 0, 0, t.Location()), true
	case PeriodSemester:
		return time.Date(y, time.Month((m-1)/6*6+1), 1, 0, 0, 0, 0, t.Location()), true
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location()), true
	}
	return time.Time{}, false
}

// periodWindows computes the previous complete period and the current
// period-to-date for a unit, anchored at now.
func periodWindows(unit string, now time.Time) (prevFrom, prevTo, curFrom, curTo time.Time, ok bool) {
	curFrom, ok = periodStart(unit, now)
	if !ok {
		return
	}
	curTo = dayStart(now)
	prevTo = curFrom.AddDate(0, 0, -1)
	prevFrom, _ = periodStart(unit, prevTo)
	return
}
