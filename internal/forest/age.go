package forest

import "time"

// AgeMode selects how snapshot age is counted.
type AgeMode string

const (
	AgeModeBusiness AgeMode = "business"
	AgeModeCalendar AgeMode = "calendar"
)

// CalendarDays returns the whole days elapsed between createdAt and now.
func CalendarDays(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt).Hours() / 24)
}

// BusinessDays counts the weekdays among the calendar dates after
// createdAt up to and including now's date. Saturdays and Sundays are
// excluded; there is no holiday calendar. A snapshot taken Friday is one
// business day old the following Monday.
func BusinessDays(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	cur := midnight(createdAt).AddDate(0, 0, 1)
	end := midnight(now)

	days := 0
	for !cur.After(end) {
		wd := cur.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			days++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}

// Age returns the snapshot age in the requested mode.
func Age(createdAt, now time.Time, mode AgeMode) int {
	if mode == AgeModeBusiness {
		return BusinessDays(createdAt, now)
	}
	return CalendarDays(createdAt, now)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
