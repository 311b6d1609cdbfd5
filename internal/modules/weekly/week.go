package weekly

import "time"

// WeekNumber returns the 1-based week of t counted from epoch, a Monday in
// the service timezone. Times before the epoch belong to week 1.
func WeekNumber(epoch, t time.Time) int {
	loc := epoch.Location()
	start := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, loc)
	lt := t.In(loc)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	if day.Before(start) {
		return 1
	}
	// calendar days; stable across DST shifts
	days := int(day.Sub(start).Round(time.Hour).Hours()) / 24
	return days/7 + 1
}
