package common

import "time"

// StartOfDay returns midnight of date's calendar day in zone.
// Only the year, month and day of date are used.
func StartOfDay(date time.Time, zone *time.Location) time.Time {
	if zone == nil {
		zone = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, zone)
}

// DayWindow returns the half-open interval [start, end) covering date's calendar day in zone.
func DayWindow(date time.Time, zone *time.Location) (time.Time, time.Time) {
	start := StartOfDay(date, zone)
	return start, start.AddDate(0, 0, 1)
}
