package util

import (
	"time"
)

// StartOfDay truncates a time to midnight in its own location
func StartOfDay(dateTime time.Time) time.Time {
	return time.Date(dateTime.Year(), dateTime.Month(), dateTime.Day(), 0, 0, 0, 0, dateTime.Location())
}

// SameCalendarDay reports whether an instant falls on the given calendar
// date when viewed in the supplied location
func SameCalendarDay(instant time.Time, date time.Time, location *time.Location) bool {
	localInstant := instant.In(location)

	return localInstant.Year() == date.Year() &&
		localInstant.Month() == date.Month() &&
		localInstant.Day() == date.Day()
}
