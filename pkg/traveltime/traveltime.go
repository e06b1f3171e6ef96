package traveltime

import (
	"fmt"
	"math"
	"time"
)

// InvalidTimeDisplay is rendered wherever a timestamp failed validation,
// instead of crashing or showing a 1970 date.
const InvalidTimeDisplay = "Invalid Time"

const LocalDisplayFormat = "2006-01-02 15:04"

// Values above this magnitude can only be millisecond encodings. One
// trillion seconds is roughly the year 33658, one trillion milliseconds is
// 2001, so every real timestamp sits cleanly on one side.
const millisecondThreshold = 1e12

// Latest accepted timestamp, 3000-01-01T00:00:00Z
const maxValidEpoch = 32503680000

// NormalizeEpoch canonicalizes an epoch-like provider value to seconds.
// The directions provider reports per-step transit times in seconds but
// some aggregate leg values arrive in milliseconds; without this an
// unconverted value turns a three hour journey into a multi-decade one.
func NormalizeEpoch(value float64) int64 {
	if math.Abs(value) > millisecondThreshold {
		return int64(math.Floor(value / 1000))
	}

	return int64(value)
}

func IsValidEpoch(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}

	return value > 0 && value < maxValidEpoch
}

// FormatLocal renders epoch seconds as "YYYY-MM-DD HH:mm" in the given IANA
// timezone. Invalid epochs and unknown zones yield InvalidTimeDisplay.
func FormatLocal(epochSeconds int64, ianaID string) string {
	if !IsValidEpoch(float64(epochSeconds)) {
		return InvalidTimeDisplay
	}

	location, err := time.LoadLocation(ianaID)
	if err != nil {
		return InvalidTimeDisplay
	}

	return time.Unix(epochSeconds, 0).In(location).Format(LocalDisplayFormat)
}

// FormatLocalDate renders just the origin-local calendar date ("YYYY-MM-DD")
func FormatLocalDate(epochSeconds int64, ianaID string) string {
	if !IsValidEpoch(float64(epochSeconds)) {
		return InvalidTimeDisplay
	}

	location, err := time.LoadLocation(ianaID)
	if err != nil {
		return InvalidTimeDisplay
	}

	return time.Unix(epochSeconds, 0).In(location).Format(time.DateOnly)
}

func FormatDuration(durationSeconds int64) string {
	hours := durationSeconds / 3600
	minutes := (durationSeconds % 3600) / 60

	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// ToISO renders epoch seconds as an ISO-8601 UTC instant for the Trip wire
// format
func ToISO(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(time.RFC3339)
}

// FromISO converts an ISO-8601 instant from the persistence API back to
// epoch seconds
func FromISO(value string) (int64, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, err
	}

	return parsed.Unix(), nil
}
