package planner

import "errors"

var (
	// ErrZeroResults means the directions provider responded but found no
	// routes at all. Remediation: adjust the locations.
	ErrZeroResults = errors.New("no routes found between locations")

	// ErrNoMatchingJourneys means routes existed but none survived the
	// mode and departure-cutoff filtering. Remediation: adjust the time or
	// mode. Deliberately distinct from ErrZeroResults.
	ErrNoMatchingJourneys = errors.New("no journeys matching requested time and mode")

	// ErrQueryFailed is a retryable infrastructure failure talking to the
	// directions provider
	ErrQueryFailed = errors.New("directions query failed")

	errInvalidDeparture = errors.New("departure instant could not be interpreted")
)
