package planner

import (
	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/util"
)

// FilterJourneys drops journeys departing before the requested instant. The
// cutoff epoch has been computed from the user's local departure time in the
// origin timezone, so the comparison holds regardless of the viewer's zone.
// A journey departing at exactly the cutoff is kept.
func FilterJourneys(journeys []travel.Journey, cutoffEpoch int64) []travel.Journey {
	filtered := make([]travel.Journey, len(journeys))
	copy(filtered, journeys)

	util.InPlaceFilter(&filtered, func(journey travel.Journey) bool {
		return journey.DepartureEpoch >= cutoffEpoch
	})

	return filtered
}
