package planner

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/traveltime"
)

// NoTransitStopsPlaceholder keeps Journey.TransitStops non-empty when no
// step of the leg matched the requested mode
const NoTransitStopsPlaceholder = "No transit stops"

// ExtractJourneys turns raw provider routes into normalized Journeys,
// filtered to the requested transport mode. Provider route order is
// preserved; no re-ranking happens here.
//
// Every timestamp crosses through traveltime.NormalizeEpoch at this
// boundary. Routes whose normalized duration is not positive are malformed
// and dropped entirely.
func ExtractJourneys(routes []Route, mode travel.TransportMode, timezone travel.TimezoneContext, origin string, destination string) []travel.Journey {
	journeys := []travel.Journey{}

	for _, route := range routes {
		if len(route.Legs) == 0 {
			continue
		}

		// Alternatives come back as single-leg routes; only the first leg
		// is meaningful
		leg := route.Legs[0]

		departureEpoch := traveltime.NormalizeEpoch(leg.DepartureTime.Value)
		arrivalEpoch := traveltime.NormalizeEpoch(leg.ArrivalTime.Value)
		durationSeconds := arrivalEpoch - departureEpoch

		if durationSeconds <= 0 {
			log.Debug().
				Int64("duration", durationSeconds).
				Str("route", pretty.Sprint(route)).
				Msg("Dropping route with non-positive duration")

			continue
		}

		journey := travel.Journey{
			Origin:      origin,
			Destination: destination,

			DepartureEpoch:  departureEpoch,
			ArrivalEpoch:    arrivalEpoch,
			DurationSeconds: durationSeconds,

			DepartureTimezone: timezone.IANAID,

			Mode: mode,
		}

		for _, step := range leg.Steps {
			if step.TravelMode != "TRANSIT" || step.TransitDetails == nil {
				continue
			}

			details := step.TransitDetails

			if !mode.MatchesVehicleType(details.Line.Vehicle.Type) {
				continue
			}

			journey.TransitStops = append(journey.TransitStops, details.ArrivalStop.Name)

			journey.Schedule = append(journey.Schedule, travel.ScheduleEntry{
				SegmentLabel: segmentLabel(details),
				// Every segment renders in the origin timezone, even legs
				// crossing into another zone
				DepartureLocal: traveltime.FormatLocal(traveltime.NormalizeEpoch(details.DepartureTime.Value), timezone.IANAID),
				ArrivalLocal:   traveltime.FormatLocal(traveltime.NormalizeEpoch(details.ArrivalTime.Value), timezone.IANAID),
			})

			if details.ArrivalStop.Location != nil {
				journey.DestinationLocation = &travel.Location{
					Latitude:  details.ArrivalStop.Location.Lat,
					Longitude: details.ArrivalStop.Location.Lng,
				}
			}
		}

		if len(journey.TransitStops) == 0 {
			journey.TransitStops = []string{NoTransitStopsPlaceholder}
		}

		if len(journey.Schedule) == 0 {
			journey.Schedule = []travel.ScheduleEntry{
				{
					SegmentLabel:   fmt.Sprintf("%s to %s", origin, destination),
					DepartureLocal: traveltime.FormatLocal(departureEpoch, timezone.IANAID),
					ArrivalLocal:   traveltime.FormatLocal(arrivalEpoch, timezone.IANAID),
				},
			}
		}

		if journey.DestinationLocation == nil && leg.EndLocation != nil {
			journey.DestinationLocation = &travel.Location{
				Latitude:  leg.EndLocation.Lat,
				Longitude: leg.EndLocation.Lng,
			}
		}

		journeys = append(journeys, journey)
	}

	return journeys
}

func segmentLabel(details *TransitDetails) string {
	if details.Line.ShortName != "" {
		return details.Line.ShortName
	}

	if details.Line.Name != "" {
		return details.Line.Name
	}

	return details.Headsign
}
