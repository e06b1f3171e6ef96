package planner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	iso8601 "github.com/senseyeio/duration"
	"github.com/sourcegraph/conc/pool"
	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/util"
)

// LocalInstantFormat is the wall-clock departure instant supplied by the
// user, interpreted in the origin timezone once it has been resolved
const LocalInstantFormat = "2006-01-02T15:04"

type LocationResolver interface {
	ResolveLocation(ctx context.Context, text string) (*travel.Place, error)
	ResolveTimezone(ctx context.Context, location travel.Location, epochSeconds int64) (travel.TimezoneContext, error)
}

type TicketLinkBuilder interface {
	Build(mode travel.TransportMode, origin string, destination string, departureEpoch int64, timezone travel.TimezoneContext) string
}

type SearchRequest struct {
	Origin      string
	Destination string

	// Local wall-clock departure, LocalInstantFormat
	DepartureLocal string

	Mode travel.TransportMode
}

type SearchResult struct {
	// Sequence identifies this search; see Planner.IsCurrent
	Sequence uint64 `json:"-"`

	Journeys []travel.Journey `groups:"basic"`

	OriginPlace      *travel.Place `groups:"detailed"`
	DestinationPlace *travel.Place `groups:"detailed"`

	Timezone travel.TimezoneContext `groups:"basic"`
}

type Planner struct {
	resolver   LocationResolver
	directions TransitDirections
	tickets    TicketLinkBuilder

	mapContext MapContext

	sequence atomic.Uint64
}

func New(resolver LocationResolver, directions TransitDirections, tickets TicketLinkBuilder, mapContext MapContext) *Planner {
	return &Planner{
		resolver:   resolver,
		directions: directions,
		tickets:    tickets,
		mapContext: mapContext,
	}
}

func (p *Planner) MapContext() MapContext {
	return p.mapContext
}

// IsCurrent reports whether a completed search is still the latest one
// started. Provider completions can arrive out of order; a caller must
// discard any result whose sequence is no longer current instead of letting
// a stale slow response overwrite a newer search.
func (p *Planner) IsCurrent(sequence uint64) bool {
	return p.sequence.Load() == sequence
}

// Search runs one full planning pass: geocode both endpoints, resolve the
// origin timezone, query directions, extract and filter journeys. The
// result set is meant to wholesale replace whatever was displayed before.
func (p *Planner) Search(ctx context.Context, request SearchRequest) (*SearchResult, error) {
	sequence := p.sequence.Add(1)

	// The timezone provider wants a timestamp near the requested instant
	// for DST resolution. The real origin zone is not known yet, so read
	// the wall clock as UTC for this one lookup.
	provisional, err := time.Parse(LocalInstantFormat, request.DepartureLocal)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidDeparture, err)
	}

	var originPlace, destinationPlace *travel.Place

	geocodePool := pool.New().WithContext(ctx)
	geocodePool.Go(func(ctx context.Context) error {
		place, err := p.resolver.ResolveLocation(ctx, request.Origin)
		originPlace = place
		return err
	})
	geocodePool.Go(func(ctx context.Context) error {
		place, err := p.resolver.ResolveLocation(ctx, request.Destination)
		destinationPlace = place
		return err
	})

	if err := geocodePool.Wait(); err != nil {
		return nil, err
	}

	timezone, err := p.resolver.ResolveTimezone(ctx, originPlace.Location, provisional.Unix())
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(timezone.IANAID)
	if err != nil {
		return nil, fmt.Errorf("%w: unusable timezone %q", errInvalidDeparture, timezone.IANAID)
	}

	departureTime, err := time.ParseInLocation(LocalInstantFormat, request.DepartureLocal, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidDeparture, err)
	}

	directionsRequest := DirectionsRequest{
		Origin:        request.Origin,
		Destination:   request.Destination,
		DepartureTime: departureTime.Unix(),
		Mode:          request.Mode,
	}

	// Bus searches only care about that calendar day's departures, so
	// additionally bound the query by end of day in the origin timezone
	if request.Mode == travel.TransportModeBus {
		directionsRequest.ArrivalCeiling = endOfDay(departureTime).Unix()
	}

	routes, err := p.directions.Query(ctx, directionsRequest)
	if err != nil {
		return nil, err
	}

	journeys := ExtractJourneys(routes, request.Mode, timezone, request.Origin, request.Destination)

	filtered := FilterJourneys(journeys, departureTime.Unix())

	if len(filtered) == 0 {
		if len(routes) > 0 {
			return nil, ErrNoMatchingJourneys
		}

		return nil, ErrZeroResults
	}

	for i := range filtered {
		filtered[i].TicketProviderURL = p.tickets.Build(request.Mode, request.Origin, request.Destination, filtered[i].DepartureEpoch, timezone)
	}

	return &SearchResult{
		Sequence: sequence,

		Journeys: filtered,

		OriginPlace:      originPlace,
		DestinationPlace: destinationPlace,

		Timezone: timezone,
	}, nil
}

// endOfDay is the start of the next calendar day in the instant's own
// location
func endOfDay(dateTime time.Time) time.Time {
	nextDayDuration, _ := iso8601.ParseISO8601("P1D")

	return util.StartOfDay(nextDayDuration.Shift(dateTime))
}
