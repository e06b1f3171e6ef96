package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voyago/voyago/pkg/places"
	"github.com/voyago/voyago/pkg/travel"
)

type fakeResolver struct {
	known       map[string]*travel.Place
	timezoneID  string
	timezoneErr error
}

func (f *fakeResolver) ResolveLocation(ctx context.Context, text string) (*travel.Place, error) {
	if place, found := f.known[text]; found {
		return place, nil
	}

	return nil, places.ErrNotFound
}

func (f *fakeResolver) ResolveTimezone(ctx context.Context, location travel.Location, epochSeconds int64) (travel.TimezoneContext, error) {
	if f.timezoneErr != nil {
		return travel.TimezoneContext{}, f.timezoneErr
	}

	return travel.TimezoneContext{IANAID: f.timezoneID}, nil
}

type fakeDirections struct {
	routes []Route
	err    error

	lastRequest DirectionsRequest
}

func (f *fakeDirections) Query(ctx context.Context, request DirectionsRequest) ([]Route, error) {
	f.lastRequest = request

	return f.routes, f.err
}

type fakeTickets struct{}

func (fakeTickets) Build(mode travel.TransportMode, origin string, destination string, departureEpoch int64, timezone travel.TimezoneContext) string {
	return "https://tickets.example/search?o=" + origin
}

func copenhagenResolver() *fakeResolver {
	return &fakeResolver{
		known: map[string]*travel.Place{
			"Copenhagen": {Name: "Copenhagen", City: "Copenhagen", Location: travel.Location{Latitude: 55.6761, Longitude: 12.5683}},
			"Aarhus":     {Name: "Aarhus", City: "Aarhus", Location: travel.Location{Latitude: 56.1572, Longitude: 10.2107}},
		},
		timezoneID: "Europe/Copenhagen",
	}
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()

	location, err := time.LoadLocation(name)
	if err != nil {
		t.Fatal(err)
	}
	return location
}

func TestSearch_CutoffInOriginZone(t *testing.T) {
	copenhagen := mustLocation(t, "Europe/Copenhagen")

	early := float64(time.Date(2025, 3, 1, 8, 59, 0, 0, copenhagen).Unix())
	exact := float64(time.Date(2025, 3, 1, 9, 0, 0, 0, copenhagen).Unix())

	directions := &fakeDirections{
		routes: []Route{
			singleLegRoute(early, early+3600,
				transitStep("BUS", "early", "Stop A", early, early+3600)),
			singleLegRoute(exact, exact+3600,
				transitStep("BUS", "exact", "Stop A", exact, exact+3600)),
		},
	}

	searchPlanner := New(copenhagenResolver(), directions, fakeTickets{}, DefaultMapContext())

	result, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin:         "Copenhagen",
		Destination:    "Aarhus",
		DepartureLocal: "2025-03-01T09:00",
		Mode:           travel.TransportModeBus,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(result.Journeys) != 1 {
		t.Fatalf("got %d journeys, want 1", len(result.Journeys))
	}
	if result.Journeys[0].Schedule[0].SegmentLabel != "exact" {
		t.Error("journey departing 08:59 local survived the 09:00 cutoff")
	}
	if result.Timezone.IANAID != "Europe/Copenhagen" {
		t.Errorf("timezone = %q", result.Timezone.IANAID)
	}
	if result.Journeys[0].TicketProviderURL == "" {
		t.Error("ticket link was not attached")
	}
}

func TestSearch_BusBoundedByEndOfDay(t *testing.T) {
	copenhagen := mustLocation(t, "Europe/Copenhagen")

	departure := float64(time.Date(2025, 3, 1, 9, 0, 0, 0, copenhagen).Unix())

	directions := &fakeDirections{
		routes: []Route{
			singleLegRoute(departure, departure+3600,
				transitStep("BUS", "901X", "Stop A", departure, departure+3600)),
		},
	}

	searchPlanner := New(copenhagenResolver(), directions, fakeTickets{}, DefaultMapContext())

	_, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin:         "Copenhagen",
		Destination:    "Aarhus",
		DepartureLocal: "2025-03-01T09:00",
		Mode:           travel.TransportModeBus,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	wantCeiling := time.Date(2025, 3, 2, 0, 0, 0, 0, copenhagen).Unix()
	if directions.lastRequest.ArrivalCeiling != wantCeiling {
		t.Errorf("arrival ceiling = %d, want midnight origin-local %d", directions.lastRequest.ArrivalCeiling, wantCeiling)
	}

	wantDeparture := time.Date(2025, 3, 1, 9, 0, 0, 0, copenhagen).Unix()
	if directions.lastRequest.DepartureTime != wantDeparture {
		t.Errorf("departure = %d, want %d", directions.lastRequest.DepartureTime, wantDeparture)
	}
}

func TestSearch_TrainUnbounded(t *testing.T) {
	copenhagen := mustLocation(t, "Europe/Copenhagen")
	departure := float64(time.Date(2025, 3, 1, 9, 0, 0, 0, copenhagen).Unix())

	directions := &fakeDirections{
		routes: []Route{
			singleLegRoute(departure, departure+3600,
				transitStep("HEAVY_RAIL", "IC 148", "Odense St.", departure, departure+3600)),
		},
	}

	searchPlanner := New(copenhagenResolver(), directions, fakeTickets{}, DefaultMapContext())

	_, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin:         "Copenhagen",
		Destination:    "Aarhus",
		DepartureLocal: "2025-03-01T09:00",
		Mode:           travel.TransportModeTrain,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if directions.lastRequest.ArrivalCeiling != 0 {
		t.Errorf("train search got an arrival ceiling of %d", directions.lastRequest.ArrivalCeiling)
	}
}

func TestSearch_GeocodeNotFound(t *testing.T) {
	searchPlanner := New(copenhagenResolver(), &fakeDirections{}, fakeTickets{}, DefaultMapContext())

	_, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin:         "Nowhereville",
		Destination:    "Aarhus",
		DepartureLocal: "2025-03-01T09:00",
		Mode:           travel.TransportModeBus,
	})
	if !errors.Is(err, places.ErrNotFound) {
		t.Fatalf("err = %v, want places.ErrNotFound", err)
	}
}

func TestSearch_TimezoneFailureAborts(t *testing.T) {
	resolver := copenhagenResolver()
	resolver.timezoneErr = places.ErrTimezoneUnavailable

	directions := &fakeDirections{}

	searchPlanner := New(resolver, directions, fakeTickets{}, DefaultMapContext())

	_, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin:         "Copenhagen",
		Destination:    "Aarhus",
		DepartureLocal: "2025-03-01T09:00",
		Mode:           travel.TransportModeBus,
	})
	if !errors.Is(err, places.ErrTimezoneUnavailable) {
		t.Fatalf("err = %v, want places.ErrTimezoneUnavailable", err)
	}

	// The search must abort before a directions query is ever issued
	if directions.lastRequest.Origin != "" {
		t.Error("directions were queried despite timezone failure")
	}
}

func TestSearch_DistinctEmptyOutcomes(t *testing.T) {
	copenhagen := mustLocation(t, "Europe/Copenhagen")

	// Provider found nothing at all
	zeroDirections := &fakeDirections{err: ErrZeroResults}
	searchPlanner := New(copenhagenResolver(), zeroDirections, fakeTickets{}, DefaultMapContext())

	_, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin: "Copenhagen", Destination: "Aarhus", DepartureLocal: "2025-03-01T09:00", Mode: travel.TransportModeBus,
	})
	if !errors.Is(err, ErrZeroResults) {
		t.Fatalf("err = %v, want ErrZeroResults", err)
	}

	// Provider found routes but everything departs before the cutoff
	early := float64(time.Date(2025, 3, 1, 6, 0, 0, 0, copenhagen).Unix())
	filteredDirections := &fakeDirections{
		routes: []Route{
			singleLegRoute(early, early+3600,
				transitStep("BUS", "901X", "Stop A", early, early+3600)),
		},
	}
	searchPlanner = New(copenhagenResolver(), filteredDirections, fakeTickets{}, DefaultMapContext())

	_, err = searchPlanner.Search(context.Background(), SearchRequest{
		Origin: "Copenhagen", Destination: "Aarhus", DepartureLocal: "2025-03-01T09:00", Mode: travel.TransportModeBus,
	})
	if !errors.Is(err, ErrNoMatchingJourneys) {
		t.Fatalf("err = %v, want ErrNoMatchingJourneys", err)
	}
}

func TestSearch_SequenceSupersedes(t *testing.T) {
	copenhagen := mustLocation(t, "Europe/Copenhagen")
	departure := float64(time.Date(2025, 3, 1, 9, 0, 0, 0, copenhagen).Unix())

	directions := &fakeDirections{
		routes: []Route{
			singleLegRoute(departure, departure+3600,
				transitStep("BUS", "901X", "Stop A", departure, departure+3600)),
		},
	}

	searchPlanner := New(copenhagenResolver(), directions, fakeTickets{}, DefaultMapContext())

	request := SearchRequest{
		Origin: "Copenhagen", Destination: "Aarhus", DepartureLocal: "2025-03-01T09:00", Mode: travel.TransportModeBus,
	}

	first, err := searchPlanner.Search(context.Background(), request)
	if err != nil {
		t.Fatal(err)
	}
	second, err := searchPlanner.Search(context.Background(), request)
	if err != nil {
		t.Fatal(err)
	}

	if searchPlanner.IsCurrent(first.Sequence) {
		t.Error("superseded search still reports as current")
	}
	if !searchPlanner.IsCurrent(second.Sequence) {
		t.Error("latest search does not report as current")
	}
}

func TestSearch_BadDepartureInstant(t *testing.T) {
	searchPlanner := New(copenhagenResolver(), &fakeDirections{}, fakeTickets{}, DefaultMapContext())

	_, err := searchPlanner.Search(context.Background(), SearchRequest{
		Origin: "Copenhagen", Destination: "Aarhus", DepartureLocal: "next tuesday", Mode: travel.TransportModeBus,
	})
	if err == nil {
		t.Fatal("Search accepted an unparseable departure instant")
	}
}
