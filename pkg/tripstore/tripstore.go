package tripstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/traveltime"
	"github.com/voyago/voyago/pkg/util"
)

var (
	ErrUnauthenticated = errors.New("trip store requires an authenticated caller")

	ErrInvalidTrip = errors.New("trip failed validation")

	// ErrTripNotFound covers removing an id the backend does not know,
	// including a repeat remove of an already-removed trip
	ErrTripNotFound = errors.New("trip not found")

	ErrPersistenceFailure = errors.New("trip persistence failed")
)

// Store talks to the trip persistence API. Epoch fields travel as ISO-8601
// UTC instants on the wire and are converted back to epoch seconds on load,
// so a saved trip re-enters the display path with its original values.
type Store struct {
	BaseURL string
	Token   string

	HTTPClient *http.Client
}

func NewStore(baseURL string, token string) *Store {
	return &Store{
		BaseURL: baseURL,
		Token:   token,

		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Wire format of the persistence API
type tripPayload struct {
	ID string `json:"id,omitempty"`

	Mode        string `json:"mode"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      int64  `json:"duration"`

	DepartureTimezone string `json:"departureTimezone,omitempty"`

	TransitStops []string               `json:"transitStops,omitempty"`
	Schedule     []travel.ScheduleEntry `json:"schedule,omitempty"`

	TicketProviderURL string `json:"ticketProviderUrl,omitempty"`

	DestinationLocation *travel.Location `json:"destinationLocation,omitempty"`
}

// Save persists a displayed journey as a durable Trip and returns it with
// the server-assigned id
func (s *Store) Save(ctx context.Context, journey travel.Journey) (*travel.Trip, error) {
	if s.Token == "" {
		return nil, ErrUnauthenticated
	}

	var trip travel.Trip
	if err := copier.Copy(&trip, &journey); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTrip, err)
	}

	if err := validateTrip(trip); err != nil {
		return nil, err
	}

	payload := tripPayload{
		Mode:        string(trip.Mode),
		Origin:      trip.Origin,
		Destination: trip.Destination,

		DepartureTime: traveltime.ToISO(trip.DepartureEpoch),
		ArrivalTime:   traveltime.ToISO(trip.ArrivalEpoch),
		Duration:      trip.DurationSeconds,

		DepartureTimezone: trip.DepartureTimezone,

		TransitStops: trip.TransitStops,
		Schedule:     trip.Schedule,

		TicketProviderURL: trip.TicketProviderURL,

		DestinationLocation: trip.DestinationLocation,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/trips", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+s.Token)

	response, err := s.HTTPClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: save returned status %d", ErrPersistenceFailure, response.StatusCode)
	}

	var saved tripPayload
	if err := json.NewDecoder(response.Body).Decode(&saved); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}

	return tripFromPayload(saved)
}

// List returns the caller's trips. When filterDate is non-nil only trips
// whose departure falls on that calendar day are returned, evaluated in each
// trip's own origin timezone.
func (s *Store) List(ctx context.Context, filterDate *time.Time) ([]travel.Trip, error) {
	if s.Token == "" {
		return nil, ErrUnauthenticated
	}

	requestURL := s.BaseURL + "/trips?limit=100"
	if filterDate != nil {
		// The backend restricts its query to the day, so the record limit
		// cannot cut off matching trips for callers with a long history
		requestURL += "&date=" + url.QueryEscape(filterDate.Format(time.DateOnly))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}
	request.Header.Set("Authorization", "Bearer "+s.Token)

	response, err := s.HTTPClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list returned status %d", ErrPersistenceFailure, response.StatusCode)
	}

	var payloads []tripPayload
	if err := json.NewDecoder(response.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}

	trips := []travel.Trip{}
	for _, payload := range payloads {
		trip, err := tripFromPayload(payload)
		if err != nil {
			// One undecodable record should not hide the rest
			log.Error().Err(err).Str("id", payload.ID).Msg("Skipping unreadable trip record")
			continue
		}

		trips = append(trips, *trip)
	}

	if filterDate != nil {
		util.InPlaceFilter(&trips, func(trip travel.Trip) bool {
			location, err := time.LoadLocation(trip.DepartureTimezone)
			if err != nil {
				location = time.UTC
			}

			return util.SameCalendarDay(time.Unix(trip.DepartureEpoch, 0), *filterDate, location)
		})
	}

	return trips, nil
}

// Remove deletes a trip by id. Removing an id the backend no longer knows is
// a failure, not an idempotent success.
func (s *Store) Remove(ctx context.Context, tripID string) error {
	if s.Token == "" {
		return ErrUnauthenticated
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.BaseURL+"/trips/"+url.PathEscape(tripID), nil)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}
	request.Header.Set("Authorization", "Bearer "+s.Token)

	response, err := s.HTTPClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPersistenceFailure, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return ErrTripNotFound
	case response.StatusCode >= 300:
		return fmt.Errorf("%w: remove returned status %d", ErrPersistenceFailure, response.StatusCode)
	}

	return nil
}

func tripFromPayload(payload tripPayload) (*travel.Trip, error) {
	departureEpoch, err := traveltime.FromISO(payload.DepartureTime)
	if err != nil {
		return nil, fmt.Errorf("%w: bad departure time %q", ErrPersistenceFailure, payload.DepartureTime)
	}

	arrivalEpoch, err := traveltime.FromISO(payload.ArrivalTime)
	if err != nil {
		return nil, fmt.Errorf("%w: bad arrival time %q", ErrPersistenceFailure, payload.ArrivalTime)
	}

	return &travel.Trip{
		ID: payload.ID,

		Origin:      payload.Origin,
		Destination: payload.Destination,

		DepartureEpoch:  departureEpoch,
		ArrivalEpoch:    arrivalEpoch,
		DurationSeconds: payload.Duration,

		DepartureTimezone: payload.DepartureTimezone,

		TransitStops: payload.TransitStops,
		Schedule:     payload.Schedule,

		TicketProviderURL: payload.TicketProviderURL,

		Mode: travel.ParseTransportMode(payload.Mode),

		DestinationLocation: payload.DestinationLocation,
	}, nil
}

func validateTrip(trip travel.Trip) error {
	if trip.Mode != travel.TransportModeBus && trip.Mode != travel.TransportModeTrain {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTrip, trip.Mode)
	}

	if trip.Origin == "" || trip.Destination == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidTrip)
	}

	if !traveltime.IsValidEpoch(float64(trip.DepartureEpoch)) || !traveltime.IsValidEpoch(float64(trip.ArrivalEpoch)) {
		return fmt.Errorf("%w: departure and arrival must be valid epochs", ErrInvalidTrip)
	}

	if trip.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidTrip)
	}

	if trip.TicketProviderURL != "" {
		parsed, err := url.Parse(trip.TicketProviderURL)
		if err != nil || !parsed.IsAbs() {
			return fmt.Errorf("%w: ticket provider url must be absolute", ErrInvalidTrip)
		}
	}

	return nil
}
