package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/util"
)

// DirectionsRequest is a single transit-mode route request. All instants are
// epoch seconds; the caller has already converted the user's local departure
// into UTC using the resolved origin timezone.
type DirectionsRequest struct {
	Origin      string
	Destination string

	DepartureTime int64

	// ArrivalCeiling bounds same-day searches by end of day in the origin
	// timezone. Zero means unbounded.
	ArrivalCeiling int64

	Mode travel.TransportMode
}

type TransitDirections interface {
	Query(ctx context.Context, request DirectionsRequest) ([]Route, error)
}

// Wire types for the directions provider response. Timestamps are kept as
// raw float64 values because the provider mixes second and millisecond
// encodings; normalization happens in the extractor, never here.

type Route struct {
	Legs []Leg `json:"legs"`
}

type Leg struct {
	DepartureTime TimeValue   `json:"departure_time"`
	ArrivalTime   TimeValue   `json:"arrival_time"`
	EndLocation   *Coordinate `json:"end_location"`
	Steps         []Step      `json:"steps"`
}

type TimeValue struct {
	Value    float64 `json:"value"`
	Text     string  `json:"text"`
	TimeZone string  `json:"time_zone"`
}

type Step struct {
	TravelMode     string          `json:"travel_mode"`
	TransitDetails *TransitDetails `json:"transit_details"`
}

type TransitDetails struct {
	DepartureTime TimeValue `json:"departure_time"`
	ArrivalTime   TimeValue `json:"arrival_time"`
	Headsign      string    `json:"headsign"`
	DepartureStop StopPoint `json:"departure_stop"`
	ArrivalStop   StopPoint `json:"arrival_stop"`
	Line          Line      `json:"line"`
	NumStops      int       `json:"num_stops"`
}

type StopPoint struct {
	Name     string      `json:"name"`
	Location *Coordinate `json:"location"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Line struct {
	Name      string  `json:"name"`
	ShortName string  `json:"short_name"`
	Vehicle   Vehicle `json:"vehicle"`
}

type Vehicle struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Routes       []Route `json:"routes"`
}

const defaultDirectionsEndpoint = "https://maps.googleapis.com/maps/api/directions/json"

// GoogleDirections queries the Google Directions API over its JSON wire
// format
type GoogleDirections struct {
	Endpoint string
	APIKey   string

	HTTPClient *http.Client
}

func NewGoogleDirections() *GoogleDirections {
	return &GoogleDirections{
		Endpoint: util.GetEnvironmentVariable("VOYAGO_DIRECTIONS_ENDPOINT", defaultDirectionsEndpoint),
		APIKey:   util.GetEnvironmentVariable("VOYAGO_MAPS_API_KEY", ""),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Query issues exactly one alternatives-enabled transit request. Transient
// transport failures and retryable provider statuses are retried with
// exponential backoff before surfacing as ErrQueryFailed.
func (d *GoogleDirections) Query(ctx context.Context, request DirectionsRequest) ([]Route, error) {
	requestURL := d.buildURL(request)

	var routes []Route

	operation := func() error {
		httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		httpResponse, err := d.HTTPClient.Do(httpRequest)
		if err != nil {
			return err
		}
		defer httpResponse.Body.Close()

		if httpResponse.StatusCode >= 500 {
			return fmt.Errorf("directions provider returned status %d", httpResponse.StatusCode)
		}

		var response directionsResponse
		if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil {
			return err
		}

		switch response.Status {
		case "OK":
			routes = response.Routes
			return nil
		case "ZERO_RESULTS":
			return backoff.Permanent(ErrZeroResults)
		case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
			return fmt.Errorf("directions provider status %s: %s", response.Status, response.ErrorMessage)
		default:
			return backoff.Permanent(fmt.Errorf("directions provider status %s: %s", response.Status, response.ErrorMessage))
		}
	}

	retryBackoff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	err := backoff.Retry(operation, retryBackoff)
	if err != nil {
		if errors.Is(err, ErrZeroResults) {
			return nil, ErrZeroResults
		}

		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, err)
	}

	return routes, nil
}

func (d *GoogleDirections) buildURL(request DirectionsRequest) string {
	values := url.Values{}
	values.Set("origin", request.Origin)
	values.Set("destination", request.Destination)
	values.Set("mode", "transit")
	values.Set("alternatives", "true")
	values.Set("departure_time", strconv.FormatInt(request.DepartureTime, 10))

	if request.ArrivalCeiling > 0 {
		values.Set("arrival_time", strconv.FormatInt(request.ArrivalCeiling, 10))
	}

	switch request.Mode {
	case travel.TransportModeBus:
		values.Set("transit_mode", "bus")
	case travel.TransportModeTrain:
		values.Set("transit_mode", "rail")
	}

	if d.APIKey != "" {
		values.Set("key", d.APIKey)
	}

	return d.Endpoint + "?" + values.Encode()
}
