package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"
	"github.com/voyago/voyago/pkg/redis_client"
	"github.com/voyago/voyago/pkg/travel"
	"golang.org/x/exp/slices"
	"googlemaps.github.io/maps"
)

var (
	// ErrNotFound means the geocoder responded but matched nothing
	ErrNotFound = errors.New("location not found")

	// ErrProviderUnavailable is an infrastructure failure talking to the
	// geocoding provider
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")

	// ErrTimezoneUnavailable aborts a search outright. There is no fallback
	// zone - every downstream cutoff and duration computation depends on
	// the origin timezone being correct.
	ErrTimezoneUnavailable = errors.New("timezone provider unavailable")
)

const defaultRequestTimeout = 10 * time.Second

type geocodingAPI interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type timezoneAPI interface {
	Timezone(ctx context.Context, r *maps.TimezoneRequest) (*maps.TimezoneResult, error)
}

// Resolver turns free-text locations into coordinates and coordinates into
// IANA timezone ids
type Resolver struct {
	geocoder geocodingAPI
	timezone timezoneAPI

	cache *cache.Cache[string]

	requestTimeout time.Duration
}

func NewResolver(client *maps.Client) *Resolver {
	return &Resolver{
		geocoder:       client,
		timezone:       client,
		requestTimeout: defaultRequestTimeout,
	}
}

// EnableCache attaches the shared Redis cache. Requires redis_client.Connect
// to have run.
func (r *Resolver) EnableCache() {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(12*time.Hour))

	r.cache = cache.New[string](redisStore)
}

// ResolveLocation geocodes a free-text location. City is extracted from the
// locality address component when present.
func (r *Resolver) ResolveLocation(ctx context.Context, text string) (*travel.Place, error) {
	cacheKey := fmt.Sprintf("geocode:%s", strings.ToLower(strings.TrimSpace(text)))

	if r.cache != nil {
		cacheValue, err := r.cache.Get(ctx, cacheKey)
		if err == nil {
			if cacheValue == "N/A" {
				return nil, ErrNotFound
			}

			var place *travel.Place
			if json.Unmarshal([]byte(cacheValue), &place) == nil {
				return place, nil
			}
		}
	}

	requestCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	results, err := r.geocoder.Geocode(requestCtx, &maps.GeocodingRequest{
		Address: text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
	}

	if len(results) == 0 {
		if r.cache != nil {
			r.cache.Set(ctx, cacheKey, "N/A")
		}

		return nil, ErrNotFound
	}

	result := results[0]

	place := &travel.Place{
		Name: text,
		City: extractCity(result.AddressComponents),
		Location: travel.Location{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}

	if r.cache != nil {
		placeJSON, _ := json.Marshal(place)
		r.cache.Set(ctx, cacheKey, string(placeJSON))
	}

	return place, nil
}

// ResolveTimezone resolves the IANA timezone id for a coordinate at a given
// instant
func (r *Resolver) ResolveTimezone(ctx context.Context, location travel.Location, epochSeconds int64) (travel.TimezoneContext, error) {
	cacheKey := fmt.Sprintf("timezone:%.4f:%.4f", location.Latitude, location.Longitude)

	if r.cache != nil {
		cacheValue, err := r.cache.Get(ctx, cacheKey)
		if err == nil && cacheValue != "" {
			return travel.TimezoneContext{IANAID: cacheValue}, nil
		}
	}

	requestCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	result, err := r.timezone.Timezone(requestCtx, &maps.TimezoneRequest{
		Location: &maps.LatLng{
			Lat: location.Latitude,
			Lng: location.Longitude,
		},
		Timestamp: time.Unix(epochSeconds, 0),
	})
	if err != nil {
		return travel.TimezoneContext{}, fmt.Errorf("%w: %s", ErrTimezoneUnavailable, err)
	}

	if result.TimeZoneID == "" {
		return travel.TimezoneContext{}, ErrTimezoneUnavailable
	}

	if r.cache != nil {
		r.cache.Set(ctx, cacheKey, result.TimeZoneID)
	}

	return travel.TimezoneContext{IANAID: result.TimeZoneID}, nil
}

func extractCity(components []maps.AddressComponent) string {
	for _, componentType := range []string{"locality", "postal_town", "administrative_area_level_2"} {
		for _, component := range components {
			if slices.Contains(component.Types, componentType) {
				return component.LongName
			}
		}
	}

	log.Debug().Msg("No locality in geocoder address components")

	return ""
}
