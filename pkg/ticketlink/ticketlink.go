package ticketlink

import (
	_ "embed"
	"fmt"
	"net/url"
	"time"

	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/traveltime"
	"gopkg.in/yaml.v3"
)

//go:embed sellers.yaml
var sellersYAML []byte

type sellerDefinition struct {
	BaseURL          string `yaml:"base_url"`
	OriginParam      string `yaml:"origin_param"`
	DestinationParam string `yaml:"destination_param"`
	DateParam        string `yaml:"date_param"`

	// Rail sellers take a full local departure instant instead of a
	// calendar date
	ISODeparture bool `yaml:"iso_departure"`
}

type sellersFile struct {
	Sellers map[string]sellerDefinition `yaml:"sellers"`
}

// Builder composes deep links to external ticket sellers. It is pure -
// identical inputs always produce a byte-identical URL, as the caller may
// rebuild the link on every render.
type Builder struct {
	sellers map[travel.TransportMode]sellerDefinition
}

func NewBuilder() (*Builder, error) {
	var definitions sellersFile
	if err := yaml.Unmarshal(sellersYAML, &definitions); err != nil {
		return nil, fmt.Errorf("parsing ticket seller definitions: %w", err)
	}

	builder := &Builder{
		sellers: map[travel.TransportMode]sellerDefinition{},
	}

	for key, definition := range definitions.Sellers {
		mode := travel.ParseTransportMode(key)
		if mode == travel.TransportModeUnknown {
			return nil, fmt.Errorf("ticket seller defined for unknown mode %q", key)
		}

		builder.sellers[mode] = definition
	}

	return builder, nil
}

// Build returns the seller deep link for a journey, or an empty string when
// no seller is configured for the mode. The departure is rendered as the
// origin-local calendar date (or local instant for ISO sellers).
func (b *Builder) Build(mode travel.TransportMode, origin string, destination string, departureEpoch int64, timezone travel.TimezoneContext) string {
	seller, found := b.sellers[mode]
	if !found {
		return ""
	}

	dateValue := traveltime.FormatLocalDate(departureEpoch, timezone.IANAID)
	if seller.ISODeparture {
		dateValue = formatLocalInstant(departureEpoch, timezone.IANAID)
	}

	values := url.Values{}
	values.Set(seller.OriginParam, origin)
	values.Set(seller.DestinationParam, destination)
	values.Set(seller.DateParam, dateValue)

	// url.Values.Encode sorts keys, keeping the output deterministic
	return seller.BaseURL + "?" + values.Encode()
}

func formatLocalInstant(epochSeconds int64, ianaID string) string {
	location, err := time.LoadLocation(ianaID)
	if err != nil {
		return traveltime.InvalidTimeDisplay
	}

	return time.Unix(epochSeconds, 0).In(location).Format("2006-01-02T15:04")
}
