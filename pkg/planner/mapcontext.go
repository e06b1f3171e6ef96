package planner

import "github.com/voyago/voyago/pkg/travel"

// MapContext is the map view a search is issued against, passed explicitly
// into whatever needs it rather than held as a process global. When a search
// fails with a not-found outcome the client resets its map to the default
// view carried here.
type MapContext struct {
	DefaultCenter travel.Location `groups:"basic"`
	DefaultZoom   int             `groups:"basic"`
}

// DefaultMapContext centres on Copenhagen at city-level zoom
func DefaultMapContext() MapContext {
	return MapContext{
		DefaultCenter: travel.Location{
			Latitude:  55.6761,
			Longitude: 12.5683,
		},
		DefaultZoom: 12,
	}
}
