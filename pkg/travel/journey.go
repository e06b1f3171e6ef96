package travel

// Journey is a single planned itinerary produced by a search. Journeys are
// created fresh per search response and wholesale replaced by the next
// search, never mutated in place.
//
// All epoch fields are canonical seconds. The directions provider leaks a
// mix of second and millisecond encodings; anything entering a Journey has
// already been normalized.
type Journey struct {
	Origin      string `groups:"basic"`
	Destination string `groups:"basic"`

	DepartureEpoch  int64 `groups:"basic"`
	ArrivalEpoch    int64 `groups:"basic"`
	DurationSeconds int64 `groups:"basic"`

	// IANA id of the origin timezone the journey was planned in
	DepartureTimezone string `groups:"basic"`

	TransitStops []string        `groups:"basic"`
	Schedule     []ScheduleEntry `groups:"basic"`

	TicketProviderURL string `groups:"basic" json:",omitempty"`

	Mode TransportMode `groups:"basic"`

	DestinationLocation *Location `groups:"basic" json:",omitempty"`
}

type ScheduleEntry struct {
	SegmentLabel   string `groups:"basic"`
	DepartureLocal string `groups:"basic"`
	ArrivalLocal   string `groups:"basic"`
}
