package travel

import "time"

// Trip is a Journey the user chose to keep. It shares the Journey fields so
// a loaded Trip can re-enter the display path unchanged, plus the
// server-assigned id and record timestamps. On the wire the epoch fields
// travel as ISO-8601 UTC instants; they only exist as epoch seconds on
// either side of it.
type Trip struct {
	ID string `groups:"basic"`

	Origin      string `groups:"basic"`
	Destination string `groups:"basic"`

	DepartureEpoch  int64 `groups:"basic"`
	ArrivalEpoch    int64 `groups:"basic"`
	DurationSeconds int64 `groups:"basic"`

	DepartureTimezone string `groups:"basic"`

	TransitStops []string        `groups:"basic"`
	Schedule     []ScheduleEntry `groups:"basic"`

	TicketProviderURL string `groups:"basic" json:",omitempty"`

	Mode TransportMode `groups:"basic"`

	DestinationLocation *Location `groups:"basic" json:",omitempty"`

	CreationDateTime time.Time `groups:"detailed" json:",omitempty"`
}
