package travel

import "golang.org/x/exp/slices"

type TransportMode string

const (
	TransportModeBus     TransportMode = "Bus"
	TransportModeTrain   TransportMode = "Train"
	TransportModeUnknown TransportMode = "UNKNOWN"
)

// Vehicle type identifiers used by the directions provider for each mode
var busVehicleTypes = []string{
	"BUS",
	"INTERCITY_BUS",
	"TROLLEYBUS",
}

var railVehicleTypes = []string{
	"RAIL",
	"HEAVY_RAIL",
	"COMMUTER_TRAIN",
	"HIGH_SPEED_TRAIN",
	"LONG_DISTANCE_TRAIN",
	"METRO_RAIL",
	"MONORAIL",
	"SUBWAY",
	"TRAM",
}

func ParseTransportMode(value string) TransportMode {
	switch value {
	case "bus", "Bus":
		return TransportModeBus
	case "train", "rail", "Train":
		return TransportModeTrain
	default:
		return TransportModeUnknown
	}
}

// MatchesVehicleType reports whether a provider vehicle type identifier
// belongs to this transport mode
func (m TransportMode) MatchesVehicleType(vehicleType string) bool {
	switch m {
	case TransportModeBus:
		return slices.Contains(busVehicleTypes, vehicleType)
	case TransportModeTrain:
		return slices.Contains(railVehicleTypes, vehicleType)
	default:
		return false
	}
}
