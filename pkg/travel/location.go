package travel

type Location struct {
	Latitude  float64 `groups:"basic" json:"lat" bson:"latitude"`
	Longitude float64 `groups:"basic" json:"lng" bson:"longitude"`
}

// Place is a geocoded location. City is the locality extracted from the
// geocoder's address components, empty when the provider returned none.
type Place struct {
	Name     string   `groups:"basic"`
	City     string   `groups:"basic" json:",omitempty"`
	Location Location `groups:"basic"`
}

// TimezoneContext is the origin timezone resolved once per search. Every
// local-time render and cutoff comparison for that search uses it.
type TimezoneContext struct {
	IANAID string `groups:"basic"`
}
