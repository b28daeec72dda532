package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Geo              Geo     `json:"geo"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"` // 0.0–1.0 provider confidence score
}

// Empty reports whether the provider found no match.
func (r GeocodingResult) Empty() bool {
	return r.FormattedAddress == "" && r.Geo == (Geo{})
}

// Geocoder resolves free-text place queries and coordinate labels.
type Geocoder interface {
	// ForwardGeocode converts a place or address query to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to a display address.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
