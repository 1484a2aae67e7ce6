package domain

import "context"

// GeocodingCandidate is one possible coordinate match for an address.
type GeocodingCandidate struct {
	Lat        float64
	Lng        float64
	Confidence float64 // 0.0–1.0 provider confidence score
	Formatted  string  // provider's formatted address line
}

// Geocoder resolves an address to zero or more coordinate candidates,
// best match first where the provider ranks results.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) ([]GeocodingCandidate, error)
}
