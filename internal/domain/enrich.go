package domain

import (
	"context"
	"fmt"
)

// EnrichCoordinates fills in a record's missing coordinates from the geocoding
// provider. Records that already carry valid coordinates bypass the provider
// call entirely. The returned record is a copy; the input is never mutated on
// failure.
//
// When the provider returns several candidates the highest-confidence one wins;
// coordinates are never averaged. Only when two or more candidates carry no
// confidence signal at all does enrichment fail as ambiguous.
//
// EnrichCoordinates performs no retries; retry policy belongs to the pipeline
// driver.
func EnrichCoordinates(ctx context.Context, rec Record, geocoder Geocoder) (Record, error) {
	if rec.HasCoordinates() {
		return rec, nil
	}
	if geocoder == nil {
		return rec, &EnrichError{Kind: EnrichProviderError, Detail: "no geocoding provider configured"}
	}
	if rec.Address.IsEmpty() {
		return rec, &EnrichError{Kind: EnrichNoResult, Detail: "record has neither coordinates nor an address"}
	}

	candidates, err := geocoder.Geocode(ctx, rec.Address)
	if err != nil {
		return rec, &EnrichError{Kind: EnrichProviderError, Err: err}
	}
	if len(candidates) == 0 {
		return rec, &EnrichError{
			Kind:   EnrichNoResult,
			Detail: fmt.Sprintf("no match for %q", rec.Address.Query()),
		}
	}

	best, ok := bestCandidate(candidates)
	if !ok {
		return rec, &EnrichError{
			Kind:   EnrichAmbiguous,
			Detail: fmt.Sprintf("%d unranked candidates for %q", len(candidates), rec.Address.Query()),
		}
	}

	pos := Coordinates{Lat: best.Lat, Lng: best.Lng}
	if !pos.Valid() {
		return rec, &EnrichError{
			Kind:   EnrichProviderError,
			Detail: fmt.Sprintf("provider returned out-of-range coordinates (%v, %v)", best.Lat, best.Lng),
		}
	}

	rec.Pos = &pos
	return rec, nil
}

// bestCandidate picks the highest-confidence candidate. Reports false when
// multiple candidates exist and none carries a confidence score.
func bestCandidate(candidates []GeocodingCandidate) (GeocodingCandidate, bool) {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	if len(candidates) > 1 && best.Confidence == 0 {
		return GeocodingCandidate{}, false
	}
	return best, true
}
