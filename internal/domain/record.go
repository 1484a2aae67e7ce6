package domain

import (
	"math"
	"net/mail"
	"strings"
	"time"
)

// DateFormat is the fixed layout for founding dates in tabular input.
const DateFormat = "2006-01-02"

// Coordinates is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and within range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Address holds the postal address fields of a place.
type Address struct {
	Street  string `json:"street,omitempty"`
	Zip     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
}

// IsEmpty reports whether no address component is set.
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.Zip == "" && a.City == "" && a.Country == "" && a.State == ""
}

// Query renders the address as a single free-text line for geocoding lookups.
func (a Address) Query() string {
	parts := make([]string, 0, 4)
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if a.Zip != "" || a.City != "" {
		parts = append(parts, strings.TrimSpace(a.Zip+" "+a.City))
	}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

// Contact holds optional contact details for a place.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Record is a candidate place entry flowing through the pipeline.
type Record struct {
	// ID is empty for new entries and set for update/patch/review targets.
	ID string `json:"id,omitempty"`

	// Version is caller-supplied on update/patch and must be a positive
	// integer. The pipeline never computes it.
	Version int64 `json:"version,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Pos is nil until the record carries valid coordinates, either from the
	// input row or filled in by EnrichCoordinates.
	Pos *Coordinates `json:"pos,omitempty"`

	Address Address `json:"address"`
	Contact Contact `json:"contact,omitzero"`

	OpeningHours string    `json:"opening_hours,omitempty"`
	FoundedOn    time.Time `json:"founded_on,omitzero"`
	Tags         []string  `json:"tags,omitempty"`
	Homepage     string    `json:"homepage,omitempty"`
	License      string    `json:"license,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	ImageLinkURL string    `json:"image_link_url,omitempty"`
}

// HasCoordinates reports whether the record already carries a position.
func (r *Record) HasCoordinates() bool {
	return r.Pos != nil
}

// ParseTags splits a comma-separated tag field, dropping empty segments and
// case-sensitive duplicates. First appearance wins.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for seg := range strings.SplitSeq(s, ",") {
		tag := strings.TrimSpace(seg)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// ValidEmail reports whether s parses as a single mailbox address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// DuplicateCandidate references an existing catalog entry the remote service
// judged close enough to a new record to warrant human review.
type DuplicateCandidate struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Distance float64 `json:"distance_meters,omitempty"`
}
