package decode

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/placesync/internal/domain"
)

// updateObject is the wire shape of one element in update-mode JSON input:
// an entry ID, a version, and the fields to replace.
type updateObject struct {
	ID           string   `json:"id"`
	Version      int64    `json:"version"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Street       string   `json:"street"`
	Zip          string   `json:"zip"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	State        string   `json:"state"`
	ContactName  string   `json:"contact_name"`
	ContactEmail string   `json:"contact_email"`
	ContactPhone string   `json:"contact_phone"`
	OpeningHours string   `json:"opening_hours"`
	FoundedOn    string   `json:"founded_on"`
	Tags         []string `json:"tags"`
	Homepage     string   `json:"homepage"`
	License      string   `json:"license"`
	ImageURL     string   `json:"image_url"`
	ImageLinkURL string   `json:"image_link_url"`
}

// JSONDecoder reads update-mode input: a JSON array of objects, each carrying
// an entry ID, a version, and the fields to change. Elements stream lazily;
// Next returns io.EOF after the closing bracket.
type JSONDecoder struct {
	dec *json.Decoder
	row int
}

// NewJSONDecoder consumes the opening bracket and returns a decoder for r.
func NewJSONDecoder(r io.Reader) (*JSONDecoder, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read json input: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("json input must be an array of objects, got %v", tok)
	}
	return &JSONDecoder{dec: dec}, nil
}

// Next decodes the next array element. Malformed elements land in Row.Err.
func (d *JSONDecoder) Next() (Row, error) {
	if !d.dec.More() {
		// Consume the closing bracket, then require the stream to end:
		// leftover bytes after the array are malformed input.
		if _, err := d.dec.Token(); err != nil && err != io.EOF {
			return Row{}, fmt.Errorf("read json input: %w", err)
		}
		if tok, err := d.dec.Token(); err != io.EOF {
			if err != nil {
				return Row{}, fmt.Errorf("read json input: %w", err)
			}
			return Row{}, fmt.Errorf("unexpected data after json array: %v", tok)
		}
		return Row{}, io.EOF
	}
	d.row++

	var obj updateObject
	if err := d.dec.Decode(&obj); err != nil {
		return Row{
			Number: d.row,
			Err:    &domain.DecodeError{Kind: domain.DecodeInvalidRecord, Detail: err.Error()},
		}, nil
	}

	rec, decErr := obj.toRecord()
	if decErr != nil {
		return Row{Number: d.row, Err: decErr}, nil
	}
	return Row{Number: d.row, Record: rec}, nil
}

func (o *updateObject) toRecord() (domain.Record, *domain.DecodeError) {
	rec := domain.Record{
		ID:          o.ID,
		Version:     o.Version,
		Title:       o.Title,
		Description: o.Description,
		Address: domain.Address{
			Street:  o.Street,
			Zip:     o.Zip,
			City:    o.City,
			Country: o.Country,
			State:   o.State,
		},
		Contact: domain.Contact{
			Name:  o.ContactName,
			Email: o.ContactEmail,
			Phone: o.ContactPhone,
		},
		OpeningHours: o.OpeningHours,
		Tags:         dedupeTags(o.Tags),
		Homepage:     o.Homepage,
		License:      o.License,
		ImageURL:     o.ImageURL,
		ImageLinkURL: o.ImageLinkURL,
	}

	if rec.ID == "" {
		return rec, &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "id"}
	}
	if rec.Version <= 0 {
		return rec, &domain.DecodeError{
			Kind:   domain.DecodeMissingVersion,
			Field:  "version",
			Detail: "a positive version is required on update",
		}
	}
	if rec.Title == "" {
		return rec, &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "title"}
	}

	if o.Lat != nil || o.Lng != nil {
		if o.Lat == nil || o.Lng == nil {
			return rec, &domain.DecodeError{
				Kind:   domain.DecodeInvalidCoordinate,
				Detail: "lat and lng must be given together",
			}
		}
		pos := domain.Coordinates{Lat: *o.Lat, Lng: *o.Lng}
		if !pos.Valid() {
			return rec, &domain.DecodeError{
				Kind:   domain.DecodeInvalidCoordinate,
				Detail: fmt.Sprintf("(%v, %v) is out of range", pos.Lat, pos.Lng),
			}
		}
		rec.Pos = &pos
	}

	if rec.Pos == nil && rec.Address.IsEmpty() {
		return rec, &domain.DecodeError{
			Kind:   domain.DecodeMissingField,
			Field:  "address",
			Detail: "an address or coordinates (lat/lng) are required",
		}
	}

	if rec.Contact.Email != "" && !domain.ValidEmail(rec.Contact.Email) {
		return rec, &domain.DecodeError{Kind: domain.DecodeInvalidEmail, Field: "contact_email"}
	}

	if o.FoundedOn != "" {
		ts, err := time.Parse(domain.DateFormat, o.FoundedOn)
		if err != nil {
			return rec, &domain.DecodeError{
				Kind:   domain.DecodeInvalidDate,
				Field:  "founded_on",
				Detail: fmt.Sprintf("%q does not match %s", o.FoundedOn, domain.DateFormat),
			}
		}
		rec.FoundedOn = ts
	}

	return rec, nil
}

// dedupeTags applies the same tag normalization as tabular input to tags that
// arrive pre-split in JSON form.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
