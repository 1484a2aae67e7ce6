// Package decode converts raw tabular or JSON input into Records, one result
// per input row. Row parsing is independent: a malformed row is reported in
// place and never prevents decoding of subsequent rows.
package decode

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/placesync/internal/domain"
)

// Mode selects the tabular row schema.
type Mode int

const (
	// ModeImport expects the fixed import column set; license is mandatory.
	ModeImport Mode = iota
	// ModePatch additionally expects id and version columns and requires the
	// license column to be blank.
	ModePatch
)

// Row is the decoding result for one input row. Exactly one of Record and Err
// is meaningful; Number is the 1-based data row index and stays stable even
// when earlier rows failed.
type Row struct {
	Number int
	Record domain.Record
	Err    *domain.DecodeError
}

// importColumns is the fixed tabular header for import mode.
var importColumns = []string{
	"title", "description", "lat", "lng",
	"street", "zip", "city", "country", "state",
	"contact_name", "contact_email", "contact_phone",
	"opening_hours", "founded_on", "tags", "homepage",
	"license", "image_url", "image_link_url",
}

// patchColumns extends the import header with the row's identity and version.
var patchColumns = append([]string{"id", "version"}, importColumns...)

// CSVDecoder reads place records from tabular input. Each call to Next returns
// the next row in input order; the sequence ends with io.EOF.
type CSVDecoder struct {
	reader *csv.Reader
	mode   Mode
	cols   map[string]int
	row    int
}

// NewCSVDecoder validates the header and returns a decoder for r.
func NewCSVDecoder(r io.Reader, mode Mode) (*CSVDecoder, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	expected := importColumns
	if mode == ModePatch {
		expected = patchColumns
	}
	for _, name := range expected {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", name)
		}
	}

	return &CSVDecoder{reader: cr, mode: mode, cols: cols}, nil
}

// Next decodes the next row. It returns io.EOF after the last row; any other
// error is impossible by construction (malformed rows land in Row.Err).
func (d *CSVDecoder) Next() (Row, error) {
	fields, err := d.reader.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	d.row++
	if err != nil {
		return Row{
			Number: d.row,
			Err:    &domain.DecodeError{Kind: domain.DecodeInvalidRecord, Detail: err.Error()},
		}, nil
	}

	rec, decErr := d.decodeRecord(fields)
	if decErr != nil {
		return Row{Number: d.row, Err: decErr}, nil
	}
	return Row{Number: d.row, Record: rec}, nil
}

func (d *CSVDecoder) field(fields []string, name string) string {
	i, ok := d.cols[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func (d *CSVDecoder) decodeRecord(fields []string) (domain.Record, *domain.DecodeError) {
	rec := domain.Record{
		Title:       d.field(fields, "title"),
		Description: d.field(fields, "description"),
		Address: domain.Address{
			Street:  d.field(fields, "street"),
			Zip:     d.field(fields, "zip"),
			City:    d.field(fields, "city"),
			Country: d.field(fields, "country"),
			State:   d.field(fields, "state"),
		},
		Contact: domain.Contact{
			Name:  d.field(fields, "contact_name"),
			Email: d.field(fields, "contact_email"),
			Phone: d.field(fields, "contact_phone"),
		},
		OpeningHours: d.field(fields, "opening_hours"),
		Tags:         domain.ParseTags(d.field(fields, "tags")),
		Homepage:     d.field(fields, "homepage"),
		License:      d.field(fields, "license"),
		ImageURL:     d.field(fields, "image_url"),
		ImageLinkURL: d.field(fields, "image_link_url"),
	}

	// License is not patchable: checked first so the classification is
	// independent of any other field's validity.
	if d.mode == ModePatch && rec.License != "" {
		return rec, &domain.DecodeError{Kind: domain.DecodeLicenseNotPatchable, Field: "license"}
	}

	if rec.Title == "" {
		return rec, &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "title"}
	}
	if rec.Description == "" {
		return rec, &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "description"}
	}

	pos, decErr := parseCoordinates(d.field(fields, "lat"), d.field(fields, "lng"))
	if decErr != nil {
		return rec, decErr
	}
	rec.Pos = pos

	// Records without coordinates go through geocoding, which needs an address.
	if rec.Pos == nil && rec.Address.IsEmpty() {
		return rec, &domain.DecodeError{
			Kind:   domain.DecodeMissingField,
			Field:  "address",
			Detail: "an address or coordinates (lat/lng) are required",
		}
	}

	if rec.Contact.Email != "" && !domain.ValidEmail(rec.Contact.Email) {
		return rec, &domain.DecodeError{
			Kind:  domain.DecodeInvalidEmail,
			Field: "contact_email",
		}
	}

	if founded := d.field(fields, "founded_on"); founded != "" {
		ts, err := time.Parse(domain.DateFormat, founded)
		if err != nil {
			return rec, &domain.DecodeError{
				Kind:   domain.DecodeInvalidDate,
				Field:  "founded_on",
				Detail: fmt.Sprintf("%q does not match %s", founded, domain.DateFormat),
			}
		}
		rec.FoundedOn = ts
	}

	switch d.mode {
	case ModeImport:
		if rec.License == "" {
			return rec, &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "license"}
		}
	case ModePatch:
		rec.ID = d.field(fields, "id")
		if rec.ID == "" {
			return rec, &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "id"}
		}
		version, decErr := parseVersion(d.field(fields, "version"))
		if decErr != nil {
			return rec, decErr
		}
		rec.Version = version
	}

	return rec, nil
}

// parseCoordinates interprets the lat/lng columns. Both blank means the record
// needs geocoding; a half-set pair is invalid.
func parseCoordinates(latStr, lngStr string) (*domain.Coordinates, *domain.DecodeError) {
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, &domain.DecodeError{
			Kind:   domain.DecodeInvalidCoordinate,
			Detail: "lat and lng must be given together",
		}
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		return nil, &domain.DecodeError{
			Kind:   domain.DecodeInvalidCoordinate,
			Detail: fmt.Sprintf("cannot parse (%q, %q)", latStr, lngStr),
		}
	}

	pos := domain.Coordinates{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return nil, &domain.DecodeError{
			Kind:   domain.DecodeInvalidCoordinate,
			Detail: fmt.Sprintf("(%v, %v) is out of range", lat, lng),
		}
	}
	return &pos, nil
}

func parseVersion(s string) (int64, *domain.DecodeError) {
	if s == "" {
		return 0, &domain.DecodeError{Kind: domain.DecodeMissingVersion, Field: "version"}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, &domain.DecodeError{
			Kind:   domain.DecodeMissingVersion,
			Field:  "version",
			Detail: fmt.Sprintf("%q is not a positive integer", s),
		}
	}
	return v, nil
}
