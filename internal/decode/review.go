package decode

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/placesync/internal/domain"
)

// reviewColumns is the tabular header for review mode.
var reviewColumns = []string{"id", "status", "comment"}

// ReviewRow is the decoding result for one review input row.
type ReviewRow struct {
	Number     int
	Assignment domain.ReviewAssignment
	Err        *domain.DecodeError
}

// ReviewDecoder reads review assignments (id, status, comment) from tabular
// input. The sequence ends with io.EOF.
type ReviewDecoder struct {
	reader *csv.Reader
	cols   map[string]int
	row    int
}

// NewReviewDecoder validates the header and returns a decoder for r.
func NewReviewDecoder(r io.Reader) (*ReviewDecoder, error) {
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
	for _, name := range reviewColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", name)
		}
	}

	return &ReviewDecoder{reader: cr, cols: cols}, nil
}

// Next decodes the next review row.
func (d *ReviewDecoder) Next() (ReviewRow, error) {
	fields, err := d.reader.Read()
	if err == io.EOF {
		return ReviewRow{}, io.EOF
	}
	d.row++
	if err != nil {
		return ReviewRow{
			Number: d.row,
			Err:    &domain.DecodeError{Kind: domain.DecodeInvalidRecord, Detail: err.Error()},
		}, nil
	}

	field := func(name string) string {
		i := d.cols[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	id := field("id")
	if id == "" {
		return ReviewRow{
			Number: d.row,
			Err:    &domain.DecodeError{Kind: domain.DecodeMissingField, Field: "id"},
		}, nil
	}

	status, ok := domain.ParseReviewStatus(field("status"))
	if !ok {
		return ReviewRow{
			Number: d.row,
			Err: &domain.DecodeError{
				Kind:   domain.DecodeInvalidRecord,
				Field:  "status",
				Detail: fmt.Sprintf("%q is not one of confirmed, rejected, archived", field("status")),
			},
		}, nil
	}

	return ReviewRow{
		Number: d.row,
		Assignment: domain.ReviewAssignment{
			ID:       id,
			Decision: domain.ReviewDecision{Status: status, Comment: field("comment")},
		},
	}, nil
}
