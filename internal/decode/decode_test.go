package decode

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/placesync/internal/domain"
)

const importHeader = "title,description,lat,lng,street,zip,city,country,state," +
	"contact_name,contact_email,contact_phone,opening_hours,founded_on,tags," +
	"homepage,license,image_url,image_link_url"

const patchHeader = "id,version," + importHeader

func csvInput(header string, rows ...string) io.Reader {
	return strings.NewReader(header + "\n" + strings.Join(rows, "\n") + "\n")
}

func drain(t *testing.T, d *CSVDecoder) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := d.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVDecoder_ImportRow(t *testing.T) {
	d, err := NewCSVDecoder(csvInput(importHeader,
		`Cafe X,A nice place,52.5,13.4,Bergmannstr. 1,10961,Berlin,Germany,Berlin,`+
			`Jane Doe,jane@example.org,+49 30 123,Mo-Fr 9-18,2012-04-01,"organic,cafe,organic",`+
			`https://cafe-x.example.org,CC0-1.0,https://img.example.org/x.jpg,https://cafe-x.example.org/about`,
	), ModeImport)
	require.NoError(t, err)

	rows := drain(t, d)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Nil(t, row.Err)
	assert.Equal(t, 1, row.Number)

	rec := row.Record
	assert.Equal(t, "Cafe X", rec.Title)
	assert.Equal(t, "A nice place", rec.Description)
	require.True(t, rec.HasCoordinates())
	assert.Equal(t, 52.5, rec.Pos.Lat)
	assert.Equal(t, 13.4, rec.Pos.Lng)
	assert.Equal(t, domain.Address{
		Street: "Bergmannstr. 1", Zip: "10961", City: "Berlin",
		Country: "Germany", State: "Berlin",
	}, rec.Address)
	assert.Equal(t, domain.Contact{
		Name: "Jane Doe", Email: "jane@example.org", Phone: "+49 30 123",
	}, rec.Contact)
	assert.Equal(t, "Mo-Fr 9-18", rec.OpeningHours)
	assert.Equal(t, time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC), rec.FoundedOn)
	assert.Equal(t, []string{"organic", "cafe"}, rec.Tags, "tags are deduplicated")
	assert.Equal(t, "https://cafe-x.example.org", rec.Homepage)
	assert.Equal(t, "CC0-1.0", rec.License)
	assert.Equal(t, "https://img.example.org/x.jpg", rec.ImageURL)
	assert.Equal(t, "https://cafe-x.example.org/about", rec.ImageLinkURL)
	assert.Empty(t, rec.ID)
	assert.Zero(t, rec.Version)
}

func TestCSVDecoder_MissingCoordinatesNeedsGeocoding(t *testing.T) {
	d, err := NewCSVDecoder(csvInput(importHeader,
		`Cafe X,Desc,,,Bergmannstr. 1,10961,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
	), ModeImport)
	require.NoError(t, err)

	rows := drain(t, d)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Err)
	assert.False(t, rows[0].Record.HasCoordinates())
}

func TestCSVDecoder_RowErrors(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		wantKind domain.DecodeErrorKind
	}{
		{
			"missing title",
			`,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
			domain.DecodeMissingField,
		},
		{
			"missing license",
			`Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,,,`,
			domain.DecodeMissingField,
		},
		{
			"half coordinate pair",
			`Cafe X,Desc,52.5,,,,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
			domain.DecodeInvalidCoordinate,
		},
		{
			"unparseable coordinate",
			`Cafe X,Desc,north,east,,,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
			domain.DecodeInvalidCoordinate,
		},
		{
			"latitude out of range",
			`Cafe X,Desc,91.0,13.4,,,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
			domain.DecodeInvalidCoordinate,
		},
		{
			"invalid email",
			`Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,not-an-email,,,,,,CC0-1.0,,`,
			domain.DecodeInvalidEmail,
		},
		{
			"invalid founding date",
			`Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,01.04.2012,,,CC0-1.0,,`,
			domain.DecodeInvalidDate,
		},
		{
			"no address and no coordinates",
			`Cafe X,Desc,,,,,,,,,,,,,,,CC0-1.0,,`,
			domain.DecodeMissingField,
		},
		{
			"wrong field count",
			`Cafe X,Desc`,
			domain.DecodeInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewCSVDecoder(csvInput(importHeader, tt.row), ModeImport)
			require.NoError(t, err)

			rows := drain(t, d)
			require.Len(t, rows, 1)
			require.NotNil(t, rows[0].Err)
			assert.Equal(t, tt.wantKind, rows[0].Err.Kind)
		})
	}
}

func TestCSVDecoder_MalformedRowDoesNotStopDecoding(t *testing.T) {
	d, err := NewCSVDecoder(csvInput(importHeader,
		`Broken,Row`,
		`Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
	), ModeImport)
	require.NoError(t, err)

	rows := drain(t, d)
	require.Len(t, rows, 2)
	assert.NotNil(t, rows[0].Err)
	assert.Equal(t, 1, rows[0].Number)
	assert.Nil(t, rows[1].Err)
	assert.Equal(t, 2, rows[1].Number, "row numbers stay stable after failures")
	assert.Equal(t, "Cafe X", rows[1].Record.Title)
}

func TestCSVDecoder_HeaderValidation(t *testing.T) {
	_, err := NewCSVDecoder(strings.NewReader("title,description\nCafe X,Desc\n"), ModeImport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")

	// Patch mode requires id and version on top of the import set.
	_, err = NewCSVDecoder(csvInput(importHeader), ModePatch)
	require.Error(t, err)
}

func TestCSVDecoder_PatchMode(t *testing.T) {
	t.Run("valid patch row", func(t *testing.T) {
		d, err := NewCSVDecoder(csvInput(patchHeader,
			`abc-123,4,Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,,,`,
		), ModePatch)
		require.NoError(t, err)

		rows := drain(t, d)
		require.Len(t, rows, 1)
		require.Nil(t, rows[0].Err)
		assert.Equal(t, "abc-123", rows[0].Record.ID)
		assert.Equal(t, int64(4), rows[0].Record.Version)
		assert.Empty(t, rows[0].Record.License)
	})

	t.Run("non-empty license rejected regardless of other fields", func(t *testing.T) {
		// Row also has invalid coordinates; the license classification wins.
		d, err := NewCSVDecoder(csvInput(patchHeader,
			`abc-123,4,Cafe X,Desc,north,east,,,Berlin,Germany,,,,,,,,,CC0-1.0,,`,
		), ModePatch)
		require.NoError(t, err)

		rows := drain(t, d)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].Err)
		assert.Equal(t, domain.DecodeLicenseNotPatchable, rows[0].Err.Kind)
	})

	t.Run("missing version", func(t *testing.T) {
		d, err := NewCSVDecoder(csvInput(patchHeader,
			`abc-123,,Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,,,`,
		), ModePatch)
		require.NoError(t, err)

		rows := drain(t, d)
		require.NotNil(t, rows[0].Err)
		assert.Equal(t, domain.DecodeMissingVersion, rows[0].Err.Kind)
	})

	t.Run("non-positive version", func(t *testing.T) {
		d, err := NewCSVDecoder(csvInput(patchHeader,
			`abc-123,0,Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,,,`,
		), ModePatch)
		require.NoError(t, err)

		rows := drain(t, d)
		require.NotNil(t, rows[0].Err)
		assert.Equal(t, domain.DecodeMissingVersion, rows[0].Err.Kind)
	})

	t.Run("missing id", func(t *testing.T) {
		d, err := NewCSVDecoder(csvInput(patchHeader,
			`,4,Cafe X,Desc,52.5,13.4,,,Berlin,Germany,,,,,,,,,,,`,
		), ModePatch)
		require.NoError(t, err)

		rows := drain(t, d)
		require.NotNil(t, rows[0].Err)
		assert.Equal(t, domain.DecodeMissingField, rows[0].Err.Kind)
		assert.Equal(t, "id", rows[0].Err.Field)
	})
}

func TestJSONDecoder(t *testing.T) {
	t.Run("valid update objects", func(t *testing.T) {
		input := `[
			{"id":"abc","version":3,"title":"Cafe X","description":"Desc","lat":52.5,"lng":13.4,"city":"Berlin","tags":["a","a","b"]},
			{"id":"def","version":7,"title":"Cafe Y","description":"Desc","street":"Hauptstr. 5","city":"Hamburg"}
		]`
		d, err := NewJSONDecoder(strings.NewReader(input))
		require.NoError(t, err)

		row, err := d.Next()
		require.NoError(t, err)
		require.Nil(t, row.Err)
		assert.Equal(t, 1, row.Number)
		assert.Equal(t, "abc", row.Record.ID)
		assert.Equal(t, int64(3), row.Record.Version)
		require.True(t, row.Record.HasCoordinates())
		assert.Equal(t, []string{"a", "b"}, row.Record.Tags)

		row, err = d.Next()
		require.NoError(t, err)
		require.Nil(t, row.Err)
		assert.Equal(t, 2, row.Number)
		assert.False(t, row.Record.HasCoordinates(), "coordinates absent means needs geocoding")

		_, err = d.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("missing version", func(t *testing.T) {
		d, err := NewJSONDecoder(strings.NewReader(`[{"id":"abc","title":"X","description":"D","city":"Berlin"}]`))
		require.NoError(t, err)

		row, err := d.Next()
		require.NoError(t, err)
		require.NotNil(t, row.Err)
		assert.Equal(t, domain.DecodeMissingVersion, row.Err.Kind)
	})

	t.Run("missing id", func(t *testing.T) {
		d, err := NewJSONDecoder(strings.NewReader(`[{"version":2,"title":"X","description":"D"}]`))
		require.NoError(t, err)

		row, err := d.Next()
		require.NoError(t, err)
		require.NotNil(t, row.Err)
		assert.Equal(t, domain.DecodeMissingField, row.Err.Kind)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := NewJSONDecoder(strings.NewReader(`{"id":"abc"}`))
		require.Error(t, err)
	})

	t.Run("trailing data after array", func(t *testing.T) {
		input := `[{"id":"abc","version":3,"title":"X","description":"D","city":"Berlin"}]{"id":"def"}`
		d, err := NewJSONDecoder(strings.NewReader(input))
		require.NoError(t, err)

		row, err := d.Next()
		require.NoError(t, err)
		require.Nil(t, row.Err)

		_, err = d.Next()
		require.Error(t, err)
		assert.NotEqual(t, io.EOF, err, "leftover bytes must not pass as a clean end")
		assert.Contains(t, err.Error(), "after json array")
	})

	t.Run("clean end stays io.EOF", func(t *testing.T) {
		d, err := NewJSONDecoder(strings.NewReader(
			`[{"id":"abc","version":3,"title":"X","description":"D","city":"Berlin"}]`))
		require.NoError(t, err)

		_, err = d.Next()
		require.NoError(t, err)
		_, err = d.Next()
		assert.Equal(t, io.EOF, err)
		_, err = d.Next()
		assert.Equal(t, io.EOF, err, "repeated calls after the end stay io.EOF")
	})
}

func TestReviewDecoder(t *testing.T) {
	t.Run("valid assignments", func(t *testing.T) {
		input := "id,status,comment\nabc,archived,closed down\ndef,confirmed,\n"
		d, err := NewReviewDecoder(strings.NewReader(input))
		require.NoError(t, err)

		row, err := d.Next()
		require.NoError(t, err)
		require.Nil(t, row.Err)
		assert.Equal(t, "abc", row.Assignment.ID)
		assert.Equal(t, domain.ReviewArchived, row.Assignment.Decision.Status)
		assert.Equal(t, "closed down", row.Assignment.Decision.Comment)

		row, err = d.Next()
		require.NoError(t, err)
		require.Nil(t, row.Err)
		assert.Equal(t, domain.ReviewConfirmed, row.Assignment.Decision.Status)

		_, err = d.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		d, err := NewReviewDecoder(strings.NewReader("id,status,comment\nabc,deleted,\n"))
		require.NoError(t, err)

		row, err := d.Next()
		require.NoError(t, err)
		require.NotNil(t, row.Err)
		assert.Equal(t, domain.DecodeInvalidRecord, row.Err.Kind)
	})

	t.Run("missing header column", func(t *testing.T) {
		_, err := NewReviewDecoder(strings.NewReader("id,comment\nabc,\n"))
		require.Error(t, err)
	})
}
