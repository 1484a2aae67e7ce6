package catalog

import (
	"time"

	"github.com/couchcryptid/placesync/internal/domain"
)

// placePayload is the catalog's wire shape for a place entry. Create requests
// omit id and version; update/patch requests carry both.
type placePayload struct {
	ID           string   `json:"id,omitempty"`
	Version      int64    `json:"version,omitempty"`
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	Street       string   `json:"street,omitempty"`
	Zip          string   `json:"zip,omitempty"`
	City         string   `json:"city,omitempty"`
	Country      string   `json:"country,omitempty"`
	State        string   `json:"state,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Telephone    string   `json:"telephone,omitempty"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	FoundedOn    string   `json:"founded_on,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Homepage     string   `json:"homepage,omitempty"`
	License      string   `json:"license,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	ImageLinkURL string   `json:"image_link_url,omitempty"`
}

// searchResult is one duplicate-search hit.
type searchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Distance float64 `json:"distance_meters,omitempty"`
}

func basePayload(rec domain.Record) placePayload {
	p := placePayload{
		Title:        rec.Title,
		Description:  rec.Description,
		Street:       rec.Address.Street,
		Zip:          rec.Address.Zip,
		City:         rec.Address.City,
		Country:      rec.Address.Country,
		State:        rec.Address.State,
		ContactName:  rec.Contact.Name,
		Email:        rec.Contact.Email,
		Telephone:    rec.Contact.Phone,
		OpeningHours: rec.OpeningHours,
		Tags:         rec.Tags,
		Homepage:     rec.Homepage,
		License:      rec.License,
		ImageURL:     rec.ImageURL,
		ImageLinkURL: rec.ImageLinkURL,
	}
	if rec.Pos != nil {
		lat, lng := rec.Pos.Lat, rec.Pos.Lng
		p.Lat, p.Lng = &lat, &lng
	}
	if !rec.FoundedOn.IsZero() {
		p.FoundedOn = rec.FoundedOn.Format(domain.DateFormat)
	}
	return p
}

func newPlacePayload(rec domain.Record) placePayload {
	return basePayload(rec)
}

func updatePlacePayload(rec domain.Record) placePayload {
	p := basePayload(rec)
	p.ID = rec.ID
	p.Version = rec.Version
	return p
}

func (p placePayload) toRecord() domain.Record {
	rec := domain.Record{
		ID:          p.ID,
		Version:     p.Version,
		Title:       p.Title,
		Description: p.Description,
		Address: domain.Address{
			Street:  p.Street,
			Zip:     p.Zip,
			City:    p.City,
			Country: p.Country,
			State:   p.State,
		},
		Contact: domain.Contact{
			Name:  p.ContactName,
			Email: p.Email,
			Phone: p.Telephone,
		},
		OpeningHours: p.OpeningHours,
		Tags:         p.Tags,
		Homepage:     p.Homepage,
		License:      p.License,
		ImageURL:     p.ImageURL,
		ImageLinkURL: p.ImageLinkURL,
	}
	if p.Lat != nil && p.Lng != nil {
		rec.Pos = &domain.Coordinates{Lat: *p.Lat, Lng: *p.Lng}
	}
	if p.FoundedOn != "" {
		if ts, err := time.Parse(domain.DateFormat, p.FoundedOn); err == nil {
			rec.FoundedOn = ts
		}
	}
	return rec
}
