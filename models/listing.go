package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Site identifies which travel site a page resolved to.
type Site string

const (
	SiteAirbnb  Site = "airbnb"
	SiteBooking Site = "booking"
	SiteNone    Site = "none"
)

// Placeholder is the value recorded for a card sub-field that was not found.
const Placeholder = "N/A"

// Listing is one record returned by the vision extraction of an airbnb
// screenshot. BedConfiguration is nil when the model omitted it.
type Listing struct {
	Name             string  `json:"name" bson:"name"`
	Price            float64 `json:"price" bson:"price"`
	Rating           float64 `json:"rating" bson:"rating"`
	BedConfiguration *string `json:"bed_configuration,omitempty" bson:"bed_configuration,omitempty"`
}

// Field is a text value read from a booking card sub-element. Present is
// false when the sub-element was missing and Value holds the placeholder.
type Field struct {
	Value   string
	Present bool
}

// Found returns a present Field.
func Found(v string) Field { return Field{Value: v, Present: true} }

// Missing returns a Field carrying the placeholder.
func Missing() Field { return Field{Value: Placeholder} }

// HotelRecord is one booking results card read from the DOM.
type HotelRecord struct {
	Name             Field
	Price            Field
	Rating           Field
	BedConfiguration Field
}

// Envelope is the batch metadata shared by every persisted entry.
type Envelope struct {
	ID         *primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	BatchID    string              `json:"batch_id" bson:"batch_id"`
	Timestamp  string              `json:"timestamp" bson:"timestamp"`
	URL        string              `json:"url" bson:"url"`
	StartDate  string              `json:"start_date" bson:"start_date"`
	EndDate    string              `json:"end_date" bson:"end_date"`
	InsertedAt string              `json:"inserted_at,omitempty" bson:"inserted_at,omitempty"`
}

// NewEnvelope stamps the current time in ISO-8601 form.
func NewEnvelope(batchID, url, startDate, endDate string) Envelope {
	return Envelope{
		BatchID:   batchID,
		Timestamp: time.Now().Format(time.RFC3339),
		URL:       url,
		StartDate: startDate,
		EndDate:   endDate,
	}
}

// Entry is a persisted listing: either a BookingEntry (flat fields) or an
// AirbnbEntry (nested listing).
type Entry interface {
	Site() Site
	Meta() Envelope
	// WithInsertedAt returns a copy carrying the insertion timestamp.
	WithInsertedAt(ts string) Entry
}

// BookingEntry keeps the card text flat next to the envelope.
type BookingEntry struct {
	Envelope         `bson:",inline"`
	Name             string `json:"name" bson:"name"`
	Price            string `json:"price" bson:"price"`
	Rating           string `json:"rating" bson:"rating"`
	BedConfiguration string `json:"bed_configuration" bson:"bed_configuration"`
}

func (e BookingEntry) Site() Site     { return SiteBooking }
func (e BookingEntry) Meta() Envelope { return e.Envelope }

func (e BookingEntry) WithInsertedAt(ts string) Entry {
	e.InsertedAt = ts
	return e
}

// NewBookingEntry wraps a card record with its envelope.
func NewBookingEntry(env Envelope, r HotelRecord) BookingEntry {
	return BookingEntry{
		Envelope:         env,
		Name:             r.Name.Value,
		Price:            r.Price.Value,
		Rating:           r.Rating.Value,
		BedConfiguration: r.BedConfiguration.Value,
	}
}

// AirbnbEntry nests the vision listing under "listing".
type AirbnbEntry struct {
	Envelope `bson:",inline"`
	Listing  Listing `json:"listing" bson:"listing"`
}

func (e AirbnbEntry) Site() Site     { return SiteAirbnb }
func (e AirbnbEntry) Meta() Envelope { return e.Envelope }

func (e AirbnbEntry) WithInsertedAt(ts string) Entry {
	e.InsertedAt = ts
	return e
}

// ScrapeResult is what one page scrape returns. Site "none" always carries
// an empty batch.
type ScrapeResult struct {
	Site    Site
	Entries []Entry
}

// NoResult is the unrecognized-site result.
func NoResult() ScrapeResult {
	return ScrapeResult{Site: SiteNone, Entries: []Entry{}}
}
