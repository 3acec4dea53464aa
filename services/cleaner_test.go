package services

import (
	"io"
	"testing"

	"rental-scraper/models"
	"rental-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, "error") }

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want float64
	}{
		{"€95", 95},
		{"€1,250", 1250},
		{"US$120.50", 120.50},
		{"€ 80", 80},
		{"N/A", 0},
		{"", 0},
	}

	for _, tt := range tests {
		got := c.parsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("parsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerParseRating(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		max  float64
		want float64
	}{
		{"8.6", BookingRatingMax, 8.6},
		{"10", BookingRatingMax, 10},
		{"N/A", BookingRatingMax, 0},
		{"11.2", BookingRatingMax, 0},
		{"4.85", AirbnbRatingMax, 4.85},
		{"6.0", AirbnbRatingMax, 0},
	}

	for _, tt := range tests {
		got := c.parseRating(tt.raw, tt.max)
		if got != tt.want {
			t.Errorf("parseRating(%q, %.0f) = %.2f; want %.2f", tt.raw, tt.max, got, tt.want)
		}
	}
}

func TestCleanerConvertsBothSites(t *testing.T) {
	c := NewCleaner(newTestLogger())
	env := models.Envelope{StartDate: "2025-03-05", EndDate: "2025-03-06"}
	bed := "1 double bed"

	got := c.Clean([]models.Entry{
		models.BookingEntry{Envelope: env, Name: "  Hotel   Gerês ", Price: "€1,250", Rating: "8.6", BedConfiguration: models.Placeholder},
		models.AirbnbEntry{Envelope: env, Listing: models.Listing{Name: "Casa", Price: 90, Rating: 4.7, BedConfiguration: &bed}},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(got))
	}
	if got[0].Name != "Hotel Gerês" || got[0].Price != 1250 || got[0].Rating != 8.6 {
		t.Errorf("booking listing: %+v", got[0].Listing)
	}
	if got[0].BedConfiguration != nil {
		t.Errorf("placeholder bed configuration should be dropped, got %q", *got[0].BedConfiguration)
	}
	if got[1].Name != "Casa" || *got[1].BedConfiguration != bed {
		t.Errorf("airbnb listing: %+v", got[1].Listing)
	}
	if got[1].StartDate != "2025-03-05" || got[1].EndDate != "2025-03-06" {
		t.Errorf("window not carried: %+v", got[1])
	}
}

func TestCleanerDropsUnnamed(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got := c.Clean([]models.Entry{
		models.BookingEntry{Name: models.Placeholder, Price: "€10"},
		models.AirbnbEntry{Listing: models.Listing{Name: "  "}},
		models.BookingEntry{Name: "Kept"},
	})
	if len(got) != 1 || got[0].Name != "Kept" {
		t.Errorf("expected only the named entry, got %+v", got)
	}
}
