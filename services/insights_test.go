package services

import (
	"bytes"
	"strings"
	"testing"

	"rental-scraper/models"
)

func priced(name string, price, rating float64, start, end string) models.PricedListing {
	return models.PricedListing{
		Listing:   models.Listing{Name: name, Price: price, Rating: rating},
		StartDate: start,
		EndDate:   end,
	}
}

func sampleListings() []models.PricedListing {
	return []models.PricedListing{
		priced("Villa A", 200, 4.9, "2025-03-05", "2025-03-06"),
		priced("Studio B", 50, 4.5, "2025-03-05", "2025-03-06"),
		priced("Loft C", 120, 4.8, "2025-03-06", "2025-03-07"),
		priced("Cabin D", 300, 0, "2025-03-07", "2025-03-08"),
		priced("Villa A", 0, 4.6, "2025-03-06", "2025-03-07"),
	}
}

func TestAnalyzePrices(t *testing.T) {
	pa := AnalyzePrices(sampleListings())
	want := models.PriceAnalysis{
		AveragePrice:      167.5,
		HighestPrice:      300,
		LowestPrice:       50,
		TotalListings:     5,
		ListingsWithPrice: 4,
	}
	if pa != want {
		t.Errorf("got %+v, want %+v", pa, want)
	}
}

func TestAnalyzePricesRoundsAverage(t *testing.T) {
	pa := AnalyzePrices([]models.PricedListing{
		priced("a", 10, 0, "", ""), priced("b", 10, 0, "", ""), priced("c", 11, 0, "", ""),
	})
	if pa.AveragePrice != 10.33 {
		t.Errorf("AveragePrice: got %v, want 10.33", pa.AveragePrice)
	}
}

func TestAnalyzePricesEmptyAndUnpriced(t *testing.T) {
	if pa := AnalyzePrices(nil); pa != (models.PriceAnalysis{}) {
		t.Errorf("empty input: got %+v", pa)
	}

	pa := AnalyzePrices([]models.PricedListing{priced("a", 0, 4, "", "")})
	if pa.TotalListings != 1 || pa.ListingsWithPrice != 0 || pa.AveragePrice != 0 || pa.LowestPrice != 0 {
		t.Errorf("unpriced input: got %+v", pa)
	}
}

func TestInsightSummary(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(models.SiteAirbnb, sampleListings())

	if r.UniqueProperties != 4 {
		t.Errorf("UniqueProperties: got %d, want 4", r.UniqueProperties)
	}
	// (4.9 + 4.5 + 4.8 + 4.6) / 4
	if r.AverageRating != 4.7 {
		t.Errorf("AverageRating: got %v, want 4.7", r.AverageRating)
	}
	if r.DateRange.Earliest != "2025-03-05" || r.DateRange.Latest != "2025-03-08" {
		t.Errorf("DateRange: got %+v", r.DateRange)
	}
	if r.MostExpensive == nil || r.MostExpensive.Name != "Cabin D" {
		t.Errorf("MostExpensive: got %+v", r.MostExpensive)
	}
}

func TestInsightTopRatedOrderedAndCapped(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var listings []models.PricedListing
	for i, rating := range []float64{3.1, 4.9, 4.2, 0, 4.8, 3.9, 4.4} {
		listings = append(listings, priced(string(rune('A'+i)), 100, rating, "2025-03-05", "2025-03-06"))
	}

	r := svc.Generate(models.SiteBooking, listings)
	if len(r.TopRated) != topRatedCount {
		t.Fatalf("TopRated: got %d, want %d", len(r.TopRated), topRatedCount)
	}
	for i := 1; i < len(r.TopRated); i++ {
		if r.TopRated[i].Rating > r.TopRated[i-1].Rating {
			t.Errorf("TopRated not sorted: %+v", r.TopRated)
		}
	}
	if r.TopRated[0].Rating != 4.9 {
		t.Errorf("first: got %v, want 4.9", r.TopRated[0].Rating)
	}
}

func TestInsightEmpty(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.out = &buf

	r := svc.Generate(models.SiteAirbnb, nil)
	if r.MostExpensive != nil || len(r.TopRated) != 0 || r.UniqueProperties != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}

	svc.Print(r)
	if !strings.Contains(buf.String(), "No listings found") {
		t.Errorf("empty report output: %q", buf.String())
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.out = &buf

	svc.Print(svc.Generate(models.SiteBooking, sampleListings()))
	out := buf.String()
	for _, want := range []string{"BOOKING INSIGHTS", "€167.50", "Cabin D", "Villa A"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
