package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"rental-scraper/models"
	"rental-scraper/utils"
)

const topRatedCount = 5

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// AnalyzePrices computes price statistics over listings priced above zero.
// Every value is zero for an empty input.
func AnalyzePrices(listings []models.PricedListing) models.PriceAnalysis {
	pa := models.PriceAnalysis{TotalListings: len(listings)}

	var total float64
	for _, l := range listings {
		if l.Price <= 0 {
			continue
		}
		if pa.ListingsWithPrice == 0 || l.Price < pa.LowestPrice {
			pa.LowestPrice = l.Price
		}
		if l.Price > pa.HighestPrice {
			pa.HighestPrice = l.Price
		}
		total += l.Price
		pa.ListingsWithPrice++
	}

	if pa.ListingsWithPrice > 0 {
		pa.AveragePrice = round2(total / float64(pa.ListingsWithPrice))
	}
	return pa
}

// Generate builds the summary report for one site's listings.
func (s *InsightService) Generate(site models.Site, listings []models.PricedListing) *models.InsightReport {
	report := &models.InsightReport{
		Site:          site,
		PriceAnalysis: AnalyzePrices(listings),
	}

	if len(listings) == 0 {
		return report
	}

	names := make(map[string]struct{})
	var rated []models.Listing
	var ratingTotal float64

	report.DateRange = models.DateRange{
		Earliest: listings[0].StartDate,
		Latest:   listings[0].EndDate,
	}

	for i, l := range listings {
		names[l.Name] = struct{}{}

		if l.Rating > 0 {
			rated = append(rated, l.Listing)
			ratingTotal += l.Rating
		}
		if l.Price > 0 && (report.MostExpensive == nil || l.Price > report.MostExpensive.Price) {
			report.MostExpensive = &listings[i].Listing
		}
		if l.StartDate < report.DateRange.Earliest {
			report.DateRange.Earliest = l.StartDate
		}
		if l.EndDate > report.DateRange.Latest {
			report.DateRange.Latest = l.EndDate
		}
	}

	report.UniqueProperties = len(names)
	if len(rated) > 0 {
		report.AverageRating = round2(ratingTotal / float64(len(rated)))
	}

	// Top 5 by rating
	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].Rating > rated[j].Rating
	})
	if len(rated) > topRatedCount {
		rated = rated[:topRatedCount]
	}
	report.TopRated = rated

	s.logger.Debug("[insights] %s: %d listings, %d unique", site, len(listings), report.UniqueProperties)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 %s INSIGHTS\033[0m\n", strings.ToUpper(string(r.Site)))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if r.PriceAnalysis.TotalListings == 0 {
		fmt.Fprintf(w, "  No listings found\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings    : \033[1m%d\033[0m\n", r.PriceAnalysis.TotalListings)
	fmt.Fprintf(w, "  Unique properties : \033[1m%d\033[0m\n", r.UniqueProperties)
	fmt.Fprintf(w, "  Dates             : %s → %s\n", r.DateRange.Earliest, r.DateRange.Latest)
	fmt.Fprintf(w, "  Average rating    : %.2f\n", r.AverageRating)
	fmt.Fprintln(w)

	// Price Stats
	pa := r.PriceAnalysis
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (per night)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if pa.ListingsWithPrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m€%.2f\033[0m\n", pa.AveragePrice)
		fmt.Fprintf(w, "  Highest price : \033[1;32m€%.2f\033[0m\n", pa.HighestPrice)
		fmt.Fprintf(w, "  Lowest price  : \033[1;32m€%.2f\033[0m\n", pa.LowestPrice)
		fmt.Fprintf(w, "  With price    : %d of %d\n", pa.ListingsWithPrice, pa.TotalListings)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Name, 50))
		fmt.Fprintf(w, "  Price    : \033[1;31m€%.2f/night\033[0m\n", r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top 5 Highest Rated Properties\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.2f ★\033[0m\n",
				i+1, truncate(l.Name, 38), l.Rating)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
