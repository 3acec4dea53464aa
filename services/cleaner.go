package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// Rating scales per site.
const (
	BookingRatingMax = 10.0
	AirbnbRatingMax  = 5.0
)

// numberRegexp captures the first decimal number in a price or rating.
var numberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Cleaner turns stored entries of either site into numeric listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts entries and drops the ones without a name.
func (c *Cleaner) Clean(entries []models.Entry) []models.PricedListing {
	result := make([]models.PricedListing, 0, len(entries))

	for _, e := range entries {
		meta := e.Meta()
		var l models.Listing

		switch v := e.(type) {
		case models.BookingEntry:
			l = models.Listing{
				Name:   normaliseText(v.Name),
				Price:  c.parsePrice(v.Price),
				Rating: c.parseRating(v.Rating, BookingRatingMax),
			}
			if beds := normaliseText(v.BedConfiguration); beds != "" && beds != models.Placeholder {
				l.BedConfiguration = &beds
			}
		case models.AirbnbEntry:
			l = v.Listing
			l.Name = normaliseText(l.Name)
			if l.Rating < 0 || l.Rating > AirbnbRatingMax {
				l.Rating = 0
			}
		default:
			continue
		}

		if l.Name == "" || l.Name == models.Placeholder {
			c.logger.Warn("[cleaner] Dropping %s entry without a name: %s", e.Site(), meta.URL)
			continue
		}

		result = append(result, models.PricedListing{
			Listing:   l,
			StartDate: meta.StartDate,
			EndDate:   meta.EndDate,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(entries), len(result), len(entries)-len(result))
	return result
}

// parsePrice extracts the amount from a card price.
// Examples:
//
//	"€95" → 95
//	"€1,250" → 1250
//	"N/A" → 0
func (c *Cleaner) parsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	match := numberRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return price
}

// parseRating extracts a rating in [0, max] from a raw string.
func (c *Cleaner) parseRating(raw string, max float64) float64 {
	match := numberRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	if val < 0 || val > max {
		return 0
	}
	return val
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
