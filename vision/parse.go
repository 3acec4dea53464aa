package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rental-scraper/models"
)

// ErrNoResponse is returned for an empty model response.
var ErrNoResponse = errors.New("vision: empty response")

// trimToArray cuts text down to its outermost [...] span so prose around
// the JSON is tolerated.
func trimToArray(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") {
		if i := strings.Index(text, "["); i != -1 {
			text = text[i:]
		}
	}
	if !strings.HasSuffix(text, "]") {
		if i := strings.LastIndex(text, "]"); i != -1 {
			text = text[:i+1]
		}
	}
	return text
}

// listingDoc mirrors the schema with pointers so a missing required field
// can be told apart from a zero value.
type listingDoc struct {
	Name             *string  `json:"name"`
	Price            *float64 `json:"price"`
	Rating           *float64 `json:"rating"`
	BedConfiguration *string  `json:"bed_configuration"`
}

func (d listingDoc) validate() error {
	var missing []string
	if d.Name == nil {
		missing = append(missing, "name")
	}
	if d.Price == nil {
		missing = append(missing, "price")
	}
	if d.Rating == nil {
		missing = append(missing, "rating")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseListings turns a model response into listings. A single element
// that fails validation rejects the whole response.
func ParseListings(text string) ([]models.Listing, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoResponse
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(trimToArray(text)), &raw); err != nil {
		return nil, fmt.Errorf("vision: parse JSON: %w", err)
	}

	listings := make([]models.Listing, 0, len(raw))
	for i, item := range raw {
		var doc listingDoc
		if err := json.Unmarshal(item, &doc); err != nil {
			return nil, fmt.Errorf("vision: listing %d: %w", i, err)
		}
		if err := doc.validate(); err != nil {
			return nil, fmt.Errorf("vision: listing %d: %w", i, err)
		}
		listings = append(listings, models.Listing{
			Name:             *doc.Name,
			Price:            *doc.Price,
			Rating:           *doc.Rating,
			BedConfiguration: doc.BedConfiguration,
		})
	}
	return listings, nil
}
