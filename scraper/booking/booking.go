// Package booking reads hotel cards from a rendered booking.com results page.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rental-scraper/browser"
	"rental-scraper/models"
	"rental-scraper/utils"
)

// Card and sub-field selectors, relative to each card.
const (
	CardSelector   = `div[data-testid="property-card"]`
	TitleSelector  = `div[data-testid="title"]`
	PriceSelector  = `span[data-testid="price-and-discounted-price"]`
	RatingSelector = `div[data-testid="review-score"]`
	BedsSelector   = `div[data-testid="recommended-units"]`
)

// ErrRatingFormat is returned when a review-score block has no second line.
var ErrRatingFormat = errors.New("booking: unexpected review score format")

// extractScript reads the innerText of every sub-field of every card,
// flagging the ones that are absent.
var extractScript = fmt.Sprintf(`
	(function() {
		function field(card, sel) {
			var el = card.querySelector(sel);
			return el ? { text: el.innerText, found: true } : { text: '', found: false };
		}
		var cards = document.querySelectorAll(%q);
		var out = [];
		for (var i = 0; i < cards.length; i++) {
			out.push({
				name:   field(cards[i], %q),
				price:  field(cards[i], %q),
				rating: field(cards[i], %q),
				beds:   field(cards[i], %q)
			});
		}
		return out;
	})()
`, CardSelector, TitleSelector, PriceSelector, RatingSelector, BedsSelector)

type rawField struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

type rawCard struct {
	Name   rawField `json:"name"`
	Price  rawField `json:"price"`
	Rating rawField `json:"rating"`
	Beds   rawField `json:"beds"`
}

// Extractor reads card records off a page.
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns one record per card on the page, in page order. Missing
// sub-fields become placeholders; cards are never dropped.
func (e *Extractor) Extract(ctx context.Context, p browser.Page) ([]models.HotelRecord, error) {
	var cards []rawCard
	if err := p.Evaluate(ctx, extractScript, &cards); err != nil {
		return nil, fmt.Errorf("booking: read cards: %w", err)
	}
	e.logger.Info("[booking] Found %d hotels", len(cards))

	records := make([]models.HotelRecord, 0, len(cards))
	for i, c := range cards {
		r, err := toRecord(c)
		if err != nil {
			e.logger.Warn("[booking] Card %d: unreadable review score %q: %v", i, c.Rating.Text, err)
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		e.logger.Debug("[booking] %+v", r)
		records = append(records, r)
	}
	return records, nil
}

func toRecord(c rawCard) (models.HotelRecord, error) {
	r := models.HotelRecord{
		Name:             field(c.Name),
		Price:            field(c.Price),
		BedConfiguration: field(c.Beds),
		Rating:           models.Missing(),
	}
	if r.Price.Present {
		r.Price.Value = CleanPrice(r.Price.Value)
	}
	if c.Rating.Found {
		rating, err := ParseRating(c.Rating.Text)
		if err != nil {
			return r, err
		}
		r.Rating = models.Found(rating)
	}
	return r, nil
}

func field(f rawField) models.Field {
	if !f.Found {
		return models.Missing()
	}
	return models.Found(f.Text)
}

// CleanPrice strips the non-breaking spaces (U+00A0) booking.com puts
// between currency and amount.
func CleanPrice(s string) string {
	return strings.ReplaceAll(s, "\u00a0", "")
}

// ParseRating takes the second line of a review-score block, which on
// booking.com reads "Scored 8.6\n8.6\nFabulous\n1,024 reviews". This
// follows the site's current markup and breaks if that layout changes.
func ParseRating(s string) (string, error) {
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("%w: %q", ErrRatingFormat, s)
	}
	return strings.TrimSpace(lines[1]), nil
}
