package vision

import (
	"context"
	"fmt"
	"time"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// Prompt asks the model for one JSON object per listing in the screenshot.
const Prompt = `
Analyze this Airbnb listing screenshot and extract ONLY the following information in JSON format for each listing on the image:
- name: The listing title/name (required)
- price: The price per night as a number only, no currency symbols (required)
- rating: The rating score as a number (required)
- bed_configuration: The bed setup details (optional)

Example response:
[
    {
        "name": "Cozy Studio in Downtown",
        "price": 150,
        "rating": 4.8,
        "bed_configuration": "1 queen bed"
    },
    {
        "name": "Spacious Suite with Balcony",
        "price": 250,
        "rating": 4.7,
        "bed_configuration": "2 queen beds"
    }
]

Return ONLY the JSON array. If bed_configuration is not found for a listing, omit it from that listing's object.
`

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// Generator sends a prompt plus an image to a vision-capable model and
// returns its raw text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Client extracts listings from screenshots.
type Client struct {
	gen    Generator
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// NewClient retries failed model calls up to maxAttempts times, waiting
// 5s, 10s, 20s... between them.
func NewClient(gen Generator, maxAttempts int, logger *utils.Logger) *Client {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Client{
		gen: gen,
		retry: &utils.RetryConfig{
			MaxAttempts: maxAttempts,
			Backoff:     utils.ExponentialBackoff(DefaultBaseDelay),
			Logger:      logger,
		},
		logger: logger,
	}
}

// Extract returns the listings visible in a PNG screenshot.
//
// Only the network call is retried. A response that cannot be parsed or
// validated is logged and yields an empty slice. The error from the final
// failed call is returned.
func (c *Client) Extract(ctx context.Context, image []byte) ([]models.Listing, error) {
	var text string
	err := c.retry.Do(ctx, "vision-extract", func(attempt int) error {
		c.logger.Info("[vision] Attempt %d/%d to analyze image", attempt, c.retry.MaxAttempts)
		var err error
		text, err = c.gen.Generate(ctx, Prompt, image, "image/png")
		return err
	})
	if err != nil {
		c.logger.Error("[vision] All attempts failed: %v", err)
		return nil, fmt.Errorf("vision: %w", err)
	}

	listings, err := ParseListings(text)
	if err != nil {
		c.logger.Error("[vision] Failed to parse listing data: %v", err)
		c.logger.Debug("[vision] Raw response: %s", text)
		return []models.Listing{}, nil
	}

	c.logger.Info("[vision] Successfully parsed %d listings", len(listings))
	return listings, nil
}
