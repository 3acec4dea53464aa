// Package airbnb captures the airbnb search results as an image and hands it
// to a vision model for extraction.
package airbnb

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"rental-scraper/browser"
	"rental-scraper/models"
	"rental-scraper/utils"
)

// ContentSelector wraps the listing grid on airbnb search pages.
const ContentSelector = "#site-content"

const (
	DefaultAttempts = 3
	visibleTimeout  = 60 * time.Second
	retryWaitMin    = 3000 * time.Millisecond
	retryWaitMax    = 5000 * time.Millisecond
)

// ErrBlankCapture marks a near-white screenshot. It is retried and never
// returned to callers of Capture.
var ErrBlankCapture = errors.New("airbnb: blank screenshot")

// Capturer takes element screenshots with bounded retries.
type Capturer struct {
	dir      string
	attempts int
	sim      *browser.Simulator
	rnd      *rand.Rand
	logger   *utils.Logger
	now      func() time.Time
}

// NewCapturer writes screenshots under dir and tries up to attempts times.
func NewCapturer(dir string, attempts int, sim *browser.Simulator, rnd *rand.Rand, logger *utils.Logger) *Capturer {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	return &Capturer{
		dir:      dir,
		attempts: attempts,
		sim:      sim,
		rnd:      rnd,
		logger:   logger,
		now:      time.Now,
	}
}

// Capture screenshots the element matching selector and returns the file
// path of the first capture that is not blank.
//
// A blank capture is retried silently; if every attempt is blank the
// result is "" with a nil error. An element that fails to appear is also
// retried, but on the final attempt its error is returned. Between
// attempts the page is reloaded after a 3-5s pause.
func (c *Capturer) Capture(ctx context.Context, p browser.Page, selector string) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("airbnb: create screenshots dir: %w", err)
	}

	retry := &utils.RetryConfig{
		MaxAttempts: c.attempts,
		Backoff:     utils.RandomBackoff(c.rnd, retryWaitMin, retryWaitMax),
		Sleep:       p.Wait,
		BeforeRetry: func(ctx context.Context, _ int) error {
			if err := p.Reload(ctx); err != nil {
				return err
			}
			return c.sim.Simulate(ctx, p)
		},
		Logger: c.logger,
	}

	var path string
	err := retry.Do(ctx, "screenshot", func(attempt int) error {
		c.logger.Info("[airbnb] Screenshot attempt %d/%d", attempt, c.attempts)

		shot, err := c.captureOnce(ctx, p, selector, attempt)
		if err != nil {
			c.logger.Error("[airbnb] Screenshot attempt %d failed: %v", attempt, err)
			return err
		}
		path = shot
		return nil
	})

	switch {
	case err == nil:
		return path, nil
	case errors.Is(err, ErrBlankCapture):
		c.logger.Warn("[airbnb] No usable screenshot after %d attempts", c.attempts)
		return "", nil
	default:
		return "", err
	}
}

func (c *Capturer) captureOnce(ctx context.Context, p browser.Page, selector string, attempt int) (string, error) {
	if err := p.WaitVisible(ctx, selector, visibleTimeout); err != nil {
		return "", err
	}
	if err := c.sim.Simulate(ctx, p); err != nil {
		return "", err
	}

	data, err := p.CaptureElement(ctx, selector)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("listing_screenshot_%s_attempt%d.png", c.now().Format("20060102_150405"), attempt)
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	c.logger.Info("[airbnb] Screenshot saved as %s", path)

	blank, err := utils.IsBlank(data)
	if err != nil {
		return "", err
	}
	if blank {
		c.logger.Warn("[airbnb] Screenshot appears to be blank/white, retrying...")
		return "", ErrBlankCapture
	}
	return path, nil
}

// ListingExtractor turns a screenshot into listings.
type ListingExtractor interface {
	Extract(ctx context.Context, image []byte) ([]models.Listing, error)
}

// Pipeline screenshots the results grid and extracts its listings.
type Pipeline struct {
	capturer *Capturer
	vision   ListingExtractor
	logger   *utils.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(capturer *Capturer, vision ListingExtractor, logger *utils.Logger) *Pipeline {
	return &Pipeline{capturer: capturer, vision: vision, logger: logger}
}

// Listings returns the listings on the current page. No usable screenshot
// yields an empty result.
func (pl *Pipeline) Listings(ctx context.Context, p browser.Page) ([]models.Listing, error) {
	path, err := pl.capturer.Capture(ctx, p, ContentSelector)
	if err != nil {
		return nil, fmt.Errorf("airbnb: capture: %w", err)
	}
	if path == "" {
		return []models.Listing{}, nil
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("airbnb: read screenshot: %w", err)
	}

	listings, err := pl.vision.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("airbnb: extract: %w", err)
	}
	return listings, nil
}
