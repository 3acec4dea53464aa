// Package scraper drives one browser session through a results page and
// returns the listings it finds.
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"rental-scraper/browser"
	"rental-scraper/config"
	"rental-scraper/models"
	"rental-scraper/scraper/airbnb"
	"rental-scraper/scraper/booking"
	"rental-scraper/utils"
)

// Hosts the resolved page URL is matched against.
const (
	BookingHost = "booking.com"
	AirbnbHost  = "airbnb.com"
)

const settleWait = 5000 * time.Millisecond

// SessionManager hands out the page of a lazily started browser session.
type SessionManager interface {
	Start(ctx context.Context) (browser.Page, error)
	Close() error
}

// CardExtractor reads booking cards off a page.
type CardExtractor interface {
	Extract(ctx context.Context, p browser.Page) ([]models.HotelRecord, error)
}

// ListingSource produces airbnb listings for a page.
type ListingSource interface {
	Listings(ctx context.Context, p browser.Page) ([]models.Listing, error)
}

// Components are the collaborators of a Scraper.
type Components struct {
	Session   SessionManager
	Simulator *browser.Simulator
	Consent   *browser.ConsentHandler
	Booking   CardExtractor
	Airbnb    ListingSource
}

// sessionState tracks the live page and whether it has been used yet.
type sessionState struct {
	page       browser.Page
	firstVisit bool
}

// Scraper owns one browser session. It is not safe for concurrent use;
// run several Scrapers to scrape in parallel.
type Scraper struct {
	c       Components
	logger  *utils.Logger
	batchID func() string

	state sessionState
}

// New creates a Scraper. name tags its log lines.
func New(name string, c Components, logger *utils.Logger) *Scraper {
	return &Scraper{
		c:       c,
		logger:  logger.WithField("scraper", name),
		batchID: uuid.NewString,
	}
}

// Build wires a Scraper to a real browser using cfg. Each Scraper gets its
// own random source and browser.
func Build(name string, cfg *config.Config, vision airbnb.ListingExtractor, logger *utils.Logger) *Scraper {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	sim := browser.NewSimulator(rnd)
	named := logger.WithField("scraper", name)

	return New(name, Components{
		Session: browser.NewSession(browser.Options{
			Headless:  cfg.Headless,
			ChromeBin: cfg.ChromeBin,
		}, rnd, named),
		Simulator: sim,
		Consent:   browser.NewConsentHandler(named),
		Booking:   booking.NewExtractor(named),
		Airbnb: airbnb.NewPipeline(
			airbnb.NewCapturer(cfg.ScreenshotsDir, cfg.ScreenshotAttempts, sim, rnd, named),
			vision,
			named,
		),
	}, logger)
}

// ScrapePage loads url and extracts its listings. startDate and endDate are
// copied verbatim into every entry.
//
// A page on neither known site yields a "none" result. Any error tears the
// browser session down so the next call starts clean, and is returned.
func (s *Scraper) ScrapePage(ctx context.Context, url, startDate, endDate string) (models.ScrapeResult, error) {
	res, err := s.scrape(ctx, url, startDate, endDate)
	if err != nil {
		s.logger.Error("[scraper] Error scraping page %s: %v", url, err)
		if cerr := s.Close(); cerr != nil {
			s.logger.Warn("[scraper] Could not close browser after failure: %v", cerr)
		}
		return models.ScrapeResult{}, err
	}
	return res, nil
}

func (s *Scraper) scrape(ctx context.Context, url, startDate, endDate string) (models.ScrapeResult, error) {
	p, err := s.ensureSession(ctx)
	if err != nil {
		return models.ScrapeResult{}, err
	}

	s.logger.Info("[scraper] Navigating to %s", url)
	if err := p.Navigate(ctx, url); err != nil {
		return models.ScrapeResult{}, err
	}
	if err := p.Wait(ctx, settleWait); err != nil {
		return models.ScrapeResult{}, err
	}
	if err := s.c.Simulator.Simulate(ctx, p); err != nil {
		return models.ScrapeResult{}, fmt.Errorf("simulate: %w", err)
	}

	if s.state.firstVisit {
		s.c.Consent.HandleConsent(ctx, p)
		s.state.firstVisit = false
	}

	resolved, err := p.Location(ctx)
	if err != nil {
		return models.ScrapeResult{}, err
	}

	batch := s.batchID()
	switch {
	case strings.Contains(resolved, BookingHost):
		records, err := s.c.Booking.Extract(ctx, p)
		if err != nil {
			return models.ScrapeResult{}, err
		}
		entries := make([]models.Entry, 0, len(records))
		for _, r := range records {
			entries = append(entries, models.NewBookingEntry(models.NewEnvelope(batch, url, startDate, endDate), r))
		}
		return models.ScrapeResult{Site: models.SiteBooking, Entries: entries}, nil

	case strings.Contains(resolved, AirbnbHost):
		listings, err := s.c.Airbnb.Listings(ctx, p)
		if err != nil {
			return models.ScrapeResult{}, err
		}
		entries := make([]models.Entry, 0, len(listings))
		for _, l := range listings {
			entries = append(entries, models.AirbnbEntry{
				Envelope: models.NewEnvelope(batch, url, startDate, endDate),
				Listing:  l,
			})
		}
		s.logger.Info("[scraper] Successfully parsed %d listings", len(listings))
		return models.ScrapeResult{Site: models.SiteAirbnb, Entries: entries}, nil
	}

	s.logger.Warn("[scraper] Unrecognized site: %s", resolved)
	return models.NoResult(), nil
}

func (s *Scraper) ensureSession(ctx context.Context) (browser.Page, error) {
	if s.state.page != nil {
		return s.state.page, nil
	}
	p, err := s.c.Session.Start(ctx)
	if err != nil {
		return nil, err
	}
	s.state = sessionState{page: p, firstVisit: true}
	return p, nil
}

// Close releases the browser session. The next ScrapePage starts a new one
// and handles cookie consent again.
func (s *Scraper) Close() error {
	s.state = sessionState{}
	return s.c.Session.Close()
}
