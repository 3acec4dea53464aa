package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rental-scraper/config"
	"rental-scraper/models"
	"rental-scraper/storage"
	"rental-scraper/utils"
)

// DateLayout is the YYYY-MM-DD form of every search date.
const DateLayout = "2006-01-02"

// PageScraper scrapes one results page with its own browser session.
type PageScraper interface {
	ScrapePage(ctx context.Context, url, startDate, endDate string) (models.ScrapeResult, error)
	Close() error
}

// Window is a one-night search: check-in Start, check-out End.
type Window struct {
	Start string
	End   string
}

// DateWindows returns (d, d+1) for every day d from start to end inclusive.
func DateWindows(start, end string) ([]Window, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}

	var windows []Window
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		windows = append(windows, Window{
			Start: d.Format(DateLayout),
			End:   d.AddDate(0, 0, 1).Format(DateLayout),
		})
	}
	return windows, nil
}

// FillURL substitutes {checkin} and {checkout} in a URL template.
func FillURL(template string, w Window) string {
	return strings.NewReplacer("{checkin}", w.Start, "{checkout}", w.End).Replace(template)
}

// RunConfig is the part of the configuration a Runner needs.
type RunConfig struct {
	Mode       string
	StartDate  string
	EndDate    string
	AirbnbURL  string
	BookingURL string
	Pause      time.Duration
}

// RunConfigFrom extracts a RunConfig from cfg.
func RunConfigFrom(cfg *config.Config) RunConfig {
	return RunConfig{
		Mode:       cfg.Mode,
		StartDate:  cfg.StartDate,
		EndDate:    cfg.EndDate,
		AirbnbURL:  cfg.AirbnbURL,
		BookingURL: cfg.BookingURL,
		Pause:      cfg.DatePause,
	}
}

type job struct {
	name string
	url  string
	w    Window
}

// Runner walks the date range, scraping both sites for every window and
// persisting what it finds.
type Runner struct {
	rc         RunConfig
	newScraper func(name string) PageScraper
	store      storage.ListingStore
	logger     *utils.Logger

	mu      sync.Mutex
	entries []models.Entry
	errs    []error
}

// NewRunner creates a Runner. newScraper is called once per scraper the
// mode needs: one in sequential mode, one per site in concurrent mode.
func NewRunner(rc RunConfig, newScraper func(name string) PageScraper, store storage.ListingStore, logger *utils.Logger) *Runner {
	return &Runner{rc: rc, newScraper: newScraper, store: store, logger: logger}
}

// Run scrapes every window and returns all persisted entries. A failed page
// does not stop the run; all failures are joined into the returned error.
func (r *Runner) Run(ctx context.Context) ([]models.Entry, error) {
	windows, err := DateWindows(r.rc.StartDate, r.rc.EndDate)
	if err != nil {
		return nil, err
	}
	r.entries, r.errs = nil, nil

	concurrent := r.rc.Mode == config.ModeConcurrent
	var scrapers []PageScraper
	if concurrent {
		scrapers = []PageScraper{r.newScraper("airbnb"), r.newScraper("booking")}
	} else {
		scrapers = []PageScraper{r.newScraper("main")}
	}
	defer func() {
		for _, s := range scrapers {
			if err := s.Close(); err != nil {
				r.logger.Warn("[runner] Closing scraper: %v", err)
			}
		}
	}()

	r.logger.Info("[runner] %d date windows, mode %s", len(windows), r.rc.Mode)

	seen := utils.NewURLSet()
	pacer := utils.NewPacer(r.rc.Pause)

	for _, w := range windows {
		if err := pacer.Wait(ctx); err != nil {
			r.fail(err)
			break
		}

		var jobs []job
		for _, j := range []job{
			{name: "airbnb", url: FillURL(r.rc.AirbnbURL, w), w: w},
			{name: "booking", url: FillURL(r.rc.BookingURL, w), w: w},
		} {
			if !seen.Add(j.url) {
				r.logger.Warn("[runner] Skipping already scraped %s", j.url)
				continue
			}
			jobs = append(jobs, j)
		}

		r.logger.Info("[runner] Window %s → %s", w.Start, w.End)
		if concurrent {
			pool := utils.NewWorkerPool(len(scrapers), 0)
			for _, j := range jobs {
				s := scrapers[0]
				if j.name == "booking" {
					s = scrapers[1]
				}
				pool.Submit(func() { r.scrapeOne(ctx, s, j) })
			}
			pool.Wait()
		} else {
			for _, j := range jobs {
				r.scrapeOne(ctx, scrapers[0], j)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("[runner] Finished: %d entries, %d failures", len(r.entries), len(r.errs))
	return r.entries, errors.Join(r.errs...)
}

func (r *Runner) scrapeOne(ctx context.Context, s PageScraper, j job) {
	res, err := s.ScrapePage(ctx, j.url, j.w.Start, j.w.End)
	if err != nil {
		r.fail(fmt.Errorf("%s %s: %w", j.name, j.w.Start, err))
		return
	}

	if res.Site == models.SiteNone {
		r.logger.Warn("[runner] Unrecognized site for %s, nothing saved", j.url)
		return
	}

	if err := r.store.Insert(ctx, res.Site, res.Entries); err != nil {
		r.fail(fmt.Errorf("store %s %s: %w", res.Site, j.w.Start, err))
		return
	}

	r.mu.Lock()
	r.entries = append(r.entries, res.Entries...)
	r.mu.Unlock()
	r.logger.Info("[runner] Saved %d %s entries for %s", len(res.Entries), res.Site, j.w.Start)
}

func (r *Runner) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}
