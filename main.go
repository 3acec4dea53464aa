package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rental-scraper/config"
	"rental-scraper/models"
	"rental-scraper/scraper"
	"rental-scraper/services"
	"rental-scraper/storage"
	"rental-scraper/utils"
	"rental-scraper/vision"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerTo(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Rental Scraping System starting ===")
	logger.Info("Config: dates %s → %s | mode: %s | storage: %s | headless: %v",
		cfg.StartDate, cfg.EndDate, cfg.Mode, cfg.StorageBackend, cfg.Headless)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StorageBackend, err)
		os.Exit(1)
	}
	defer store.Close()

	gen, err := vision.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to create vision client: %v", err)
		os.Exit(1)
	}
	extractor := vision.NewClient(gen, cfg.VisionMaxRetries, logger)

	runner := services.NewRunner(services.RunConfigFrom(cfg), func(name string) services.PageScraper {
		return scraper.Build(name, cfg, extractor, logger)
	}, store, logger)

	entries, runErr := runner.Run(ctx)
	if runErr != nil {
		logger.Error("Scrape run finished with errors: %v", runErr)
	}

	exportEntries(cfg, entries, logger)
	printInsights(ctx, cfg, store, logger)

	if runErr != nil {
		_ = store.Close()
		os.Exit(1)
	}
	fmt.Printf("  Done. JSON → %s | CSV → %s | Stored → %s\n\n",
		cfg.JSONOutputDir, cfg.CSVOutputPath, cfg.StorageBackend)
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.ListingStore, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		return storage.NewPostgresStore(ctx, cfg.DSN(), logger)
	case config.BackendMongo:
		return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func exportEntries(cfg *config.Config, entries []models.Entry, logger *utils.Logger) {
	if err := storage.NewJSONWriter(cfg.JSONOutputDir, logger).Write(entries); err != nil {
		logger.Error("JSON write failed: %v", err)
	}

	if len(entries) == 0 {
		return
	}
	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		return
	}
	defer csvWriter.Close()

	if err := csvWriter.Write(entries); err != nil {
		logger.Error("CSV write failed: %v", err)
		return
	}
	logger.Info("Listings saved to %s", cfg.CSVOutputPath)
}

// printInsights reports on everything stored for the configured range,
// including earlier runs over the same dates.
func printInsights(ctx context.Context, cfg *config.Config, store storage.ListingStore, logger *utils.Logger) {
	windows, err := services.DateWindows(cfg.StartDate, cfg.EndDate)
	if err != nil || len(windows) == 0 {
		return
	}
	// The last window checks out the day after END_DATE.
	end := windows[len(windows)-1].End

	cleaner := services.NewCleaner(logger)
	insightSvc := services.NewInsightService(logger)

	for _, site := range []models.Site{models.SiteAirbnb, models.SiteBooking} {
		stored, err := store.FindByDateRange(ctx, site, cfg.StartDate, end)
		if err != nil {
			logger.Error("Failed to fetch %s listings for insights: %v", site, err)
			continue
		}
		insightSvc.Print(insightSvc.Generate(site, cleaner.Clean(stored)))
	}
}
