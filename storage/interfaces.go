package storage

import (
	"context"

	"rental-scraper/models"
)

// ListingStore is the interface any persistence backend must satisfy.
// Entries are kept per site: a collection or partition named after it.
type ListingStore interface {
	// Insert stamps inserted_at on each entry and stores the batch.
	// An empty batch is a no-op.
	Insert(ctx context.Context, site models.Site, entries []models.Entry) error
	// FindByDateRange returns entries with start_date >= start and
	// end_date <= end.
	FindByDateRange(ctx context.Context, site models.Site, start, end string) ([]models.Entry, error)
	// FindByName returns entries whose name matches pattern, case-insensitively.
	FindByName(ctx context.Context, site models.Site, pattern string) ([]models.Entry, error)
	Close() error
}

// EntryWriter exports a run's entries to a file.
type EntryWriter interface {
	Write(entries []models.Entry) error
	Close() error
}
