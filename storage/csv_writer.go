package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"rental-scraper/models"
)

var csvHeader = []string{
	"site", "name", "price", "rating", "bed_configuration", "url", "start_date", "end_date", "timestamp",
}

// CSVWriter writes entries of both sites as flat rows to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per entry.
func (c *CSVWriter) Write(entries []models.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if err := c.writer.Write(csvRow(e)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func csvRow(e models.Entry) []string {
	meta := e.Meta()
	var name, price, rating, beds string

	switch v := e.(type) {
	case models.BookingEntry:
		name, price, rating, beds = v.Name, v.Price, v.Rating, v.BedConfiguration
	case models.AirbnbEntry:
		name = v.Listing.Name
		price = strconv.FormatFloat(v.Listing.Price, 'f', -1, 64)
		rating = strconv.FormatFloat(v.Listing.Rating, 'f', -1, 64)
		if v.Listing.BedConfiguration != nil {
			beds = *v.Listing.BedConfiguration
		}
	}

	return []string{
		string(e.Site()), name, price, rating, beds,
		meta.URL, meta.StartDate, meta.EndDate, meta.Timestamp,
	}
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
