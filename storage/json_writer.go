package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// JSONWriter dumps a run's entries to <dir>/<YYYYMMDD_HHMMSS>.json.
type JSONWriter struct {
	dir    string
	logger *utils.Logger
	now    func() time.Time
	path   string
}

// NewJSONWriter creates a JSONWriter rooted at dir. The directory is
// created on the first non-empty Write.
func NewJSONWriter(dir string, logger *utils.Logger) *JSONWriter {
	return &JSONWriter{dir: dir, logger: logger, now: time.Now}
}

// Write saves entries as an indented JSON array. Nothing is written for
// an empty run.
func (w *JSONWriter) Write(entries []models.Entry) error {
	if len(entries) == 0 {
		w.logger.Warn("[json] No data to save")
		return nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}

	path := filepath.Join(w.dir, w.now().Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", path, err)
	}
	w.path = path
	w.logger.Info("[json] Data saved to %s", path)
	return nil
}

// Path returns the file of the last successful Write, or "".
func (w *JSONWriter) Path() string { return w.path }

func (w *JSONWriter) Close() error { return nil }
