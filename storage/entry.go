package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"rental-scraper/models"
)

// InsertedAtLayout is the ISO-8601 form, with microseconds, written to
// inserted_at.
const InsertedAtLayout = "2006-01-02T15:04:05.000000"

func stamp(entries []models.Entry, now time.Time) []models.Entry {
	ts := now.Format(InsertedAtLayout)
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.WithInsertedAt(ts))
	}
	return out
}

// entryName is the property name an entry is searched by.
func entryName(e models.Entry) string {
	switch v := e.(type) {
	case models.BookingEntry:
		return v.Name
	case models.AirbnbEntry:
		return v.Listing.Name
	}
	return ""
}

// decodeEntry rebuilds the concrete entry for site from its JSON form.
func decodeEntry(site models.Site, data []byte) (models.Entry, error) {
	switch site {
	case models.SiteBooking:
		var e models.BookingEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case models.SiteAirbnb:
		var e models.AirbnbEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("storage: unknown site %q", site)
}
