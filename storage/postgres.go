package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"rental-scraper/models"
	"rental-scraper/utils"
)

const (
	pingAttempts = 10
	pingInterval = 2 * time.Second
	insertBatch  = 50
)

// PostgresStore keeps entries of every site in one table, the full entry as
// a JSONB payload next to the columns it is queried by.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
	now    func() time.Time
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to answer,
// runs schema migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := &utils.RetryConfig{
		MaxAttempts: pingAttempts,
		Backoff:     func(int) time.Duration { return pingInterval },
		Logger:      logger,
	}
	if err := ping.Do(ctx, "postgres-ping", func(int) error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}

	ps := &PostgresStore{db: db, logger: logger, now: time.Now}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listing_entries (
			id          SERIAL PRIMARY KEY,
			site        VARCHAR(20) NOT NULL,
			batch_id    TEXT        NOT NULL,
			url         TEXT        NOT NULL,
			start_date  TEXT        NOT NULL,
			end_date    TEXT        NOT NULL,
			name        TEXT        NOT NULL DEFAULT '',
			payload     JSONB       NOT NULL,
			inserted_at TEXT        NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_site  ON listing_entries(site);
		CREATE INDEX IF NOT EXISTS idx_entries_dates ON listing_entries(start_date, end_date);
		CREATE INDEX IF NOT EXISTS idx_entries_batch ON listing_entries(batch_id);
	`)
	return err
}

func (ps *PostgresStore) Insert(ctx context.Context, site models.Site, entries []models.Entry) error {
	if len(entries) == 0 {
		ps.logger.Warn("[postgres] No data to save")
		return nil
	}

	stamped := stamp(entries, ps.now())
	for i := 0; i < len(stamped); i += insertBatch {
		end := i + insertBatch
		if end > len(stamped) {
			end = len(stamped)
		}
		if err := ps.insertBatch(ctx, site, stamped[i:end]); err != nil {
			return err
		}
	}
	ps.logger.Info("[postgres] Inserted %d listings into %s", len(stamped), site)
	return nil
}

func (ps *PostgresStore) insertBatch(ctx context.Context, site models.Site, batch []models.Entry) error {
	query, args, err := buildInsert(site, batch)
	if err != nil {
		return err
	}
	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert into %s: %w", site, err)
	}
	return nil
}

const insertColumns = 8

func buildInsert(site models.Site, batch []models.Entry) (string, []interface{}, error) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, e := range batch {
		payload, err := json.Marshal(e)
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode entry: %w", err)
		}
		meta := e.Meta()

		base := idx * insertColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs,
			string(site), meta.BatchID, meta.URL, meta.StartDate, meta.EndDate,
			entryName(e), string(payload), meta.InsertedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO listing_entries (site, batch_id, url, start_date, end_date, name, payload, inserted_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs, nil
}

func (ps *PostgresStore) FindByDateRange(ctx context.Context, site models.Site, start, end string) ([]models.Entry, error) {
	return ps.query(ctx, site, `
		SELECT payload FROM listing_entries
		WHERE site = $1 AND start_date >= $2 AND end_date <= $3
		ORDER BY id
	`, string(site), start, end)
}

func (ps *PostgresStore) FindByName(ctx context.Context, site models.Site, pattern string) ([]models.Entry, error) {
	return ps.query(ctx, site, `
		SELECT payload FROM listing_entries
		WHERE site = $1 AND name ~* $2
		ORDER BY id
	`, string(site), pattern)
}

func (ps *PostgresStore) query(ctx context.Context, site models.Site, q string, args ...interface{}) ([]models.Entry, error) {
	rows, err := ps.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", site, err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		e, err := decodeEntry(site, payload)
		if err != nil {
			return nil, fmt.Errorf("postgres: decode payload: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
