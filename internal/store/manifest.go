package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"menupipe/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Manifest maps (location, meal, date) to a document handle in SQLite.
// It exists so downstream jobs can select documents without parsing
// filenames; the name-embedded identity remains only for interoperability.
type Manifest struct {
	db *sql.DB
}

// ManifestEntry is one manifest row.
type ManifestEntry struct {
	Location string
	Meal     domain.MealType
	Date     string // DateLayout
	Path     string
	Sections int
	Items    int
}

const manifestSchema = `
CREATE TABLE IF NOT EXISTS documents (
	location   TEXT NOT NULL,
	meal       TEXT NOT NULL,
	date       TEXT NOT NULL,
	path       TEXT NOT NULL,
	sections   INTEGER NOT NULL,
	items      INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (location, meal, date)
);
CREATE INDEX IF NOT EXISTS idx_documents_date ON documents (date);
`

// OpenManifest opens (or creates) the manifest database at dbPath.
func OpenManifest(dbPath string) (*Manifest, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening manifest %s: %w", dbPath, err)
	}
	if _, err := db.Exec(manifestSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing manifest schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

// Close closes the underlying database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

// Upsert records a document handle, replacing any previous row for the
// same identity triple.
func (m *Manifest) Upsert(ctx context.Context, e ManifestEntry) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO documents (location, meal, date, path, sections, items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (location, meal, date) DO UPDATE SET
			path = excluded.path,
			sections = excluded.sections,
			items = excluded.items,
			created_at = excluded.created_at`,
		e.Location, string(e.Meal), e.Date, e.Path, e.Sections, e.Items,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting manifest row %s/%s/%s: %w", e.Location, e.Meal, e.Date, err)
	}
	return nil
}

// ListByDate returns the manifest rows for one date.
func (m *Manifest) ListByDate(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT location, meal, date, path, sections, items
		FROM documents WHERE date = ? ORDER BY location, meal`,
		date.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("querying manifest by date: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRange returns the manifest rows dated within [from, to] inclusive.
func (m *Manifest) ListRange(ctx context.Context, from, to time.Time) ([]ManifestEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT location, meal, date, path, sections, items
		FROM documents WHERE date BETWEEN ? AND ? ORDER BY date, location, meal`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("querying manifest range: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeleteRange removes the manifest rows dated within [from, to] inclusive
// and returns the number deleted. Deleting an empty range is a no-op.
func (m *Manifest) DeleteRange(ctx context.Context, from, to time.Time) (int, error) {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM documents WHERE date BETWEEN ? AND ?`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting manifest range: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanEntries(rows *sql.Rows) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	for rows.Next() {
		var e ManifestEntry
		var meal string
		if err := rows.Scan(&e.Location, &meal, &e.Date, &e.Path, &e.Sections, &e.Items); err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		e.Meal = domain.MealType(meal)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
