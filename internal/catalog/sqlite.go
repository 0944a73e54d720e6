package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/freefree-simulator/model"
)

// SQLite is a Store persisted in a SQLite database file. Its schema is
// managed by the embedded migrations.
type SQLite struct {
	subscribers

	db *sql.DB
}

// OpenSQLite opens (creating if needed) the manifest database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %q: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate manifest %q: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// RecordProduct inserts p, replacing an earlier record of the same path in
// the same run.
func (s *SQLite) RecordProduct(ctx context.Context, p model.Product) error {
	if p.Path == "" {
		return fmt.Errorf("product has no path")
	}
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (id, run_id, component, frequency, frequency_unit, path, nside, unit, float32, datasum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, path) DO UPDATE SET
			component = excluded.component,
			frequency = excluded.frequency,
			frequency_unit = excluded.frequency_unit,
			nside = excluded.nside,
			unit = excluded.unit,
			float32 = excluded.float32,
			datasum = excluded.datasum,
			created_at = excluded.created_at
		RETURNING id`,
		uuid.NewString(), p.RunID, p.Component, p.Frequency, p.FrequencyUnit, p.Path,
		p.NSide, p.Unit, p.Float32, p.DataSum, p.CreatedAt.Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.Path, err)
	}
	s.publish(Event{Type: EventProductRecorded, Entry: Entry{ID: id, Product: p}})
	return nil
}

// List returns the entries of runID, or all entries when runID is empty.
func (s *SQLite) List(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, component, frequency, frequency_unit, path, nside, unit, float32, datasum, created_at
		FROM products
		WHERE ? = '' OR run_id = ?
		ORDER BY rowid`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Component, &e.Frequency, &e.FrequencyUnit,
			&e.Path, &e.NSide, &e.Unit, &e.Float32, &e.DataSum, &created); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("product %s: created_at %q: %w", e.ID, created, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
