package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
)

// importTimeLayout has a fixed width so imports sort by their text
const importTimeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNoImport is returned when the requested import does not exist
var ErrNoImport = errors.New("no dataset import found")

// Import describes one stored dataset
type Import struct {
	ID         string
	Source     string
	ImportedAt time.Time
	HasHeader  bool
}

// LatestImport returns the most recent import
func (db *DB) LatestImport(ctx context.Context) (*Import, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT import_id, source, imported_at_utc, has_header
		FROM dataset_imports
		ORDER BY imported_at_utc DESC, rowid DESC
		LIMIT 1
	`)
	return scanImport(row)
}

// GetImport returns the import with the given id
func (db *DB) GetImport(ctx context.Context, importID string) (*Import, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT import_id, source, imported_at_utc, has_header
		FROM dataset_imports
		WHERE import_id = ?
	`, importID)
	return scanImport(row)
}

func scanImport(row *sql.Row) (*Import, error) {
	var (
		imp       Import
		at        string
		hasHeader int
	)
	if err := row.Scan(&imp.ID, &imp.Source, &at, &hasHeader); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoImport
		}
		return nil, fmt.Errorf("failed to query import: %w", err)
	}
	imported, err := time.Parse(importTimeLayout, at)
	if err != nil {
		return nil, fmt.Errorf("invalid import time %q: %w", at, err)
	}
	imp.ImportedAt = imported
	imp.HasHeader = hasHeader != 0
	return &imp, nil
}

// LoadDataset reads every table of an import back into a dataset
func (db *DB) LoadDataset(ctx context.Context, importID string) (*dataset.Dataset, error) {
	imp, err := db.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	a := newAssembler(imp.HasHeader)

	queries := []struct {
		name  string
		query string
		scan  func(*sql.Rows) error
	}{
		{"stations", `SELECT station_id, name, x, y FROM dataset_stations WHERE import_id = ? ORDER BY seq`,
			func(rows *sql.Rows) error {
				var id, name string
				var x, y float64
				if err := rows.Scan(&id, &name, &x, &y); err != nil {
					return err
				}
				a.station(id, name, x, y)
				return nil
			}},
		{"links", `SELECT source_id, target_id, line FROM dataset_links WHERE import_id = ? ORDER BY seq`,
			func(rows *sql.Rows) error {
				var source, target, line string
				if err := rows.Scan(&source, &target, &line); err != nil {
					return err
				}
				a.link(source, target, line)
				return nil
			}},
		{"trips", `SELECT trip_id, line, begin_time, end_time FROM dataset_trips WHERE import_id = ?`,
			func(rows *sql.Rows) error {
				var id, line string
				var begin, end float64
				if err := rows.Scan(&id, &line, &begin, &end); err != nil {
					return err
				}
				a.trip(id, line, begin, end)
				return nil
			}},
		{"stops", `SELECT trip_id, station_id, event_time FROM dataset_stop_events WHERE import_id = ? ORDER BY trip_id, stop_sequence`,
			func(rows *sql.Rows) error {
				var tripID, station string
				var t float64
				if err := rows.Scan(&tripID, &station, &t); err != nil {
					return err
				}
				a.stop(tripID, station, t)
				return nil
			}},
		{"header", `SELECT header_key, ordinate FROM dataset_header WHERE import_id = ? ORDER BY header_key, seq`,
			func(rows *sql.Rows) error {
				var key string
				var y float64
				if err := rows.Scan(&key, &y); err != nil {
					return err
				}
				a.ordinate(key, y)
				return nil
			}},
	}

	for _, q := range queries {
		if err := db.each(ctx, q.query, importID, q.scan); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", q.name, err)
		}
	}
	return a.ds, nil
}

func (db *DB) each(ctx context.Context, query, importID string, scan func(*sql.Rows) error) error {
	rows, err := db.conn.QueryContext(ctx, query, importID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SQLiteSource loads a stored import, the latest one when ImportID is empty
type SQLiteSource struct {
	DB       *DB
	ImportID string
}

// Name implements dataset.Source
func (s *SQLiteSource) Name() string { return "sqlite" }

// Load implements dataset.Source
func (s *SQLiteSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	id := s.ImportID
	if id == "" {
		imp, err := s.DB.LatestImport(ctx)
		if err != nil {
			return nil, err
		}
		id = imp.ID
	}
	return s.DB.LoadDataset(ctx, id)
}
