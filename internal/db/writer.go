package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
)

// ImportDataset writes ds as a new import in a single transaction and
// returns its id. Readers never observe a partially written import.
func (db *DB) ImportDataset(ctx context.Context, ds *dataset.Dataset, source string) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}

	db.LockWrite()
	defer db.UnlockWrite()

	start := time.Now()
	importID := uuid.New().String()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, db.log, "import_dataset")

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dataset_imports (import_id, source, imported_at_utc, has_header)
		VALUES (?, ?, ?, ?)
	`, importID, source, time.Now().UTC().Format(importTimeLayout), boolToInt(ds.Header != nil))
	if err != nil {
		return "", fmt.Errorf("failed to insert import: %w", err)
	}

	if err := insertStations(ctx, tx, importID, ds); err != nil {
		return "", err
	}
	if err := insertLinks(ctx, tx, importID, ds); err != nil {
		return "", err
	}
	if err := insertTrips(ctx, tx, importID, ds); err != nil {
		return "", err
	}
	if err := insertHeader(ctx, tx, importID, ds); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit import: %w", err)
	}

	logging.LogOperation(db.log, "dataset imported",
		slog.String("import_id", importID),
		slog.String("source", source),
		slog.Int("stations", len(ds.Nodes)),
		slog.Int("segments", len(ds.Links)),
		slog.Int("trips", len(ds.Trips)),
		slog.Duration("duration", time.Since(start)))
	return importID, nil
}

func insertStations(ctx context.Context, tx *sql.Tx, importID string, ds *dataset.Dataset) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset_stations (import_id, station_id, name, x, y, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range ds.Nodes {
		if _, err := stmt.ExecContext(ctx, importID, n.ID, n.Name, n.X, n.Y, i); err != nil {
			return fmt.Errorf("failed to insert station %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, importID string, ds *dataset.Dataset) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset_links (import_id, seq, source_id, target_id, line)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range ds.Links {
		if _, err := stmt.ExecContext(ctx, importID, i, l.Source, l.Target, l.Line); err != nil {
			return fmt.Errorf("failed to insert link %s-%s: %w", l.Source, l.Target, err)
		}
	}
	return nil
}

func insertTrips(ctx context.Context, tx *sql.Tx, importID string, ds *dataset.Dataset) error {
	tripStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset_trips (import_id, trip_id, line, begin_time, end_time)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trip insert: %w", err)
	}
	defer tripStmt.Close()

	stopStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset_stop_events (import_id, trip_id, stop_sequence, station_id, event_time)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	for _, id := range tripIDs(ds) {
		rec := ds.Trips[id]
		if _, err := tripStmt.ExecContext(ctx, importID, id, rec.Line, rec.Begin, rec.End); err != nil {
			return fmt.Errorf("failed to insert trip %s: %w", id, err)
		}
	}
	for _, row := range stopRows(ds) {
		if _, err := stopStmt.ExecContext(ctx, importID, row.TripID, row.Sequence, row.Station, row.Time); err != nil {
			return fmt.Errorf("failed to insert stop %s/%d: %w", row.TripID, row.Sequence, err)
		}
	}
	return nil
}

func insertHeader(ctx context.Context, tx *sql.Tx, importID string, ds *dataset.Dataset) error {
	rows := headerRows(ds)
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset_header (import_id, header_key, seq, ordinate)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare header insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, importID, row.Key, row.Sequence, row.Ordinate); err != nil {
			return fmt.Errorf("failed to insert header key %s: %w", row.Key, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
