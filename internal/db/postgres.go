package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
)

// Postgres stores dataset imports in a shared Postgres database. It uses
// the same schema as the SQLite store.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// ConnectPostgres opens a pool and checks the database is reachable
func ConnectPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, log: logger}, nil
}

// Close releases the pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the dataset tables if they don't exist
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ImportDataset writes ds as a new import using COPY for the bulk tables
func (p *Postgres) ImportDataset(ctx context.Context, ds *dataset.Dataset, source string) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}

	importID := uuid.New().String()
	start := time.Now()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.log.Error("failed to rollback transaction", slog.String("error", err.Error()))
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO dataset_imports (import_id, source, imported_at_utc, has_header)
		VALUES ($1, $2, $3, $4)
	`, importID, source, time.Now().UTC().Format(importTimeLayout), boolToInt(ds.Header != nil))
	if err != nil {
		return "", fmt.Errorf("failed to insert import: %w", err)
	}

	stations := make([][]any, 0, len(ds.Nodes))
	for i, n := range ds.Nodes {
		stations = append(stations, []any{importID, n.ID, n.Name, n.X, n.Y, i})
	}
	links := make([][]any, 0, len(ds.Links))
	for i, l := range ds.Links {
		links = append(links, []any{importID, i, l.Source, l.Target, l.Line})
	}
	trips := make([][]any, 0, len(ds.Trips))
	for _, id := range tripIDs(ds) {
		rec := ds.Trips[id]
		trips = append(trips, []any{importID, id, rec.Line, rec.Begin, rec.End})
	}
	var stops [][]any
	for _, row := range stopRows(ds) {
		stops = append(stops, []any{importID, row.TripID, row.Sequence, row.Station, row.Time})
	}
	var header [][]any
	for _, row := range headerRows(ds) {
		header = append(header, []any{importID, row.Key, row.Sequence, row.Ordinate})
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"dataset_stations", []string{"import_id", "station_id", "name", "x", "y", "seq"}, stations},
		{"dataset_links", []string{"import_id", "seq", "source_id", "target_id", "line"}, links},
		{"dataset_trips", []string{"import_id", "trip_id", "line", "begin_time", "end_time"}, trips},
		{"dataset_stop_events", []string{"import_id", "trip_id", "stop_sequence", "station_id", "event_time"}, stops},
		{"dataset_header", []string{"import_id", "header_key", "seq", "ordinate"}, header},
	}
	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
			return "", fmt.Errorf("failed to copy %s: %w", c.table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit import: %w", err)
	}

	p.log.Info("dataset imported",
		slog.String("import_id", importID),
		slog.String("source", source),
		slog.Int("trips", len(ds.Trips)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return importID, nil
}

// LatestImport returns the id of the most recent import
func (p *Postgres) LatestImport(ctx context.Context) (string, error) {
	var id string
	err := p.pool.QueryRow(ctx, `
		SELECT import_id FROM dataset_imports
		ORDER BY imported_at_utc DESC
		LIMIT 1
	`).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoImport
		}
		return "", fmt.Errorf("failed to query import: %w", err)
	}
	return id, nil
}

// LoadDataset reads every table of an import back into a dataset
func (p *Postgres) LoadDataset(ctx context.Context, importID string) (*dataset.Dataset, error) {
	var hasHeader int
	err := p.pool.QueryRow(ctx, `SELECT has_header FROM dataset_imports WHERE import_id = $1`, importID).Scan(&hasHeader)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoImport
		}
		return nil, fmt.Errorf("failed to query import: %w", err)
	}
	a := newAssembler(hasHeader != 0)

	queries := []struct {
		name  string
		query string
		scan  func(pgx.Rows) error
	}{
		{"stations", `SELECT station_id, name, x, y FROM dataset_stations WHERE import_id = $1 ORDER BY seq`,
			func(rows pgx.Rows) error {
				var id, name string
				var x, y float64
				if err := rows.Scan(&id, &name, &x, &y); err != nil {
					return err
				}
				a.station(id, name, x, y)
				return nil
			}},
		{"links", `SELECT source_id, target_id, line FROM dataset_links WHERE import_id = $1 ORDER BY seq`,
			func(rows pgx.Rows) error {
				var source, target, line string
				if err := rows.Scan(&source, &target, &line); err != nil {
					return err
				}
				a.link(source, target, line)
				return nil
			}},
		{"trips", `SELECT trip_id, line, begin_time, end_time FROM dataset_trips WHERE import_id = $1`,
			func(rows pgx.Rows) error {
				var id, line string
				var begin, end float64
				if err := rows.Scan(&id, &line, &begin, &end); err != nil {
					return err
				}
				a.trip(id, line, begin, end)
				return nil
			}},
		{"stops", `SELECT trip_id, station_id, event_time FROM dataset_stop_events WHERE import_id = $1 ORDER BY trip_id, stop_sequence`,
			func(rows pgx.Rows) error {
				var tripID, station string
				var t float64
				if err := rows.Scan(&tripID, &station, &t); err != nil {
					return err
				}
				a.stop(tripID, station, t)
				return nil
			}},
		{"header", `SELECT header_key, ordinate FROM dataset_header WHERE import_id = $1 ORDER BY header_key, seq`,
			func(rows pgx.Rows) error {
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
		rows, err := p.pool.Query(ctx, q.query, importID)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", q.name, err)
		}
		for rows.Next() {
			if err := q.scan(rows); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s: %w", q.name, err)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", q.name, err)
		}
	}
	return a.ds, nil
}

// PostgresSource loads a stored import, the latest one when ImportID is empty
type PostgresSource struct {
	Store    *Postgres
	ImportID string
}

// Name implements dataset.Source
func (s *PostgresSource) Name() string { return "postgres" }

// Load implements dataset.Source
func (s *PostgresSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	id := s.ImportID
	if id == "" {
		latest, err := s.Store.LatestImport(ctx)
		if err != nil {
			return nil, err
		}
		id = latest
	}
	return s.Store.LoadDataset(ctx, id)
}
