// Package sources picks the dataset loader named by the configuration.
package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mini-rodalies-3d/thetrains/internal/config"
	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/db"
)

// Open returns the source for cfg.DataSource. The returned close function
// releases any database handle and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dataset.Source, func(), error) {
	noop := func() {}

	switch cfg.DataSource {
	case config.SourceJSON:
		return jsonSource(cfg), noop, nil

	case config.SourceSQLite:
		store, err := db.Connect(cfg.SQLiteDatabase, logger)
		if err != nil {
			return nil, noop, err
		}
		return &db.SQLiteSource{DB: store}, func() { store.Close() }, nil

	case config.SourcePostgres:
		store, err := db.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, noop, err
		}
		return &db.PostgresSource{Store: store}, store.Close, nil

	case config.SourceGTFS:
		return &dataset.GTFSSource{
			ZipPath:     cfg.GTFSPath,
			ServiceDate: cfg.GTFSServiceDate,
			Logger:      logger,
		}, noop, nil

	case config.SourceGTFSRT:
		return &dataset.GTFSRTSource{
			FeedPath: cfg.GTFSRTPath,
			Network:  jsonSource(cfg),
			Logger:   logger,
		}, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown data source %q", cfg.DataSource)
}

func jsonSource(cfg *config.Config) *dataset.JSONSource {
	src := dataset.NewJSONSource(cfg.DataDir)
	src.NetworkFile = cfg.NetworkFile
	src.TripsFile = cfg.TripsFile
	src.HeaderFile = cfg.HeaderFile
	return src
}

// Load opens the configured source, loads it and closes it again
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dataset.Dataset, string, error) {
	src, closeFn, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, "", err
	}
	defer closeFn()

	ds, err := src.Load(ctx)
	if err != nil {
		return nil, src.Name(), fmt.Errorf("load %s dataset: %w", src.Name(), err)
	}
	return ds, src.Name(), nil
}

