package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mini-rodalies-3d/thetrains/internal/config"
	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/db"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
	"github.com/mini-rodalies-3d/thetrains/internal/sources"
)

func main() {
	target := flag.String("target", config.SourceSQLite, "Store to import into: sqlite or postgres")
	dbPath := flag.String("db", "", "Path to SQLite database (default: SQLITE_DATABASE)")
	flag.Parse()

	if err := run(*target, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "import-dataset: %v\n", err)
		os.Exit(1)
	}
}

func run(target, dbPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	if cfg.DataSource == target {
		return fmt.Errorf("data source and import target are both %s", target)
	}

	ds, source, err := sources.Load(ctx, cfg, logger)
	if err != nil {
		return err
	}

	switch target {
	case config.SourceSQLite:
		if dbPath == "" {
			dbPath = cfg.SQLiteDatabase
		}
		if dbPath == "" {
			return fmt.Errorf("no SQLite database given (-db or SQLITE_DATABASE)")
		}
		return importSQLite(ctx, dbPath, ds, source, cfg.ImportKeep, logger)
	case config.SourcePostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres target")
		}
		return importPostgres(ctx, cfg.DatabaseURL, ds, source, logger)
	}
	return fmt.Errorf("unknown import target %q", target)
}

func importSQLite(ctx context.Context, path string, ds *dataset.Dataset, source string, keep int, logger *slog.Logger) error {
	store, err := db.Connect(path, logger)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(store, logger, "close_sqlite")

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	id, err := store.ImportDataset(ctx, ds, source)
	if err != nil {
		return err
	}
	if _, err := store.PruneImports(ctx, keep); err != nil {
		return err
	}
	logger.Info("import complete", slog.String("import_id", id), slog.String("database", path))
	return nil
}

func importPostgres(ctx context.Context, url string, ds *dataset.Dataset, source string, logger *slog.Logger) error {
	store, err := db.ConnectPostgres(ctx, url, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	id, err := store.ImportDataset(ctx, ds, source)
	if err != nil {
		return err
	}
	logger.Info("import complete", slog.String("import_id", id))
	return nil
}
