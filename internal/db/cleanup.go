package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mini-rodalies-3d/thetrains/internal/logging"
)

// stale selects every import except the keep most recent ones
const stale = `
	SELECT import_id FROM dataset_imports
	ORDER BY imported_at_utc DESC, rowid DESC
	LIMIT -1 OFFSET ?`

// PruneImports deletes all but the keep most recent imports and returns the
// number of rows removed. keep below 1 is treated as 1.
func (db *DB) PruneImports(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, db.log, "prune_imports")

	// Children first; the cascade only fires when foreign keys are on
	tables := []string{
		"dataset_stop_events",
		"dataset_trips",
		"dataset_links",
		"dataset_stations",
		"dataset_header",
		"dataset_imports",
	}

	totalDeleted := 0
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE import_id IN (%s)", table, stale)
		result, err := tx.ExecContext(ctx, query, keep)
		if err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}

	if totalDeleted > 0 {
		db.log.Info("pruned dataset imports",
			slog.Int("kept", keep),
			slog.Int("rows_deleted", totalDeleted))
	}
	return totalDeleted, nil
}
