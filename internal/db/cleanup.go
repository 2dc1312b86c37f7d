package db

import (
	"context"
	"fmt"
	"log"
)

// PruneOlderThan deletes collections past the retention horizon;
// foreign keys cascade to their candidates and steps. Returns the
// number of collections removed.
func (db *DB) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		days = 1
	}

	res, err := db.conn.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM collections WHERE datetime(collected_at) < datetime('now', '-%d days')", days))
	if err != nil {
		return 0, fmt.Errorf("failed to prune collections: %w", err)
	}

	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		log.Printf("Prune: deleted %d collections older than %d days", deleted, days)
	}
	return deleted, nil
}
