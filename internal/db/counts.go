package db

import (
	"context"
	"database/sql"
	"fmt"
)

// The alert-count ledger caps dispatch attempts per route per calendar
// day. Dates are ISO "2006-01-02" strings. Only today's rows matter;
// every increment prunes the rest, so the table never grows.

// AlertCount returns the number of alerts dispatched for a route on the
// given date.
func (db *DB) AlertCount(ctx context.Context, date, routeID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		"SELECT count FROM alert_counts WHERE date = ? AND route_id = ?",
		date, routeID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read alert count: %w", err)
	}
	return count, nil
}

// IncrementAlertCount atomically bumps the counter for (date, routeID)
// and prunes entries for other dates. The transactional upsert replaces
// the read-whole-file/write-whole-file ledger pattern, so overlapping
// invocations cannot lose increments.
func (db *DB) IncrementAlertCount(ctx context.Context, date, routeID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM alert_counts WHERE date != ?", date,
	); err != nil {
		return fmt.Errorf("failed to prune alert counts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO alert_counts (date, route_id, count)
		VALUES (?, ?, 1)
		ON CONFLICT (date, route_id) DO UPDATE SET
			count = count + 1
	`, date, routeID); err != nil {
		return fmt.Errorf("failed to increment alert count: %w", err)
	}

	return tx.Commit()
}
