package db

import (
	"context"
	"fmt"
	"math"
)

// HistoricalAverage returns the mean effective duration (seconds) of
// the primary path candidate over every OK collection matching the same
// route, ISO day and nominal scheduled time. Slot matching is an exact
// string match on the schedule's time label, not a clock-time window.
// Returns ok=false until at least minSamples measurements exist, so a
// single noisy sample is never treated as a trustworthy baseline.
func (db *DB) HistoricalAverage(ctx context.Context, routeID string, isoDay int, scheduledTime string, minSamples int) (int, bool, error) {
	var avg float64
	var samples int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(COALESCE(r.duration_in_traffic_seconds, r.duration_seconds)), 0),
		       COUNT(*)
		FROM routes r
		JOIN collections c ON r.collection_id = c.id
		WHERE c.route_id       = ?
		  AND c.scheduled_day  = ?
		  AND c.scheduled_time = ?
		  AND r.route_index    = 0
		  AND c.api_status     = 'OK'
	`, routeID, isoDay, scheduledTime).Scan(&avg, &samples)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query historical average: %w", err)
	}

	if samples < minSamples {
		return 0, false, nil
	}
	return int(math.Round(avg)), true, nil
}
