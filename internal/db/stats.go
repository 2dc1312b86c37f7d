package db

import (
	"context"
	"fmt"

	"github.com/evrokas/route-tracker/internal/stats"
)

// SlotStats summarizes the primary-path effective duration for one
// (route, ISO day, scheduled time) slot over the whole history.
type SlotStats struct {
	RouteID       string
	RouteLabel    string
	ScheduledDay  int
	ScheduledTime string
	Samples       int
	MeanSeconds   float64
	StdDevSeconds float64
}

// SlotStatistics streams every OK primary-path measurement through a
// per-slot accumulator and returns one summary row per slot, in
// route/day/time order.
func (db *DB) SlotStatistics(ctx context.Context) ([]SlotStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT route_id, route_label, scheduled_day, scheduled_time,
		       effective_duration
		FROM v_route_stats
		WHERE route_index = 0 AND api_status = 'OK'
		ORDER BY route_id, scheduled_day, scheduled_time
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot statistics: %w", err)
	}
	defer rows.Close()

	var out []SlotStats
	var acc *stats.Accumulator
	var cur *SlotStats

	flush := func() {
		if cur == nil {
			return
		}
		cur.Samples = acc.Count()
		cur.MeanSeconds = acc.Mean()
		cur.StdDevSeconds = acc.StdDev()
		out = append(out, *cur)
	}

	for rows.Next() {
		var routeID, label, schedTime string
		var day, duration int
		if err := rows.Scan(&routeID, &label, &day, &schedTime, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}

		if cur == nil || cur.RouteID != routeID || cur.ScheduledDay != day || cur.ScheduledTime != schedTime {
			flush()
			acc = &stats.Accumulator{}
			cur = &SlotStats{
				RouteID:       routeID,
				RouteLabel:    label,
				ScheduledDay:  day,
				ScheduledTime: schedTime,
			}
		}
		acc.Add(float64(duration))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}
