package db

import (
	"context"
	"database/sql"
	"fmt"
)

// StoredCollection is one measurement read back with its candidates, in
// route_index order.
type StoredCollection struct {
	ID            int64
	RunID         string
	RouteID       string
	RouteLabel    string
	ScheduledDay  int
	ScheduledTime string
	ScheduleMode  string
	APIStatus     string
	RawResponse   string
	Candidates    []StoredCandidate
}

// StoredCandidate is one path candidate row with its steps, in
// step_index order.
type StoredCandidate struct {
	ID                       int64
	RouteIndex               int
	Summary                  string
	DistanceMeters           int
	DurationSeconds          int
	DurationInTrafficSeconds *int
	StartAddress             string
	EndAddress               string
	Warnings                 string
	Steps                    []StoredStep
}

type StoredStep struct {
	StepIndex       int
	Instruction     string
	RoadName        string
	DistanceMeters  int
	DurationSeconds int
	TravelMode      string
	StartLat        *float64
	StartLng        *float64
	EndLat          *float64
	EndLng          *float64
}

// LoadCollection reads one measurement with its full child tree.
func (db *DB) LoadCollection(ctx context.Context, id int64) (*StoredCollection, error) {
	var coll StoredCollection
	var runID sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, run_id, route_id, route_label, scheduled_day,
		       scheduled_time, schedule_mode, api_status, raw_response
		FROM collections WHERE id = ?
	`, id).Scan(
		&coll.ID, &runID, &coll.RouteID, &coll.RouteLabel,
		&coll.ScheduledDay, &coll.ScheduledTime, &coll.ScheduleMode,
		&coll.APIStatus, &coll.RawResponse,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %d: %w", id, err)
	}
	coll.RunID = runID.String

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, route_index, summary, distance_meters, duration_seconds,
		       duration_in_traffic_seconds, start_address, end_address, warnings
		FROM routes WHERE collection_id = ? ORDER BY route_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cand StoredCandidate
		var traffic sql.NullInt64
		if err := rows.Scan(
			&cand.ID, &cand.RouteIndex, &cand.Summary, &cand.DistanceMeters,
			&cand.DurationSeconds, &traffic, &cand.StartAddress,
			&cand.EndAddress, &cand.Warnings,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if traffic.Valid {
			v := int(traffic.Int64)
			cand.DurationInTrafficSeconds = &v
		}
		coll.Candidates = append(coll.Candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range coll.Candidates {
		steps, err := db.loadSteps(ctx, coll.Candidates[i].ID)
		if err != nil {
			return nil, err
		}
		coll.Candidates[i].Steps = steps
	}
	return &coll, nil
}

func (db *DB) loadSteps(ctx context.Context, routeDBID int64) ([]StoredStep, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT step_index, instruction, road_name, distance_meters,
		       duration_seconds, travel_mode, start_lat, start_lng,
		       end_lat, end_lng
		FROM route_steps WHERE route_id = ? ORDER BY step_index
	`, routeDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	var steps []StoredStep
	for rows.Next() {
		var s StoredStep
		var sLat, sLng, eLat, eLng sql.NullFloat64
		if err := rows.Scan(
			&s.StepIndex, &s.Instruction, &s.RoadName, &s.DistanceMeters,
			&s.DurationSeconds, &s.TravelMode, &sLat, &sLng, &eLat, &eLng,
		); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if sLat.Valid {
			s.StartLat = &sLat.Float64
		}
		if sLng.Valid {
			s.StartLng = &sLng.Float64
		}
		if eLat.Valid {
			s.EndLat = &eLat.Float64
		}
		if eLng.Valid {
			s.EndLng = &eLng.Float64
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// DeleteCollection removes a measurement; foreign keys cascade to its
// candidates and their steps. Exposed for administrative cleanup only.
func (db *DB) DeleteCollection(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete collection %d: %w", id, err)
	}
	return nil
}

// CountRows is a test helper that counts rows in a table.
func (db *DB) CountRows(ctx context.Context, table string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
