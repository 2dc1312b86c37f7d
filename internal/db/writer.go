package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/evrokas/route-tracker/internal/directions"
)

// roadNameRegex pulls a best-effort road name out of an instruction,
// e.g. "Turn left onto Mesogeion Ave" -> "Mesogeion Ave". Convenience
// metadata only; no accuracy guarantee.
var roadNameRegex = regexp.MustCompile(`(?i)(?:onto|via|on)\s+([^,<]+)`)

// htmlTagRegex strips markup from html_instructions.
var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// CollectionRecord is one measurement row. It is written for every
// provider call, OK or not, with the verbatim raw response attached.
type CollectionRecord struct {
	RunID         string
	RouteID       string
	RouteLabel    string
	CollectedAt   time.Time
	ScheduledDay  int // ISO day 1=Mon..7=Sun
	ScheduledTime string
	ScheduleMode  string
	Origin        string
	Destination   string
	TravelMode    string
	APIStatus     string
	RawResponse   []byte
}

// SavedRoute is the subset of a stored path candidate the alert
// evaluator needs.
type SavedRoute struct {
	ID                       int64
	RouteIndex               int
	Summary                  string
	DurationSeconds          int
	DurationInTrafficSeconds *int
}

// EffectiveDuration is duration-in-traffic when present, else duration.
func (s SavedRoute) EffectiveDuration() int {
	if s.DurationInTrafficSeconds != nil {
		return *s.DurationInTrafficSeconds
	}
	return s.DurationSeconds
}

// SaveCollection writes one measurement. The collection row is always
// written; path candidates and their steps are written only when the
// API status is OK, preserving provider order. Everything happens in a
// single transaction.
func (db *DB) SaveCollection(ctx context.Context, rec CollectionRecord, candidates []directions.Route) (int64, []SavedRoute, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	collectedAt := rec.CollectedAt
	year, week := collectedAt.ISOWeek()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO collections (
			run_id, route_id, route_label, collected_at, scheduled_day,
			scheduled_time, schedule_mode, day_of_week, week_number,
			month, year, origin, destination, travel_mode, api_status,
			raw_response
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID, rec.RouteID, rec.RouteLabel,
		collectedAt.Format("2006-01-02 15:04:05"),
		rec.ScheduledDay, rec.ScheduledTime, rec.ScheduleMode,
		collectedAt.Weekday().String(), week,
		int(collectedAt.Month()), year,
		rec.Origin, rec.Destination, rec.TravelMode,
		rec.APIStatus, string(rec.RawResponse),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to insert collection: %w", err)
	}
	collID, err := res.LastInsertId()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read collection id: %w", err)
	}

	var saved []SavedRoute
	if rec.APIStatus == "OK" {
		saved, err = db.insertCandidates(ctx, tx, collID, candidates)
		if err != nil {
			return 0, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit collection: %w", err)
	}
	return collID, saved, nil
}

func (db *DB) insertCandidates(ctx context.Context, tx *sql.Tx, collID int64, candidates []directions.Route) ([]SavedRoute, error) {
	routeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO routes (
			collection_id, route_index, summary,
			distance_meters, distance_text,
			duration_seconds, duration_text,
			duration_in_traffic_seconds, duration_in_traffic_text,
			start_address, end_address, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare route statement: %w", err)
	}
	defer routeStmt.Close()

	stepStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO route_steps (
			route_id, step_index, instruction, distance_meters,
			duration_seconds, travel_mode, road_name,
			start_lat, start_lng, end_lat, end_lng
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare step statement: %w", err)
	}
	defer stepStmt.Close()

	saved := make([]SavedRoute, 0, len(candidates))
	for idx, cand := range candidates {
		leg := cand.Leg0()

		var trafficSec, trafficText interface{}
		var trafficPtr *int
		if leg.DurationInTraffic != nil {
			v := leg.DurationInTraffic.Value
			trafficSec = v
			trafficText = leg.DurationInTraffic.Text
			trafficPtr = &v
		}

		res, err := routeStmt.ExecContext(ctx,
			collID, idx, cand.Summary,
			leg.Distance.Value, leg.Distance.Text,
			leg.Duration.Value, leg.Duration.Text,
			trafficSec, trafficText,
			leg.StartAddress, leg.EndAddress,
			strings.Join(cand.Warnings, " | "),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert candidate %d: %w", idx, err)
		}
		routeDBID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate id: %w", err)
		}

		for si, step := range leg.Steps {
			instruction := StripHTML(step.HTMLInstructions)

			var startLat, startLng, endLat, endLng interface{}
			if step.StartLocation != nil {
				startLat, startLng = step.StartLocation.Lat, step.StartLocation.Lng
			}
			if step.EndLocation != nil {
				endLat, endLng = step.EndLocation.Lat, step.EndLocation.Lng
			}

			travelMode := step.TravelMode
			if travelMode == "" {
				travelMode = "DRIVING"
			}

			if _, err := stepStmt.ExecContext(ctx,
				routeDBID, si, instruction,
				step.Distance.Value, step.Duration.Value,
				travelMode, ExtractRoadName(instruction),
				startLat, startLng, endLat, endLng,
			); err != nil {
				return nil, fmt.Errorf("failed to insert step %d of candidate %d: %w", si, idx, err)
			}
		}

		saved = append(saved, SavedRoute{
			ID:                       routeDBID,
			RouteIndex:               idx,
			Summary:                  cand.Summary,
			DurationSeconds:          leg.Duration.Value,
			DurationInTrafficSeconds: trafficPtr,
		})
	}
	return saved, nil
}

// StripHTML removes markup from a provider instruction.
func StripHTML(s string) string {
	return htmlTagRegex.ReplaceAllString(s, "")
}

// ExtractRoadName scans an instruction for "onto|via|on <words>" and
// returns the first match up to a comma or markup boundary. Absence is
// not an error; it yields an empty string.
func ExtractRoadName(instruction string) string {
	m := roadNameRegex.FindStringSubmatch(instruction)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
