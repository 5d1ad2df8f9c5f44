package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/db"
	"os"
	"strings"
)

// Initialize the Postgres schema.
func InitSchema(ctx context.Context, q db.Querier) error {
	if q == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	createActivitiesQuery := `
	CREATE TABLE IF NOT EXISTS activities (
		trip_id TEXT NOT NULL,
		id TEXT NOT NULL,
		day_offset INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		start_minutes INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		travel_minutes INTEGER,
		travel_meters INTEGER,
		travel_mode TEXT NOT NULL DEFAULT '',
		congestion TEXT NOT NULL DEFAULT '',
		parking_buffer INTEGER,
		status TEXT NOT NULL DEFAULT 'scheduled',
		checked_in_from INTEGER,
		is_start BOOLEAN NOT NULL DEFAULT FALSE,
		is_end BOOLEAN NOT NULL DEFAULT FALSE,
		place_id TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		PRIMARY KEY (trip_id, id)
	);
	`

	createActivitiesIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_activities_trip_day_position
	ON activities(trip_id, day_offset, position);
	`

	createPlacesQuery := `
	CREATE TABLE IF NOT EXISTS places (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		place_id TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		duration_minutes INTEGER NOT NULL,
		travel_mode TEXT NOT NULL DEFAULT ''
	);
	`

	createLegBaselinesQuery := `
	CREATE TABLE IF NOT EXISTS leg_baselines (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		static_duration_seconds INTEGER NOT NULL,
		distance_meters INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (origin, destination)
	);
	`

	statements := []string{
		createActivitiesQuery,
		createActivitiesIndexQuery,
		createPlacesQuery,
		createLegBaselinesQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type PlaceSeed struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PlaceID    string   `json:"place_id"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Duration   string   `json:"duration"`
	TravelMode string   `json:"travel_mode"`
}

// Populate the place library from a JSON file.
func SeedPlacesFromJSON(ctx context.Context, q db.Querier, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed places: read %q: %w", jsonPath, err)
	}

	var data []PlaceSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed places: parse json: %w", err)
	}

	rows := make([]domain.Activity, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return 0, fmt.Errorf("seed places: item at index %d: id cannot be empty", i+1)
		}

		name := strings.TrimSpace(item.Name)
		if name == "" {
			return 0, fmt.Errorf("seed places: item %q: name cannot be empty", id)
		}

		p := domain.Activity{
			ID:         id,
			Name:       name,
			PlaceID:    strings.TrimSpace(item.PlaceID),
			Lat:        item.Lat,
			Lng:        item.Lng,
			Duration:   domain.ParseDuration(item.Duration, domain.DefaultActivityDuration),
			TravelMode: domain.TravelMode(strings.ToLower(item.TravelMode)),
		}
		if _, ok := domain.BuildWaypoint(p); !ok {
			return 0, fmt.Errorf("seed places: item %q: needs a place id or valid coordinates", id)
		}
		rows = append(rows, p)
	}

	tx, err := q.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed places: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
	INSERT INTO places (id, name, place_id, lat, lng, duration_minutes, travel_mode)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		place_id = EXCLUDED.place_id,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		duration_minutes = EXCLUDED.duration_minutes,
		travel_mode = EXCLUDED.travel_mode;
	`

	for _, p := range rows {
		if _, err := tx.Exec(ctx, query, p.ID, p.Name, p.PlaceID, p.Lat, p.Lng, p.Duration, string(p.TravelMode)); err != nil {
			return 0, fmt.Errorf("seed places: insert id=%q: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("seed places: commit tx: %w", err)
	}

	return len(rows), nil
}
