package repositories

import (
	"context"
	"errors"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/db"
	"itinerary-route-service/internal/platform/obs"
)

const activityColumns = `
	id, day_offset, name, start_minutes, duration_minutes,
	travel_minutes, travel_meters, travel_mode, congestion, parking_buffer,
	status, checked_in_from, is_start, is_end, place_id, lat, lng`

// Postgres-backed implementation of the ActivityRepository port.
type PgActivityRepository struct{ DB db.Querier }

func NewPgActivityRepository(q db.Querier) *PgActivityRepository {
	return &PgActivityRepository{DB: q}
}

// Return every activity of a trip ordered by day, then sequence position.
func (r *PgActivityRepository) ListActivities(
	ctx context.Context,
	tripID string,
) (_ []domain.Activity, err error) {
	defer obs.Time(ctx, "activities.List")(&err)

	if r.DB == nil {
		return nil, errors.New("activity repository: DB is nil")
	}

	query := `SELECT ` + activityColumns + `
	FROM activities
	WHERE trip_id = $1
	ORDER BY day_offset, position;
	`
	rows, err := r.DB.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("list activities: query activities table: %w", err)
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0, 32)
	for rows.Next() {
		var a domain.Activity
		var mode, congestion, status string
		var travel, meters, buffer, checkedInFrom *int
		var lat, lng *float64

		err := rows.Scan(
			&a.ID, &a.DayOffset, &a.Name, &a.Start, &a.Duration,
			&travel, &meters, &mode, &congestion, &buffer,
			&status, &checkedInFrom, &a.IsStart, &a.IsEnd, &a.PlaceID, &lat, &lng,
		)
		if err != nil {
			return nil, fmt.Errorf("list activities: scan row: %w", err)
		}

		a.TravelTime = travel
		a.TravelDistance = meters
		a.TravelMode = domain.TravelMode(mode)
		a.Congestion = domain.Congestion(congestion)
		a.ParkingBuffer = buffer
		a.Status = domain.Status(status)
		if !a.Status.Valid() {
			a.Status = domain.StatusScheduled
		}
		a.CheckedInFrom = checkedInFrom
		a.Lat = lat
		a.Lng = lng
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: row iteration: %w", err)
	}

	return activities, nil
}

// Replace one day's stored sequence. Positions follow slice order.
func (r *PgActivityRepository) SaveDay(
	ctx context.Context,
	tripID string,
	day int,
	activities []domain.Activity,
) (err error) {
	defer obs.Time(ctx, "activities.SaveDay")(&err)

	if r.DB == nil {
		return errors.New("activity repository: DB is nil")
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save day: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM activities WHERE trip_id = $1 AND day_offset = $2;`, tripID, day); err != nil {
		return fmt.Errorf("save day: clear trip=%s day=%d: %w", tripID, day, err)
	}

	insert := `
	INSERT INTO activities (trip_id, position, ` + activityColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (trip_id, id) DO UPDATE
	SET day_offset = EXCLUDED.day_offset,
		position = EXCLUDED.position,
		name = EXCLUDED.name,
		start_minutes = EXCLUDED.start_minutes,
		duration_minutes = EXCLUDED.duration_minutes,
		travel_minutes = EXCLUDED.travel_minutes,
		travel_meters = EXCLUDED.travel_meters,
		travel_mode = EXCLUDED.travel_mode,
		congestion = EXCLUDED.congestion,
		parking_buffer = EXCLUDED.parking_buffer,
		status = EXCLUDED.status,
		checked_in_from = EXCLUDED.checked_in_from,
		is_start = EXCLUDED.is_start,
		is_end = EXCLUDED.is_end,
		place_id = EXCLUDED.place_id,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng;
	`

	for i, a := range activities {
		_, err := tx.Exec(ctx, insert,
			tripID, i,
			a.ID, day, a.Name, a.Start, a.Duration,
			a.TravelTime, a.TravelDistance, string(a.TravelMode), string(a.Congestion), a.ParkingBuffer,
			string(a.Status), a.CheckedInFrom, a.IsStart, a.IsEnd, a.PlaceID, a.Lat, a.Lng,
		)
		if err != nil {
			return fmt.Errorf("save day: insert activity id=%q: %w", a.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save day: commit tx: %w", err)
	}

	return nil
}
