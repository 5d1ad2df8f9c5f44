package repositories

import (
	"context"
	"errors"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/db"
	"itinerary-route-service/internal/ports"

	"github.com/jackc/pgx/v5"
)

// Postgres-backed implementation of the PlaceLibrary port.
type PgPlaceLibrary struct{ DB db.Querier }

func NewPgPlaceLibrary(q db.Querier) *PgPlaceLibrary {
	return &PgPlaceLibrary{DB: q}
}

func (l *PgPlaceLibrary) ListPlaces(ctx context.Context) ([]domain.Activity, error) {
	if l.DB == nil {
		return nil, errors.New("place library: DB is nil")
	}

	rows, err := l.DB.Query(ctx, `
	SELECT id, name, place_id, lat, lng, duration_minutes, travel_mode
	FROM places
	ORDER BY name, id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list places: query places table: %w", err)
	}
	defer rows.Close()

	places := make([]domain.Activity, 0, 64)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("list places: scan row: %w", err)
		}
		places = append(places, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list places: row iteration: %w", err)
	}

	return places, nil
}

func (l *PgPlaceLibrary) GetPlace(ctx context.Context, id string) (domain.Activity, error) {
	if l.DB == nil {
		return domain.Activity{}, errors.New("place library: DB is nil")
	}

	row := l.DB.QueryRow(ctx, `
	SELECT id, name, place_id, lat, lng, duration_minutes, travel_mode
	FROM places
	WHERE id = $1;
	`, id)

	p, err := scanPlace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, fmt.Errorf("get place %q: %w", id, ports.ErrPlaceNotFound)
	}
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get place %q: %w", id, err)
	}
	return p, nil
}

func scanPlace(row pgx.Row) (domain.Activity, error) {
	var p domain.Activity
	var mode string
	if err := row.Scan(&p.ID, &p.Name, &p.PlaceID, &p.Lat, &p.Lng, &p.Duration, &mode); err != nil {
		return domain.Activity{}, err
	}
	p.TravelMode = domain.TravelMode(mode)
	p.Status = domain.StatusScheduled
	return p, nil
}
