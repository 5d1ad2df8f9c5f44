package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"itinerary-route-service/internal/platform/db"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"slices"
	"strings"
)

// SQLLegBaselineStore keeps traffic-free leg durations in Postgres so
// congestion can still be classified when the provider omits a baseline.
type SQLLegBaselineStore struct {
	DB db.Querier
}

func NewSQLLegBaselineStore(q db.Querier) *SQLLegBaselineStore {
	return &SQLLegBaselineStore{DB: q}
}

// Fetch stored baselines for many legs in one round trip.
func (s *SQLLegBaselineStore) GetMany(
	ctx context.Context,
	keys []ports.LegKey,
) (_ map[ports.LegKey]ports.LegBaseline, err error) {
	defer obs.Time(ctx, "baseline.store.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("leg baseline store: db is nil")
	}

	seen := map[ports.LegKey]struct{}{}
	origins := make([]string, 0, len(keys))
	destinations := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k.Origin) == "" || strings.TrimSpace(k.Destination) == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		origins = append(origins, k.Origin)
		destinations = append(destinations, k.Destination)
	}

	if len(origins) == 0 {
		return map[ports.LegKey]ports.LegBaseline{}, nil
	}

	q := `
	SELECT origin, destination, static_duration_seconds, distance_meters
	FROM leg_baselines
	WHERE (origin, destination) IN (
		SELECT * FROM unnest($1::text[], $2::text[])
	);
	`

	rows, err := s.DB.Query(ctx, q, origins, destinations)
	if err != nil {
		return nil, fmt.Errorf("get leg baselines: query leg_baselines table: %w", err)
	}
	defer rows.Close()

	out := make(map[ports.LegKey]ports.LegBaseline, len(origins))
	for rows.Next() {
		var k ports.LegKey
		var b ports.LegBaseline
		if err := rows.Scan(&k.Origin, &k.Destination, &b.StaticDurationSeconds, &b.DistanceMeters); err != nil {
			return nil, fmt.Errorf("get leg baselines: scan rows: %w", err)
		}
		out[k] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get leg baselines: row iteration: %w", err)
	}

	return out, nil
}

// Upsert many baselines in a single transaction.
func (s *SQLLegBaselineStore) PutMany(
	ctx context.Context,
	baselines map[ports.LegKey]ports.LegBaseline,
) (err error) {
	defer obs.Time(ctx, "baseline.store.PutMany")(&err)

	if s.DB == nil {
		return errors.New("leg baseline store: db is nil")
	}

	if len(baselines) == 0 {
		return nil
	}

	keys := make([]ports.LegKey, 0, len(baselines))
	for k := range baselines {
		if strings.TrimSpace(k.Origin) == "" || strings.TrimSpace(k.Destination) == "" {
			return fmt.Errorf("insert leg baselines: empty waypoint key in %+v", k)
		}
		keys = append(keys, k)
	}
	// Rows are written in key order.
	slices.SortFunc(keys, func(a, b ports.LegKey) int {
		return cmp.Or(cmp.Compare(a.Origin, b.Origin), cmp.Compare(a.Destination, b.Destination))
	})

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("insert leg baselines: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
	INSERT INTO leg_baselines (origin, destination, static_duration_seconds, distance_meters, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (origin, destination) DO UPDATE
	SET static_duration_seconds = EXCLUDED.static_duration_seconds,
		distance_meters = EXCLUDED.distance_meters,
		updated_at = EXCLUDED.updated_at;
	`

	for _, k := range keys {
		b := baselines[k]
		if _, err := tx.Exec(ctx, upsert, k.Origin, k.Destination, b.StaticDurationSeconds, b.DistanceMeters); err != nil {
			return fmt.Errorf("insert leg baseline %s -> %s: %w", k.Origin, k.Destination, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("insert leg baselines commit: %w", err)
	}

	return nil
}
