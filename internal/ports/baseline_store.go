package ports

import "context"

// Identifies a directed leg by the cache keys of its two waypoints.
type LegKey struct {
	Origin      string
	Destination string
}

// Traffic-free metrics remembered for a leg.
type LegBaseline struct {
	StaticDurationSeconds int
	DistanceMeters        int
}

// Persistent memory of leg baselines, used when the provider omits one.
type BaselineStore interface {
	GetMany(ctx context.Context, keys []LegKey) (map[LegKey]LegBaseline, error)
	PutMany(ctx context.Context, baselines map[LegKey]LegBaseline) error
}
