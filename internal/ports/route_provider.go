package ports

import (
	"context"
	"itinerary-route-service/internal/domain"
	"time"
)

// Input for a single compute-routes call.
type RouteRequest struct {
	Origin                domain.Waypoint
	Destination           domain.Waypoint
	Intermediates         []domain.Waypoint
	TravelMode            string
	OptimizeWaypointOrder bool
	DepartureTime         time.Time
}

// Travel metrics for one leg of a route.
// StaticDurationSeconds is the traffic-free baseline and is nil when the
// provider did not report one.
type RouteLeg struct {
	DurationSeconds       int
	StaticDurationSeconds *int
	DistanceMeters        int
}

// A candidate route. OptimizedIntermediateWaypointIndex is only present when
// waypoint order optimization was requested.
type Route struct {
	OptimizedIntermediateWaypointIndex []int
	Legs                               []RouteLeg
	EncodedPolyline                    string
}

// Contract for the external routing capability.
type RouteProvider interface {
	// Return candidate routes, best first. An empty slice means no route exists.
	ComputeRoutes(ctx context.Context, req RouteRequest) ([]Route, error)
}
