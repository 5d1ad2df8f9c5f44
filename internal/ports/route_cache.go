package ports

import "context"

// Short-lived memory of provider answers, keyed by the full request.
// Live traffic goes stale quickly, so implementations expire entries.
type RouteCache interface {
	// Return cached routes and whether the request was found.
	Get(ctx context.Context, req RouteRequest) ([]Route, bool, error)
	Put(ctx context.Context, req RouteRequest, routes []Route) error
}
