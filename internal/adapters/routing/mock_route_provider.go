package routing

import (
	"context"
	"itinerary-route-service/internal/ports"
	"sync"
)

// Scripted answer for one ComputeRoutes call.
type MockResponse struct {
	Routes []ports.Route
	Err    error
}

// MockRouteProvider replays scripted responses in order; the last one repeats.
// When Gate is set, calls block until it is closed or the context ends.
type MockRouteProvider struct {
	Gate chan struct{}

	mu        sync.Mutex
	responses []MockResponse
	requests  []ports.RouteRequest
}

func NewMockRouteProvider(responses ...MockResponse) *MockRouteProvider {
	return &MockRouteProvider{responses: responses}
}

func (p *MockRouteProvider) ComputeRoutes(ctx context.Context, req ports.RouteRequest) ([]ports.Route, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	gate := p.Gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return nil, nil
	}
	r := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return r.Routes, r.Err
}

// Requests returns every request received so far.
func (p *MockRouteProvider) Requests() []ports.RouteRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.RouteRequest(nil), p.requests...)
}

// Calls returns the number of ComputeRoutes calls.
func (p *MockRouteProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Legs builds route legs from live/static second pairs; a static of 0 means
// the provider sent no baseline.
func Legs(pairs ...[2]int) []ports.RouteLeg {
	out := make([]ports.RouteLeg, 0, len(pairs))
	for _, p := range pairs {
		leg := ports.RouteLeg{DurationSeconds: p[0], DistanceMeters: p[0] * 10}
		if p[1] > 0 {
			static := p[1]
			leg.StaticDurationSeconds = &static
		}
		out = append(out, leg)
	}
	return out
}
