package routing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/ports"
)

type memCache struct {
	mu     sync.Mutex
	routes map[string][]ports.Route
	puts   int
}

func (c *memCache) key(req ports.RouteRequest) string {
	return req.Origin.Key() + "|" + req.Destination.Key()
}

func (c *memCache) Get(_ context.Context, req ports.RouteRequest) ([]ports.Route, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.routes[c.key(req)]
	return r, ok, nil
}

func (c *memCache) Put(_ context.Context, req ports.RouteRequest, routes []ports.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.routes == nil {
		c.routes = map[string][]ports.Route{}
	}
	c.routes[c.key(req)] = routes
	c.puts++
	return nil
}

func newTestProvider(t *testing.T, url string, cache ports.RouteCache) *RoutesProvider {
	t.Helper()
	p, err := NewRoutesProvider("test-key", url, 0, cache, nil)
	if err != nil {
		t.Fatalf("NewRoutesProvider: %v", err)
	}
	p.backoff = time.Millisecond
	return p
}

func sampleRequest() ports.RouteRequest {
	return ports.RouteRequest{
		Origin:                domain.Waypoint{PlaceID: "pl-hotel"},
		Destination:           domain.Waypoint{PlaceID: "pl-hotel"},
		Intermediates:         []domain.Waypoint{{Location: &domain.Coordinates{Lat: 41.9, Lng: 12.5}}, {PlaceID: "pl-forum"}},
		TravelMode:            "DRIVE",
		OptimizeWaypointOrder: true,
		DepartureTime:         time.Date(2026, 7, 4, 8, 5, 0, 0, time.UTC),
	}
}

const okBody = `{"routes":[{
	"legs":[
		{"duration":"754s","staticDuration":"600s","distanceMeters":5100},
		{"duration":"120.6s","distanceMeters":800},
		{"duration":"300s","staticDuration":"300s","distanceMeters":2000}
	],
	"optimizedIntermediateWaypointIndex":[1,0],
	"polyline":{"encodedPolyline":"_p~iF~ps|U_ulLnnqC"}
}]}`

func TestComputeRoutesSendsRequestAndParsesResponse(t *testing.T) {
	var got computeRoutesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/directions/v2:computeRoutes" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("X-Goog-FieldMask") != fieldMask {
			t.Errorf("field mask = %q", r.Header.Get("X-Goog-FieldMask"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	routes, err := newTestProvider(t, srv.URL, nil).ComputeRoutes(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("ComputeRoutes: %v", err)
	}

	if got.Origin.PlaceID != "pl-hotel" || got.Intermediates[0].Location == nil {
		t.Fatalf("unexpected waypoints: %+v", got)
	}
	if got.Intermediates[0].Location.LatLng.Latitude != 41.9 {
		t.Fatalf("latitude = %v", got.Intermediates[0].Location.LatLng.Latitude)
	}
	if got.RoutingPreference != "TRAFFIC_AWARE" || !got.OptimizeWaypointOrder {
		t.Fatalf("unexpected options: %+v", got)
	}
	if got.DepartureTime != "2026-07-04T08:05:00Z" {
		t.Fatalf("departure = %q", got.DepartureTime)
	}

	if len(routes) != 1 || len(routes[0].Legs) != 3 {
		t.Fatalf("unexpected routes: %+v", routes)
	}
	r := routes[0]
	if r.Legs[0].DurationSeconds != 754 || *r.Legs[0].StaticDurationSeconds != 600 || r.Legs[0].DistanceMeters != 5100 {
		t.Fatalf("leg 0 = %+v", r.Legs[0])
	}
	if r.Legs[1].DurationSeconds != 121 || r.Legs[1].StaticDurationSeconds != nil {
		t.Fatalf("leg 1 = %+v", r.Legs[1])
	}
	if len(r.OptimizedIntermediateWaypointIndex) != 2 || r.OptimizedIntermediateWaypointIndex[0] != 1 {
		t.Fatalf("order = %v", r.OptimizedIntermediateWaypointIndex)
	}
	if r.EncodedPolyline == "" {
		t.Fatalf("missing polyline")
	}
}

func TestComputeRoutesRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	routes, err := newTestProvider(t, srv.URL, nil).ComputeRoutes(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("ComputeRoutes: %v", err)
	}
	if calls.Load() != 3 || len(routes) != 1 {
		t.Fatalf("calls = %d routes = %d", calls.Load(), len(routes))
	}
}

func TestComputeRoutesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"INVALID_ARGUMENT"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL, nil).ComputeRoutes(context.Background(), sampleRequest())

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestComputeRoutesRejectsLegWithoutDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[{"legs":[{"distanceMeters":10}]}]}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL, nil).ComputeRoutes(context.Background(), sampleRequest())

	if !errors.Is(err, ErrUnreachableLeg) {
		t.Fatalf("expected ErrUnreachableLeg, got %v", err)
	}
}

func TestComputeRoutesEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	routes, err := newTestProvider(t, srv.URL, nil).ComputeRoutes(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("ComputeRoutes: %v", err)
	}
	if len(routes) != 0 {
		t.Fatalf("expected no routes, got %d", len(routes))
	}
}

func TestComputeRoutesUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	cache := &memCache{}
	p := newTestProvider(t, srv.URL, cache)

	first, err := p.ComputeRoutes(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := p.ComputeRoutes(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls.Load() != 1 || cache.puts != 1 {
		t.Fatalf("calls = %d puts = %d", calls.Load(), cache.puts)
	}
	if second[0].Legs[0].DurationSeconds != first[0].Legs[0].DurationSeconds {
		t.Fatalf("cached routes differ")
	}
}

func TestBuildRequestWalkingOmitsTrafficOptions(t *testing.T) {
	req := sampleRequest()
	req.TravelMode = "walk"

	out := buildRequest(req)

	if out.TravelMode != "WALK" || out.RoutingPreference != "" || out.DepartureTime != "" {
		t.Fatalf("unexpected walking request: %+v", out)
	}
}

func TestNewRoutesProviderRequiresKey(t *testing.T) {
	if _, err := NewRoutesProvider("", "", 0, nil, nil); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}
