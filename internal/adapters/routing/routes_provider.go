package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://routes.googleapis.com"

	fieldMask = "routes.legs.duration,routes.legs.staticDuration,routes.legs.distanceMeters," +
		"routes.optimizedIntermediateWaypointIndex,routes.polyline.encodedPolyline"
)

// ErrUnreachableLeg is returned when a leg comes back without a duration.
var ErrUnreachableLeg = errors.New("route leg has no duration")

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type waypoint struct {
	PlaceID  string    `json:"placeId,omitempty"`
	Location *location `json:"location,omitempty"`
}

type computeRoutesRequest struct {
	Origin                waypoint   `json:"origin"`
	Destination           waypoint   `json:"destination"`
	Intermediates         []waypoint `json:"intermediates,omitempty"`
	TravelMode            string     `json:"travelMode"`
	RoutingPreference     string     `json:"routingPreference,omitempty"`
	OptimizeWaypointOrder bool       `json:"optimizeWaypointOrder,omitempty"`
	DepartureTime         string     `json:"departureTime,omitempty"`
}

type routeLeg struct {
	Duration       string `json:"duration"`
	StaticDuration string `json:"staticDuration"`
	DistanceMeters int    `json:"distanceMeters"`
}

type computeRoutesResponse struct {
	Routes []struct {
		Legs                               []routeLeg `json:"legs"`
		OptimizedIntermediateWaypointIndex []int      `json:"optimizedIntermediateWaypointIndex"`
		Polyline                           struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// RoutesProvider implements ports.RouteProvider against the Google Routes API.
//
// Calls are rate limited per process, retried on transient failures and,
// when a cache is configured, answered from recent identical requests.
// The provider is safe for concurrent use.
type RoutesProvider struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	limiter     *rate.Limiter
	cache       ports.RouteCache
	metrics     *obs.Metrics
	maxAttempts int
	backoff     time.Duration
}

func NewRoutesProvider(
	apiKey string,
	baseURL string,
	ratePerSecond float64,
	cache ports.RouteCache,
	metrics *obs.Metrics,
) (*RoutesProvider, error) {
	if apiKey == "" {
		return nil, errors.New("routes api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limit := rate.Inf
	burst := 1
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
		burst = max(1, int(ratePerSecond))
	}

	return &RoutesProvider{
		session:     &http.Client{Timeout: 15 * time.Second},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		limiter:     rate.NewLimiter(limit, burst),
		cache:       cache,
		metrics:     metrics,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}, nil
}

func (p *RoutesProvider) ComputeRoutes(
	ctx context.Context,
	req ports.RouteRequest,
) (_ []ports.Route, err error) {
	defer obs.Time(ctx, "routes.ComputeRoutes")(&err)

	if p.cache != nil {
		routes, ok, err := p.cache.Get(ctx, req)
		if err != nil {
			log.Printf("route cache read failed: %v", err)
		}
		p.metrics.CountCache(ok)
		if ok {
			return routes, nil
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	payload, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal compute routes request: %w", err)
	}

	endpoint := p.baseURL + "/directions/v2:computeRoutes"

	start := time.Now()
	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		return p.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		p.metrics.ObserveProvider("error", time.Since(start))
		return nil, fmt.Errorf("compute routes request failed: %w", err)
	}
	defer resp.Body.Close()
	p.metrics.ObserveProvider("ok", time.Since(start))

	var cr computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode compute routes response: %w", err)
	}

	routes := make([]ports.Route, 0, len(cr.Routes))
	for i, r := range cr.Routes {
		legs := make([]ports.RouteLeg, 0, len(r.Legs))
		for j, l := range r.Legs {
			leg, err := convertLeg(l)
			if err != nil {
				return nil, fmt.Errorf("route %d leg %d: %w", i, j, err)
			}
			legs = append(legs, leg)
		}
		routes = append(routes, ports.Route{
			OptimizedIntermediateWaypointIndex: r.OptimizedIntermediateWaypointIndex,
			Legs:                               legs,
			EncodedPolyline:                    r.Polyline.EncodedPolyline,
		})
	}

	// Write-through cache: failures should not fail the request.
	if p.cache != nil && len(routes) > 0 {
		if err := p.cache.Put(ctx, req, routes); err != nil {
			log.Printf("route cache write failed: %v", err)
		}
	}

	return routes, nil
}

func buildRequest(req ports.RouteRequest) computeRoutesRequest {
	mode := strings.ToUpper(req.TravelMode)
	if mode == "" {
		mode = "DRIVE"
	}

	out := computeRoutesRequest{
		Origin:                toWire(req.Origin),
		Destination:           toWire(req.Destination),
		TravelMode:            mode,
		OptimizeWaypointOrder: req.OptimizeWaypointOrder,
	}
	for _, w := range req.Intermediates {
		out.Intermediates = append(out.Intermediates, toWire(w))
	}

	// Traffic awareness and departure times are only accepted for road modes.
	if mode == "DRIVE" || mode == "TWO_WHEELER" {
		out.RoutingPreference = "TRAFFIC_AWARE"
		if !req.DepartureTime.IsZero() {
			out.DepartureTime = req.DepartureTime.UTC().Format(time.RFC3339)
		}
	}
	return out
}

func toWire(w domain.Waypoint) waypoint {
	if w.PlaceID != "" {
		return waypoint{PlaceID: w.PlaceID}
	}
	if w.Location != nil {
		return waypoint{Location: &location{LatLng: latLng{
			Latitude:  w.Location.Lat,
			Longitude: w.Location.Lng,
		}}}
	}
	return waypoint{}
}

func convertLeg(l routeLeg) (ports.RouteLeg, error) {
	if l.Duration == "" {
		return ports.RouteLeg{}, ErrUnreachableLeg
	}
	live, err := parseSeconds(l.Duration)
	if err != nil {
		return ports.RouteLeg{}, err
	}

	leg := ports.RouteLeg{DurationSeconds: live, DistanceMeters: l.DistanceMeters}
	if l.StaticDuration != "" {
		static, err := parseSeconds(l.StaticDuration)
		if err != nil {
			return ports.RouteLeg{}, err
		}
		leg.StaticDurationSeconds = &static
	}
	return leg, nil
}

// parseSeconds reads the API's protobuf duration strings such as "754s" or
// "12.5s", rounded to whole seconds.
func parseSeconds(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "s"), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("parse duration %q: invalid value", s)
	}
	return int(v + 0.5), nil
}
