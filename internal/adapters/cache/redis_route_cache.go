package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const routeKeyPrefix = "itinerary:route:"

type cachedLeg struct {
	Duration int  `json:"d"`
	Static   *int `json:"s,omitempty"`
	Distance int  `json:"m"`
}

type cachedRoute struct {
	Order    []int       `json:"o,omitempty"`
	Legs     []cachedLeg `json:"l"`
	Polyline string      `json:"p,omitempty"`
}

// RedisRouteCache memoizes provider answers for a short TTL.
// Keys ignore the departure time, so an entry answers any request made
// while it lives.
type RedisRouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisRouteCache{client: client, ttl: ttl}
}

func (c *RedisRouteCache) Get(
	ctx context.Context,
	req ports.RouteRequest,
) (_ []ports.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	raw, err := c.client.Get(ctx, RouteKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: %w", err)
	}

	var stored []cachedRoute
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("get route cache: decode payload: %w", err)
	}

	out := make([]ports.Route, 0, len(stored))
	for _, r := range stored {
		legs := make([]ports.RouteLeg, 0, len(r.Legs))
		for _, l := range r.Legs {
			legs = append(legs, ports.RouteLeg{
				DurationSeconds:       l.Duration,
				StaticDurationSeconds: l.Static,
				DistanceMeters:        l.Distance,
			})
		}
		out = append(out, ports.Route{
			OptimizedIntermediateWaypointIndex: r.Order,
			Legs:                               legs,
			EncodedPolyline:                    r.Polyline,
		})
	}
	return out, true, nil
}

func (c *RedisRouteCache) Put(ctx context.Context, req ports.RouteRequest, routes []ports.Route) error {
	stored := make([]cachedRoute, 0, len(routes))
	for _, r := range routes {
		cr := cachedRoute{Order: r.OptimizedIntermediateWaypointIndex, Polyline: r.EncodedPolyline}
		for _, l := range r.Legs {
			cr.Legs = append(cr.Legs, cachedLeg{
				Duration: l.DurationSeconds,
				Static:   l.StaticDurationSeconds,
				Distance: l.DistanceMeters,
			})
		}
		stored = append(stored, cr)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("put route cache: encode payload: %w", err)
	}

	if err := c.client.Set(ctx, RouteKey(req), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("put route cache: %w", err)
	}
	return nil
}

// RouteKey hashes everything about a request that changes the answer,
// except the departure time.
func RouteKey(req ports.RouteRequest) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(req.TravelMode))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(req.OptimizeWaypointOrder))
	b.WriteByte('|')
	b.WriteString(req.Origin.Key())
	for _, w := range req.Intermediates {
		b.WriteByte('|')
		b.WriteString(w.Key())
	}
	b.WriteString("|>")
	b.WriteString(req.Destination.Key())

	return routeKeyPrefix + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}
