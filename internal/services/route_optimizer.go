package services

import (
	"context"
	"errors"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/clock"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"log"
	"time"

	"github.com/twpayne/go-polyline"
)

// Traffic-aware queries reject departure times in the past; the lead absorbs clock drift.
const departureLead = 5 * time.Minute

var ErrNoRoute = errors.New("provider returned no routes")

// ProviderError marks a failed or unusable answer from the routing provider.
// The schedule is never modified when one is returned.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return "route provider: " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

type OptimizeOptions struct {
	// Keep the current visiting order and only refresh leg metrics.
	PreserveOrder bool
	// The last activity is a fixed destination. Otherwise the day is a loop
	// back to the first activity.
	FixEnd bool
}

func (o OptimizeOptions) mode() string {
	if o.PreserveOrder {
		return "traffic"
	}
	return "optimize"
}

type OptimizeResult struct {
	Activities []domain.Activity
	// Route geometry as [lat, lng] pairs, empty when the provider sent none.
	Geometry [][2]float64
}

// RouteOptimizer orders a day's activities through an external routing
// provider and attaches per-leg travel time, distance and congestion.
//
// Optimization is best-effort: on any failure the caller gets back an
// unchanged copy of the input together with the error.
type RouteOptimizer struct {
	provider   ports.RouteProvider
	baselines  ports.BaselineStore
	clock      clock.Clock
	travelMode string
	metrics    *obs.Metrics
}

func NewRouteOptimizer(
	provider ports.RouteProvider,
	baselines ports.BaselineStore,
	clk clock.Clock,
	travelMode string,
	metrics *obs.Metrics,
) *RouteOptimizer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if travelMode == "" {
		travelMode = "DRIVE"
	}
	return &RouteOptimizer{
		provider:   provider,
		baselines:  baselines,
		clock:      clk,
		travelMode: travelMode,
		metrics:    metrics,
	}
}

// Optimize returns the day reordered (unless PreserveOrder) with fresh leg
// metrics. Start times are left for the caller to propagate.
func (o *RouteOptimizer) Optimize(
	ctx context.Context,
	day []domain.Activity,
	opts OptimizeOptions,
) ([]domain.Activity, error) {
	res, err := o.OptimizeDetailed(ctx, day, opts)
	return res.Activities, err
}

// OptimizeDetailed is Optimize plus the decoded route geometry.
func (o *RouteOptimizer) OptimizeDetailed(
	ctx context.Context,
	day []domain.Activity,
	opts OptimizeOptions,
) (_ OptimizeResult, err error) {
	defer obs.Time(ctx, "optimizer."+opts.mode())(&err)

	fallback := OptimizeResult{Activities: domain.CloneAll(day)}
	if len(day) < 2 {
		return fallback, nil
	}

	origin := day[0]
	destination := day[0]
	pool := day[1:]
	if opts.FixEnd {
		destination = day[len(day)-1]
		pool = day[1 : len(day)-1]
	}

	// Origin and pool first, so pool waypoint i sits at index i+1.
	resolve := append([]domain.Activity{origin}, pool...)
	if opts.FixEnd {
		resolve = append(resolve, destination)
	}
	waypoints, err := domain.BuildWaypoints(resolve)
	if err != nil {
		o.metrics.CountOptimize(opts.mode(), obs.OutcomeUnresolved)
		return fallback, fmt.Errorf("optimize day: %w", err)
	}

	originWp := waypoints[0]
	poolWps := waypoints[1 : 1+len(pool)]
	destinationWp := originWp
	if opts.FixEnd {
		destinationWp = waypoints[len(waypoints)-1]
	}

	req := ports.RouteRequest{
		Origin:                originWp,
		Destination:           destinationWp,
		Intermediates:         poolWps,
		TravelMode:            o.travelMode,
		OptimizeWaypointOrder: !opts.PreserveOrder,
		DepartureTime:         o.clock.Now().Add(departureLead),
	}

	routes, err := o.provider.ComputeRoutes(ctx, req)
	if err != nil {
		o.metrics.CountOptimize(opts.mode(), obs.OutcomeFallback)
		return fallback, &ProviderError{Err: err}
	}
	if len(routes) == 0 {
		o.metrics.CountOptimize(opts.mode(), obs.OutcomeFallback)
		return fallback, &ProviderError{Err: ErrNoRoute}
	}
	route := routes[0]

	order, err := poolOrder(route.OptimizedIntermediateWaypointIndex, len(pool), !opts.PreserveOrder)
	if err != nil {
		o.metrics.CountOptimize(opts.mode(), obs.OutcomeFallback)
		return fallback, &ProviderError{Err: err}
	}

	if len(route.Legs) != len(pool)+1 {
		o.metrics.CountOptimize(opts.mode(), obs.OutcomeFallback)
		return fallback, &ProviderError{Err: fmt.Errorf(
			"expected %d legs, got %d", len(pool)+1, len(route.Legs),
		)}
	}
	for i, leg := range route.Legs {
		if leg.DurationSeconds < 0 {
			o.metrics.CountOptimize(opts.mode(), obs.OutcomeFallback)
			return fallback, &ProviderError{Err: fmt.Errorf("leg %d has no usable duration", i)}
		}
	}

	ordered := make([]domain.Activity, 0, len(day))
	orderedWps := make([]domain.Waypoint, 0, len(day))
	ordered = append(ordered, origin.Clone())
	orderedWps = append(orderedWps, originWp)
	for _, idx := range order {
		ordered = append(ordered, pool[idx].Clone())
		orderedWps = append(orderedWps, poolWps[idx])
	}
	if opts.FixEnd {
		ordered = append(ordered, destination.Clone())
		orderedWps = append(orderedWps, destinationWp)
	}

	keys := make([]ports.LegKey, len(route.Legs))
	for i := range route.Legs {
		to := destinationWp
		if i+1 < len(orderedWps) {
			to = orderedWps[i+1]
		}
		keys[i] = ports.LegKey{Origin: orderedWps[i].Key(), Destination: to.Key()}
	}
	known := o.lookupBaselines(ctx, route.Legs, keys)

	ordered[0].TravelTime = nil
	ordered[0].TravelDistance = nil
	ordered[0].Congestion = domain.CongestionUnknown

	// In loop mode the final return leg has no activity to land on.
	for i := 1; i < len(ordered); i++ {
		leg := route.Legs[i-1]

		static := leg.StaticDurationSeconds
		if static == nil {
			if b, ok := known[keys[i-1]]; ok {
				static = domain.IntPtr(b.StaticDurationSeconds)
			}
		}

		ordered[i].TravelTime = domain.IntPtr(domain.SecondsToMinutes(leg.DurationSeconds))
		ordered[i].TravelDistance = domain.IntPtr(leg.DistanceMeters)
		ordered[i].Congestion = domain.ClassifyCongestion(leg.DurationSeconds, static)
	}

	o.storeBaselines(ctx, route.Legs, keys)
	o.metrics.CountOptimize(opts.mode(), obs.OutcomeOptimized)

	return OptimizeResult{
		Activities: ordered,
		Geometry:   decodeGeometry(route.EncodedPolyline),
	}, nil
}

// poolOrder validates the provider permutation, or returns the identity
// order when none was requested or sent.
func poolOrder(idx []int, n int, optimized bool) ([]int, error) {
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	if !optimized || n == 0 || len(idx) == 0 {
		return identity, nil
	}

	if len(idx) != n {
		return nil, fmt.Errorf("optimized order has %d entries, want %d", len(idx), n)
	}
	seen := make([]bool, n)
	for _, i := range idx {
		if i < 0 || i >= n || seen[i] {
			return nil, fmt.Errorf("optimized order %v is not a permutation of %d stops", idx, n)
		}
		seen[i] = true
	}
	return idx, nil
}

func (o *RouteOptimizer) lookupBaselines(
	ctx context.Context,
	legs []ports.RouteLeg,
	keys []ports.LegKey,
) map[ports.LegKey]ports.LegBaseline {
	if o.baselines == nil {
		return nil
	}

	var missing []ports.LegKey
	for i, leg := range legs {
		if leg.StaticDurationSeconds == nil {
			missing = append(missing, keys[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}

	found, err := o.baselines.GetMany(ctx, missing)
	if err != nil {
		log.Printf("leg baseline lookup failed: %v", err)
		return nil
	}
	return found
}

func (o *RouteOptimizer) storeBaselines(ctx context.Context, legs []ports.RouteLeg, keys []ports.LegKey) {
	if o.baselines == nil {
		return
	}

	fresh := make(map[ports.LegKey]ports.LegBaseline)
	for i, leg := range legs {
		if leg.StaticDurationSeconds == nil || *leg.StaticDurationSeconds <= 0 {
			continue
		}
		fresh[keys[i]] = ports.LegBaseline{
			StaticDurationSeconds: *leg.StaticDurationSeconds,
			DistanceMeters:        leg.DistanceMeters,
		}
	}
	if len(fresh) == 0 {
		return
	}

	if err := o.baselines.PutMany(ctx, fresh); err != nil {
		log.Printf("leg baseline write failed: %v", err)
	}
}

func decodeGeometry(encoded string) [][2]float64 {
	if encoded == "" {
		return nil
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		log.Printf("decode route polyline failed: %v", err)
		return nil
	}

	out := make([][2]float64, 0, len(coords))
	for _, c := range coords {
		if len(c) == 2 {
			out = append(out, [2]float64{c[0], c[1]})
		}
	}
	return out
}
