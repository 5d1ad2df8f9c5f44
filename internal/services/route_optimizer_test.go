package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"itinerary-route-service/internal/adapters/routing"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/clock"
	"itinerary-route-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

var testNow = time.Date(2026, 7, 4, 8, 0, 0, 0, time.UTC)

type memBaselines struct {
	mu   sync.Mutex
	data map[ports.LegKey]ports.LegBaseline
	err  error
}

func (m *memBaselines) GetMany(_ context.Context, keys []ports.LegKey) (map[ports.LegKey]ports.LegBaseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[ports.LegKey]ports.LegBaseline{}
	for _, k := range keys {
		if b, ok := m.data[k]; ok {
			out[k] = b
		}
	}
	return out, nil
}

func (m *memBaselines) PutMany(_ context.Context, b map[ports.LegKey]ports.LegBaseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[ports.LegKey]ports.LegBaseline{}
	}
	for k, v := range b {
		m.data[k] = v
	}
	return nil
}

func placed(id string, duration int) domain.Activity {
	a := act(id, nil, duration)
	a.PlaceID = "pl-" + id
	return a
}

func newOptimizer(p ports.RouteProvider, b ports.BaselineStore) *RouteOptimizer {
	return NewRouteOptimizer(p, b, clock.NewMockClock(testNow), "DRIVE", nil)
}

func ids(day []domain.Activity) []string {
	out := make([]string, len(day))
	for i, a := range day {
		out[i] = a.ID
	}
	return out
}

func TestOptimizeFixedEndAppliesPermutationAndLegs(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60), placed("b", 30), placed("c", 45), placed("e", 0)}
	day[0].IsStart = true
	day[4].IsEnd = true
	day[1].TravelTime = mins(99)

	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		OptimizedIntermediateWaypointIndex: []int{2, 0, 1},
		Legs:                               routing.Legs([2]int{600, 600}, [2]int{1300, 1000}, [2]int{1150, 1000}, [2]int{900, 0}),
	}}})

	out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{FixEnd: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"s", "c", "a", "b", "e"}, ids(out))
	assert.Nil(t, out[0].TravelTime)
	assert.Equal(t, domain.CongestionUnknown, out[0].Congestion)

	assert.Equal(t, 10, *out[1].TravelTime)
	assert.Equal(t, 6000, *out[1].TravelDistance)
	assert.Equal(t, domain.CongestionLow, out[1].Congestion)
	assert.Equal(t, 22, *out[2].TravelTime)
	assert.Equal(t, domain.CongestionHigh, out[2].Congestion)
	assert.Equal(t, domain.CongestionModerate, out[3].Congestion)
	assert.Equal(t, 15, *out[4].TravelTime)
	assert.Equal(t, domain.CongestionLow, out[4].Congestion, "no baseline means low")

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "pl-s", req.Origin.PlaceID)
	assert.Equal(t, "pl-e", req.Destination.PlaceID)
	require.Len(t, req.Intermediates, 3)
	assert.Equal(t, "pl-a", req.Intermediates[0].PlaceID)
	assert.True(t, req.OptimizeWaypointOrder)
	assert.Equal(t, "DRIVE", req.TravelMode)
	assert.Equal(t, testNow.Add(5*time.Minute), req.DepartureTime)

	assert.Equal(t, 99, *day[1].TravelTime, "input must not be mutated")
}

func TestOptimizeLoopDropsReturnLeg(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60), placed("b", 30)}

	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		OptimizedIntermediateWaypointIndex: []int{1, 0},
		Legs:                               routing.Legs([2]int{300, 300}, [2]int{420, 400}, [2]int{3000, 1000}),
	}}})

	out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"s", "b", "a"}, ids(out))
	assert.Equal(t, 5, *out[1].TravelTime)
	assert.Equal(t, 7, *out[2].TravelTime)
	assert.Equal(t, domain.CongestionLow, out[2].Congestion, "return leg must not leak onto the last stop")

	req := provider.Requests()[0]
	assert.Equal(t, req.Origin, req.Destination)
	assert.Len(t, req.Intermediates, 2)
}

func TestOptimizePreserveOrderIgnoresPermutation(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60), placed("b", 30), placed("e", 0)}

	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		OptimizedIntermediateWaypointIndex: []int{1, 0},
		Legs:                               routing.Legs([2]int{60, 60}, [2]int{60, 60}, [2]int{60, 60}),
	}}})

	out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{PreserveOrder: true, FixEnd: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"s", "a", "b", "e"}, ids(out))
	assert.False(t, provider.Requests()[0].OptimizeWaypointOrder)
}

func TestOptimizeReturnsPermutationOfInput(t *testing.T) {
	day := []domain.Activity{placed("s", 0)}
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		day = append(day, placed(id, 30))
	}

	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		OptimizedIntermediateWaypointIndex: []int{5, 3, 1, 0, 2, 4},
		Legs:                               routing.Legs(make([][2]int, 7)...),
	}}})

	out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{})
	require.NoError(t, err)

	got, want := ids(out), ids(day)
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
	assert.Equal(t, "s", out[0].ID)
}

func TestOptimizeFailureIsNoop(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60), placed("b", 30)}
	day[1].TravelTime = mins(12)
	day[1].Congestion = domain.CongestionModerate

	cases := map[string]routing.MockResponse{
		"provider error": {Err: errors.New("connection reset")},
		"zero routes":    {Routes: []ports.Route{}},
		"short legs":     {Routes: []ports.Route{{Legs: routing.Legs([2]int{60, 60})}}},
		"bad permutation": {Routes: []ports.Route{{
			OptimizedIntermediateWaypointIndex: []int{0, 0},
			Legs:                               routing.Legs([2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1}),
		}}},
		"unreachable leg": {Routes: []ports.Route{{
			Legs: []ports.RouteLeg{{DurationSeconds: 60}, {DurationSeconds: -1}, {DurationSeconds: 60}},
		}}},
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			provider := routing.NewMockRouteProvider(resp)
			out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{})

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, day, out)
		})
	}
}

func TestOptimizeZeroRoutesWrapsErrNoRoute(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60)}
	provider := routing.NewMockRouteProvider(routing.MockResponse{})

	_, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{})

	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestOptimizeUnresolvedStopsSkipProvider(t *testing.T) {
	day := []domain.Activity{placed("s", 0), act("Mystery", nil, 60), placed("b", 30)}
	day[1].PlaceID = "unresolved:abc"
	provider := routing.NewMockRouteProvider()

	out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{})

	var ue *domain.UnresolvedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"Mystery"}, ue.Activities)
	assert.Equal(t, day, out)
	assert.Zero(t, provider.Calls())
}

func TestOptimizeSingleActivityIsNoop(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	day := []domain.Activity{act("no-location", nil, 60)}

	out, err := newOptimizer(provider, nil).Optimize(context.Background(), day, OptimizeOptions{})

	require.NoError(t, err)
	assert.Equal(t, day, out)
	assert.Zero(t, provider.Calls())
}

func TestOptimizeUsesStoredBaselineAndRecordsFreshOnes(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60), placed("e", 0)}
	store := &memBaselines{data: map[ports.LegKey]ports.LegBaseline{
		{Origin: "place:pl-a", Destination: "place:pl-e"}: {StaticDurationSeconds: 800},
	}}

	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		Legs: routing.Legs([2]int{700, 500}, [2]int{900, 0}),
	}}})

	out, err := newOptimizer(provider, store).Optimize(context.Background(), day, OptimizeOptions{PreserveOrder: true, FixEnd: true})
	require.NoError(t, err)

	assert.Equal(t, domain.CongestionHigh, out[1].Congestion)
	assert.Equal(t, domain.CongestionModerate, out[2].Congestion, "900/800 from the stored baseline")
	assert.Equal(t, 500, store.data[ports.LegKey{Origin: "place:pl-s", Destination: "place:pl-a"}].StaticDurationSeconds)
}

func TestOptimizeBaselineStoreErrorsAreIgnored(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60)}
	store := &memBaselines{err: errors.New("db down")}
	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		Legs: routing.Legs([2]int{700, 0}, [2]int{700, 0}),
	}}})

	out, err := newOptimizer(provider, store).Optimize(context.Background(), day, OptimizeOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.CongestionLow, out[1].Congestion)
}

func TestOptimizeDetailedDecodesGeometry(t *testing.T) {
	day := []domain.Activity{placed("s", 0), placed("a", 60)}
	day[1].PlaceID = ""
	day[1].Lat = domain.FloatPtr(40.7)
	day[1].Lng = domain.FloatPtr(-120.95)

	encoded := polyline.EncodeCoords([][]float64{{38.5, -120.2}, {40.7, -120.95}})
	provider := routing.NewMockRouteProvider(routing.MockResponse{Routes: []ports.Route{{
		Legs:            routing.Legs([2]int{60, 60}, [2]int{60, 60}),
		EncodedPolyline: string(encoded),
	}}})

	res, err := newOptimizer(provider, nil).OptimizeDetailed(context.Background(), day, OptimizeOptions{})
	require.NoError(t, err)

	require.Len(t, res.Geometry, 2)
	assert.InDelta(t, 38.5, res.Geometry[0][0], 1e-5)
	assert.InDelta(t, -120.95, res.Geometry[1][1], 1e-5)
	assert.NotNil(t, provider.Requests()[0].Intermediates[0].Location)
}
