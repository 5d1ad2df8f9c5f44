package services

import (
	"context"
	"errors"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/clock"
	"itinerary-route-service/internal/ports"
	"maps"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrActivityNotFound  = errors.New("activity not found")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrOptimizeInFlight  = errors.New("optimization already in progress")
	ErrRefreshInFlight   = errors.New("traffic refresh already in progress")
	ErrNoOptimizer       = errors.New("no route optimizer configured")
)

const (
	historyLimit   = 20
	refreshTimeout = 30 * time.Second
)

// Optimizer is the part of RouteOptimizer the mutator depends on.
type Optimizer interface {
	OptimizeDetailed(ctx context.Context, day []domain.Activity, opts OptimizeOptions) (OptimizeResult, error)
}

// Mutator applies user actions to one trip's schedule.
//
// Every synchronous action rewrites a single day and re-propagates it before
// returning. Optimization and traffic refresh talk to the routing provider
// outside the lock and merge their result in one step afterwards; each kind
// has its own in-flight guard and a second request while one runs is
// rejected rather than queued.
type Mutator struct {
	mu      sync.Mutex
	days    map[int][]domain.Activity
	history []map[int][]domain.Activity

	notifyMu sync.Mutex

	optimizer Optimizer
	places    ports.PlaceLibrary
	clock     clock.Clock
	newID     func() string

	isOptimizing      atomic.Bool
	isUpdatingTraffic atomic.Bool

	// OnChange receives the latest state of a day after every applied change.
	// Set it before the mutator is shared.
	OnChange func(day int, activities []domain.Activity)
}

func NewMutator(
	activities []domain.Activity,
	optimizer Optimizer,
	places ports.PlaceLibrary,
	clk clock.Clock,
) *Mutator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	days := GroupByDay(activities)
	for d, seq := range days {
		days[d] = Propagate(seq)
	}
	return &Mutator{
		days:      days,
		optimizer: optimizer,
		places:    places,
		clock:     clk,
		newID:     uuid.NewString,
	}
}

// Day returns a copy of one day's sequence.
func (m *Mutator) Day(day int) []domain.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneAll(m.days[day])
}

// Activities returns a copy of the whole trip ordered by day.
func (m *Mutator) Activities() []domain.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Flatten(m.days)
}

// Reorder moves the activity at index from to index to. The day keeps its
// start time whichever activity ends up first.
func (m *Mutator) Reorder(day, from, to int) ([]domain.Activity, error) {
	return m.mutateDay(day, func(seq []domain.Activity) ([]domain.Activity, error) {
		if from < 0 || from >= len(seq) || to < 0 || to >= len(seq) {
			return nil, fmt.Errorf("reorder day %d: move %d -> %d of %d: %w", day, from, to, len(seq), ErrIndexOutOfRange)
		}
		if from == to {
			return seq, nil
		}

		anchor := seq[0].Start
		moved := seq[from]
		seq = slices.Delete(seq, from, from+1)
		seq = slices.Insert(seq, to, moved)
		if seq[0].Status != domain.StatusCheckedIn {
			seq[0].Start = anchor
		}
		return seq, nil
	})
}

// ToggleSkip flips an activity between Scheduled and Skipped, re-propagates
// its day, then refreshes traffic for the remaining stops in the background.
// The returned channel yields the refresh outcome once and is then closed.
func (m *Mutator) ToggleSkip(ctx context.Context, id string) (<-chan error, error) {
	day, _, err := m.mutateActivity(id, func(seq []domain.Activity, i int) ([]domain.Activity, error) {
		switch seq[i].Status {
		case domain.StatusSkipped:
			seq[i].Status = domain.StatusScheduled
		case domain.StatusScheduled, "":
			seq[i].Status = domain.StatusSkipped
		default:
			return nil, fmt.Errorf("toggle skip %q from %s: %w", id, seq[i].Status, ErrInvalidTransition)
		}
		return seq, nil
	})
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	go func() {
		defer cancel()
		defer close(done)
		done <- m.RefreshTraffic(refreshCtx, day)
	}()

	return done, nil
}

// ToggleCheckIn flips an activity between Scheduled and CheckedIn. Checking
// in stamps the current time; checking out restores the prior start.
func (m *Mutator) ToggleCheckIn(id string) ([]domain.Activity, error) {
	_, out, err := m.mutateActivity(id, func(seq []domain.Activity, i int) ([]domain.Activity, error) {
		a := &seq[i]
		switch a.Status {
		case domain.StatusScheduled, "":
			a.CheckedInFrom = domain.IntPtr(a.Start)
			a.Start = clock.MinutesOfDay(m.clock.Now())
			a.Status = domain.StatusCheckedIn
		case domain.StatusCheckedIn:
			if a.CheckedInFrom != nil {
				a.Start = *a.CheckedInFrom
			}
			a.CheckedInFrom = nil
			a.Status = domain.StatusScheduled
		default:
			return nil, fmt.Errorf("toggle check-in %q from %s: %w", id, a.Status, ErrInvalidTransition)
		}
		return seq, nil
	})
	return out, err
}

// EditTime sets an activity's start. The first activity of a day takes the
// new time as its anchor. A later activity reaches the requested time through
// its parking buffer, and can't start before it is reachable.
func (m *Mutator) EditTime(id string, minutes int) ([]domain.Activity, error) {
	_, out, err := m.mutateActivity(id, func(seq []domain.Activity, i int) ([]domain.Activity, error) {
		a := &seq[i]
		if i == 0 || a.Status == domain.StatusCheckedIn {
			a.Start = minutes
			return seq, nil
		}

		// The stored day is always propagated, so the previous end is final.
		prevEnd := EndOf(seq, i-1)
		if a.TravelTime == nil {
			a.TravelTime = domain.IntPtr(0)
		}
		a.ParkingBuffer = domain.IntPtr(nonNegative(minutes - prevEnd - nonNegative(*a.TravelTime)))
		return seq, nil
	})
	return out, err
}

// EditBuffer sets an activity's parking buffer; negative values become 0.
func (m *Mutator) EditBuffer(id string, minutes int) ([]domain.Activity, error) {
	_, out, err := m.mutateActivity(id, func(seq []domain.Activity, i int) ([]domain.Activity, error) {
		seq[i].ParkingBuffer = domain.IntPtr(nonNegative(minutes))
		return seq, nil
	})
	return out, err
}

// Insert places a new activity at index within day. An empty id is filled in.
func (m *Mutator) Insert(day, index int, a domain.Activity) ([]domain.Activity, error) {
	a = a.Clone()
	a.DayOffset = day
	if a.ID == "" {
		a.ID = m.newID()
	}
	if !a.Status.Valid() {
		a.Status = domain.StatusScheduled
	}

	return m.mutateDay(day, func(seq []domain.Activity) ([]domain.Activity, error) {
		if _, dup := m.locateLocked(a.ID); dup {
			return nil, fmt.Errorf("insert activity %q: id already scheduled", a.ID)
		}
		if index < 0 || index > len(seq) {
			return nil, fmt.Errorf("insert into day %d at %d of %d: %w", day, index, len(seq), ErrIndexOutOfRange)
		}
		if index == 0 && len(seq) > 0 {
			a.Start = seq[0].Start
		}
		return slices.Insert(seq, index, a), nil
	})
}

// InstantiatePlace copies a library place into a day under a fresh id.
func (m *Mutator) InstantiatePlace(ctx context.Context, day, index int, placeID string) ([]domain.Activity, error) {
	if m.places == nil {
		return nil, fmt.Errorf("instantiate place %q: no place library configured", placeID)
	}

	p, err := m.places.GetPlace(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("instantiate place %q: %w", placeID, err)
	}

	a := p.Clone()
	a.ID = m.newID()
	a.Status = domain.StatusScheduled
	a.CheckedInFrom = nil
	a.TravelTime = nil
	a.TravelDistance = nil
	a.Congestion = domain.CongestionUnknown
	a.IsStart = false
	a.IsEnd = false

	return m.Insert(day, index, a)
}

// Remove deletes an activity and re-propagates what remains of its day.
func (m *Mutator) Remove(id string) ([]domain.Activity, error) {
	_, out, err := m.mutateActivity(id, func(seq []domain.Activity, i int) ([]domain.Activity, error) {
		anchor := seq[0].Start
		seq = slices.Delete(seq, i, i+1)
		if i == 0 && len(seq) > 0 {
			seq[0].Start = anchor
		}
		return seq, nil
	})
	return out, err
}

// Undo restores the trip as it was before the last user action.
func (m *Mutator) Undo() error {
	m.mu.Lock()
	if len(m.history) == 0 {
		m.mu.Unlock()
		return ErrNothingToUndo
	}

	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]

	touched := make(map[int]struct{})
	for d := range m.days {
		touched[d] = struct{}{}
	}
	for d := range prev {
		touched[d] = struct{}{}
	}
	m.days = prev
	m.mu.Unlock()

	for _, d := range slices.Sorted(maps.Keys(touched)) {
		m.notify(d)
	}
	return nil
}

// Optimize reorders a day through the routing provider. Start and end
// anchors are pinned first, the day keeps its start time, and local edits
// made while the call was in flight survive the merge.
func (m *Mutator) Optimize(ctx context.Context, day int) (OptimizeResult, error) {
	if !m.isOptimizing.CompareAndSwap(false, true) {
		return OptimizeResult{}, ErrOptimizeInFlight
	}
	defer m.isOptimizing.Store(false)

	if m.optimizer == nil {
		return OptimizeResult{}, ErrNoOptimizer
	}

	seq := m.Day(day)
	if len(seq) < 2 {
		return OptimizeResult{Activities: seq}, nil
	}

	arranged := pinAnchors(seq)
	opts := OptimizeOptions{FixEnd: arranged[len(arranged)-1].IsEnd}

	res, err := m.optimizer.OptimizeDetailed(ctx, arranged, opts)
	if err != nil {
		return OptimizeResult{Activities: m.Day(day)}, err
	}

	m.mu.Lock()
	m.pushHistoryLocked()
	cur := m.days[day]
	merged := mergeOptimized(res.Activities, cur)
	if len(merged) > 0 && len(cur) > 0 {
		merged[0].Start = cur[0].Start
	}
	m.storeLocked(day, Propagate(merged))
	out := domain.CloneAll(m.days[day])
	m.mu.Unlock()

	m.notify(day)
	return OptimizeResult{Activities: out, Geometry: res.Geometry}, nil
}

// RefreshTraffic re-queries leg metrics for the day's active stops in their
// current order and merges only travel time, distance and congestion.
func (m *Mutator) RefreshTraffic(ctx context.Context, day int) error {
	if !m.isUpdatingTraffic.CompareAndSwap(false, true) {
		return ErrRefreshInFlight
	}
	defer m.isUpdatingTraffic.Store(false)

	if m.optimizer == nil {
		return ErrNoOptimizer
	}

	active := slices.DeleteFunc(m.Day(day), func(a domain.Activity) bool {
		return a.Status == domain.StatusSkipped
	})
	if len(active) < 2 {
		return nil
	}

	opts := OptimizeOptions{PreserveOrder: true, FixEnd: active[len(active)-1].IsEnd}
	res, err := m.optimizer.OptimizeDetailed(ctx, active, opts)
	if err != nil {
		return fmt.Errorf("refresh traffic day %d: %w", day, err)
	}

	fresh := make(map[string]domain.Activity, len(res.Activities))
	for _, a := range res.Activities {
		fresh[a.ID] = a
	}

	m.mu.Lock()
	cur := domain.CloneAll(m.days[day])
	for i := range cur {
		r, ok := fresh[cur[i].ID]
		if !ok || cur[i].Status == domain.StatusSkipped {
			continue
		}
		// The first active stop has no leg in the refreshed route; keep the
		// existing one unless it is also the day's anchor.
		if r.TravelTime == nil && i > 0 {
			continue
		}
		cur[i].TravelTime = r.TravelTime
		cur[i].TravelDistance = r.TravelDistance
		cur[i].Congestion = r.Congestion
	}
	m.storeLocked(day, Propagate(cur))
	m.mu.Unlock()

	m.notify(day)
	return nil
}

// IsOptimizing reports whether a full optimization is in flight.
func (m *Mutator) IsOptimizing() bool { return m.isOptimizing.Load() }

// IsUpdatingTraffic reports whether a traffic refresh is in flight.
func (m *Mutator) IsUpdatingTraffic() bool { return m.isUpdatingTraffic.Load() }

func (m *Mutator) mutateDay(
	day int,
	fn func(seq []domain.Activity) ([]domain.Activity, error),
) ([]domain.Activity, error) {
	m.mu.Lock()
	cur := m.days[day]
	next, err := fn(domain.CloneAll(cur))
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	next = Propagate(next)
	if sameDay(cur, next) {
		m.mu.Unlock()
		return next, nil
	}
	m.pushHistoryLocked()
	m.storeLocked(day, next)
	out := domain.CloneAll(m.days[day])
	m.mu.Unlock()

	m.notify(day)
	return out, nil
}

func (m *Mutator) mutateActivity(
	id string,
	fn func(seq []domain.Activity, i int) ([]domain.Activity, error),
) (int, []domain.Activity, error) {
	m.mu.Lock()
	day, ok := m.locateLocked(id)
	m.mu.Unlock()
	if !ok {
		return 0, nil, fmt.Errorf("activity %q: %w", id, ErrActivityNotFound)
	}

	out, err := m.mutateDay(day, func(seq []domain.Activity) ([]domain.Activity, error) {
		i := indexOf(seq, id)
		if i < 0 {
			return nil, fmt.Errorf("activity %q: %w", id, ErrActivityNotFound)
		}
		return fn(seq, i)
	})
	return day, out, err
}

func (m *Mutator) locateLocked(id string) (int, bool) {
	for d, seq := range m.days {
		if indexOf(seq, id) >= 0 {
			return d, true
		}
	}
	return 0, false
}

func (m *Mutator) storeLocked(day int, seq []domain.Activity) {
	if len(seq) == 0 {
		delete(m.days, day)
		return
	}
	m.days[day] = seq
}

func (m *Mutator) pushHistoryLocked() {
	snap := make(map[int][]domain.Activity, len(m.days))
	for d, seq := range m.days {
		snap[d] = domain.CloneAll(seq)
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

func sameDay(a, b []domain.Activity) bool {
	return slices.EqualFunc(a, b, func(x, y domain.Activity) bool {
		return reflect.DeepEqual(x, y)
	})
}

// notify reads the day under notifyMu so that the last call always
// delivers the newest state.
func (m *Mutator) notify(day int) {
	if m.OnChange == nil {
		return
	}
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.OnChange(day, m.Day(day))
}

// pinAnchors moves the start anchor to the front and the end anchor to the back.
func pinAnchors(seq []domain.Activity) []domain.Activity {
	out := domain.CloneAll(seq)

	if i := slices.IndexFunc(out, func(a domain.Activity) bool { return a.IsStart }); i > 0 {
		start := out[i]
		out = slices.Delete(out, i, i+1)
		out = slices.Insert(out, 0, start)
		out[0].Start = seq[0].Start
	}
	if i := slices.IndexFunc(out, func(a domain.Activity) bool { return a.IsEnd && !a.IsStart }); i >= 0 && i < len(out)-1 {
		end := out[i]
		out = slices.Delete(out, i, i+1)
		out = append(out, end)
	}
	return out
}

// mergeOptimized takes the provider's order and leg metrics but the local
// copy of everything else. Stops removed meanwhile are dropped; stops added
// meanwhile go to the end.
func mergeOptimized(optimized, current []domain.Activity) []domain.Activity {
	local := make(map[string]domain.Activity, len(current))
	for _, a := range current {
		local[a.ID] = a
	}

	out := make([]domain.Activity, 0, len(current))
	used := make(map[string]struct{}, len(current))
	for _, r := range optimized {
		c, ok := local[r.ID]
		if !ok {
			continue
		}
		c = c.Clone()
		c.TravelTime = r.TravelTime
		c.TravelDistance = r.TravelDistance
		c.Congestion = r.Congestion
		out = append(out, c)
		used[r.ID] = struct{}{}
	}
	for _, c := range current {
		if _, ok := used[c.ID]; !ok {
			out = append(out, c.Clone())
		}
	}
	return out
}
