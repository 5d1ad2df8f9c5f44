package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"itinerary-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedDay struct {
	trip string
	day  int
	acts []domain.Activity
}

type fakeRepo struct {
	mu      sync.Mutex
	trips   map[string][]domain.Activity
	loads   int
	saves   []savedDay
	loadErr error
	saveErr error
	// gates holds a trip's load until the channel is closed.
	gates map[string]chan struct{}
}

func (r *fakeRepo) ListActivities(_ context.Context, tripID string) ([]domain.Activity, error) {
	r.mu.Lock()
	r.loads++
	gate := r.gates[tripID]
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return domain.CloneAll(r.trips[tripID]), nil
}

func (r *fakeRepo) SaveDay(_ context.Context, tripID string, day int, acts []domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, savedDay{trip: tripID, day: day, acts: acts})
	return r.saveErr
}

func TestSessionsLoadOnceAndPersistChanges(t *testing.T) {
	repo := &fakeRepo{trips: map[string][]domain.Activity{"rome": tripFixture()}}
	s := NewSessions(repo, nil, nil, nil)

	m, err := s.Get(context.Background(), "rome")
	require.NoError(t, err)
	again, err := s.Get(context.Background(), "rome")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, 1, repo.loads)

	_, err = m.Remove("cafe")
	require.NoError(t, err)

	require.Len(t, repo.saves, 1)
	assert.Equal(t, "rome", repo.saves[0].trip)
	assert.Equal(t, 0, repo.saves[0].day)
	assert.Equal(t, []string{"start", "museum", "end"}, ids(repo.saves[0].acts))
}

func TestSessionsSaveFailureDoesNotBlockEdit(t *testing.T) {
	repo := &fakeRepo{trips: map[string][]domain.Activity{"rome": tripFixture()}, saveErr: errors.New("disk full")}
	s := NewSessions(repo, nil, nil, nil)

	m, err := s.Get(context.Background(), "rome")
	require.NoError(t, err)

	out, err := m.EditBuffer("museum", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, *out[1].ParkingBuffer)
}

func TestSessionsForgetReloads(t *testing.T) {
	repo := &fakeRepo{trips: map[string][]domain.Activity{}}
	s := NewSessions(repo, nil, nil, nil)

	_, err := s.Get(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Open())
	s.Forget("empty")
	assert.Equal(t, 0, s.Open())
	_, err = s.Get(context.Background(), "empty")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.loads)
}

func TestSessionsLoadError(t *testing.T) {
	repo := &fakeRepo{loadErr: errors.New("connection refused")}
	s := NewSessions(repo, nil, nil, nil)

	_, err := s.Get(context.Background(), "rome")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `load trip "rome"`)

	repo.loadErr = nil
	_, err = s.Get(context.Background(), "rome")
	assert.NoError(t, err, "failed loads are not cached")
}

func TestSessionsSlowLoadDoesNotBlockOtherTrips(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeRepo{
		trips: map[string][]domain.Activity{"rome": tripFixture(), "oslo": tripFixture()},
		gates: map[string]chan struct{}{"rome": gate},
	}
	s := NewSessions(repo, nil, nil, nil)

	slow := make(chan *Mutator, 2)
	for i := 0; i < 2; i++ {
		go func() {
			m, err := s.Get(context.Background(), "rome")
			assert.NoError(t, err)
			slow <- m
		}()
	}
	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.loads == 2
	}, time.Second, 5*time.Millisecond)

	fast := make(chan error, 1)
	go func() {
		_, err := s.Get(context.Background(), "oslo")
		fast <- err
	}()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loading one trip blocked another")
	}

	close(gate)
	first, second := <-slow, <-slow
	assert.Same(t, first, second, "racing loads share one mutator")
	assert.Equal(t, 2, s.Open())
}
