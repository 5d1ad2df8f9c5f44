package services

import (
	"context"
	"fmt"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/clock"
	"itinerary-route-service/internal/ports"
	"log"
	"sync"
	"time"
)

const saveTimeout = 5 * time.Second

// Sessions keeps one Mutator per trip, loading it from the repository on
// first use and writing every changed day back.
type Sessions struct {
	repo      ports.ActivityRepository
	optimizer Optimizer
	places    ports.PlaceLibrary
	clock     clock.Clock

	mu    sync.Mutex
	trips map[string]*Mutator
}

func NewSessions(
	repo ports.ActivityRepository,
	optimizer Optimizer,
	places ports.PlaceLibrary,
	clk clock.Clock,
) *Sessions {
	return &Sessions{
		repo:      repo,
		optimizer: optimizer,
		places:    places,
		clock:     clk,
		trips:     make(map[string]*Mutator),
	}
}

// Get returns the trip's mutator, loading the trip if needed. Loads run
// outside the registry lock; when two loads of one trip race, the first
// stored mutator wins.
func (s *Sessions) Get(ctx context.Context, tripID string) (*Mutator, error) {
	s.mu.Lock()
	m, ok := s.trips[tripID]
	s.mu.Unlock()
	if ok {
		return m, nil
	}

	activities, err := s.repo.ListActivities(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load trip %q: %w", tripID, err)
	}

	m = NewMutator(activities, s.optimizer, s.places, s.clock)
	m.OnChange = func(day int, acts []domain.Activity) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.repo.SaveDay(ctx, tripID, day, acts); err != nil {
			log.Printf("save day failed: trip=%s day=%d err=%v", tripID, day, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.trips[tripID]; ok {
		return existing, nil
	}
	s.trips[tripID] = m
	return m, nil
}

// Forget drops a cached trip so the next Get reloads it.
func (s *Sessions) Forget(tripID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trips, tripID)
}

// Open reports how many trips are loaded.
func (s *Sessions) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips)
}
