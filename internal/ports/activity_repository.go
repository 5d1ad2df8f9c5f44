package ports

import (
	"context"
	"itinerary-route-service/internal/domain"
)

// Port: a boundary for loading and storing a trip's activities.
type ActivityRepository interface {
	// Return every activity of a trip, grouped by day and in sequence order.
	ListActivities(ctx context.Context, tripID string) ([]domain.Activity, error)
	// Replace the stored sequence of one day with activities.
	SaveDay(ctx context.Context, tripID string, day int, activities []domain.Activity) error
}
