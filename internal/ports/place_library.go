package ports

import (
	"context"
	"errors"
	"itinerary-route-service/internal/domain"
)

var ErrPlaceNotFound = errors.New("place not found")

// Port: read-only library of reusable places that can be copied into a day.
// Returned activities already carry a resolved place id or coordinates.
type PlaceLibrary interface {
	ListPlaces(ctx context.Context) ([]domain.Activity, error)
	// Return the place or ErrPlaceNotFound.
	GetPlace(ctx context.Context, id string) (domain.Activity, error)
}
