package domain

import (
	"fmt"
	"strings"
)

// Place ids generated locally for links that never resolved to a real place.
var placeholderPrefixes = []string{"unresolved:", "local:"}

// Waypoint is a location reference understood by the routing provider:
// either a provider place id or a coordinate pair.
type Waypoint struct {
	PlaceID  string
	Location *Coordinates
}

// Key returns a stable identifier suitable for cache lookups.
func (w Waypoint) Key() string {
	if w.PlaceID != "" {
		return "place:" + w.PlaceID
	}
	if w.Location != nil {
		return "ll:" + w.Location.Key()
	}
	return ""
}

// IsPlaceholderPlaceID reports whether id is empty or a local sentinel.
func IsPlaceholderPlaceID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return true
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// BuildWaypoint maps an activity to a waypoint. A real place id wins over
// coordinates. ok is false when the activity cannot take part in routing.
func BuildWaypoint(a Activity) (Waypoint, bool) {
	if !IsPlaceholderPlaceID(a.PlaceID) {
		return Waypoint{PlaceID: strings.TrimSpace(a.PlaceID)}, true
	}

	if a.Lat != nil && a.Lng != nil {
		c := Coordinates{Lat: *a.Lat, Lng: *a.Lng}
		if c.Valid() {
			return Waypoint{Location: &c}, true
		}
	}

	return Waypoint{}, false
}

// UnresolvedError lists activities that have neither a place id nor coordinates.
type UnresolvedError struct {
	Activities []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolvable location for: %s", strings.Join(e.Activities, ", "))
}

// BuildWaypoints resolves every activity or fails as a whole. Dropping a stop
// would shift the provider's index space away from ours.
func BuildWaypoints(activities []Activity) ([]Waypoint, error) {
	out := make([]Waypoint, 0, len(activities))
	var missing []string
	for _, a := range activities {
		wp, ok := BuildWaypoint(a)
		if !ok {
			missing = append(missing, a.Label())
			continue
		}
		out = append(out, wp)
	}

	if len(missing) > 0 {
		return nil, &UnresolvedError{Activities: missing}
	}
	return out, nil
}
