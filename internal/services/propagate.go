package services

import "itinerary-route-service/internal/domain"

// Propagate recomputes the start time of every activity in one day's
// ordered sequence and returns the result as a new slice.
//
// The first activity's start is the anchor and is never rewritten. Each later
// activity starts after the previous one's occupancy plus, when it has an
// incoming leg, the travel time and its parking buffer. A skipped activity
// adds no dwell time but its incoming leg still counts. A checked-in activity
// keeps its recorded start and the clock continues from there.
//
// Propagate has no error path and is idempotent.
func Propagate(day []domain.Activity) []domain.Activity {
	out := domain.CloneAll(day)
	if len(out) == 0 {
		return out
	}

	clock := out[0].Start + out[0].Occupancy()

	for i := 1; i < len(out); i++ {
		a := &out[i]

		if a.Status == domain.StatusCheckedIn {
			clock = a.Start
		} else {
			if a.TravelTime != nil {
				clock += nonNegative(*a.TravelTime) + nonNegative(a.Buffer())
			}
			a.Start = clock
		}

		clock += a.Occupancy()
	}

	return out
}

// EndOf returns the minute at which the activity at index i of an already
// propagated day releases the clock.
func EndOf(day []domain.Activity, i int) int {
	return day[i].Start + day[i].Occupancy()
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
