package services

import (
	"itinerary-route-service/internal/domain"
	"slices"
)

// GroupByDay partitions a flat activity list into per-day sequences,
// keeping the relative order within each day.
func GroupByDay(activities []domain.Activity) map[int][]domain.Activity {
	out := make(map[int][]domain.Activity)
	for _, a := range activities {
		out[a.DayOffset] = append(out[a.DayOffset], a.Clone())
	}
	return out
}

// Flatten joins per-day sequences back into one list ordered by day.
func Flatten(days map[int][]domain.Activity) []domain.Activity {
	keys := make([]int, 0, len(days))
	n := 0
	for d, acts := range days {
		keys = append(keys, d)
		n += len(acts)
	}
	slices.Sort(keys)

	out := make([]domain.Activity, 0, n)
	for _, d := range keys {
		out = append(out, domain.CloneAll(days[d])...)
	}
	return out
}

// PropagateDay runs Propagate over one day of a flat list and leaves the
// other days untouched.
func PropagateDay(activities []domain.Activity, day int) []domain.Activity {
	days := GroupByDay(activities)
	if seq, ok := days[day]; ok {
		days[day] = Propagate(seq)
	}
	return Flatten(days)
}

func indexOf(day []domain.Activity, id string) int {
	return slices.IndexFunc(day, func(a domain.Activity) bool { return a.ID == id })
}
