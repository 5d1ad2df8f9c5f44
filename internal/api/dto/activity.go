package dto

import (
	"itinerary-route-service/internal/domain"
	"strings"
)

// ActivityDTO is the wire and fixture form of an activity. Times and
// durations travel as display strings ("9:00 AM", "1h 30m").
type ActivityDTO struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	DayOffset int    `json:"day_offset" yaml:"day_offset"`

	Time     string `json:"time" yaml:"time"`
	Duration string `json:"duration" yaml:"duration"`

	TravelTime           string `json:"travel_time,omitempty" yaml:"travel_time,omitempty"`
	TravelDistanceMeters *int   `json:"travel_distance_meters,omitempty" yaml:"travel_distance_meters,omitempty"`
	TravelMode           string `json:"travel_mode,omitempty" yaml:"travel_mode,omitempty"`
	Congestion           string `json:"congestion,omitempty" yaml:"congestion,omitempty"`
	ParkingBuffer        *int   `json:"parking_buffer,omitempty" yaml:"parking_buffer,omitempty"`

	Status        string `json:"status" yaml:"status,omitempty"`
	CheckedInFrom string `json:"checked_in_from,omitempty" yaml:"checked_in_from,omitempty"`

	IsStart bool `json:"is_start,omitempty" yaml:"is_start,omitempty"`
	IsEnd   bool `json:"is_end,omitempty" yaml:"is_end,omitempty"`

	PlaceID string   `json:"place_id,omitempty" yaml:"place_id,omitempty"`
	Lat     *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty" yaml:"lng,omitempty"`
}

// ToDomain parses the display strings. Bad times fall back to 9:00 AM, a
// bad duration to 60 minutes, and a blank travel time means no incoming leg.
func (d ActivityDTO) ToDomain() domain.Activity {
	a := domain.Activity{
		ID:             strings.TrimSpace(d.ID),
		Name:           d.Name,
		DayOffset:      d.DayOffset,
		Start:          domain.ParseTime(d.Time),
		Duration:       domain.ParseDuration(d.Duration, domain.DefaultActivityDuration),
		TravelDistance: d.TravelDistanceMeters,
		TravelMode:     domain.TravelMode(strings.ToLower(d.TravelMode)),
		Congestion:     domain.Congestion(strings.ToLower(d.Congestion)),
		ParkingBuffer:  d.ParkingBuffer,
		Status:         domain.Status(strings.ToLower(d.Status)),
		IsStart:        d.IsStart,
		IsEnd:          d.IsEnd,
		PlaceID:        strings.TrimSpace(d.PlaceID),
		Lat:            d.Lat,
		Lng:            d.Lng,
	}

	if strings.TrimSpace(d.TravelTime) != "" {
		a.TravelTime = domain.IntPtr(domain.ParseDuration(d.TravelTime, domain.NoTravel))
	}
	if !a.Status.Valid() {
		a.Status = domain.StatusScheduled
	}
	if a.Status == domain.StatusCheckedIn && d.CheckedInFrom != "" {
		a.CheckedInFrom = domain.IntPtr(domain.ParseTime(d.CheckedInFrom))
	}

	return a.Clone()
}

func FromDomain(a domain.Activity) ActivityDTO {
	d := ActivityDTO{
		ID:                   a.ID,
		Name:                 a.Name,
		DayOffset:            a.DayOffset,
		Time:                 domain.FormatTime(a.Start),
		Duration:             domain.FormatDuration(a.Duration),
		TravelDistanceMeters: a.TravelDistance,
		TravelMode:           string(a.TravelMode),
		Congestion:           string(a.Congestion),
		ParkingBuffer:        a.ParkingBuffer,
		Status:               string(a.Status),
		IsStart:              a.IsStart,
		IsEnd:                a.IsEnd,
		PlaceID:              a.PlaceID,
		Lat:                  a.Lat,
		Lng:                  a.Lng,
	}
	if a.TravelTime != nil {
		d.TravelTime = domain.FormatDuration(*a.TravelTime)
	}
	if a.CheckedInFrom != nil {
		d.CheckedInFrom = domain.FormatTime(*a.CheckedInFrom)
	}
	return d
}

func FromDomainAll(in []domain.Activity) []ActivityDTO {
	out := make([]ActivityDTO, 0, len(in))
	for _, a := range in {
		out = append(out, FromDomain(a))
	}
	return out
}

func ToDomainAll(in []ActivityDTO) []domain.Activity {
	out := make([]domain.Activity, 0, len(in))
	for _, d := range in {
		out = append(out, d.ToDomain())
	}
	return out
}
