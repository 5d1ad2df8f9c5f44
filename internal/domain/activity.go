package domain

// Status governs whether an activity's own duration occupies the day's clock.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCheckedIn Status = "checked_in"
	StatusSkipped   Status = "skipped"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCheckedIn, StatusSkipped:
		return true
	}
	return false
}

// Congestion is the traffic level of the leg leading into an activity.
// The zero value means "not computed yet".
type Congestion string

const (
	CongestionUnknown  Congestion = ""
	CongestionLow      Congestion = "low"
	CongestionModerate Congestion = "moderate"
	CongestionHigh     Congestion = "high"
)

// TravelMode is informational only and never enters the schedule math.
type TravelMode string

const (
	TravelDrive   TravelMode = "drive"
	TravelWalk    TravelMode = "walk"
	TravelTransit TravelMode = "transit"
)

// DefaultParkingBuffer is added after every travel leg when an activity
// carries no explicit buffer.
const DefaultParkingBuffer = 10

// Activity is a single stop within a trip day.
//
// Times and durations are whole minutes. Start is minutes since midnight.
// TravelTime and TravelDistance describe the leg from the previous activity
// in the day's sequence and are nil for the first activity. Position in the
// day's slice is the authoritative order.
type Activity struct {
	ID        string
	Name      string
	DayOffset int

	Start    int
	Duration int

	TravelTime     *int
	TravelDistance *int
	TravelMode     TravelMode
	Congestion     Congestion
	ParkingBuffer  *int

	Status Status
	// CheckedInFrom holds the scheduled start an activity had before check-in.
	CheckedInFrom *int

	IsStart bool
	IsEnd   bool

	PlaceID string
	Lat     *float64
	Lng     *float64
}

// Buffer returns the parking buffer in minutes, applying the default.
func (a Activity) Buffer() int {
	if a.ParkingBuffer == nil {
		return DefaultParkingBuffer
	}
	return *a.ParkingBuffer
}

// Occupancy is how long the activity holds the clock once started.
// Skipped activities keep no dwell time.
func (a Activity) Occupancy() int {
	if a.Status == StatusSkipped || a.Duration < 0 {
		return 0
	}
	return a.Duration
}

// Label names the activity for user-facing messages.
func (a Activity) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Clone returns a deep copy; pointer fields are never shared between copies.
func (a Activity) Clone() Activity {
	out := a
	out.TravelTime = copyInt(a.TravelTime)
	out.TravelDistance = copyInt(a.TravelDistance)
	out.ParkingBuffer = copyInt(a.ParkingBuffer)
	out.CheckedInFrom = copyInt(a.CheckedInFrom)
	out.Lat = copyFloat(a.Lat)
	out.Lng = copyFloat(a.Lng)
	return out
}

// CloneAll deep-copies a slice of activities.
func CloneAll(in []Activity) []Activity {
	if in == nil {
		return nil
	}
	out := make([]Activity, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// IntPtr is a small helper for the optional minute and meter fields.
func IntPtr(v int) *int { return &v }

// FloatPtr is a small helper for optional coordinates.
func FloatPtr(v float64) *float64 { return &v }

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
