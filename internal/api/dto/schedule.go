package dto

type DayResponse struct {
	TripID     string        `json:"trip_id"`
	Day        int           `json:"day"`
	Activities []ActivityDTO `json:"activities"`
	// Route geometry as [lat, lng] pairs; only set by optimize.
	Geometry [][2]float64 `json:"geometry,omitempty"`
	// Non-blocking message, e.g. when optimization fell back to the old order.
	Notice     string   `json:"notice,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type TripResponse struct {
	TripID     string        `json:"trip_id"`
	Activities []ActivityDTO `json:"activities"`
}

type ListPlacesResponse struct {
	Places []ActivityDTO `json:"places"`
}

type InsertRequest struct {
	Index    int          `json:"index"`
	Activity *ActivityDTO `json:"activity,omitempty"`
	PlaceID  string       `json:"place_id,omitempty"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type EditTimeRequest struct {
	Time string `json:"time"`
}

type EditBufferRequest struct {
	Minutes int `json:"minutes"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
