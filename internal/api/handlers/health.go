package handlers

import (
	"itinerary-route-service/internal/services"
	"net/http"
)

// HealthHandler is a liveness check that also reports how many trips are
// held in memory.
type HealthHandler struct {
	Sessions *services.Sessions
}

type healthResponse struct {
	Status    string `json:"status"`
	OpenTrips int    `json:"open_trips"`
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := healthResponse{Status: "ok"}
	if h.Sessions != nil {
		res.OpenTrips = h.Sessions.Open()
	}
	writeJSON(w, r, http.StatusOK, res)
}
