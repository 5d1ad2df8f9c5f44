package api

import (
	"itinerary-route-service/internal/api/handlers"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"itinerary-route-service/internal/services"
	"net/http"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(sessions *services.Sessions, places ports.PlaceLibrary, metrics *obs.Metrics) http.Handler {
	mux := http.NewServeMux()

	schedule := &handlers.ScheduleHandler{Sessions: sessions}
	placeHandler := &handlers.PlaceHandler{Places: places}
	health := &handlers.HealthHandler{Sessions: sessions}

	mux.HandleFunc("/health", health.Get)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	mux.HandleFunc("GET /places", placeHandler.List)

	mux.HandleFunc("GET /trips/{trip}/activities", schedule.ListTrip)
	mux.HandleFunc("GET /trips/{trip}/days/{day}/activities", schedule.ListDay)
	mux.HandleFunc("POST /trips/{trip}/days/{day}/activities", schedule.Insert)
	mux.HandleFunc("POST /trips/{trip}/days/{day}/reorder", schedule.Reorder)
	mux.HandleFunc("POST /trips/{trip}/days/{day}/optimize", schedule.Optimize)
	mux.HandleFunc("POST /trips/{trip}/days/{day}/traffic", schedule.RefreshTraffic)

	mux.HandleFunc("POST /trips/{trip}/activities/{id}/skip", schedule.ToggleSkip)
	mux.HandleFunc("POST /trips/{trip}/activities/{id}/checkin", schedule.ToggleCheckIn)
	mux.HandleFunc("PUT /trips/{trip}/activities/{id}/time", schedule.EditTime)
	mux.HandleFunc("PUT /trips/{trip}/activities/{id}/buffer", schedule.EditBuffer)
	mux.HandleFunc("DELETE /trips/{trip}/activities/{id}", schedule.Remove)

	mux.HandleFunc("POST /trips/{trip}/undo", schedule.Undo)

	return requestIDMiddleware(loggingMiddleware(metrics, mux))
}
