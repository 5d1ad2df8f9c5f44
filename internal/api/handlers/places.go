package handlers

import (
	"itinerary-route-service/internal/api/dto"
	"itinerary-route-service/internal/ports"
	"log"
	"net/http"
)

// PlaceHandler exposes the read-only place library.
type PlaceHandler struct {
	Places ports.PlaceLibrary
}

func (h *PlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	places, err := h.Places.ListPlaces(r.Context())
	if err != nil {
		log.Printf("list places failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListPlacesResponse{Places: dto.FromDomainAll(places)})
}
