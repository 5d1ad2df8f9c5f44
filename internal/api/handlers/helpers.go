package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"itinerary-route-service/internal/api/dto"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"itinerary-route-service/internal/services"
	"log"
	"net/http"
	"strconv"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object from the body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func pathDay(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil || day < 0 {
		writeError(w, r, http.StatusBadRequest, "day must be a non-negative integer")
		return 0, false
	}
	return day, true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var unresolved *domain.UnresolvedError
	var provider *services.ProviderError

	switch {
	case errors.Is(err, services.ErrActivityNotFound), errors.Is(err, ports.ErrPlaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, services.ErrOptimizeInFlight), errors.Is(err, services.ErrRefreshInFlight):
		return http.StatusAccepted
	case errors.As(err, &unresolved):
		return http.StatusUnprocessableEntity
	case errors.As(err, &provider):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrNoOptimizer):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusAccepted:
		writeJSON(w, r, status, dto.StatusResponse{Status: "in_flight"})
	case http.StatusInternalServerError:
		log.Printf("req_id=%s %s failed: %v", obs.RequestID(r.Context()), op, err)
		writeError(w, r, status, "internal server error")
	default:
		writeError(w, r, status, err.Error())
	}
}
