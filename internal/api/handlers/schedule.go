package handlers

import (
	"errors"
	"itinerary-route-service/internal/api/dto"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/services"
	"log"
	"net/http"
)

// ScheduleHandler exposes the schedule mutator of each trip.
type ScheduleHandler struct {
	Sessions *services.Sessions
}

func (h *ScheduleHandler) mutator(w http.ResponseWriter, r *http.Request) (*services.Mutator, bool) {
	m, err := h.Sessions.Get(r.Context(), r.PathValue("trip"))
	if err != nil {
		writeServiceError(w, r, "load trip", err)
		return nil, false
	}
	return m, true
}

func (h *ScheduleHandler) writeDay(w http.ResponseWriter, r *http.Request, day int, acts []domain.Activity) {
	writeJSON(w, r, http.StatusOK, dto.DayResponse{
		TripID:     r.PathValue("trip"),
		Day:        day,
		Activities: dto.FromDomainAll(acts),
	})
}

// writeActivityDay answers with the day that now holds the activity.
func (h *ScheduleHandler) writeActivityDay(w http.ResponseWriter, r *http.Request, m *services.Mutator, id string) {
	for _, a := range m.Activities() {
		if a.ID == id {
			h.writeDay(w, r, a.DayOffset, m.Day(a.DayOffset))
			return
		}
	}
	writeServiceError(w, r, "find activity", services.ErrActivityNotFound)
}

func (h *ScheduleHandler) ListTrip(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.TripResponse{
		TripID:     r.PathValue("trip"),
		Activities: dto.FromDomainAll(m.Activities()),
	})
}

func (h *ScheduleHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}
	h.writeDay(w, r, day, m.Day(day))
}

func (h *ScheduleHandler) Insert(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}

	var req dto.InsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if (req.Activity == nil) == (req.PlaceID == "") {
		writeError(w, r, http.StatusBadRequest, "exactly one of activity or place_id is required")
		return
	}

	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	var acts []domain.Activity
	var err error
	if req.PlaceID != "" {
		acts, err = m.InstantiatePlace(r.Context(), day, req.Index, req.PlaceID)
	} else {
		acts, err = m.Insert(day, req.Index, req.Activity.ToDomain())
	}
	if err != nil {
		writeServiceError(w, r, "insert activity", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.DayResponse{
		TripID:     r.PathValue("trip"),
		Day:        day,
		Activities: dto.FromDomainAll(acts),
	})
}

func (h *ScheduleHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}

	var req dto.ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	acts, err := m.Reorder(day, req.From, req.To)
	if err != nil {
		writeServiceError(w, r, "reorder", err)
		return
	}
	h.writeDay(w, r, day, acts)
}

// Optimize reorders the day through the routing provider. A provider or
// location failure leaves the day unchanged and is reported as a notice
// next to the unchanged activities.
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	res, err := m.Optimize(r.Context(), day)
	if err == nil {
		writeJSON(w, r, http.StatusOK, dto.DayResponse{
			TripID:     r.PathValue("trip"),
			Day:        day,
			Activities: dto.FromDomainAll(res.Activities),
			Geometry:   res.Geometry,
		})
		return
	}

	var unresolved *domain.UnresolvedError
	var provider *services.ProviderError
	switch {
	case errors.As(err, &unresolved):
		writeJSON(w, r, http.StatusUnprocessableEntity, dto.DayResponse{
			TripID:     r.PathValue("trip"),
			Day:        day,
			Activities: dto.FromDomainAll(res.Activities),
			Notice:     "Some activities have no location and could not be routed.",
			Unresolved: unresolved.Activities,
		})
	case errors.As(err, &provider):
		log.Printf("req_id=%s optimize fell back: trip=%s day=%d err=%v",
			obs.RequestID(r.Context()), r.PathValue("trip"), day, err)
		writeJSON(w, r, http.StatusBadGateway, dto.DayResponse{
			TripID:     r.PathValue("trip"),
			Day:        day,
			Activities: dto.FromDomainAll(res.Activities),
			Notice:     "Routing is unavailable right now; the current order was kept.",
		})
	default:
		writeServiceError(w, r, "optimize", err)
	}
}

func (h *ScheduleHandler) RefreshTraffic(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	if err := m.RefreshTraffic(r.Context(), day); err != nil {
		writeServiceError(w, r, "refresh traffic", err)
		return
	}
	h.writeDay(w, r, day, m.Day(day))
}

// ToggleSkip answers as soon as the day is re-propagated; the traffic
// refresh it starts finishes in the background.
func (h *ScheduleHandler) ToggleSkip(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	done, err := m.ToggleSkip(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "toggle skip", err)
		return
	}

	reqID := obs.RequestID(r.Context())
	go func() {
		if err := <-done; err != nil && !errors.Is(err, services.ErrRefreshInFlight) {
			log.Printf("req_id=%s traffic refresh after skip failed: id=%s err=%v", reqID, id, err)
		}
	}()

	h.writeActivityDay(w, r, m, id)
}

func (h *ScheduleHandler) ToggleCheckIn(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, err := m.ToggleCheckIn(id); err != nil {
		writeServiceError(w, r, "toggle check-in", err)
		return
	}
	h.writeActivityDay(w, r, m, id)
}

func (h *ScheduleHandler) EditTime(w http.ResponseWriter, r *http.Request) {
	var req dto.EditTimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	minutes, valid := domain.ParseTimeStrict(req.Time)
	if !valid {
		writeError(w, r, http.StatusBadRequest, `time must look like "9:30 AM" or "14:30"`)
		return
	}

	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, err := m.EditTime(id, minutes); err != nil {
		writeServiceError(w, r, "edit time", err)
		return
	}
	h.writeActivityDay(w, r, m, id)
}

func (h *ScheduleHandler) EditBuffer(w http.ResponseWriter, r *http.Request) {
	var req dto.EditBufferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, err := m.EditBuffer(id, req.Minutes); err != nil {
		writeServiceError(w, r, "edit buffer", err)
		return
	}
	h.writeActivityDay(w, r, m, id)
}

func (h *ScheduleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	if _, err := m.Remove(r.PathValue("id")); err != nil {
		writeServiceError(w, r, "remove activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) Undo(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mutator(w, r)
	if !ok {
		return
	}

	if err := m.Undo(); err != nil {
		writeServiceError(w, r, "undo", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.TripResponse{
		TripID:     r.PathValue("trip"),
		Activities: dto.FromDomainAll(m.Activities()),
	})
}
