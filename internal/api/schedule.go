package api

import (
	"context"
	"net/http"

	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/schedule"
	"github.com/scalecode-solutions/naptrack/internal/service"
)

// Schedule endpoints

// GetSchedule gets the child's stored schedule.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sched, err := h.svc.GetSchedule(r.Context(), actor(r), childID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// PutSchedule replaces the child's schedule.
func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sched, err := h.svc.PutSchedule(r.Context(), actor(r), childID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// DaySchedule plans a day from a given wake time.
func (h *Handler) DaySchedule(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.DayScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rec, err := h.svc.DaySchedule(r.Context(), actor(r), childID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// NextAction tells the caregiver what to do now.
func (h *Handler) NextAction(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rec, err := h.svc.NextAction(r.Context(), actor(r), childID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Today summarizes the child's day so far.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sum, err := h.svc.TodaySummary(r.Context(), actor(r), childID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Transition endpoints

// GetTransition gets the latest two-to-one transition.
func (h *Handler) GetTransition(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.svc.GetTransition(r.Context(), actor(r), childID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// StartTransition begins the move to one nap.
func (h *Handler) StartTransition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusCreated, h.svc.StartTransition)
}

// AdvanceTransition moves the transition forward a week.
func (h *Handler) AdvanceTransition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.svc.AdvanceTransition)
}

// CompleteTransition ends the transition now.
func (h *Handler) CompleteTransition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.svc.CompleteTransition)
}

// AdjustPace changes the transition's target length in weeks.
func (h *Handler) AdjustPace(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.PaceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.svc.AdjustPace(r.Context(), actor(r), childID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type transitionOp func(ctx context.Context, a service.Actor, childID int64) (*schedule.TransitionProgress, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, status int, op transitionOp) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := op(r.Context(), actor(r), childID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, p)
}
