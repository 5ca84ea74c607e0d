package api

import (
	"net/http"

	"github.com/scalecode-solutions/naptrack/internal/models"
)

// sessionPath parses the child and session IDs shared by the session routes.
func sessionPath(r *http.Request) (childID, sessionID int64, err error) {
	if childID, err = pathID(r, "childId"); err != nil {
		return 0, 0, err
	}
	if sessionID, err = pathID(r, "sessionId"); err != nil {
		return 0, 0, err
	}
	return childID, sessionID, nil
}

// CreateSession starts a crib nap or night sleep.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), actor(r), childID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// CreateAdHocSession records a nap outside the crib.
func (h *Handler) CreateAdHocSession(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.AdHocSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.CreateAdHocSession(r.Context(), actor(r), childID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// ListSessions lists sessions put down between the from and to query
// parameters.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), actor(r), childID, from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionsResponse{Sessions: sessions})
}

// GetSession gets a session with its cycles.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	childID, sessionID, err := sessionPath(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.GetSession(r.Context(), actor(r), childID, sessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// UpdateSession applies an event and/or timestamp corrections.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	childID, sessionID, err := sessionPath(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.UpdateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.UpdateSession(r.Context(), actor(r), childID, sessionID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession deletes a session and its cycles.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	childID, sessionID, err := sessionPath(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.svc.DeleteSession(r.Context(), actor(r), childID, sessionID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// Cycle endpoints

// CreateCycle logs a night waking.
func (h *Handler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	childID, sessionID, err := sessionPath(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.CycleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.CreateCycle(r.Context(), actor(r), childID, sessionID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// UpdateCycle edits a night waking.
func (h *Handler) UpdateCycle(w http.ResponseWriter, r *http.Request) {
	childID, sessionID, err := sessionPath(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cycleID, err := pathID(r, "cycleId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.CycleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.UpdateCycle(r.Context(), actor(r), childID, sessionID, cycleID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteCycle removes a night waking and renumbers the rest.
func (h *Handler) DeleteCycle(w http.ResponseWriter, r *http.Request) {
	childID, sessionID, err := sessionPath(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cycleID, err := pathID(r, "cycleId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	sess, err := h.svc.DeleteCycle(r.Context(), actor(r), childID, sessionID, cycleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
