package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the HTTP routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, h.LoggingMiddleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// API routes (all require authentication)
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(h.AuthMiddleware)

	apiRouter.HandleFunc("/me/timezone", h.SetTimezone).Methods("PUT")

	// Children
	apiRouter.HandleFunc("/children", h.ListChildren).Methods("GET")
	apiRouter.HandleFunc("/children", h.CreateChild).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}", h.GetChild).Methods("GET")
	apiRouter.HandleFunc("/children/{childId}/caregivers/{userId}", h.GrantAccess).Methods("PUT")

	// Sessions; adhoc is registered before {sessionId} so it is not taken as an ID
	apiRouter.HandleFunc("/children/{childId}/sessions", h.ListSessions).Methods("GET")
	apiRouter.HandleFunc("/children/{childId}/sessions", h.CreateSession).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}/sessions/adhoc", h.CreateAdHocSession).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}/sessions/{sessionId}", h.GetSession).Methods("GET")
	apiRouter.HandleFunc("/children/{childId}/sessions/{sessionId}", h.UpdateSession).Methods("PATCH")
	apiRouter.HandleFunc("/children/{childId}/sessions/{sessionId}", h.DeleteSession).Methods("DELETE")

	// Cycles
	apiRouter.HandleFunc("/children/{childId}/sessions/{sessionId}/cycles", h.CreateCycle).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}/sessions/{sessionId}/cycles/{cycleId}", h.UpdateCycle).Methods("PUT")
	apiRouter.HandleFunc("/children/{childId}/sessions/{sessionId}/cycles/{cycleId}", h.DeleteCycle).Methods("DELETE")

	// Schedule and advice
	apiRouter.HandleFunc("/children/{childId}/schedule", h.GetSchedule).Methods("GET")
	apiRouter.HandleFunc("/children/{childId}/schedule", h.PutSchedule).Methods("PUT")
	apiRouter.HandleFunc("/children/{childId}/schedule/day", h.DaySchedule).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}/next-action", h.NextAction).Methods("GET")
	apiRouter.HandleFunc("/children/{childId}/today", h.Today).Methods("GET")

	// Transition
	apiRouter.HandleFunc("/children/{childId}/transition", h.GetTransition).Methods("GET")
	apiRouter.HandleFunc("/children/{childId}/transition", h.StartTransition).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}/transition/pace", h.AdjustPace).Methods("PUT")
	apiRouter.HandleFunc("/children/{childId}/transition/advance", h.AdvanceTransition).Methods("POST")
	apiRouter.HandleFunc("/children/{childId}/transition/complete", h.CompleteTransition).Methods("POST")

	return r
}
