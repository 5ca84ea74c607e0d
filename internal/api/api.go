// Package api provides HTTP handlers for naptrack.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/auth"
	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/service"
)

type contextKey string

const userContextKey contextKey = "user"

// maxBodyBytes caps request bodies; no naptrack request comes close.
const maxBodyBytes = 1 << 20

// Handler provides HTTP handlers for the API.
type Handler struct {
	svc  *service.Service
	auth *auth.Authenticator
	log  *zap.Logger
}

// New creates a new API handler.
func New(svc *service.Service, authenticator *auth.Authenticator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:  svc,
		auth: authenticator,
		log:  log.Named("api"),
	}
}

// AuthMiddleware validates JWT tokens.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		userInfo, err := h.auth.ValidateToken(parts[1])
		if err != nil {
			h.log.Info("token rejected",
				zap.String("request_id", RequestID(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", tokenMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tokenMessage reduces a validation failure to its sentinel text; parser
// detail stays in the log.
func tokenMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return auth.ErrExpiredToken.Error()
	case errors.Is(err, auth.ErrMalformed):
		return auth.ErrMalformed.Error()
	default:
		return auth.ErrInvalidToken.Error()
	}
}

func getUserInfo(r *http.Request) *auth.UserInfo {
	return r.Context().Value(userContextKey).(*auth.UserInfo)
}

// actor builds the service caller. A tz query parameter wins over the
// X-Timezone header.
func actor(r *http.Request) service.Actor {
	user := getUserInfo(r)
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = r.Header.Get("X-Timezone")
	}
	return service.Actor{
		UserID:    user.UserID,
		ClaimTZ:   user.Timezone,
		RequestTZ: tz,
	}
}

// Children endpoints

// CreateChild registers a child owned by the caller.
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req models.ChildRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	child, err := h.svc.CreateChild(r.Context(), actor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

// ListChildren lists every child the caller can see.
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.svc.ListChildren(r.Context(), actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChildrenResponse{Children: children})
}

// GetChild gets one child with the caller's role.
func (h *Handler) GetChild(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	child, err := h.svc.GetChild(r.Context(), actor(r), childID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// GrantAccess gives another user a role on the child.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req models.CaregiverRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	cg, err := h.svc.GrantAccess(r.Context(), actor(r), childID, mux.Vars(r)["userId"], req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cg)
}

// SetTimezone stores the caller's timezone.
func (h *Handler) SetTimezone(w http.ResponseWriter, r *http.Request) {
	var req models.TimezoneRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.svc.SetTimezone(r.Context(), actor(r), req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TimezoneResponse{Timezone: req.Timezone})
}

// Helper functions

// pathID parses a numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.CodeValidation, "Invalid %s", name)
	}
	return id, nil
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.New(apperr.CodeValidation, "%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeValidation, "Request body is required")
		}
		return apperr.Wrap(apperr.CodeValidation, err, "Invalid request body: %v", err)
	}
	return nil
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound, apperr.CodeSessionNotFound, apperr.CodeCycleNotFound,
		apperr.CodeScheduleNotFound, apperr.CodeChildNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidStateTransition, apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error onto the error envelope. Internal
// failures are logged and their cause is not echoed to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, string(apperr.CodeInternal), "Internal server error")
		return
	}
	writeError(w, status, string(code), apperr.Message(err))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	resp := models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
	writeJSON(w, status, resp)
}
