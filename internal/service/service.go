// Package service runs naptrack operations on behalf of a user: it checks
// access to the child, locks the child while mutating, drives the sleep
// engine and persists the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/db"
	"github.com/scalecode-solutions/naptrack/internal/models"
)

var validate = validator.New()

// Actor is the user an operation runs for.
type Actor struct {
	UserID string
	// ClaimTZ is the timezone carried in the user's token, if any.
	ClaimTZ string
	// RequestTZ overrides every other timezone source for one request.
	RequestTZ string
}

// Service implements the naptrack operations.
type Service struct {
	store      db.Store
	log        *zap.Logger
	now        func() time.Time
	defaultLoc *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultLocation sets the zone used when a user has none.
func WithDefaultLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.defaultLoc = loc
		}
	}
}

// New creates a Service backed by store.
func New(store db.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:      store,
		log:        log.Named("service"),
		now:        time.Now,
		defaultLoc: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Wrap(apperr.CodeValidation, err, "%s failed %q validation", fe.Namespace(), fe.Tag())
	}
	return apperr.Wrap(apperr.CodeValidation, err, "invalid request")
}

// storeErr turns a store failure into an apperr. db.ErrNotFound becomes
// code; errors that already carry a code pass through.
func storeErr(err error, code apperr.Code, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, db.ErrNotFound):
		return apperr.Wrap(code, err, format, args...)
	case errors.Is(err, db.ErrConflict):
		return apperr.Wrap(apperr.CodeConflict, err, "another session is already in progress")
	}
	return apperr.Wrap(apperr.CodeInternal, err, "storage failure")
}

// authorize returns the child and the actor's role on it. Users without
// access see CHILD_NOT_FOUND so child ids are not disclosed.
func (s *Service) authorize(ctx context.Context, a Actor, childID int64, write bool) (*models.Child, models.Role, error) {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		return nil, "", storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	role := models.RoleAdmin
	if child.OwnerID != a.UserID {
		role, err = s.store.GetCaregiverRole(ctx, childID, a.UserID)
		if err != nil {
			return nil, "", storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
		}
	}
	if write && !role.CanWrite() {
		return nil, "", apperr.New(apperr.CodeForbidden, "%s access cannot modify child %d", role, childID)
	}
	return child, role, nil
}

// location resolves the actor's timezone: request override, stored
// setting, token claim, then the configured default.
func (s *Service) location(ctx context.Context, a Actor) (*time.Location, error) {
	if a.RequestTZ != "" {
		loc, err := time.LoadLocation(a.RequestTZ)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, err, "unknown timezone %q", a.RequestTZ)
		}
		return loc, nil
	}

	stored, err := s.store.GetUserTimezone(ctx, a.UserID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, storeErr(err, apperr.CodeNotFound, "")
	}
	for _, name := range []string{stored, a.ClaimTZ} {
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc, nil
		}
		s.log.Warn("ignoring unknown timezone", zap.String("user_id", a.UserID), zap.String("timezone", name))
	}
	return s.defaultLoc, nil
}

// SetTimezone stores the actor's IANA timezone.
func (s *Service) SetTimezone(ctx context.Context, a Actor, req models.TimezoneRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	if err := s.store.SetUserTimezone(ctx, a.UserID, req.Timezone); err != nil {
		return fmt.Errorf("setting timezone: %w", storeErr(err, apperr.CodeNotFound, ""))
	}
	return nil
}
