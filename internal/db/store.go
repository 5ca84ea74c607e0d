package db

import (
	"context"
	"errors"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store is the persistence contract the service layer depends on.
type Store interface {
	CreateChild(ctx context.Context, c *models.Child) error
	GetChild(ctx context.Context, id int64) (*models.Child, error)
	// ListChildren returns children the user owns or cares for.
	ListChildren(ctx context.Context, userID string) ([]models.Child, error)
	GetCaregiverRole(ctx context.Context, childID int64, userID string) (models.Role, error)
	PutCaregiver(ctx context.Context, c models.Caregiver) error

	CreateSession(ctx context.Context, s *models.SleepSession) error
	UpdateSession(ctx context.Context, s *models.SleepSession) error
	DeleteSession(ctx context.Context, childID, sessionID int64) error
	GetSession(ctx context.Context, childID, sessionID int64) (*models.SleepSession, error)
	// ActiveSession returns the child's non-completed session, or ErrNotFound.
	ActiveSession(ctx context.Context, childID int64) (*models.SleepSession, error)
	// ListSessions returns sessions put down in [from, to), oldest first.
	ListSessions(ctx context.Context, childID int64, from, to time.Time) ([]models.SleepSession, error)
	ListCycles(ctx context.Context, sessionID int64) ([]models.SleepCycle, error)
	// ReplaceCycles rewrites every cycle of a session. Cycles with a zero
	// ID are assigned one.
	ReplaceCycles(ctx context.Context, sessionID int64, cycles []models.SleepCycle) ([]models.SleepCycle, error)

	GetSchedule(ctx context.Context, childID int64) (*models.SleepSchedule, error)
	PutSchedule(ctx context.Context, s *models.SleepSchedule) error

	// GetTransition returns the child's most recent transition.
	GetTransition(ctx context.Context, childID int64) (*models.Transition, error)
	SaveTransition(ctx context.Context, t *models.Transition) error

	GetUserTimezone(ctx context.Context, userID string) (string, error)
	SetUserTimezone(ctx context.Context, userID, timezone string) error

	// WithChild runs fn with the child locked. All writes made through the
	// Store passed to fn commit together.
	WithChild(ctx context.Context, childID int64, fn func(tx Store) error) error
	Close() error
}
