package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/db"
	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/sleep"
)

// defaultListRange is how far back ListSessions looks when no range is given.
const defaultListRange = 7 * 24 * time.Hour

// CreateSession puts the child down for a nap or the night.
func (s *Service) CreateSession(ctx context.Context, a Actor, childID int64, req models.CreateSessionRequest) (*models.SessionResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}

	putDown := s.now()
	if req.PutDownAt != nil {
		putDown = *req.PutDownAt
	}
	sess, err := sleep.NewSession(childID, a.UserID, req.SessionType, req.NapNumber, putDown)
	if err != nil {
		return nil, err
	}
	if err := s.insertSession(ctx, &sess); err != nil {
		return nil, err
	}
	s.log.Debug("session created",
		zap.Int64("child_id", childID),
		zap.Int64("session_id", sess.ID),
		zap.String("type", string(sess.SessionType)),
	)
	return &models.SessionResponse{SleepSession: sess, Cycles: []models.SleepCycle{}}, nil
}

// CreateAdHocSession records sleep that happened outside the crib.
func (s *Service) CreateAdHocSession(ctx context.Context, a Actor, childID int64, req models.AdHocSessionRequest) (*models.SessionResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}

	sess, err := sleep.NewAdHocSession(childID, a.UserID, req.Location, req.AsleepAt, req.WokeUpAt, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.insertSession(ctx, &sess); err != nil {
		return nil, err
	}
	s.log.Debug("ad-hoc session created",
		zap.Int64("child_id", childID),
		zap.Int64("session_id", sess.ID),
		zap.String("location", string(sess.Location)),
	)
	return &models.SessionResponse{SleepSession: sess, Cycles: []models.SleepCycle{}}, nil
}

// insertSession stores sess unless it would be a second active session.
func (s *Service) insertSession(ctx context.Context, sess *models.SleepSession) error {
	err := s.store.WithChild(ctx, sess.ChildID, func(tx db.Store) error {
		if sess.Active() {
			active, err := tx.ActiveSession(ctx, sess.ChildID)
			if err == nil {
				return apperr.New(apperr.CodeConflict, "session %d is still in progress", active.ID)
			}
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}
		}
		return tx.CreateSession(ctx, sess)
	})
	return storeErr(err, apperr.CodeChildNotFound, "child %d not found", sess.ChildID)
}

// UpdateSession applies timestamp corrections, then an event, then the
// caregiver-entered fields, all under the child lock.
func (s *Service) UpdateSession(ctx context.Context, a Actor, childID, sessionID int64, req models.UpdateSessionRequest) (*models.SessionResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	corr := sleep.Correction{
		PutDownAt:   req.PutDownAt,
		AsleepAt:    req.AsleepAt,
		WokeUpAt:    req.WokeUpAt,
		OutOfCribAt: req.OutOfCribAt,
	}
	if req.Event == nil && corr.Empty() && req.CryingMinutes == nil && req.Notes == nil {
		return nil, apperr.New(apperr.CodeValidation, "nothing to update")
	}
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}

	return s.mutateSession(ctx, childID, sessionID, func(sess models.SleepSession, cycles []models.SleepCycle) (sleep.Result, error) {
		res := sleep.Result{Session: sess, Cycles: cycles}
		var err error
		if !corr.Empty() {
			if res, err = sleep.ApplyCorrection(res.Session, res.Cycles, corr); err != nil {
				return res, err
			}
		}
		if req.Event != nil {
			at := s.now()
			if req.At != nil {
				at = *req.At
			}
			if res, err = sleep.ApplyEvent(res.Session, res.Cycles, *req.Event, at); err != nil {
				return res, err
			}
		}
		if req.CryingMinutes != nil {
			res.Session.CryingMinutes = req.CryingMinutes
		}
		if req.Notes != nil {
			res.Session.Notes = req.Notes
		}
		return res, nil
	})
}

// mutateSession re-reads the session under the child lock, applies fn and
// writes the session and its full cycle list back.
func (s *Service) mutateSession(ctx context.Context, childID, sessionID int64, fn func(models.SleepSession, []models.SleepCycle) (sleep.Result, error)) (*models.SessionResponse, error) {
	var out models.SessionResponse
	err := s.store.WithChild(ctx, childID, func(tx db.Store) error {
		sess, err := tx.GetSession(ctx, childID, sessionID)
		if err != nil {
			return storeErr(err, apperr.CodeSessionNotFound, "session %d not found", sessionID)
		}
		cycles, err := tx.ListCycles(ctx, sessionID)
		if err != nil {
			return err
		}

		res, err := fn(*sess, cycles)
		if err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, &res.Session); err != nil {
			return err
		}
		saved, err := tx.ReplaceCycles(ctx, sessionID, res.Cycles)
		if err != nil {
			return err
		}

		if sess.State != res.Session.State {
			s.log.Debug("session transition",
				zap.Int64("child_id", childID),
				zap.Int64("session_id", sessionID),
				zap.String("from", string(sess.State)),
				zap.String("to", string(res.Session.State)),
			)
		}
		out = models.SessionResponse{SleepSession: res.Session, Cycles: nonNil(saved)}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	return &out, nil
}

// GetSession returns a session with its cycles.
func (s *Service) GetSession(ctx context.Context, a Actor, childID, sessionID int64) (*models.SessionResponse, error) {
	if _, _, err := s.authorize(ctx, a, childID, false); err != nil {
		return nil, err
	}
	sess, err := s.store.GetSession(ctx, childID, sessionID)
	if err != nil {
		return nil, storeErr(err, apperr.CodeSessionNotFound, "session %d not found", sessionID)
	}
	cycles, err := s.store.ListCycles(ctx, sessionID)
	if err != nil {
		return nil, storeErr(err, apperr.CodeSessionNotFound, "session %d not found", sessionID)
	}
	return &models.SessionResponse{SleepSession: *sess, Cycles: nonNil(cycles)}, nil
}

// ListSessions returns sessions put down in [from, to). A nil to means now
// and a nil from means a week before to.
func (s *Service) ListSessions(ctx context.Context, a Actor, childID int64, from, to *time.Time) ([]models.SleepSession, error) {
	if _, _, err := s.authorize(ctx, a, childID, false); err != nil {
		return nil, err
	}
	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultListRange)
	if from != nil {
		start = *from
	}
	if end.Before(start) {
		return nil, apperr.New(apperr.CodeValidation, "from must not be after to")
	}

	sessions, err := s.store.ListSessions(ctx, childID, start, end)
	if err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	if sessions == nil {
		sessions = []models.SleepSession{}
	}
	return sessions, nil
}

// DeleteSession removes a session and its cycles.
func (s *Service) DeleteSession(ctx context.Context, a Actor, childID, sessionID int64) error {
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return err
	}
	err := s.store.WithChild(ctx, childID, func(tx db.Store) error {
		if err := tx.DeleteSession(ctx, childID, sessionID); err != nil {
			return storeErr(err, apperr.CodeSessionNotFound, "session %d not found", sessionID)
		}
		return nil
	})
	if err != nil {
		return storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	s.log.Debug("session deleted", zap.Int64("child_id", childID), zap.Int64("session_id", sessionID))
	return nil
}

func cycleInput(req models.CycleRequest) sleep.CycleInput {
	return sleep.CycleInput{
		WokeUpAt:         req.WokeUpAt,
		FellBackAsleepAt: req.FellBackAsleepAt,
		ClearFellBack:    req.ClearFellBackAsleep,
		WakeType:         req.WakeType,
	}
}

// CreateCycle adds a night waking to a session.
func (s *Service) CreateCycle(ctx context.Context, a Actor, childID, sessionID int64, req models.CycleRequest) (*models.SessionResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}
	return s.mutateSession(ctx, childID, sessionID, func(sess models.SleepSession, cycles []models.SleepCycle) (sleep.Result, error) {
		return sleep.AddCycle(sess, cycles, cycleInput(req))
	})
}

// UpdateCycle edits a night waking.
func (s *Service) UpdateCycle(ctx context.Context, a Actor, childID, sessionID, cycleID int64, req models.CycleRequest) (*models.SessionResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}
	return s.mutateSession(ctx, childID, sessionID, func(sess models.SleepSession, cycles []models.SleepCycle) (sleep.Result, error) {
		return sleep.UpdateCycle(sess, cycles, cycleID, cycleInput(req))
	})
}

// DeleteCycle removes a night waking and renumbers the rest.
func (s *Service) DeleteCycle(ctx context.Context, a Actor, childID, sessionID, cycleID int64) (*models.SessionResponse, error) {
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}
	return s.mutateSession(ctx, childID, sessionID, func(sess models.SleepSession, cycles []models.SleepCycle) (sleep.Result, error) {
		return sleep.RemoveCycle(sess, cycles, cycleID)
	})
}

func nonNil(cycles []models.SleepCycle) []models.SleepCycle {
	if cycles == nil {
		return []models.SleepCycle{}
	}
	return cycles
}
