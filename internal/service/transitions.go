package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/db"
	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/schedule"
)

// GetTransition returns the child's latest transition.
func (s *Service) GetTransition(ctx context.Context, a Actor, childID int64) (*schedule.TransitionProgress, error) {
	if _, _, err := s.authorize(ctx, a, childID, false); err != nil {
		return nil, err
	}
	t, err := s.store.GetTransition(ctx, childID)
	if err != nil {
		return nil, storeErr(err, apperr.CodeNotFound, "child %d has no transition", childID)
	}
	p := schedule.Progress(*t)
	return &p, nil
}

// StartTransition begins moving a two-nap child to one nap and switches the
// schedule to the transition defaults.
func (s *Service) StartTransition(ctx context.Context, a Actor, childID int64) (*schedule.TransitionProgress, error) {
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}

	var out models.Transition
	err := s.store.WithChild(ctx, childID, func(tx db.Store) error {
		sched, err := tx.GetSchedule(ctx, childID)
		if err != nil {
			return storeErr(err, apperr.CodeScheduleNotFound, "child %d has no schedule", childID)
		}
		existing, err := tx.GetTransition(ctx, childID)
		switch {
		case err == nil && existing.Active():
			return apperr.New(apperr.CodeConflict, "transition %d is already in progress", existing.ID)
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return err
		}

		t, err := schedule.StartTransition(childID, sched.Type, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveTransition(ctx, &t); err != nil {
			return err
		}
		if err := switchSchedule(ctx, tx, childID, models.ScheduleTransition); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	s.log.Debug("transition started", zap.Int64("child_id", childID), zap.Int64("transition_id", out.ID))
	p := schedule.Progress(out)
	return &p, nil
}

// AdjustPace changes how many weeks the transition should take.
func (s *Service) AdjustPace(ctx context.Context, a Actor, childID int64, req models.PaceRequest) (*schedule.TransitionProgress, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	return s.mutateTransition(ctx, a, childID, func(t models.Transition) (models.Transition, error) {
		return schedule.AdjustPace(t, req.Weeks)
	})
}

// AdvanceTransition moves the transition forward a week.
func (s *Service) AdvanceTransition(ctx context.Context, a Actor, childID int64) (*schedule.TransitionProgress, error) {
	return s.mutateTransition(ctx, a, childID, func(t models.Transition) (models.Transition, error) {
		return schedule.Advance(t, s.now())
	})
}

// CompleteTransition ends the transition early.
func (s *Service) CompleteTransition(ctx context.Context, a Actor, childID int64) (*schedule.TransitionProgress, error) {
	return s.mutateTransition(ctx, a, childID, func(t models.Transition) (models.Transition, error) {
		return schedule.Complete(t, s.now()), nil
	})
}

// mutateTransition applies fn to the latest transition under the child lock.
// A transition that fn completes moves the schedule to ONE_NAP.
func (s *Service) mutateTransition(ctx context.Context, a Actor, childID int64, fn func(models.Transition) (models.Transition, error)) (*schedule.TransitionProgress, error) {
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}

	var out models.Transition
	err := s.store.WithChild(ctx, childID, func(tx db.Store) error {
		t, err := tx.GetTransition(ctx, childID)
		if err != nil {
			return storeErr(err, apperr.CodeNotFound, "child %d has no transition", childID)
		}
		wasActive := t.Active()
		next, err := fn(*t)
		if err != nil {
			return err
		}
		if err := tx.SaveTransition(ctx, &next); err != nil {
			return err
		}
		if wasActive && !next.Active() {
			if err := switchSchedule(ctx, tx, childID, models.ScheduleOneNap); err != nil {
				return err
			}
			s.log.Debug("transition completed", zap.Int64("child_id", childID), zap.Int64("transition_id", next.ID))
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	p := schedule.Progress(out)
	return &p, nil
}

func switchSchedule(ctx context.Context, tx db.Store, childID int64, to models.ScheduleType) error {
	cfg, err := schedule.Defaults(to)
	if err != nil {
		return err
	}
	return tx.PutSchedule(ctx, &models.SleepSchedule{ChildID: childID, Type: to, Config: cfg})
}
