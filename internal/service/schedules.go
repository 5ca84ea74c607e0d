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

// GetSchedule returns the child's configured schedule.
func (s *Service) GetSchedule(ctx context.Context, a Actor, childID int64) (*models.SleepSchedule, error) {
	if _, _, err := s.authorize(ctx, a, childID, false); err != nil {
		return nil, err
	}
	sched, err := s.store.GetSchedule(ctx, childID)
	if err != nil {
		return nil, storeErr(err, apperr.CodeScheduleNotFound, "child %d has no schedule", childID)
	}
	return sched, nil
}

// PutSchedule replaces the child's schedule. A missing config takes the
// type's defaults.
func (s *Service) PutSchedule(ctx context.Context, a Actor, childID int64, req models.ScheduleRequest) (*models.SleepSchedule, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, a, childID, true); err != nil {
		return nil, err
	}

	var cfg models.ScheduleConfig
	if req.Config == nil {
		d, err := schedule.Defaults(req.Type)
		if err != nil {
			return nil, err
		}
		cfg = d
	} else {
		cfg = *req.Config
	}
	if err := schedule.Validate(req.Type, cfg); err != nil {
		return nil, err
	}

	sched := &models.SleepSchedule{ChildID: childID, Type: req.Type, Config: cfg}
	err := s.store.WithChild(ctx, childID, func(tx db.Store) error {
		return tx.PutSchedule(ctx, sched)
	})
	if err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	s.log.Debug("schedule replaced", zap.Int64("child_id", childID), zap.String("type", string(req.Type)))
	return sched, nil
}

// plan loads the schedule and any transition the calculator needs.
func (s *Service) plan(ctx context.Context, childID int64) (models.SleepSchedule, *models.Transition, error) {
	sched, err := s.store.GetSchedule(ctx, childID)
	if err != nil {
		return models.SleepSchedule{}, nil, storeErr(err, apperr.CodeScheduleNotFound, "child %d has no schedule", childID)
	}
	t, err := s.store.GetTransition(ctx, childID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return *sched, nil, nil
	case err != nil:
		return models.SleepSchedule{}, nil, storeErr(err, apperr.CodeNotFound, "")
	}
	return *sched, t, nil
}

// DaySchedule computes a plan from an explicit wake time and the lengths of
// naps already taken.
func (s *Service) DaySchedule(ctx context.Context, a Actor, childID int64, req models.DayScheduleRequest) (*schedule.DayScheduleRecommendation, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, a, childID, false); err != nil {
		return nil, err
	}
	loc, err := s.location(ctx, a)
	if err != nil {
		return nil, err
	}
	sched, t, err := s.plan(ctx, childID)
	if err != nil {
		return nil, err
	}

	actual := make([]schedule.ActualNap, len(req.ActualNapDurations))
	for i, d := range req.ActualNapDurations {
		actual[i] = schedule.ActualNap{NapNumber: i + 1, DurationMinutes: d}
	}
	day := schedule.Calculate(schedule.Input{
		WakeTime:   req.WakeTime.In(loc),
		Schedule:   sched,
		Transition: t,
		Actual:     actual,
		Location:   loc,
	})
	return &day, nil
}

// NextAction tells the caregiver what to do now.
func (s *Service) NextAction(ctx context.Context, a Actor, childID int64) (*schedule.NextActionRecommendation, error) {
	st, err := s.today(ctx, a, childID)
	if err != nil {
		return nil, err
	}
	rec := st.nextAction()
	return &rec, nil
}
