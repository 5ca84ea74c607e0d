package sleep

import (
	"time"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/models"
)

// CycleInput carries the editable fields of a wake cycle.
type CycleInput struct {
	WokeUpAt         *time.Time
	FellBackAsleepAt *time.Time
	ClearFellBack    bool
	WakeType         *models.WakeType
}

// AddCycle inserts a wake cycle and recomputes the whole session.
func AddCycle(s models.SleepSession, cycles []models.SleepCycle, in CycleInput) (Result, error) {
	if err := requireCycleSession(&s); err != nil {
		return Result{}, err
	}
	if in.WokeUpAt == nil {
		return Result{}, apperr.New(apperr.CodeValidation, "wokeUpAt is required")
	}
	c := models.SleepCycle{SessionID: s.ID, WokeUpAt: *in.WokeUpAt, WakeType: models.WakeQuiet}
	if err := applyCycleInput(&c, in); err != nil {
		return Result{}, err
	}
	if err := validateCycle(&s, &c); err != nil {
		return Result{}, err
	}
	next := append(SortCycles(cycles), c)
	cs := Recompute(&s, next)
	return Result{Session: s, Cycles: cs}, nil
}

// UpdateCycle edits the cycle with the given id, then renumbers and
// recomputes every cycle of the session.
func UpdateCycle(s models.SleepSession, cycles []models.SleepCycle, cycleID int64, in CycleInput) (Result, error) {
	if err := requireCycleSession(&s); err != nil {
		return Result{}, err
	}
	cs := SortCycles(cycles)
	i := findCycle(cs, cycleID)
	if i < 0 {
		return Result{}, apperr.New(apperr.CodeCycleNotFound, "cycle %d not found", cycleID)
	}
	if err := applyCycleInput(&cs[i], in); err != nil {
		return Result{}, err
	}
	if err := validateCycle(&s, &cs[i]); err != nil {
		return Result{}, err
	}
	cs = Recompute(&s, cs)
	return Result{Session: s, Cycles: cs}, nil
}

// RemoveCycle deletes the cycle with the given id and recomputes the session.
func RemoveCycle(s models.SleepSession, cycles []models.SleepCycle, cycleID int64) (Result, error) {
	cs := SortCycles(cycles)
	i := findCycle(cs, cycleID)
	if i < 0 {
		return Result{}, apperr.New(apperr.CodeCycleNotFound, "cycle %d not found", cycleID)
	}
	cs = append(cs[:i], cs[i+1:]...)
	cs = Recompute(&s, cs)
	return Result{Session: s, Cycles: cs}, nil
}

func requireCycleSession(s *models.SleepSession) error {
	kind, ctx := Classify(s)
	if kind != KindNightSleep || ctx != ContextCrib {
		return apperr.New(apperr.CodeValidation, "wake cycles are only tracked for night sleep in the crib")
	}
	return nil
}

func applyCycleInput(c *models.SleepCycle, in CycleInput) error {
	if in.WokeUpAt != nil {
		c.WokeUpAt = *in.WokeUpAt
	}
	if in.ClearFellBack {
		c.FellBackAsleepAt = nil
	} else if in.FellBackAsleepAt != nil {
		c.FellBackAsleepAt = timePtr(*in.FellBackAsleepAt)
	}
	if in.WakeType != nil {
		switch *in.WakeType {
		case models.WakeQuiet, models.WakeRestless, models.WakeCrying:
			c.WakeType = *in.WakeType
		default:
			return apperr.New(apperr.CodeValidation, "unknown wake type %q", *in.WakeType)
		}
	}
	return nil
}

func validateCycle(s *models.SleepSession, c *models.SleepCycle) error {
	if s.AsleepAt != nil && c.WokeUpAt.Before(*s.AsleepAt) {
		return apperr.New(apperr.CodeValidation, "cycle wake time is before the session's asleep time")
	}
	if c.FellBackAsleepAt != nil && c.FellBackAsleepAt.Before(c.WokeUpAt) {
		return apperr.New(apperr.CodeValidation, "fellBackAsleepAt is before wokeUpAt")
	}
	if s.OutOfCribAt != nil && c.WokeUpAt.After(*s.OutOfCribAt) {
		return apperr.New(apperr.CodeValidation, "cycle wake time is after the session ended")
	}
	return nil
}

func findCycle(cycles []models.SleepCycle, id int64) int {
	for i := range cycles {
		if cycles[i].ID == id {
			return i
		}
	}
	return -1
}
