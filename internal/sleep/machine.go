package sleep

import (
	"time"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/models"
)

// transitions lists the legal next states. COMPLETED is terminal.
var transitions = map[models.SessionState][]models.SessionState{
	models.StatePending:   {models.StateAsleep, models.StateCompleted},
	models.StateAsleep:    {models.StateAwake, models.StateCompleted},
	models.StateAwake:     {models.StateAsleep, models.StateCompleted},
	models.StateCompleted: {},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.SessionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Result is a session and its cycles after a successful mutation.
type Result struct {
	Session models.SleepSession
	Cycles  []models.SleepCycle
}

// NewSession builds a PENDING crib session.
func NewSession(childID int64, userID string, sessionType models.SessionType, napNumber *int, putDownAt time.Time) (models.SleepSession, error) {
	switch sessionType {
	case models.SessionTypeNap:
		if napNumber == nil || *napNumber < 1 {
			return models.SleepSession{}, apperr.New(apperr.CodeValidation, "napNumber must be 1 or greater for a nap")
		}
	case models.SessionTypeNightSleep:
		if napNumber != nil {
			return models.SleepSession{}, apperr.New(apperr.CodeValidation, "napNumber is not allowed for night sleep")
		}
	default:
		return models.SleepSession{}, apperr.New(apperr.CodeValidation, "unknown session type %q", sessionType)
	}

	s := models.SleepSession{
		ChildID:     childID,
		CreatedBy:   userID,
		SessionType: sessionType,
		NapNumber:   napNumber,
		Location:    models.LocationCrib,
		State:       models.StatePending,
		PutDownAt:   &putDownAt,
	}
	Recompute(&s, nil)
	return s, nil
}

// NewAdHocSession builds an unplanned nap outside the crib. It starts ASLEEP,
// or COMPLETED when the wake time is already known.
func NewAdHocSession(childID int64, userID string, location models.Location, asleepAt time.Time, wokeUpAt *time.Time, notes *string) (models.SleepSession, error) {
	if location == models.LocationCrib || location == "" {
		return models.SleepSession{}, apperr.New(apperr.CodeValidation, "ad-hoc sessions need a location other than the crib")
	}
	if wokeUpAt != nil && wokeUpAt.Before(asleepAt) {
		return models.SleepSession{}, apperr.New(apperr.CodeValidation, "wokeUpAt is before asleepAt")
	}

	s := models.SleepSession{
		ChildID:     childID,
		CreatedBy:   userID,
		SessionType: models.SessionTypeNap,
		Location:    location,
		IsAdHoc:     true,
		State:       models.StateAsleep,
		PutDownAt:   &asleepAt,
		AsleepAt:    &asleepAt,
		Notes:       notes,
	}
	if wokeUpAt != nil {
		w := *wokeUpAt
		s.WokeUpAt = &w
		s.OutOfCribAt = &w
		s.State = models.StateCompleted
	}
	Recompute(&s, nil)
	return s, nil
}

// ApplyEvent validates ev against the session's current state and returns the
// mutated copy. On error nothing is returned and the inputs are untouched.
func ApplyEvent(s models.SleepSession, cycles []models.SleepCycle, ev models.Event, at time.Time) (Result, error) {
	cs := SortCycles(cycles)
	kind, ctx := Classify(&s)

	var target models.SessionState
	switch ev {
	case models.EventFellAsleep:
		target = models.StateAsleep
	case models.EventWokeUp:
		target = models.StateAwake
		if ctx == ContextAdHoc {
			target = models.StateCompleted
		}
	case models.EventOutOfCrib:
		target = models.StateCompleted
	case models.EventPutDown:
		return Result{}, apperr.New(apperr.CodeInvalidStateTransition, "put_down only starts a new session")
	default:
		return Result{}, apperr.New(apperr.CodeValidation, "unknown event %q", ev)
	}

	from := s.State
	if !CanTransition(from, target) {
		return Result{}, apperr.New(apperr.CodeInvalidStateTransition, "cannot apply %s to a %s session", ev, from)
	}

	switch ev {
	case models.EventFellAsleep:
		if from == models.StatePending {
			if err := notBefore(at, s.PutDownAt, "asleep time", "put-down time"); err != nil {
				return Result{}, err
			}
			s.AsleepAt = timePtr(at)
			break
		}
		// AWAKE -> ASLEEP: the child re-settled.
		if kind == KindNightSleep {
			if i := openCycle(cs); i >= 0 {
				if err := notBefore(at, &cs[i].WokeUpAt, "fell-back-asleep time", "wake time"); err != nil {
					return Result{}, err
				}
				cs[i].FellBackAsleepAt = timePtr(at)
			}
		} else if err := notBefore(at, s.WokeUpAt, "asleep time", "wake time"); err != nil {
			return Result{}, err
		}
		s.WokeUpAt = nil

	case models.EventWokeUp:
		if err := notBefore(at, lastSleepOnset(&s, cs), "wake time", "asleep time"); err != nil {
			return Result{}, err
		}
		s.WokeUpAt = timePtr(at)
		switch {
		case ctx == ContextAdHoc:
			s.OutOfCribAt = timePtr(at)
		case kind == KindNightSleep:
			cs = append(cs, models.SleepCycle{
				SessionID:   s.ID,
				CycleNumber: len(cs) + 1,
				WokeUpAt:    at,
				WakeType:    models.WakeQuiet,
			})
		}

	case models.EventOutOfCrib:
		latest := s.PutDownAt
		for _, t := range []*time.Time{lastSleepOnset(&s, cs), s.WokeUpAt} {
			if t != nil && (latest == nil || t.After(*latest)) {
				latest = t
			}
		}
		if err := notBefore(at, latest, "out-of-crib time", "previous event"); err != nil {
			return Result{}, err
		}
		if from == models.StateAsleep && s.WokeUpAt == nil {
			s.WokeUpAt = timePtr(at)
		}
		s.OutOfCribAt = timePtr(at)
	}

	s.State = target
	cs = Recompute(&s, cs)
	return Result{Session: s, Cycles: cs}, nil
}

// Correction overwrites lifecycle timestamps retroactively. Nil fields are left alone.
type Correction struct {
	PutDownAt   *time.Time
	AsleepAt    *time.Time
	WokeUpAt    *time.Time
	OutOfCribAt *time.Time
}

// Empty reports whether the correction changes nothing.
func (c Correction) Empty() bool {
	return c.PutDownAt == nil && c.AsleepAt == nil && c.WokeUpAt == nil && c.OutOfCribAt == nil
}

// ApplyCorrection merges c into the session, checks timestamp ordering
// against the session and its cycles, and recomputes durations. The state is
// not changed.
func ApplyCorrection(s models.SleepSession, cycles []models.SleepCycle, c Correction) (Result, error) {
	if c.PutDownAt != nil {
		s.PutDownAt = timePtr(*c.PutDownAt)
	}
	if c.AsleepAt != nil {
		s.AsleepAt = timePtr(*c.AsleepAt)
	}
	if c.WokeUpAt != nil {
		s.WokeUpAt = timePtr(*c.WokeUpAt)
	}
	if c.OutOfCribAt != nil {
		s.OutOfCribAt = timePtr(*c.OutOfCribAt)
	}
	if err := validateOrder(&s); err != nil {
		return Result{}, err
	}
	for i := range cycles {
		if err := validateCycle(&s, &cycles[i]); err != nil {
			return Result{}, err
		}
	}
	cs := Recompute(&s, cycles)
	return Result{Session: s, Cycles: cs}, nil
}

func validateOrder(s *models.SleepSession) error {
	chain := []struct {
		name string
		at   *time.Time
	}{
		{"putDownAt", s.PutDownAt},
		{"asleepAt", s.AsleepAt},
		{"wokeUpAt", s.WokeUpAt},
		{"outOfCribAt", s.OutOfCribAt},
	}
	for i := range chain {
		for j := i + 1; j < len(chain); j++ {
			a, b := chain[i], chain[j]
			if a.at != nil && b.at != nil && b.at.Before(*a.at) {
				return apperr.New(apperr.CodeValidation, "%s is before %s", b.name, a.name)
			}
		}
	}
	return nil
}

// openCycle returns the index of the latest cycle without a fell-back time, or -1.
func openCycle(cycles []models.SleepCycle) int {
	for i := len(cycles) - 1; i >= 0; i-- {
		if cycles[i].FellBackAsleepAt == nil {
			return i
		}
	}
	return -1
}

// lastSleepOnset is the most recent moment the child fell asleep.
func lastSleepOnset(s *models.SleepSession, cycles []models.SleepCycle) *time.Time {
	onset := s.AsleepAt
	for i := range cycles {
		if fb := cycles[i].FellBackAsleepAt; fb != nil && (onset == nil || fb.After(*onset)) {
			onset = fb
		}
	}
	return onset
}

func notBefore(at time.Time, bound *time.Time, what, boundName string) error {
	if bound != nil && at.Before(*bound) {
		return apperr.New(apperr.CodeValidation, "%s %s is before %s %s",
			what, at.Format(time.RFC3339), boundName, bound.Format(time.RFC3339))
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
