package schedule

import (
	"math"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

const (
	MinPaceWeeks     = 2
	MaxPaceWeeks     = 6
	DefaultPaceWeeks = 4

	napTimeStep = 15 * time.Minute
)

var (
	TransitionStartNapTime  = timewindow.MustClock("11:00")
	TransitionTargetNapTime = timewindow.MustClock("12:30")
)

var paceGuidance = map[int]string{
	2: "Aggressive: move the nap later every few days. Expect some overtired evenings.",
	3: "Brisk: push the nap 15 minutes later twice a week.",
	4: "Standard: push the nap 15 minutes later each week and use an early bedtime on rough days.",
	5: "Gentle: hold each nap time for a full week before moving on.",
	6: "Very gentle: offer a second short nap on hard days while the single nap settles.",
}

// TransitionProgress is the read model for a transition.
type TransitionProgress struct {
	Transition      models.Transition `json:"transition"`
	PercentComplete int               `json:"percentComplete"`
	Guidance        string            `json:"guidance"`
	Completed       bool              `json:"completed"`
}

// Progress reports how far along t is.
func Progress(t models.Transition) TransitionProgress {
	pct := 0
	if t.TargetWeeks > 0 {
		pct = int(math.Floor(100*float64(t.CurrentWeek)/float64(t.TargetWeeks) + 0.5))
	}
	pct = max(0, min(100, pct))
	return TransitionProgress{
		Transition:      t,
		PercentComplete: pct,
		Guidance:        paceGuidance[t.TargetWeeks],
		Completed:       !t.Active(),
	}
}

// StartTransition begins a two-nap to one-nap migration.
func StartTransition(childID int64, from models.ScheduleType, now time.Time) (models.Transition, error) {
	if from != models.ScheduleTwoNap {
		return models.Transition{}, apperr.New(apperr.CodeValidation, "transitions start from %s, not %s", models.ScheduleTwoNap, from)
	}
	return models.Transition{
		ChildID:        childID,
		FromType:       models.ScheduleTwoNap,
		ToType:         models.ScheduleOneNap,
		CurrentWeek:    1,
		TargetWeeks:    DefaultPaceWeeks,
		CurrentNapTime: TransitionStartNapTime,
		StartedAt:      now,
	}, nil
}

// AdjustPace changes the target length of an active transition.
func AdjustPace(t models.Transition, weeks int) (models.Transition, error) {
	if !t.Active() {
		return t, apperr.New(apperr.CodeConflict, "transition already completed")
	}
	if weeks < MinPaceWeeks || weeks > MaxPaceWeeks {
		return t, apperr.New(apperr.CodeValidation, "pace must be between %d and %d weeks, got %d", MinPaceWeeks, MaxPaceWeeks, weeks)
	}
	t.TargetWeeks = weeks
	return t, nil
}

// Advance moves an active transition forward one week and pushes the nap
// later. It completes the transition once the target is passed.
func Advance(t models.Transition, now time.Time) (models.Transition, error) {
	if !t.Active() {
		return t, apperr.New(apperr.CodeConflict, "transition already completed")
	}
	t.CurrentWeek++
	if t.CurrentWeek > t.TargetWeeks {
		return Complete(t, now), nil
	}
	next := t.CurrentNapTime.Add(napTimeStep)
	if TransitionTargetNapTime.Before(next) {
		next = TransitionTargetNapTime
	}
	t.CurrentNapTime = next
	return t, nil
}

// Complete ends the transition. Callers switch the schedule to ONE_NAP.
func Complete(t models.Transition, now time.Time) models.Transition {
	if t.CompletedAt == nil {
		at := now
		t.CompletedAt = &at
	}
	t.CurrentNapTime = TransitionTargetNapTime
	return t
}
