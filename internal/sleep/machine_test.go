package sleep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/models"
)

var allEvents = []models.Event{
	models.EventPutDown,
	models.EventFellAsleep,
	models.EventWokeUp,
	models.EventOutOfCrib,
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(models.StatePending, models.StateAsleep))
	assert.True(t, CanTransition(models.StatePending, models.StateCompleted))
	assert.True(t, CanTransition(models.StateAsleep, models.StateAwake))
	assert.True(t, CanTransition(models.StateAwake, models.StateAsleep))
	assert.False(t, CanTransition(models.StatePending, models.StateAwake))
	assert.False(t, CanTransition(models.StateAsleep, models.StateAsleep))
	for _, to := range []models.SessionState{models.StatePending, models.StateAsleep, models.StateAwake, models.StateCompleted} {
		assert.False(t, CanTransition(models.StateCompleted, to))
	}
}

func TestCompletedRejectsEveryEvent(t *testing.T) {
	s := cribNap(at("13:00"), at("13:10"), at("14:00"), at("14:05"))
	Recompute(&s, nil)
	before := s

	for _, ev := range allEvents {
		_, err := ApplyEvent(s, nil, ev, *at("15:00"))
		require.Error(t, err, string(ev))
		assert.Equal(t, apperr.CodeInvalidStateTransition, apperr.CodeOf(err), string(ev))
	}
	assert.Equal(t, before, s)
}

func TestAdHocWokeUpCompletesDirectly(t *testing.T) {
	s, err := NewAdHocSession(1, "u1", models.LocationCar, *at("10:00"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, models.StateAsleep, s.State)

	res, err := ApplyEvent(s, nil, models.EventWokeUp, *at("10:40"))
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, res.Session.State)
	assert.Equal(t, *at("10:40"), *res.Session.WokeUpAt)
	assert.Equal(t, *at("10:40"), *res.Session.OutOfCribAt)
	assert.Equal(t, 20, *res.Session.QualifiedRestMinutes)
	assert.Empty(t, res.Cycles)
}

func TestNapLifecycle(t *testing.T) {
	s, err := NewSession(1, "u1", models.SessionTypeNap, napNumber(1), *at("09:15"))
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, s.State)

	res, err := ApplyEvent(s, nil, models.EventFellAsleep, *at("09:25"))
	require.NoError(t, err)
	assert.Equal(t, models.StateAsleep, res.Session.State)

	res, err = ApplyEvent(res.Session, nil, models.EventWokeUp, *at("10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.StateAwake, res.Session.State)

	// The nap continues: the wake time is cleared.
	res, err = ApplyEvent(res.Session, nil, models.EventFellAsleep, *at("10:05"))
	require.NoError(t, err)
	assert.Equal(t, models.StateAsleep, res.Session.State)
	assert.Nil(t, res.Session.WokeUpAt)

	res, err = ApplyEvent(res.Session, nil, models.EventWokeUp, *at("10:45"))
	require.NoError(t, err)
	res, err = ApplyEvent(res.Session, nil, models.EventOutOfCrib, *at("10:50"))
	require.NoError(t, err)

	got := res.Session
	assert.Equal(t, models.StateCompleted, got.State)
	assert.Equal(t, 95, *got.TotalMinutes)
	assert.Equal(t, 80, *got.SleepMinutes)
	assert.Equal(t, 10, *got.SettlingMinutes)
	assert.Equal(t, 5, *got.PostWakeMinutes)
	assert.Equal(t, 88, *got.QualifiedRestMinutes) // round(15/2 + 80)
}

func TestOutOfCribWhileAsleepBackfillsWake(t *testing.T) {
	s, err := NewSession(1, "u1", models.SessionTypeNap, napNumber(2), *at("13:00"))
	require.NoError(t, err)
	res, err := ApplyEvent(s, nil, models.EventFellAsleep, *at("13:05"))
	require.NoError(t, err)

	res, err = ApplyEvent(res.Session, nil, models.EventOutOfCrib, *at("14:35"))
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, res.Session.State)
	assert.Equal(t, *at("14:35"), *res.Session.WokeUpAt)
	assert.Equal(t, 0, *res.Session.PostWakeMinutes)
	assert.Equal(t, 90, *res.Session.SleepMinutes)
}

func TestPendingOutOfCribNeverSlept(t *testing.T) {
	s, err := NewSession(1, "u1", models.SessionTypeNap, napNumber(1), *at("09:00"))
	require.NoError(t, err)

	res, err := ApplyEvent(s, nil, models.EventOutOfCrib, *at("09:30"))
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, res.Session.State)
	assert.Nil(t, res.Session.WokeUpAt)
	assert.Equal(t, 0, *res.Session.SleepMinutes)
	assert.Equal(t, 15, *res.Session.QualifiedRestMinutes)
}

func TestNightLifecycleOpensAndClosesCycles(t *testing.T) {
	s, err := NewSession(1, "u1", models.SessionTypeNightSleep, nil, *at("19:00"))
	require.NoError(t, err)

	steps := []struct {
		ev models.Event
		at string
		nx bool
	}{
		{models.EventFellAsleep, "19:10", false},
		{models.EventWokeUp, "23:00", false},
		{models.EventFellAsleep, "23:20", false},
		{models.EventWokeUp, "02:00", true},
		{models.EventFellAsleep, "02:15", true},
		{models.EventWokeUp, "06:30", true},
		{models.EventOutOfCrib, "06:40", true},
	}
	res := Result{Session: s}
	for _, st := range steps {
		res, err = ApplyEvent(res.Session, res.Cycles, st.ev, *at(st.at, st.nx))
		require.NoError(t, err, "%s at %s", st.ev, st.at)
	}

	require.Len(t, res.Cycles, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{res.Cycles[0].CycleNumber, res.Cycles[1].CycleNumber, res.Cycles[2].CycleNumber})
	assert.Equal(t, 20, *res.Cycles[0].AwakeMinutes)
	assert.Equal(t, 15, *res.Cycles[1].AwakeMinutes)
	assert.Nil(t, res.Cycles[2].FellBackAsleepAt)

	got := res.Session
	assert.Equal(t, models.StateCompleted, got.State)
	assert.Equal(t, 645, *got.SleepMinutes)
	// All wakings default to QUIET: 10 + 10 + 20 + 15.
	assert.Equal(t, 55, *got.AwakeCribMinutes)
	assert.Equal(t, 673, *got.QualifiedRestMinutes) // round(27.5 + 645)
}

func TestUpdateCycleRecomputesWholeSession(t *testing.T) {
	s, cycles := nightWithTwoWakings()
	quiet := models.WakeQuiet
	res, err := UpdateCycle(s, cycles, 2, CycleInput{WakeType: &quiet})
	require.NoError(t, err)

	assert.Equal(t, 55, *res.Session.AwakeCribMinutes)
	assert.Equal(t, 673, *res.Session.QualifiedRestMinutes)

	// Moving the crying waking before the quiet one renumbers both.
	res, err = UpdateCycle(s, cycles, 2, CycleInput{WokeUpAt: at("21:00"), FellBackAsleepAt: at("21:15")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Cycles[0].ID)
	assert.Equal(t, 1, res.Cycles[0].CycleNumber)
	assert.Equal(t, int64(1), res.Cycles[1].ID)
	assert.Equal(t, 2, res.Cycles[1].CycleNumber)
}

func TestCycleErrors(t *testing.T) {
	s, cycles := nightWithTwoWakings()

	_, err := UpdateCycle(s, cycles, 42, CycleInput{})
	assert.Equal(t, apperr.CodeCycleNotFound, apperr.CodeOf(err))

	_, err = RemoveCycle(s, cycles, 42)
	assert.Equal(t, apperr.CodeCycleNotFound, apperr.CodeOf(err))

	_, err = AddCycle(s, cycles, CycleInput{WokeUpAt: at("23:30"), FellBackAsleepAt: at("23:10")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	nap := cribNap(at("13:00"), at("13:10"), at("14:00"), at("14:05"))
	_, err = AddCycle(nap, nil, CycleInput{WokeUpAt: at("13:30")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestRemoveCycleRenumbers(t *testing.T) {
	s, cycles := nightWithTwoWakings()
	res, err := RemoveCycle(s, cycles, 1)
	require.NoError(t, err)

	require.Len(t, res.Cycles, 1)
	assert.Equal(t, 1, res.Cycles[0].CycleNumber)
	assert.Equal(t, 10+10, *res.Session.AwakeCribMinutes)
}

func TestEventBeforeBoundaryIsValidationError(t *testing.T) {
	s, err := NewSession(1, "u1", models.SessionTypeNap, napNumber(1), *at("09:00"))
	require.NoError(t, err)
	res, err := ApplyEvent(s, nil, models.EventFellAsleep, *at("09:10"))
	require.NoError(t, err)

	_, err = ApplyEvent(res.Session, nil, models.EventWokeUp, *at("09:05"))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.Equal(t, models.StateAsleep, res.Session.State)
	assert.Nil(t, res.Session.WokeUpAt)
}

func TestIllegalTransitions(t *testing.T) {
	s, err := NewSession(1, "u1", models.SessionTypeNap, napNumber(1), *at("09:00"))
	require.NoError(t, err)

	_, err = ApplyEvent(s, nil, models.EventWokeUp, *at("09:30"))
	assert.Equal(t, apperr.CodeInvalidStateTransition, apperr.CodeOf(err))

	res, err := ApplyEvent(s, nil, models.EventFellAsleep, *at("09:10"))
	require.NoError(t, err)
	_, err = ApplyEvent(res.Session, nil, models.EventFellAsleep, *at("09:20"))
	assert.Equal(t, apperr.CodeInvalidStateTransition, apperr.CodeOf(err))
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(1, "u1", models.SessionTypeNap, nil, *at("09:00"))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = NewSession(1, "u1", models.SessionTypeNightSleep, napNumber(1), *at("19:00"))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = NewAdHocSession(1, "u1", models.LocationCrib, *at("10:00"), nil, nil)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestApplyCorrection(t *testing.T) {
	s := cribNap(at("13:00"), at("13:10"), at("14:00"), at("14:05"))
	Recompute(&s, nil)

	res, err := ApplyCorrection(s, nil, Correction{WokeUpAt: at("14:30"), OutOfCribAt: at("14:40")})
	require.NoError(t, err)
	assert.Equal(t, 80, *res.Session.SleepMinutes)
	assert.Equal(t, models.StateCompleted, res.Session.State)
	// The input session is untouched.
	assert.Equal(t, 50, *s.SleepMinutes)

	_, err = ApplyCorrection(s, nil, Correction{AsleepAt: at("14:10")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestApplyCorrectionChecksCycles(t *testing.T) {
	s, cycles := nightWithTwoWakings()
	Recompute(&s, cycles)

	// The first waking is at 23:00; sleep cannot start after it.
	_, err := ApplyCorrection(s, cycles, Correction{AsleepAt: at("23:30")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	// Nor can the night end before the 02:00 waking.
	_, err = ApplyCorrection(s, cycles, Correction{WokeUpAt: at("01:00", true), OutOfCribAt: at("01:30", true)})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	res, err := ApplyCorrection(s, cycles, Correction{AsleepAt: at("19:20")})
	require.NoError(t, err)
	assert.Equal(t, 20, *res.Session.SettlingMinutes)
	assert.Len(t, res.Cycles, 2)
}
