package sleep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalecode-solutions/naptrack/internal/models"
)

var day1 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// at returns hh:mm on day1, or on the following day when next is true.
func at(hhmm string, next ...bool) *time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	d := day1
	if len(next) > 0 && next[0] {
		d = d.AddDate(0, 0, 1)
	}
	v := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	return &v
}

func napNumber(n int) *int { return &n }

func cribNap(putDown, asleep, woke, out *time.Time) models.SleepSession {
	return models.SleepSession{
		SessionType: models.SessionTypeNap,
		NapNumber:   napNumber(1),
		Location:    models.LocationCrib,
		State:       models.StateCompleted,
		PutDownAt:   putDown,
		AsleepAt:    asleep,
		WokeUpAt:    woke,
		OutOfCribAt: out,
	}
}

func TestRecomputeCribNap(t *testing.T) {
	s := cribNap(at("13:00"), at("13:10"), at("14:25"), at("14:31"))
	Recompute(&s, nil)

	assert.Equal(t, 91, *s.TotalMinutes)
	assert.Equal(t, 75, *s.SleepMinutes)
	assert.Equal(t, 10, *s.SettlingMinutes)
	assert.Equal(t, 6, *s.PostWakeMinutes)
	assert.Equal(t, 16, *s.AwakeCribMinutes)
	assert.Equal(t, 83, *s.QualifiedRestMinutes)
}

func TestRecomputeRoundsHalfUp(t *testing.T) {
	// 7 awake minutes earn 3.5, which rounds up.
	s := cribNap(at("13:00"), at("13:07"), at("14:07"), at("14:07"))
	Recompute(&s, nil)

	assert.Equal(t, 7, *s.AwakeCribMinutes)
	assert.Equal(t, 64, *s.QualifiedRestMinutes)
}

func TestQualifiedRestMonotonicInSleep(t *testing.T) {
	putDown := *at("12:00")
	prev := -1
	for sleepMins := 0; sleepMins <= 180; sleepMins++ {
		asleep := putDown.Add(9 * time.Minute)
		woke := asleep.Add(time.Duration(sleepMins) * time.Minute)
		out := woke.Add(6 * time.Minute)
		s := cribNap(&putDown, &asleep, &woke, &out)
		Recompute(&s, nil)

		want := roundHalfUp(float64(15)/2 + float64(sleepMins))
		require.Equal(t, want, *s.QualifiedRestMinutes, "sleep=%d", sleepMins)
		require.GreaterOrEqual(t, *s.QualifiedRestMinutes, prev)
		prev = *s.QualifiedRestMinutes
	}
}

func TestAdHocCredit(t *testing.T) {
	tests := []struct {
		sleep int
		want  int
	}{
		{sleep: 0, want: 0},
		{sleep: 14, want: 0},
		{sleep: 15, want: 8},
		{sleep: 30, want: 15},
		{sleep: 61, want: 31},
	}
	for _, tt := range tests {
		asleep := *at("10:00")
		woke := asleep.Add(time.Duration(tt.sleep) * time.Minute)
		s, err := NewAdHocSession(1, "u1", models.LocationStroller, asleep, &woke, nil)
		require.NoError(t, err)

		assert.Equal(t, tt.sleep, *s.SleepMinutes)
		assert.Equal(t, tt.want, *s.QualifiedRestMinutes, "sleep=%d", tt.sleep)
		assert.Nil(t, s.SettlingMinutes)
		assert.Nil(t, s.PostWakeMinutes)
		assert.Nil(t, s.AwakeCribMinutes)
	}
}

func nightWithTwoWakings() (models.SleepSession, []models.SleepCycle) {
	s := models.SleepSession{
		ID:          9,
		SessionType: models.SessionTypeNightSleep,
		Location:    models.LocationCrib,
		State:       models.StateCompleted,
		PutDownAt:   at("19:00"),
		AsleepAt:    at("19:10"),
		WokeUpAt:    at("06:30", true),
		OutOfCribAt: at("06:40", true),
	}
	cycles := []models.SleepCycle{
		// Deliberately out of order: numbering follows wake time.
		{ID: 2, SessionID: 9, CycleNumber: 1, WokeUpAt: *at("02:00", true), FellBackAsleepAt: at("02:15", true), WakeType: models.WakeCrying},
		{ID: 1, SessionID: 9, CycleNumber: 2, WokeUpAt: *at("23:00"), FellBackAsleepAt: at("23:20"), WakeType: models.WakeQuiet},
	}
	return s, cycles
}

func TestRecomputeNightOnlyQuietWakingsEarnCredit(t *testing.T) {
	s, cycles := nightWithTwoWakings()
	out := Recompute(&s, cycles)

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, 1, out[0].CycleNumber)
	assert.Equal(t, 2, out[1].CycleNumber)
	assert.Equal(t, 230, *out[0].SleepMinutes)
	assert.Equal(t, 20, *out[0].AwakeMinutes)
	assert.Equal(t, 160, *out[1].SleepMinutes)
	assert.Equal(t, 15, *out[1].AwakeMinutes)

	assert.Equal(t, 645, *s.SleepMinutes) // 230 + 160 + 255
	assert.Equal(t, 10, *s.SettlingMinutes)
	assert.Equal(t, 10, *s.PostWakeMinutes)
	// settling + post-wake + the quiet waking only; the crying waking adds nothing.
	assert.Equal(t, 40, *s.AwakeCribMinutes)
	assert.Equal(t, 665, *s.QualifiedRestMinutes)

	// Input order is untouched.
	assert.Equal(t, int64(2), cycles[0].ID)
}

func TestRecomputeNightOpenFinalCycleEndsTheNight(t *testing.T) {
	s, cycles := nightWithTwoWakings()
	cycles = append(cycles, models.SleepCycle{ID: 3, SessionID: 9, WokeUpAt: *at("06:30", true), WakeType: models.WakeQuiet})
	out := Recompute(&s, cycles)

	require.Len(t, out, 3)
	assert.Nil(t, out[2].AwakeMinutes)
	assert.Equal(t, 255, *out[2].SleepMinutes)
	assert.Equal(t, 645, *s.SleepMinutes)
	assert.Equal(t, 10, *s.PostWakeMinutes)
	assert.Equal(t, *at("06:30", true), *FinalWake(&s, cycles))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	s, cycles := nightWithTwoWakings()
	first := Recompute(&s, cycles)
	snapshot := s

	second := Recompute(&s, first)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, s)
}

func TestRecomputeMissingBoundariesStayNil(t *testing.T) {
	s := cribNap(at("13:00"), at("13:12"), nil, nil)
	s.State = models.StateAsleep
	Recompute(&s, nil)

	assert.Equal(t, 12, *s.SettlingMinutes)
	assert.Nil(t, s.TotalMinutes)
	assert.Nil(t, s.SleepMinutes)
	assert.Nil(t, s.PostWakeMinutes)
	assert.Nil(t, s.AwakeCribMinutes)
	assert.Nil(t, s.QualifiedRestMinutes)
}

func TestRecomputeNeverFellAsleep(t *testing.T) {
	s := cribNap(at("13:00"), nil, nil, at("13:41"))
	Recompute(&s, nil)

	assert.Equal(t, 0, *s.SleepMinutes)
	assert.Equal(t, 41, *s.SettlingMinutes)
	assert.Equal(t, 41, *s.AwakeCribMinutes)
	assert.Equal(t, 21, *s.QualifiedRestMinutes)
}

func TestRecomputeClampsDegenerateRanges(t *testing.T) {
	// Woke "before" falling asleep: minutes clamp to zero rather than going negative.
	s := cribNap(at("13:00"), at("13:30"), at("13:20"), at("13:40"))
	Recompute(&s, nil)

	assert.Equal(t, 0, *s.SleepMinutes)
	assert.Equal(t, 20, *s.PostWakeMinutes)
}
