package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func clockAt(hhmm string) time.Time {
	return timewindow.MustClock(hhmm).On(testDay, time.UTC)
}

func timeRef(hhmm string) *time.Time {
	t := clockAt(hhmm)
	return &t
}

func scheduleOf(t models.ScheduleType) models.SleepSchedule {
	cfg, err := Defaults(t)
	if err != nil {
		panic(err)
	}
	return models.SleepSchedule{ChildID: 1, Type: t, Config: cfg}
}

func assertWindow(t *testing.T, w timewindow.Window, earliest, recommended, latest string) {
	t.Helper()
	assert.Equal(t, clockAt(earliest), w.Earliest, "earliest")
	assert.Equal(t, clockAt(recommended), w.Recommended, "recommended")
	assert.Equal(t, clockAt(latest), w.Latest, "latest")
}

func TestTwoNapFromWakeTimeOnly(t *testing.T) {
	day := Calculate(Input{WakeTime: clockAt("07:00"), Schedule: scheduleOf(models.ScheduleTwoNap)})

	require.Len(t, day.Naps, 2)
	assertWindow(t, day.Naps[0].Window, "09:00", "09:15", "09:30")
	assert.Equal(t, 120, day.Naps[0].MaxDurationMinutes)
	assert.False(t, day.Naps[0].Completed)

	// Nap 1 is assumed to run its full 120 minutes, ending 11:15.
	assertWindow(t, day.Naps[1].Window, "13:45", "14:00", "14:15")
	assert.Equal(t, 90, day.Naps[1].MaxDurationMinutes)

	// Nap 2 is estimated to end 15:30, after the 14:30 cutoff.
	assertWindow(t, day.Bedtime.Window, "19:23", "19:30", "19:37")
}

func TestTwoNapSkippedFirstNap(t *testing.T) {
	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: scheduleOf(models.ScheduleTwoNap),
		Actual:   []ActualNap{{DurationMinutes: 0}},
	})

	nap1, nap2 := day.Naps[0], day.Naps[1]
	assert.True(t, nap1.Completed)
	assert.Equal(t, 0, *nap1.ActualMinutes)

	assertWindow(t, nap2.Window, "12:15", "12:15", "12:30")
	assert.Equal(t, 150, nap2.MaxDurationMinutes)
	assert.NotEmpty(t, nap2.Notes)

	// 60 minutes short: 19:15 - 60 = 18:15, lifted to 4h after the 14:45 estimate.
	assertWindow(t, day.Bedtime.Window, "18:38", "18:45", "18:52")
}

func TestTwoNapMatchesActualByNapNumber(t *testing.T) {
	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: scheduleOf(models.ScheduleTwoNap),
		Actual:   []ActualNap{{NapNumber: 2, DurationMinutes: 90, EndedAt: timeRef("14:30")}},
	})

	nap1, nap2 := day.Naps[0], day.Naps[1]
	assert.False(t, nap1.Completed)
	assert.True(t, nap1.Skip)
	assert.True(t, nap1.Missed)
	assert.Zero(t, nap1.MaxDurationMinutes)
	assert.NotEmpty(t, nap1.Notes)

	assert.True(t, nap2.Completed)
	assert.Equal(t, 90, *nap2.ActualMinutes)

	// The missed nap is 60 minutes short: 19:15 - 60, floored to 14:30 + 240.
	assertWindow(t, day.Bedtime.Window, "18:30", "18:30", "18:37")
}

func TestThreeNapGapInActual(t *testing.T) {
	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: scheduleOf(models.ScheduleThreeNap),
		Actual: []ActualNap{
			{NapNumber: 1, DurationMinutes: 60, EndedAt: timeRef("09:30")},
			{NapNumber: 3, DurationMinutes: 30, EndedAt: timeRef("16:00")},
		},
	})

	require.Len(t, day.Naps, 3)
	assert.True(t, day.Naps[0].Completed)
	assert.True(t, day.Naps[1].Missed)
	assert.False(t, day.Naps[1].Completed)
	assert.True(t, day.Naps[2].Completed)
	assert.Equal(t, 30, *day.Naps[2].ActualMinutes)
}

func TestTwoNapShortFirstNapLeansEarly(t *testing.T) {
	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: scheduleOf(models.ScheduleTwoNap),
		Actual:   []ActualNap{{DurationMinutes: 40, EndedAt: timeRef("10:00")}},
	})

	nap2 := day.Naps[1]
	assertWindow(t, nap2.Window, "12:30", "12:30", "13:00")
	assert.Equal(t, 150, nap2.MaxDurationMinutes)

	// Shortfall 20: 18:55, then floored to 15:00 + 240.
	assertWindow(t, day.Bedtime.Window, "18:53", "19:00", "19:07")
}

func TestTwoNapDaySleepCapLimitsSecondNap(t *testing.T) {
	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: scheduleOf(models.ScheduleTwoNap),
		Actual:   []ActualNap{{DurationMinutes: 150, EndedAt: timeRef("11:00")}},
	})

	nap2 := day.Naps[1]
	assertWindow(t, nap2.Window, "13:30", "13:45", "14:00")
	assert.Equal(t, 60, nap2.MaxDurationMinutes)
	assert.False(t, nap2.Skip)

	// Nap 2 estimated 13:45-14:45: late rule gives 19:30, held to 14:45 + 270.
	assert.Equal(t, clockAt("19:15"), day.Bedtime.Window.Recommended)
}

func TestTwoNapEndByForcesSkip(t *testing.T) {
	s := scheduleOf(models.ScheduleTwoNap)
	s.Config.Naps[1].EndBy = clk("15:00")

	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: s,
		Actual:   []ActualNap{{DurationMinutes: 120, EndedAt: timeRef("14:00")}},
	})

	nap2 := day.Naps[1]
	// 14:00 + WW2 starts at 16:30, past the 14:30 latest start.
	assertWindow(t, nap2.Window, "14:30", "14:30", "14:30")
	assert.Contains(t, nap2.Notes[0], "do not overlap")
	assert.True(t, nap2.Skip)
	assert.Equal(t, 0, nap2.MaxDurationMinutes)
	assert.Contains(t, nap2.Notes[len(nap2.Notes)-1], "skip nap 2, go to bedtime early")

	// Skipped nap 2 counts 60 short: 18:15, clamped up to the 18:30 earliest bedtime.
	assertWindow(t, day.Bedtime.Window, "18:30", "18:30", "18:37")
}

func TestTwoNapEndByLeansEarliest(t *testing.T) {
	s := scheduleOf(models.ScheduleTwoNap)
	s.Config.Naps[1].EndBy = clk("14:55")

	day := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: s,
		Actual:   []ActualNap{{DurationMinutes: 120, EndedAt: timeRef("11:30")}},
	})

	nap2 := day.Naps[1]
	assertWindow(t, nap2.Window, "14:00", "14:00", "14:30")
	assert.Equal(t, 55, nap2.MaxDurationMinutes)
	assert.False(t, nap2.Skip)
}

func TestTwoNapBothNapsDone(t *testing.T) {
	tests := []struct {
		name    string
		nap2    ActualNap
		bedtime string
	}{
		{name: "late second nap", nap2: ActualNap{DurationMinutes: 90, EndedAt: timeRef("15:30")}, bedtime: "19:30"},
		// 19:05 from the early rule, held to 14:30 + 270.
		{name: "early second nap", nap2: ActualNap{DurationMinutes: 90, EndedAt: timeRef("14:30")}, bedtime: "19:00"},
		{name: "short second nap", nap2: ActualNap{DurationMinutes: 30, EndedAt: timeRef("14:45")}, bedtime: "18:45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := Calculate(Input{
				WakeTime: clockAt("07:00"),
				Schedule: scheduleOf(models.ScheduleTwoNap),
				Actual:   []ActualNap{{DurationMinutes: 120, EndedAt: timeRef("11:15")}, tt.nap2},
			})
			assert.True(t, day.Naps[1].Completed)
			assert.Equal(t, clockAt(tt.bedtime), day.Bedtime.Window.Recommended)
		})
	}
}

func TestOneNapBedtimeTiers(t *testing.T) {
	tests := []struct {
		minutes int
		ended   string
		bedtime string
	}{
		{minutes: 130, ended: "14:30", bedtime: "19:15"},
		{minutes: 120, ended: "14:30", bedtime: "19:15"},
		{minutes: 100, ended: "14:30", bedtime: "19:00"},
		{minutes: 75, ended: "14:30", bedtime: "18:45"},
		{minutes: 59, ended: "14:30", bedtime: "18:44"},
		{minutes: 45, ended: "14:30", bedtime: "18:37"},
		{minutes: 30, ended: "14:30", bedtime: "18:30"},
		{minutes: 20, ended: "12:35", bedtime: "18:00"},
	}
	for _, tt := range tests {
		day := Calculate(Input{
			WakeTime: clockAt("07:00"),
			Schedule: scheduleOf(models.ScheduleOneNap),
			Actual:   []ActualNap{{DurationMinutes: tt.minutes, EndedAt: timeRef(tt.ended)}},
		})
		assert.Equal(t, clockAt(tt.bedtime), day.Bedtime.Window.Recommended, "nap of %d minutes", tt.minutes)
	}
}

func TestOneNapFromWakeTime(t *testing.T) {
	day := Calculate(Input{WakeTime: clockAt("07:00"), Schedule: scheduleOf(models.ScheduleOneNap)})

	require.Len(t, day.Naps, 1)
	assertWindow(t, day.Naps[0].Window, "12:00", "12:15", "12:30")
	assert.Equal(t, 150, day.Naps[0].MaxDurationMinutes)
	assertWindow(t, day.Bedtime.Window, "19:08", "19:15", "19:22")
}

func TestTransitionCentersNapOnCurrentTime(t *testing.T) {
	tr := &models.Transition{CurrentWeek: 2, TargetWeeks: 4, CurrentNapTime: timewindow.MustClock("11:15")}
	day := Calculate(Input{
		WakeTime:   clockAt("07:00"),
		Schedule:   scheduleOf(models.ScheduleTransition),
		Transition: tr,
	})

	assertWindow(t, day.Naps[0].Window, "11:00", "11:15", "11:30")
	assert.Contains(t, day.Naps[0].Notes[0], "week 2 of 4")

	done := time.Now()
	tr.CompletedAt = &done
	day = Calculate(Input{WakeTime: clockAt("07:00"), Schedule: scheduleOf(models.ScheduleTransition), Transition: tr})
	assertWindow(t, day.Naps[0].Window, "11:30", "11:45", "12:00")
}

func TestThreeNapChain(t *testing.T) {
	day := Calculate(Input{WakeTime: clockAt("07:00"), Schedule: scheduleOf(models.ScheduleThreeNap)})

	require.Len(t, day.Naps, 3)
	assertWindow(t, day.Naps[0].Window, "08:30", "08:45", "09:00")
	assertWindow(t, day.Naps[1].Window, "12:15", "12:30", "12:45")
	assertWindow(t, day.Naps[2].Window, "16:00", "16:15", "16:30")
	assert.Equal(t, 45, day.Naps[2].MaxDurationMinutes)
	assertWindow(t, day.Bedtime.Window, "19:38", "19:45", "19:45")
}

func TestCalculateUnknownTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		Calculate(Input{WakeTime: clockAt("07:00"), Schedule: models.SleepSchedule{Type: "FOUR_NAP"}})
	})
}

func TestCalculateFallsBackToDefaultsForBrokenConfig(t *testing.T) {
	s := scheduleOf(models.ScheduleTwoNap)
	s.Config.Naps = s.Config.Naps[:1]

	day := Calculate(Input{WakeTime: clockAt("07:00"), Schedule: s})
	require.Len(t, day.Naps, 2)
	require.Len(t, day.Notes, 1)
	assert.Contains(t, day.Notes[0], "defaults")
}

func TestWindowsAlwaysOrdered(t *testing.T) {
	broken := scheduleOf(models.ScheduleTwoNap)
	// Bounds that can never overlap a sensible wake window.
	broken.Config.Naps[0].Earliest = clk("13:00")
	broken.Config.Naps[0].LatestStart = clk("13:30")
	broken.Config.Naps[1].LatestStart = clk("12:05")

	schedules := []models.SleepSchedule{
		scheduleOf(models.ScheduleThreeNap),
		scheduleOf(models.ScheduleTwoNap),
		scheduleOf(models.ScheduleOneNap),
		scheduleOf(models.ScheduleTransition),
		broken,
	}
	actuals := [][]ActualNap{
		nil,
		{{DurationMinutes: 0}},
		{{DurationMinutes: 25}, {DurationMinutes: 200}},
		{{DurationMinutes: 300, EndedAt: timeRef("15:00")}},
	}
	for _, s := range schedules {
		for wake := clockAt("04:00"); wake.Before(clockAt("13:00")); wake = wake.Add(10 * time.Minute) {
			for _, a := range actuals {
				day := Calculate(Input{WakeTime: wake, Schedule: s, Actual: a})
				for _, n := range day.Naps {
					require.True(t, n.Window.Valid(), "%s wake %s nap %d", s.Type, hhmm(wake), n.NapNumber)
					require.GreaterOrEqual(t, n.MaxDurationMinutes, 0)
				}
				b := day.Bedtime.Window
				require.True(t, b.Valid(), "%s wake %s bedtime", s.Type, hhmm(wake))
				require.False(t, b.Earliest.Before(clockAt(s.Config.BedtimeEarliest.String())))
				require.False(t, b.Latest.After(clockAt(s.Config.BedtimeLatest.String())))
			}
		}
	}
}

func TestCalculateUsesLocalClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// DST starts at 02:00 on 2026-03-08; the wake is after the jump.
	wake := time.Date(2026, 3, 8, 7, 0, 0, 0, ny)
	day := Calculate(Input{WakeTime: wake, Schedule: scheduleOf(models.ScheduleTwoNap), Location: ny})

	assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, ny), day.Naps[0].Window.Earliest)
	assert.Equal(t, time.Date(2026, 3, 8, 19, 30, 0, 0, ny), day.Bedtime.Window.Recommended)
}
