package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalecode-solutions/naptrack/internal/models"
)

func TestNextActionAwake(t *testing.T) {
	fresh := Calculate(Input{WakeTime: clockAt("07:00"), Schedule: scheduleOf(models.ScheduleTwoNap)})
	done := Calculate(Input{
		WakeTime: clockAt("07:00"),
		Schedule: scheduleOf(models.ScheduleTwoNap),
		Actual: []ActualNap{
			{DurationMinutes: 120, EndedAt: timeRef("11:15")},
			{DurationMinutes: 90, EndedAt: timeRef("15:30")},
		},
	})

	tests := []struct {
		name      string
		day       DayScheduleRecommendation
		completed int
		now       string
		action    Action
		napNumber int
		until     int
	}{
		{name: "well before nap 1", day: fresh, now: "08:00", action: ActionWait, napNumber: 0, until: 60},
		{name: "inside lead time", day: fresh, now: "08:35", action: ActionNap, napNumber: 1},
		{name: "exactly 30 minutes out", day: fresh, now: "08:30", action: ActionNap, napNumber: 1},
		{name: "nap 1 done by count", day: fresh, completed: 1, now: "13:30", action: ActionNap, napNumber: 2},
		{name: "waiting for bedtime", day: done, completed: 2, now: "16:00", action: ActionWait, until: 203},
		{name: "bedtime", day: done, completed: 2, now: "19:00", action: ActionBedtime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAction(NextActionInput{Now: clockAt(tt.now), Day: tt.day, CompletedNaps: tt.completed})
			assert.Equal(t, tt.action, got.Action)
			require.NotNil(t, got.Window)
			if tt.napNumber > 0 {
				require.NotNil(t, got.NapNumber)
				assert.Equal(t, tt.napNumber, *got.NapNumber)
			}
			if tt.action == ActionWait {
				require.NotNil(t, got.MinutesUntil)
				assert.Equal(t, tt.until, *got.MinutesUntil)
				assert.NotEmpty(t, got.Notes)
			}
		})
	}
}

func TestNextActionAsleep(t *testing.T) {
	deadline := timeRef("07:30")

	got := NextAction(NextActionInput{Now: clockAt("07:40"), Asleep: true, WakeDeadline: deadline})
	assert.Equal(t, ActionWake, got.Action)
	require.NotNil(t, got.MinutesOverdue)
	assert.Equal(t, 10, *got.MinutesOverdue)

	got = NextAction(NextActionInput{Now: clockAt("07:30"), Asleep: true, WakeDeadline: deadline})
	assert.Equal(t, ActionWake, got.Action)
	assert.Equal(t, 0, *got.MinutesOverdue)

	got = NextAction(NextActionInput{Now: clockAt("07:10"), Asleep: true, WakeDeadline: deadline})
	assert.Equal(t, ActionWait, got.Action)
	require.NotNil(t, got.MinutesUntil)
	assert.Equal(t, 20, *got.MinutesUntil)

	got = NextAction(NextActionInput{Now: clockAt("05:00"), Asleep: true, WakeDeadline: deadline})
	assert.Equal(t, ActionWait, got.Action)
	assert.Nil(t, got.MinutesUntil)

	got = NextAction(NextActionInput{Now: clockAt("05:00"), Asleep: true})
	assert.Equal(t, NextActionRecommendation{Action: ActionWait}, got)
}
