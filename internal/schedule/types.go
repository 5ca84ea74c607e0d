package schedule

import (
	"time"

	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

// ActualNap is a nap that already happened today.
type ActualNap struct {
	// NapNumber is the slot the nap filled. Zero fills the slot at the
	// nap's position in Input.Actual.
	NapNumber       int
	DurationMinutes int
	EndedAt         *time.Time
}

// Input is everything the calculator needs for one day.
type Input struct {
	WakeTime   time.Time
	Schedule   models.SleepSchedule
	Transition *models.Transition
	Actual     []ActualNap
	Location   *time.Location
}

// NapRecommendation is the plan for a single nap slot.
type NapRecommendation struct {
	NapNumber          int               `json:"napNumber"`
	Window             timewindow.Window `json:"window"`
	MaxDurationMinutes int               `json:"maxDurationMinutes"`
	Completed          bool              `json:"completed"`
	ActualMinutes      *int              `json:"actualMinutes,omitempty"`
	Skip               bool              `json:"skip"`
	Missed             bool              `json:"missed,omitempty"`
	Notes              []string          `json:"notes,omitempty"`
}

// BedtimeRecommendation is the plan for bedtime.
type BedtimeRecommendation struct {
	Window timewindow.Window `json:"window"`
	Notes  []string          `json:"notes,omitempty"`
}

// DayScheduleRecommendation is the full plan for a day.
type DayScheduleRecommendation struct {
	ScheduleType models.ScheduleType   `json:"scheduleType"`
	WakeTime     time.Time             `json:"wakeTime"`
	Naps         []NapRecommendation   `json:"naps"`
	Bedtime      BedtimeRecommendation `json:"bedtime"`
	Notes        []string              `json:"notes,omitempty"`
}

func (n *NapRecommendation) note(s string) {
	if s != "" {
		n.Notes = append(n.Notes, s)
	}
}

func (b *BedtimeRecommendation) note(s string) {
	if s != "" {
		b.Notes = append(b.Notes, s)
	}
}
