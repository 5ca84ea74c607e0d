package schedule

import (
	"fmt"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

// Action is what the caregiver should do next.
type Action string

const (
	ActionNap     Action = "NAP"
	ActionBedtime Action = "BEDTIME"
	ActionWait    Action = "WAIT"
	ActionWake    Action = "WAKE"
)

// leadTime is how far ahead of a window's earliest edge the advisor switches
// from WAIT to the action itself.
const leadTime = 30 * time.Minute

// NextActionRecommendation is the advisor's answer.
type NextActionRecommendation struct {
	Action         Action             `json:"action"`
	NapNumber      *int               `json:"napNumber,omitempty"`
	Window         *timewindow.Window `json:"window,omitempty"`
	MinutesUntil   *int               `json:"minutesUntil,omitempty"`
	MinutesOverdue *int               `json:"minutesOverdue,omitempty"`
	Notes          []string           `json:"notes,omitempty"`
}

// NextActionInput describes the child's situation right now.
type NextActionInput struct {
	Now           time.Time
	Day           DayScheduleRecommendation
	CompletedNaps int
	Asleep        bool
	WakeDeadline  *time.Time
}

// NextAction picks WAKE, WAIT, NAP or BEDTIME.
func NextAction(in NextActionInput) NextActionRecommendation {
	if in.Asleep {
		return whileAsleep(in)
	}

	for i := range in.Day.Naps {
		nap := in.Day.Naps[i]
		if nap.Completed || nap.Skip || nap.NapNumber <= in.CompletedNaps {
			continue
		}
		num := nap.NapNumber
		w := nap.Window
		rec := approach(in.Now, ActionNap, w, fmt.Sprintf("nap %d", num))
		rec.NapNumber = &num
		rec.Notes = append(rec.Notes, nap.Notes...)
		return rec
	}

	rec := approach(in.Now, ActionBedtime, in.Day.Bedtime.Window, "bedtime")
	rec.Notes = append(rec.Notes, in.Day.Bedtime.Notes...)
	return rec
}

func approach(now time.Time, action Action, w timewindow.Window, what string) NextActionRecommendation {
	if w.Earliest.Sub(now) > leadTime {
		until := timewindow.MinutesBetween(now, w.Earliest)
		return NextActionRecommendation{
			Action:       ActionWait,
			Window:       &w,
			MinutesUntil: &until,
			Notes:        []string{fmt.Sprintf("%d minutes until %s at %s.", until, what, hhmm(w.Earliest))},
		}
	}
	return NextActionRecommendation{Action: action, Window: &w}
}

func whileAsleep(in NextActionInput) NextActionRecommendation {
	if in.WakeDeadline == nil {
		return NextActionRecommendation{Action: ActionWait}
	}
	deadline := *in.WakeDeadline
	if !in.Now.Before(deadline) {
		overdue := timewindow.MinutesBetween(deadline, in.Now)
		return NextActionRecommendation{
			Action:         ActionWake,
			MinutesOverdue: &overdue,
			Notes:          []string{fmt.Sprintf("Wake by %s has passed.", hhmm(deadline))},
		}
	}
	if deadline.Sub(in.Now) <= leadTime {
		until := timewindow.MinutesBetween(in.Now, deadline)
		return NextActionRecommendation{
			Action:       ActionWait,
			MinutesUntil: &until,
			Notes:        []string{fmt.Sprintf("Wake by %s.", hhmm(deadline))},
		}
	}
	return NextActionRecommendation{Action: ActionWait}
}
