package schedule

import (
	"fmt"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

const (
	// napGoalMinutes is the length below which a nap counts as short.
	napGoalMinutes = 60
	// minimumUsefulNapMinutes is the shortest nap worth offering.
	minimumUsefulNapMinutes = 45
	maxShortfallShiftMinutes = 90

	bedtimeHalfWidth    = 7 * time.Minute
	transitionHalfWidth = 15 * time.Minute
)

type calc struct {
	in  Input
	cfg models.ScheduleConfig
	loc *time.Location
	out DayScheduleRecommendation
}

// Calculate builds the day's nap and bedtime plan. It never fails: degenerate
// ranges are clamped and annotated. Callers must pass a known schedule type.
func Calculate(in Input) DayScheduleRecommendation {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	c := &calc{
		in:  in,
		cfg: in.Schedule.Config,
		loc: loc,
		out: DayScheduleRecommendation{ScheduleType: in.Schedule.Type, WakeTime: in.WakeTime},
	}
	if _, known := requiredNaps[in.Schedule.Type]; known {
		if err := Validate(in.Schedule.Type, c.cfg); err != nil {
			c.cfg = mustDefaults(in.Schedule.Type)
			c.out.Notes = append(c.out.Notes, fmt.Sprintf("Stored schedule is unusable (%v); using %s defaults.", err, in.Schedule.Type))
		}
	}

	switch in.Schedule.Type {
	case models.ScheduleThreeNap:
		c.chain()
	case models.ScheduleTwoNap:
		c.twoNap()
	case models.ScheduleOneNap, models.ScheduleTransition:
		c.oneNap()
	default:
		panic(fmt.Sprintf("schedule: unknown schedule type %q", in.Schedule.Type))
	}
	return c.out
}

func (c *calc) at(cl timewindow.Clock) time.Time {
	return cl.On(c.in.WakeTime, c.loc)
}

func (c *calc) atPtr(cl *timewindow.Clock) *time.Time {
	if cl == nil {
		return nil
	}
	t := c.at(*cl)
	return &t
}

// actual is the logged nap for slot i (0-based), or nil.
func (c *calc) actual(i int) *ActualNap {
	for j := range c.in.Actual {
		if c.in.Actual[j].NapNumber == i+1 {
			return &c.in.Actual[j]
		}
	}
	if i < len(c.in.Actual) && c.in.Actual[i].NapNumber == 0 {
		return &c.in.Actual[i]
	}
	return nil
}

// loggedAfter reports whether any slot after i has a logged nap.
func (c *calc) loggedAfter(i int) bool {
	for j := i + 1; j < len(c.cfg.Naps); j++ {
		if c.actual(j) != nil {
			return true
		}
	}
	return false
}

func mins(n int) time.Duration { return time.Duration(n) * time.Minute }

func hhmm(t time.Time) string { return t.Format("15:04") }

func wakeWindowFrom(prevEnd time.Time, ww models.MinMax) (timewindow.Window, string) {
	return timewindow.New(prevEnd.Add(mins(ww.Min)), prevEnd.Add(mins(ww.Max)))
}

// fromWakeWindow recommends the midpoint of the wake window after prevEnd,
// narrowed by the nap's clock bounds.
func (c *calc) fromWakeWindow(num int, prevEnd time.Time, ww models.MinMax, nc models.NapConfig) NapRecommendation {
	rec := NapRecommendation{NapNumber: num, MaxDurationMinutes: nc.MaxDurationMinutes}
	w, note := wakeWindowFrom(prevEnd, ww)
	rec.note(note)
	rec.Window = c.narrow(&rec, w, nc)
	return rec
}

func (c *calc) narrow(rec *NapRecommendation, w timewindow.Window, nc models.NapConfig) timewindow.Window {
	nw, note := w.Narrow(c.atPtr(nc.Earliest), c.atPtr(nc.LatestStart))
	rec.note(note)
	return nw
}

// settle marks a nap completed from actual data or fits an upcoming nap into
// the day. A slot with no data is missed once a later slot has data. It
// returns the minutes the nap contributes and when it ends.
func (c *calc) settle(rec *NapRecommendation, nc models.NapConfig, a *ActualNap, usedMinutes int) (int, time.Time) {
	if a != nil {
		d := a.DurationMinutes
		rec.Completed = true
		rec.ActualMinutes = &d
		if a.EndedAt != nil {
			return d, *a.EndedAt
		}
		return d, rec.Window.Recommended.Add(mins(d))
	}
	if c.loggedAfter(rec.NapNumber - 1) {
		rec.Missed = true
		c.skip(rec, fmt.Sprintf("Nap %d was not logged and a later nap already happened.", rec.NapNumber))
		return 0, rec.Window.Recommended
	}
	c.fit(rec, nc, usedMinutes)
	if rec.Skip {
		return 0, rec.Window.Recommended
	}
	return rec.MaxDurationMinutes, rec.Window.Recommended.Add(mins(rec.MaxDurationMinutes))
}

// fit applies the per-nap cap, the day sleep cap and the end-by bound.
func (c *calc) fit(rec *NapRecommendation, nc models.NapConfig, usedMinutes int) {
	if napCap := c.cfg.NapCapMinutes; napCap > 0 && rec.MaxDurationMinutes > napCap {
		rec.MaxDurationMinutes = napCap
	}
	if dayCap := c.cfg.DaySleepCapMinutes; dayCap > 0 {
		left := max(0, dayCap-usedMinutes)
		if left < rec.MaxDurationMinutes {
			rec.MaxDurationMinutes = left
			if left < minimumUsefulNapMinutes {
				c.skip(rec, fmt.Sprintf("Day sleep cap of %d minutes is nearly used; skip nap %d, go to bedtime early.", dayCap, rec.NapNumber))
				return
			}
			rec.note(fmt.Sprintf("Max shortened to %d minutes to stay under the %d-minute day sleep cap.", left, dayCap))
		}
	}
	if nc.EndBy == nil {
		return
	}
	endBy := c.at(*nc.EndBy)
	if timewindow.MinutesBetween(rec.Window.Earliest, endBy) < minimumUsefulNapMinutes {
		c.skip(rec, fmt.Sprintf("Not enough time before %s; skip nap %d, go to bedtime early.", hhmm(endBy), rec.NapNumber))
		return
	}
	room := timewindow.MinutesBetween(rec.Window.Recommended, endBy)
	if room < minimumUsefulNapMinutes {
		rec.Window = rec.Window.LeanEarliest()
		room = timewindow.MinutesBetween(rec.Window.Recommended, endBy)
		rec.note(fmt.Sprintf("Start at the earliest edge to fit before %s.", hhmm(endBy)))
	}
	if room < rec.MaxDurationMinutes {
		rec.MaxDurationMinutes = room
		rec.note(fmt.Sprintf("Max shortened to %d minutes to end by %s.", room, hhmm(endBy)))
	}
}

func (c *calc) skip(rec *NapRecommendation, note string) {
	rec.Skip = true
	rec.MaxDurationMinutes = 0
	rec.note(note)
}

// finishBedtime bounds rec by the final wake window, clamps it into the
// configured bedtime range and recenters the window around it.
func (c *calc) finishBedtime(b *BedtimeRecommendation, rec, lastEnd time.Time, ww models.MinMax) {
	if ceil := lastEnd.Add(mins(ww.Max)); rec.After(ceil) {
		rec = ceil
		b.note(fmt.Sprintf("Bedtime held to %s, %d minutes after the last nap.", hhmm(ceil), ww.Max))
	}
	if floor := lastEnd.Add(mins(ww.Min)); rec.Before(floor) {
		rec = floor
		b.note(fmt.Sprintf("Bedtime kept at least %d minutes after the last nap.", ww.Min))
	}
	lo, hi := c.at(c.cfg.BedtimeEarliest), c.at(c.cfg.BedtimeLatest)
	if clamped := timewindow.Clamp(rec, lo, hi); !clamped.Equal(rec) {
		rec = clamped
		b.note(fmt.Sprintf("Bedtime clamped into %s to %s.", hhmm(lo), hhmm(hi)))
	}
	b.Window = timewindow.Point(rec).Recenter(bedtimeHalfWidth, lo, hi)
}

// chain plans each nap off the previous one. Used by the three-nap schedule.
func (c *calc) chain() {
	prevEnd := c.in.WakeTime
	used := 0
	for i, nc := range c.cfg.Naps {
		nap := c.fromWakeWindow(i+1, prevEnd, c.cfg.WakeWindows[i], nc)
		minutes, end := c.settle(&nap, nc, c.actual(i), used)
		if !nap.Skip {
			used += minutes
			prevEnd = end
		}
		c.out.Naps = append(c.out.Naps, nap)
	}

	ww := c.cfg.WakeWindows[len(c.cfg.WakeWindows)-1]
	w, _ := wakeWindowFrom(prevEnd, ww)
	var bed BedtimeRecommendation
	c.finishBedtime(&bed, w.Recommended, prevEnd, ww)
	c.out.Bedtime = bed
}
