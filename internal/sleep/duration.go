// Package sleep implements the session lifecycle and the qualified-rest
// calculator.
package sleep

import (
	"math"
	"sort"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

// AdHocMinimumSleepMinutes is the shortest ad-hoc sleep that earns any credit.
const AdHocMinimumSleepMinutes = 15

// Kind is the nap/night axis of a session.
type Kind int

const (
	KindNap Kind = iota
	KindNightSleep
)

// Context is the crib/ad-hoc axis of a session.
type Context int

const (
	ContextCrib Context = iota
	ContextAdHoc
)

// Classify returns the two independent axes that select a calculation rule.
func Classify(s *models.SleepSession) (Kind, Context) {
	kind := KindNap
	if s.SessionType == models.SessionTypeNightSleep {
		kind = KindNightSleep
	}
	ctx := ContextCrib
	if s.IsAdHoc {
		ctx = ContextAdHoc
	}
	return kind, ctx
}

// durations mirrors the derived fields of a session.
type durations struct {
	total, sleep, settling, postWake, awakeCrib, qualified *int
}

// Recompute refreshes every derived field of s from its timestamps and
// cycles. It returns the cycles sorted by wake time, renumbered, with their
// own derived fields refreshed. The input slice is not modified.
func Recompute(s *models.SleepSession, cycles []models.SleepCycle) []models.SleepCycle {
	sorted := SortCycles(cycles)
	kind, ctx := Classify(s)

	var d durations
	switch ctx {
	case ContextAdHoc:
		d = adHocDurations(s)
	case ContextCrib:
		switch kind {
		case KindNightSleep:
			if len(sorted) > 0 {
				d = nightDurations(s, sorted)
			} else {
				d = cribDurations(s)
			}
		case KindNap:
			d = cribDurations(s)
		}
	}

	s.TotalMinutes = d.total
	s.SleepMinutes = d.sleep
	s.SettlingMinutes = d.settling
	s.PostWakeMinutes = d.postWake
	s.AwakeCribMinutes = d.awakeCrib
	s.QualifiedRestMinutes = d.qualified
	return sorted
}

// SortCycles returns a copy of cycles ordered by wake time and renumbered 1..n.
func SortCycles(cycles []models.SleepCycle) []models.SleepCycle {
	out := make([]models.SleepCycle, len(cycles))
	copy(out, cycles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WokeUpAt.Before(out[j].WokeUpAt)
	})
	for i := range out {
		out[i].CycleNumber = i + 1
	}
	return out
}

func cribDurations(s *models.SleepSession) durations {
	d := durations{total: between(s.PutDownAt, s.OutOfCribAt)}

	// Completed without ever sleeping: the whole crib stay was settling.
	if s.AsleepAt == nil && s.State == models.StateCompleted && d.total != nil {
		total := *d.total
		d.sleep = intPtr(0)
		d.settling = intPtr(total)
		d.postWake = intPtr(0)
		d.awakeCrib = intPtr(total)
		d.qualified = intPtr(roundHalfUp(float64(total) / 2))
		return d
	}

	d.sleep = between(s.AsleepAt, s.WokeUpAt)
	d.settling = between(s.PutDownAt, s.AsleepAt)
	d.postWake = between(s.WokeUpAt, s.OutOfCribAt)
	d.awakeCrib = sum(d.settling, d.postWake)
	d.qualified = qualified(d.awakeCrib, d.sleep)
	return d
}

func adHocDurations(s *models.SleepSession) durations {
	d := durations{
		total: between(s.PutDownAt, s.OutOfCribAt),
		sleep: between(s.AsleepAt, s.WokeUpAt),
	}
	if d.sleep != nil {
		d.qualified = intPtr(AdHocCredit(*d.sleep))
	}
	return d
}

// AdHocCredit is the qualified rest earned by an ad-hoc sleep of the given length.
func AdHocCredit(sleepMinutes int) int {
	if sleepMinutes < AdHocMinimumSleepMinutes {
		return 0
	}
	return roundHalfUp(float64(sleepMinutes) / 2)
}

// nightDurations expects cycles already sorted.
func nightDurations(s *models.SleepSession, cycles []models.SleepCycle) durations {
	d := durations{
		total:    between(s.PutDownAt, s.OutOfCribAt),
		settling: between(s.PutDownAt, s.AsleepAt),
	}

	totalSleep, complete := 0, true
	prev := s.AsleepAt
	quietAwake := 0
	for i := range cycles {
		c := &cycles[i]
		wake := c.WokeUpAt
		c.SleepMinutes = between(prev, &wake)
		c.AwakeMinutes = between(&wake, c.FellBackAsleepAt)
		if c.SleepMinutes == nil {
			complete = false
		} else {
			totalSleep += *c.SleepMinutes
		}
		if c.WakeType == models.WakeQuiet && c.AwakeMinutes != nil {
			quietAwake += *c.AwakeMinutes
		}
		prev = c.FellBackAsleepAt
	}

	last := cycles[len(cycles)-1]
	var finalWake *time.Time
	if last.FellBackAsleepAt == nil {
		w := last.WokeUpAt
		finalWake = &w
	} else {
		if seg := between(last.FellBackAsleepAt, s.WokeUpAt); seg != nil {
			totalSleep += *seg
		} else {
			complete = false
		}
		finalWake = s.WokeUpAt
	}

	if complete {
		d.sleep = intPtr(totalSleep)
	}
	d.postWake = between(finalWake, s.OutOfCribAt)
	if base := sum(d.settling, d.postWake); base != nil {
		d.awakeCrib = intPtr(*base + quietAwake)
	}
	d.qualified = qualified(d.awakeCrib, d.sleep)
	return d
}

// FinalWake returns the instant the child woke for good, or nil if unknown.
func FinalWake(s *models.SleepSession, cycles []models.SleepCycle) *time.Time {
	kind, ctx := Classify(s)
	if kind == KindNightSleep && ctx == ContextCrib && len(cycles) > 0 {
		sorted := SortCycles(cycles)
		last := sorted[len(sorted)-1]
		if last.FellBackAsleepAt == nil {
			w := last.WokeUpAt
			return &w
		}
	}
	if s.WokeUpAt != nil {
		return s.WokeUpAt
	}
	return s.OutOfCribAt
}

func qualified(awake, sleep *int) *int {
	if awake == nil || sleep == nil {
		return nil
	}
	return intPtr(roundHalfUp(float64(*awake)/2 + float64(*sleep)))
}

func between(a, b *time.Time) *int {
	if a == nil || b == nil {
		return nil
	}
	return intPtr(timewindow.MinutesBetween(*a, *b))
}

func sum(a, b *int) *int {
	if a == nil || b == nil {
		return nil
	}
	return intPtr(*a + *b)
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func intPtr(v int) *int { return &v }
