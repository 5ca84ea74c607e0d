package schedule

import (
	"fmt"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

var (
	skippedNapBandStart = timewindow.MustClock("12:15")
	skippedNapBandEnd   = timewindow.MustClock("12:30")
	lateNapCutoff       = timewindow.MustClock("14:30")

	oneNapLongBedtime    = timewindow.MustClock("19:15")
	oneNapMediumBedtime  = timewindow.MustClock("19:00")
	oneNapShortBedtime   = timewindow.MustClock("18:45")
	oneNapMissedBedtime  = timewindow.MustClock("18:00")
	oneNapShortSteepness = 120
)

// napFacts is what the nap-2 rules look at.
type napFacts struct {
	prevEnd     time.Time
	prevMinutes int
	prevSkipped bool
	ww          models.MinMax
	nap         models.NapConfig
}

// napRule yields a window and max duration when its guard matches.
type napRule struct {
	name  string
	when  func(napFacts) bool
	apply func(*calc, napFacts) (timewindow.Window, int)
	note  func(napFacts) string
}

func exceptionMax(nc models.NapConfig) int {
	if nc.ExceptionMaxMinutes > 0 {
		return nc.ExceptionMaxMinutes
	}
	return nc.MaxDurationMinutes
}

// secondNapRules is evaluated top to bottom; the first match wins.
var secondNapRules = []napRule{
	{
		name: "first-nap-skipped",
		when: func(f napFacts) bool { return f.prevSkipped },
		apply: func(c *calc, f napFacts) (timewindow.Window, int) {
			w, _ := timewindow.New(c.at(skippedNapBandStart), c.at(skippedNapBandEnd))
			return w.LeanEarliest(), exceptionMax(f.nap)
		},
		note: func(napFacts) string {
			return "Nap 1 was skipped; offer nap 2 early and let it run long."
		},
	},
	{
		name: "first-nap-short",
		when: func(f napFacts) bool { return f.prevMinutes < napGoalMinutes },
		apply: func(_ *calc, f napFacts) (timewindow.Window, int) {
			w, _ := wakeWindowFrom(f.prevEnd, f.ww)
			return w.LeanEarliest(), exceptionMax(f.nap)
		},
		note: func(f napFacts) string {
			return fmt.Sprintf("Nap 1 was short (%d minutes); offer nap 2 at the start of the window.", f.prevMinutes)
		},
	},
	{
		name: "default",
		when: func(napFacts) bool { return true },
		apply: func(_ *calc, f napFacts) (timewindow.Window, int) {
			w, _ := wakeWindowFrom(f.prevEnd, f.ww)
			return w, f.nap.MaxDurationMinutes
		},
		note: func(napFacts) string { return "" },
	},
}

// bedtimeFacts is what the bedtime rules look at.
type bedtimeFacts struct {
	baseline       time.Time
	shortfall      int
	lastEnd        time.Time
	lastNapSkipped bool
	napMinutes     int
}

type bedtimeRule struct {
	name  string
	when  func(*calc, bedtimeFacts) bool
	apply func(*calc, bedtimeFacts) time.Time
	note  func(bedtimeFacts) string
}

func firstBedtime(rules []bedtimeRule, c *calc, f bedtimeFacts) (time.Time, string) {
	for _, r := range rules {
		if r.when(c, f) {
			return r.apply(c, f), r.note(f)
		}
	}
	return f.baseline, ""
}

var twoNapBedtimeRules = []bedtimeRule{
	{
		name: "nap-shortfall",
		when: func(_ *calc, f bedtimeFacts) bool { return f.shortfall > 0 },
		apply: func(_ *calc, f bedtimeFacts) time.Time {
			return f.baseline.Add(-mins(min(f.shortfall, maxShortfallShiftMinutes)))
		},
		note: func(f bedtimeFacts) string {
			return fmt.Sprintf("Naps came up %d minutes short; bedtime moved %d minutes earlier.",
				f.shortfall, min(f.shortfall, maxShortfallShiftMinutes))
		},
	},
	{
		name: "late-second-nap",
		when: func(c *calc, f bedtimeFacts) bool {
			return !f.lastNapSkipped && f.lastEnd.After(c.at(lateNapCutoff))
		},
		apply: func(_ *calc, f bedtimeFacts) time.Time { return f.baseline.Add(15 * time.Minute) },
		note:  func(bedtimeFacts) string { return "Nap 2 ran late; bedtime nudged later." },
	},
	{
		name:  "early-second-nap",
		when:  func(_ *calc, f bedtimeFacts) bool { return !f.lastNapSkipped },
		apply: func(_ *calc, f bedtimeFacts) time.Time { return f.baseline.Add(-10 * time.Minute) },
		note:  func(bedtimeFacts) string { return "Nap 2 ended early; bedtime nudged earlier." },
	},
	{
		name:  "baseline",
		when:  func(*calc, bedtimeFacts) bool { return true },
		apply: func(_ *calc, f bedtimeFacts) time.Time { return f.baseline },
		note:  func(bedtimeFacts) string { return "" },
	},
}

func napAtLeast(n int) func(*calc, bedtimeFacts) bool {
	return func(_ *calc, f bedtimeFacts) bool { return f.napMinutes >= n }
}

func fixedBedtime(cl timewindow.Clock) func(*calc, bedtimeFacts) time.Time {
	return func(c *calc, _ bedtimeFacts) time.Time { return c.at(cl) }
}

var oneNapBedtimeRules = []bedtimeRule{
	{
		name:  "long-nap",
		when:  napAtLeast(120),
		apply: fixedBedtime(oneNapLongBedtime),
		note:  func(bedtimeFacts) string { return "" },
	},
	{
		name:  "solid-nap",
		when:  napAtLeast(90),
		apply: fixedBedtime(oneNapMediumBedtime),
		note:  func(bedtimeFacts) string { return "Nap was a little short; bedtime 15 minutes earlier." },
	},
	{
		name:  "short-nap",
		when:  napAtLeast(60),
		apply: fixedBedtime(oneNapShortBedtime),
		note:  func(bedtimeFacts) string { return "Nap was short; bedtime 30 minutes earlier." },
	},
	{
		name: "very-short-nap",
		when: napAtLeast(30),
		apply: func(c *calc, f bedtimeFacts) time.Time {
			// Half-up rounding of (steepness - d) / 2.
			shift := (oneNapShortSteepness - f.napMinutes + 1) / 2
			return c.at(oneNapLongBedtime).Add(-mins(shift))
		},
		note: func(f bedtimeFacts) string {
			return fmt.Sprintf("Nap was only %d minutes; bedtime scaled earlier.", f.napMinutes)
		},
	},
	{
		name:  "missed-nap",
		when:  func(*calc, bedtimeFacts) bool { return true },
		apply: fixedBedtime(oneNapMissedBedtime),
		note:  func(bedtimeFacts) string { return "Nap was missed or under 30 minutes; earliest bedtime." },
	},
}

func (c *calc) twoNap() {
	nap1Cfg, nap2Cfg := c.cfg.Naps[0], c.cfg.Naps[1]

	nap1 := c.fromWakeWindow(1, c.in.WakeTime, c.cfg.WakeWindows[0], nap1Cfg)
	nap1Minutes, nap1End := c.settle(&nap1, nap1Cfg, c.actual(0), 0)

	f := napFacts{
		prevEnd:     nap1End,
		prevMinutes: nap1Minutes,
		prevSkipped: nap1.Skip || (nap1.Completed && nap1Minutes == 0),
		ww:          c.cfg.WakeWindows[1],
		nap:         nap2Cfg,
	}
	nap2 := NapRecommendation{NapNumber: 2}
	for _, r := range secondNapRules {
		if r.when(f) {
			nap2.Window, nap2.MaxDurationMinutes = r.apply(c, f)
			nap2.note(r.note(f))
			break
		}
	}
	nap2.Window = c.narrow(&nap2, nap2.Window, nap2Cfg)
	nap2Minutes, nap2End := c.settle(&nap2, nap2Cfg, c.actual(1), nap1Minutes)
	c.out.Naps = []NapRecommendation{nap1, nap2}

	shortfall := 0
	for _, n := range c.out.Naps {
		switch {
		case n.Completed:
			shortfall += max(0, napGoalMinutes-*n.ActualMinutes)
		case n.Skip && (n.NapNumber == 2 || n.Missed):
			shortfall += napGoalMinutes
		}
	}
	lastEnd := nap2End
	if nap2.Skip {
		lastEnd = nap1End
	}
	bf := bedtimeFacts{
		baseline:       timewindow.Midpoint(c.at(c.cfg.BedtimeGoalStart), c.at(c.cfg.BedtimeGoalEnd)),
		shortfall:      shortfall,
		lastEnd:        lastEnd,
		lastNapSkipped: nap2.Skip || (nap2.Completed && nap2Minutes == 0),
	}
	rec, note := firstBedtime(twoNapBedtimeRules, c, bf)
	var bed BedtimeRecommendation
	bed.note(note)
	c.finishBedtime(&bed, rec, lastEnd, c.cfg.WakeWindows[2])
	c.out.Bedtime = bed
}

func (c *calc) oneNap() {
	nc := c.cfg.Naps[0]
	var nap NapRecommendation
	if t := c.in.Transition; t != nil && t.Active() {
		nap = NapRecommendation{
			NapNumber:          1,
			Window:             timewindow.Around(c.at(t.CurrentNapTime), transitionHalfWidth),
			MaxDurationMinutes: nc.MaxDurationMinutes,
		}
		nap.note(fmt.Sprintf("Transition week %d of %d: nap centered on %s.", t.CurrentWeek, t.TargetWeeks, t.CurrentNapTime))
	} else {
		nap = c.fromWakeWindow(1, c.in.WakeTime, c.cfg.WakeWindows[0], nc)
	}
	napMinutes, end := c.settle(&nap, nc, c.actual(0), 0)
	c.out.Naps = []NapRecommendation{nap}

	rec, note := firstBedtime(oneNapBedtimeRules, c, bedtimeFacts{napMinutes: napMinutes, lastEnd: end})
	var bed BedtimeRecommendation
	bed.note(note)
	c.finishBedtime(&bed, rec, end, c.cfg.WakeWindows[1])
	c.out.Bedtime = bed
}
