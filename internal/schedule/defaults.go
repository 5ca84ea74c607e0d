// Package schedule derives nap and bedtime recommendations from a configured
// schedule, a wake time and the naps already taken today.
package schedule

import (
	"fmt"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

func clk(s string) *timewindow.Clock {
	c := timewindow.MustClock(s)
	return &c
}

// defaults builds a fresh config per call so callers can never share state.
var defaults = map[models.ScheduleType]func() models.ScheduleConfig{
	models.ScheduleThreeNap: func() models.ScheduleConfig {
		return models.ScheduleConfig{
			WakeWindows: []models.MinMax{{Min: 90, Max: 120}, {Min: 120, Max: 150}, {Min: 120, Max: 150}, {Min: 150, Max: 180}},
			Naps: []models.NapConfig{
				{Earliest: clk("08:00"), LatestStart: clk("09:30"), EndBy: clk("11:00"), MaxDurationMinutes: 90},
				{Earliest: clk("11:30"), LatestStart: clk("13:30"), EndBy: clk("15:00"), MaxDurationMinutes: 90},
				{Earliest: clk("15:00"), LatestStart: clk("16:30"), EndBy: clk("17:30"), MaxDurationMinutes: 45},
			},
			BedtimeEarliest:    timewindow.MustClock("18:30"),
			BedtimeLatest:      timewindow.MustClock("19:45"),
			BedtimeGoalStart:   timewindow.MustClock("19:00"),
			BedtimeGoalEnd:     timewindow.MustClock("19:30"),
			WakeTimeEarliest:   timewindow.MustClock("06:00"),
			WakeTimeLatest:     timewindow.MustClock("07:30"),
			DaySleepCapMinutes: 240,
			MinimumCribMinutes: 60,
			NapCapMinutes:      120,
			MustWakeBy:         clk("07:30"),
		}
	},
	models.ScheduleTwoNap: func() models.ScheduleConfig {
		return models.ScheduleConfig{
			WakeWindows: []models.MinMax{{Min: 120, Max: 150}, {Min: 150, Max: 180}, {Min: 240, Max: 270}},
			Naps: []models.NapConfig{
				{Earliest: clk("08:30"), LatestStart: clk("10:00"), EndBy: clk("12:00"), MaxDurationMinutes: 120},
				{Earliest: clk("12:00"), LatestStart: clk("14:30"), EndBy: clk("16:30"), MaxDurationMinutes: 90, ExceptionMaxMinutes: 150},
			},
			BedtimeEarliest:    timewindow.MustClock("18:30"),
			BedtimeLatest:      timewindow.MustClock("19:45"),
			BedtimeGoalStart:   timewindow.MustClock("19:00"),
			BedtimeGoalEnd:     timewindow.MustClock("19:30"),
			WakeTimeEarliest:   timewindow.MustClock("06:00"),
			WakeTimeLatest:     timewindow.MustClock("07:30"),
			DaySleepCapMinutes: 210,
			MinimumCribMinutes: 90,
			NapCapMinutes:      150,
			MustWakeBy:         clk("07:30"),
		}
	},
	models.ScheduleOneNap: func() models.ScheduleConfig {
		return models.ScheduleConfig{
			WakeWindows: []models.MinMax{{Min: 300, Max: 330}, {Min: 240, Max: 300}},
			Naps: []models.NapConfig{
				{Earliest: clk("11:30"), LatestStart: clk("13:00"), EndBy: clk("15:30"), MaxDurationMinutes: 150},
			},
			BedtimeEarliest:    timewindow.MustClock("18:00"),
			BedtimeLatest:      timewindow.MustClock("19:45"),
			BedtimeGoalStart:   timewindow.MustClock("19:00"),
			BedtimeGoalEnd:     timewindow.MustClock("19:30"),
			WakeTimeEarliest:   timewindow.MustClock("06:00"),
			WakeTimeLatest:     timewindow.MustClock("07:30"),
			DaySleepCapMinutes: 150,
			MinimumCribMinutes: 90,
			NapCapMinutes:      150,
			MustWakeBy:         clk("07:30"),
		}
	},
	models.ScheduleTransition: func() models.ScheduleConfig {
		return models.ScheduleConfig{
			WakeWindows: []models.MinMax{{Min: 270, Max: 300}, {Min: 240, Max: 300}},
			Naps: []models.NapConfig{
				{Earliest: clk("11:00"), LatestStart: clk("13:00"), EndBy: clk("15:30"), MaxDurationMinutes: 150},
			},
			BedtimeEarliest:    timewindow.MustClock("18:00"),
			BedtimeLatest:      timewindow.MustClock("19:45"),
			BedtimeGoalStart:   timewindow.MustClock("19:00"),
			BedtimeGoalEnd:     timewindow.MustClock("19:30"),
			WakeTimeEarliest:   timewindow.MustClock("06:00"),
			WakeTimeLatest:     timewindow.MustClock("07:30"),
			DaySleepCapMinutes: 150,
			MinimumCribMinutes: 90,
			NapCapMinutes:      150,
			MustWakeBy:         clk("07:30"),
		}
	},
}

// requiredNaps is the number of naps after which bedtime is final.
var requiredNaps = map[models.ScheduleType]int{
	models.ScheduleThreeNap:   3,
	models.ScheduleTwoNap:     2,
	models.ScheduleOneNap:     1,
	models.ScheduleTransition: 1,
}

// Defaults returns the default configuration for a schedule type.
func Defaults(t models.ScheduleType) (models.ScheduleConfig, error) {
	build, ok := defaults[t]
	if !ok {
		return models.ScheduleConfig{}, apperr.New(apperr.CodeValidation, "unknown schedule type %q", t)
	}
	return build(), nil
}

// RequiredNaps returns how many naps the schedule type plans per day.
func RequiredNaps(t models.ScheduleType) int {
	return requiredNaps[t]
}

// Validate checks that cfg is structurally usable for schedule type t.
func Validate(t models.ScheduleType, cfg models.ScheduleConfig) error {
	n, ok := requiredNaps[t]
	if !ok {
		return apperr.New(apperr.CodeValidation, "unknown schedule type %q", t)
	}
	if len(cfg.Naps) != n {
		return apperr.New(apperr.CodeValidation, "%s schedules need %d nap configs, got %d", t, n, len(cfg.Naps))
	}
	if len(cfg.WakeWindows) != n+1 {
		return apperr.New(apperr.CodeValidation, "%s schedules need %d wake windows, got %d", t, n+1, len(cfg.WakeWindows))
	}
	for i, ww := range cfg.WakeWindows {
		if ww.Min < 0 || ww.Max < ww.Min {
			return apperr.New(apperr.CodeValidation, "wake window %d is invalid: [%d,%d]", i+1, ww.Min, ww.Max)
		}
	}
	for i, nap := range cfg.Naps {
		if nap.MaxDurationMinutes <= 0 {
			return apperr.New(apperr.CodeValidation, "nap %d needs a positive max duration", i+1)
		}
	}
	if cfg.BedtimeLatest.Before(cfg.BedtimeEarliest) {
		return apperr.New(apperr.CodeValidation, "bedtimeLatest %s is before bedtimeEarliest %s", cfg.BedtimeLatest, cfg.BedtimeEarliest)
	}
	return nil
}

// Effective returns cfg, or the type's defaults when cfg does not validate.
func Effective(t models.ScheduleType, cfg models.ScheduleConfig) models.ScheduleConfig {
	if Validate(t, cfg) == nil {
		return cfg
	}
	if d, err := Defaults(t); err == nil {
		return d
	}
	return cfg
}

func mustDefaults(t models.ScheduleType) models.ScheduleConfig {
	cfg, err := Defaults(t)
	if err != nil {
		panic(fmt.Sprintf("schedule: %v", err))
	}
	return cfg
}
