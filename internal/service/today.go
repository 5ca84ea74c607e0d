package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/db"
	"github.com/scalecode-solutions/naptrack/internal/models"
	"github.com/scalecode-solutions/naptrack/internal/schedule"
	"github.com/scalecode-solutions/naptrack/internal/sleep"
	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

const napGoalMinutes = 60

// NapStatus is where a planned nap stands today.
type NapStatus string

const (
	NapCompleted  NapStatus = "completed"
	NapInProgress NapStatus = "in_progress"
	NapSkipped    NapStatus = "skipped"
	NapUpcoming   NapStatus = "upcoming"
)

// DebtLevel buckets sleep debt minutes.
type DebtLevel string

const (
	DebtNone        DebtLevel = "none"
	DebtMild        DebtLevel = "mild"
	DebtSignificant DebtLevel = "significant"
)

// NapSummary is a nap slot of today's plan with its status.
type NapSummary struct {
	schedule.NapRecommendation
	Status               NapStatus `json:"status"`
	SessionID            *int64    `json:"sessionId,omitempty"`
	QualifiedRestMinutes *int      `json:"qualifiedRestMinutes,omitempty"`
}

// AdHocSummary is an out-of-crib sleep logged today.
type AdHocSummary struct {
	SessionID            int64               `json:"sessionId"`
	Location             models.Location     `json:"location"`
	State                models.SessionState `json:"state"`
	AsleepAt             *time.Time          `json:"asleepAt,omitempty"`
	WokeUpAt             *time.Time          `json:"wokeUpAt,omitempty"`
	SleepMinutes         *int                `json:"sleepMinutes,omitempty"`
	QualifiedRestMinutes *int                `json:"qualifiedRestMinutes,omitempty"`
}

// SleepDebt is the nap shortfall not made up by ad-hoc sleep.
type SleepDebt struct {
	Minutes int       `json:"minutes"`
	Level   DebtLevel `json:"level"`
	Note    string    `json:"note,omitempty"`
}

// TodaySummary is the caregiver's dashboard for the current local day.
type TodaySummary struct {
	Date              string                             `json:"date"`
	Timezone          string                             `json:"timezone"`
	WakeTime          time.Time                          `json:"wakeTime"`
	WakeTimeEstimated bool                               `json:"wakeTimeEstimated"`
	Schedule          schedule.DayScheduleRecommendation `json:"schedule"`
	NextAction        schedule.NextActionRecommendation  `json:"nextAction"`
	Naps              []NapSummary                       `json:"naps"`
	AdHocNaps         []AdHocSummary                     `json:"adHocNaps"`
	SleepDebt         SleepDebt                          `json:"sleepDebt"`
	BedtimeFinalized  bool                               `json:"bedtimeFinalized"`
	Notes             []string                           `json:"notes,omitempty"`
}

// dayState is everything known about the child's current local day.
type dayState struct {
	now       time.Time
	loc       *time.Location
	sched     models.SleepSchedule
	cfg       models.ScheduleConfig
	wake      time.Time
	estimated bool
	planned   []models.SleepSession // one completed crib nap per slot, by nap number
	adHoc     []models.SleepSession
	active    *models.SleepSession
	day       schedule.DayScheduleRecommendation
	notes     []string
}

func (s *Service) today(ctx context.Context, a Actor, childID int64) (*dayState, error) {
	if _, _, err := s.authorize(ctx, a, childID, false); err != nil {
		return nil, err
	}
	loc, err := s.location(ctx, a)
	if err != nil {
		return nil, err
	}
	sched, t, err := s.plan(ctx, childID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	st := &dayState{
		now:   now,
		loc:   loc,
		sched: sched,
		cfg:   schedule.Effective(sched.Type, sched.Config),
	}

	// Last night's sleep was put down yesterday.
	sessions, err := s.store.ListSessions(ctx, childID, start.AddDate(0, 0, -1), end)
	if err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	var wake *time.Time
	for i := range sessions {
		sess := sessions[i]
		switch {
		case sess.SessionType == models.SessionTypeNightSleep:
			if sess.State != models.StateCompleted {
				continue
			}
			cycles, err := s.store.ListCycles(ctx, sess.ID)
			if err != nil {
				return nil, storeErr(err, apperr.CodeSessionNotFound, "session %d not found", sess.ID)
			}
			fw := sleep.FinalWake(&sess, cycles)
			if fw == nil || fw.Before(start) || !fw.Before(end) {
				continue
			}
			if wake == nil || fw.After(*wake) {
				wake = fw
			}
		case sess.PutDownAt.Before(start):
		case sess.IsAdHoc:
			st.adHoc = append(st.adHoc, sess)
		case sess.State == models.StateCompleted && sess.NapNumber != nil:
			st.planned = append(st.planned, sess)
		}
	}
	st.planned = bestAttempts(st.planned)

	if wake != nil {
		st.wake = wake.In(loc)
	} else {
		st.wake = timewindow.Midpoint(st.cfg.WakeTimeEarliest.On(now, loc), st.cfg.WakeTimeLatest.On(now, loc))
		st.estimated = true
		st.notes = append(st.notes, fmt.Sprintf("No wake-up logged today; assuming %s.", st.wake.Format("15:04")))
	}

	active, err := s.store.ActiveSession(ctx, childID)
	switch {
	case err == nil:
		st.active = active
	case !errors.Is(err, db.ErrNotFound):
		return nil, storeErr(err, apperr.CodeNotFound, "")
	}

	actual := make([]schedule.ActualNap, len(st.planned))
	for i, p := range st.planned {
		actual[i] = schedule.ActualNap{
			NapNumber:       *p.NapNumber,
			DurationMinutes: deref(p.SleepMinutes),
			EndedAt:         p.WokeUpAt,
		}
		if actual[i].EndedAt == nil {
			actual[i].EndedAt = p.OutOfCribAt
		}
	}
	st.day = schedule.Calculate(schedule.Input{
		WakeTime:   st.wake,
		Schedule:   sched,
		Transition: t,
		Actual:     actual,
		Location:   loc,
	})
	return st, nil
}

// bestAttempts keeps one session per nap number: the attempt with the most
// sleep, the later put-down on a tie. The result is sorted by nap number.
func bestAttempts(naps []models.SleepSession) []models.SleepSession {
	sort.SliceStable(naps, func(i, j int) bool {
		a, b := &naps[i], &naps[j]
		if napNumber(a) != napNumber(b) {
			return napNumber(a) < napNumber(b)
		}
		if deref(a.SleepMinutes) != deref(b.SleepMinutes) {
			return deref(a.SleepMinutes) > deref(b.SleepMinutes)
		}
		return putDownTime(a).After(putDownTime(b))
	})
	out := naps[:0]
	for i := range naps {
		if len(out) > 0 && napNumber(&out[len(out)-1]) == napNumber(&naps[i]) {
			continue
		}
		out = append(out, naps[i])
	}
	return out
}

// completed maps nap number to the session that filled the slot.
func (st *dayState) completed() map[int]*models.SleepSession {
	m := make(map[int]*models.SleepSession, len(st.planned))
	for i := range st.planned {
		m[napNumber(&st.planned[i])] = &st.planned[i]
	}
	return m
}

// nextAction treats any active session as the child being down.
func (st *dayState) nextAction() schedule.NextActionRecommendation {
	in := schedule.NextActionInput{
		Now:           st.now,
		Day:           st.day,
		CompletedNaps: len(st.planned),
	}
	if st.active != nil {
		in.Asleep = true
		in.WakeDeadline = st.wakeDeadline()
	}
	return schedule.NextAction(in)
}

// wakeDeadline is when the active session must end. Night sleep ends at
// mustWakeBy the morning after put-down. A crib nap ends at the earlier of
// its max duration and its end-by clock. Ad-hoc sleep has no deadline.
func (st *dayState) wakeDeadline() *time.Time {
	a := st.active
	kind, where := sleep.Classify(a)
	if kind == sleep.KindNightSleep {
		if st.cfg.MustWakeBy == nil || a.PutDownAt == nil {
			return nil
		}
		put := a.PutDownAt.In(st.loc)
		d := st.cfg.MustWakeBy.On(put, st.loc)
		if !put.Before(d) {
			d = st.cfg.MustWakeBy.On(put.AddDate(0, 0, 1), st.loc)
		}
		return &d
	}
	if where == sleep.ContextAdHoc || a.AsleepAt == nil || a.NapNumber == nil {
		return nil
	}
	n := *a.NapNumber
	if n > len(st.cfg.Naps) {
		return nil
	}
	nc := st.cfg.Naps[n-1]
	maxMinutes := nc.MaxDurationMinutes
	if n <= len(st.day.Naps) && !st.day.Naps[n-1].Skip && st.day.Naps[n-1].MaxDurationMinutes > 0 {
		maxMinutes = st.day.Naps[n-1].MaxDurationMinutes
	}
	d := a.AsleepAt.Add(time.Duration(maxMinutes) * time.Minute)
	if nc.EndBy != nil {
		if endBy := nc.EndBy.On(a.AsleepAt.In(st.loc), st.loc); endBy.Before(d) {
			d = endBy
		}
	}
	return &d
}

// TodaySummary reports today's plan, progress and sleep debt.
func (s *Service) TodaySummary(ctx context.Context, a Actor, childID int64) (*TodaySummary, error) {
	st, err := s.today(ctx, a, childID)
	if err != nil {
		return nil, err
	}

	done := st.completed()
	out := &TodaySummary{
		Date:              st.now.Format("2006-01-02"),
		Timezone:          st.loc.String(),
		WakeTime:          st.wake,
		WakeTimeEstimated: st.estimated,
		Schedule:          st.day,
		NextAction:        st.nextAction(),
		Naps:              make([]NapSummary, 0, len(st.day.Naps)),
		AdHocNaps:         make([]AdHocSummary, 0, len(st.adHoc)),
		SleepDebt:         sleepDebt(st.planned, st.adHoc),
		BedtimeFinalized:  len(done) >= schedule.RequiredNaps(st.sched.Type),
		Notes:             st.notes,
	}

	for _, nap := range st.day.Naps {
		ns := NapSummary{NapRecommendation: nap, Status: NapUpcoming}
		switch {
		case nap.Completed:
			ns.Status = NapCompleted
			if p, ok := done[nap.NapNumber]; ok {
				id := p.ID
				ns.SessionID = &id
				ns.QualifiedRestMinutes = p.QualifiedRestMinutes
			}
		case st.active != nil && !st.active.IsAdHoc && napNumber(st.active) == nap.NapNumber:
			ns.Status = NapInProgress
			id := st.active.ID
			ns.SessionID = &id
		case nap.Skip:
			ns.Status = NapSkipped
		}
		out.Naps = append(out.Naps, ns)
	}

	for _, h := range st.adHoc {
		out.AdHocNaps = append(out.AdHocNaps, AdHocSummary{
			SessionID:            h.ID,
			Location:             h.Location,
			State:                h.State,
			AsleepAt:             h.AsleepAt,
			WokeUpAt:             h.WokeUpAt,
			SleepMinutes:         h.SleepMinutes,
			QualifiedRestMinutes: h.QualifiedRestMinutes,
		})
	}
	return out, nil
}

// sleepDebt is the planned-nap shortfall against a one-hour goal, less the
// rest earned by ad-hoc sleep.
func sleepDebt(planned, adHoc []models.SleepSession) SleepDebt {
	short := 0
	for i := range planned {
		short += max(0, napGoalMinutes-deref(planned[i].QualifiedRestMinutes))
	}
	credit := 0
	for i := range adHoc {
		credit += deref(adHoc[i].QualifiedRestMinutes)
	}
	m := max(0, short-credit)

	switch {
	case m < 15:
		return SleepDebt{Minutes: m, Level: DebtNone}
	case m < 45:
		return SleepDebt{Minutes: m, Level: DebtMild,
			Note: fmt.Sprintf("Mild sleep debt (%d minutes): lean toward the early side of the bedtime window.", m)}
	default:
		return SleepDebt{Minutes: m, Level: DebtSignificant,
			Note: fmt.Sprintf("Significant sleep debt (%d minutes): aim for the earliest bedtime.", m)}
	}
}

func napNumber(s *models.SleepSession) int {
	if s.NapNumber == nil {
		return math.MaxInt
	}
	return *s.NapNumber
}

func putDownTime(s *models.SleepSession) time.Time {
	if s.PutDownAt == nil {
		return time.Time{}
	}
	return *s.PutDownAt
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
