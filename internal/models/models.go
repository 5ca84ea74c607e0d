// Package models defines the data structures for naptrack.
package models

import (
	"time"

	"github.com/scalecode-solutions/naptrack/internal/timewindow"
)

// SessionType distinguishes daytime naps from overnight sleep.
type SessionType string

const (
	SessionTypeNap        SessionType = "NAP"
	SessionTypeNightSleep SessionType = "NIGHT_SLEEP"
)

// SessionState is the lifecycle state of a sleep session.
type SessionState string

const (
	StatePending   SessionState = "PENDING"
	StateAsleep    SessionState = "ASLEEP"
	StateAwake     SessionState = "AWAKE"
	StateCompleted SessionState = "COMPLETED"
)

// Location is where the sleep happened. Anything other than the crib is ad-hoc.
type Location string

const (
	LocationCrib     Location = "CRIB"
	LocationCar      Location = "CAR"
	LocationStroller Location = "STROLLER"
	LocationCarrier  Location = "CARRIER"
	LocationSwing    Location = "SWING"
	LocationPlaypen  Location = "PLAYPEN"
	LocationOther    Location = "OTHER"
)

// WakeType classifies a night waking. Only quiet wakings earn rest credit.
type WakeType string

const (
	WakeQuiet    WakeType = "QUIET"
	WakeRestless WakeType = "RESTLESS"
	WakeCrying   WakeType = "CRYING"
)

// Event is a real-world sleep event applied to a session.
type Event string

const (
	EventPutDown    Event = "put_down"
	EventFellAsleep Event = "fell_asleep"
	EventWokeUp     Event = "woke_up"
	EventOutOfCrib  Event = "out_of_crib"
)

// ScheduleType selects the nap/bedtime rule set.
type ScheduleType string

const (
	ScheduleThreeNap   ScheduleType = "THREE_NAP"
	ScheduleTwoNap     ScheduleType = "TWO_NAP"
	ScheduleOneNap     ScheduleType = "ONE_NAP"
	ScheduleTransition ScheduleType = "TRANSITION"
)

// Role is a user's access level for a child.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCaregiver Role = "caregiver"
	RoleViewer    Role = "viewer"
)

// CanWrite reports whether the role may mutate the child's records.
func (r Role) CanWrite() bool { return r == RoleAdmin || r == RoleCaregiver }

// Child is the infant whose sleep is tracked.
type Child struct {
	ID        int64      `db:"id" json:"id"`
	OwnerID   string     `db:"owner_id" json:"ownerId"`
	Name      string     `db:"name" json:"name"`
	BirthDate *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// SleepSession is one sleep attempt.
type SleepSession struct {
	ID          int64        `db:"id" json:"id"`
	ChildID     int64        `db:"child_id" json:"childId"`
	CreatedBy   string       `db:"created_by" json:"createdBy"`
	SessionType SessionType  `db:"session_type" json:"sessionType"`
	NapNumber   *int         `db:"nap_number" json:"napNumber,omitempty"`
	Location    Location     `db:"location" json:"location"`
	IsAdHoc     bool         `db:"is_ad_hoc" json:"isAdHoc"`
	State       SessionState `db:"state" json:"state"`

	PutDownAt   *time.Time `db:"put_down_at" json:"putDownAt,omitempty"`
	AsleepAt    *time.Time `db:"asleep_at" json:"asleepAt,omitempty"`
	WokeUpAt    *time.Time `db:"woke_up_at" json:"wokeUpAt,omitempty"`
	OutOfCribAt *time.Time `db:"out_of_crib_at" json:"outOfCribAt,omitempty"`

	TotalMinutes         *int `db:"total_minutes" json:"totalMinutes,omitempty"`
	SleepMinutes         *int `db:"sleep_minutes" json:"sleepMinutes,omitempty"`
	SettlingMinutes      *int `db:"settling_minutes" json:"settlingMinutes,omitempty"`
	PostWakeMinutes      *int `db:"post_wake_minutes" json:"postWakeMinutes,omitempty"`
	AwakeCribMinutes     *int `db:"awake_crib_minutes" json:"awakeCribMinutes,omitempty"`
	QualifiedRestMinutes *int `db:"qualified_rest_minutes" json:"qualifiedRestMinutes,omitempty"`

	CryingMinutes *int      `db:"crying_minutes" json:"cryingMinutes,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the session has not reached its terminal state.
func (s *SleepSession) Active() bool { return s.State != StateCompleted }

// SleepCycle is a wake and possible re-settle inside a night sleep.
type SleepCycle struct {
	ID               int64      `db:"id" json:"id"`
	SessionID        int64      `db:"session_id" json:"sessionId"`
	CycleNumber      int        `db:"cycle_number" json:"cycleNumber"`
	WokeUpAt         time.Time  `db:"woke_up_at" json:"wokeUpAt"`
	FellBackAsleepAt *time.Time `db:"fell_back_asleep_at" json:"fellBackAsleepAt,omitempty"`
	WakeType         WakeType   `db:"wake_type" json:"wakeType"`
	SleepMinutes     *int       `db:"sleep_minutes" json:"sleepMinutes,omitempty"`
	AwakeMinutes     *int       `db:"awake_minutes" json:"awakeMinutes,omitempty"`
}

// MinMax is an inclusive minute range.
type MinMax struct {
	Min int `json:"minMinutes" validate:"gte=0"`
	Max int `json:"maxMinutes" validate:"gtefield=Min"`
}

// NapConfig holds the clock bounds and duration caps for one nap slot.
type NapConfig struct {
	Earliest            *timewindow.Clock `json:"earliest,omitempty"`
	LatestStart         *timewindow.Clock `json:"latestStart,omitempty"`
	EndBy               *timewindow.Clock `json:"endBy,omitempty"`
	MaxDurationMinutes  int               `json:"maxDurationMinutes" validate:"gt=0"`
	ExceptionMaxMinutes int               `json:"exceptionMaxMinutes,omitempty" validate:"gte=0"`
}

// ScheduleConfig is the per-child schedule document. It is replaced wholesale.
// WakeWindows has one entry per nap plus a final entry leading to bedtime.
type ScheduleConfig struct {
	WakeWindows        []MinMax          `json:"wakeWindows" validate:"required,dive"`
	Naps               []NapConfig       `json:"naps" validate:"required,dive"`
	BedtimeEarliest    timewindow.Clock  `json:"bedtimeEarliest"`
	BedtimeLatest      timewindow.Clock  `json:"bedtimeLatest"`
	BedtimeGoalStart   timewindow.Clock  `json:"bedtimeGoalStart"`
	BedtimeGoalEnd     timewindow.Clock  `json:"bedtimeGoalEnd"`
	WakeTimeEarliest   timewindow.Clock  `json:"wakeTimeEarliest"`
	WakeTimeLatest     timewindow.Clock  `json:"wakeTimeLatest"`
	DaySleepCapMinutes int               `json:"daySleepCapMinutes" validate:"gte=0"`
	MinimumCribMinutes int               `json:"minimumCribMinutes" validate:"gte=0"`
	NapCapMinutes      int               `json:"napCapMinutes" validate:"gte=0"`
	MustWakeBy         *timewindow.Clock `json:"mustWakeBy,omitempty"`
}

// SleepSchedule is a child's configured schedule.
type SleepSchedule struct {
	ID        int64          `json:"id"`
	ChildID   int64          `json:"childId"`
	Type      ScheduleType   `json:"type"`
	Config    ScheduleConfig `json:"config"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Transition is a guided two-nap to one-nap migration.
type Transition struct {
	ID             int64            `db:"id" json:"id"`
	ChildID        int64            `db:"child_id" json:"childId"`
	FromType       ScheduleType     `db:"from_type" json:"fromType"`
	ToType         ScheduleType     `db:"to_type" json:"toType"`
	CurrentWeek    int              `db:"current_week" json:"currentWeek"`
	TargetWeeks    int              `db:"target_weeks" json:"targetWeeks"`
	CurrentNapTime timewindow.Clock `db:"current_nap_time" json:"currentNapTime"`
	StartedAt      time.Time        `db:"started_at" json:"startedAt"`
	CompletedAt    *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
}

// Active reports whether the transition is still in progress.
func (t *Transition) Active() bool { return t.CompletedAt == nil }

// Caregiver grants a user a role on a child.
type Caregiver struct {
	ChildID int64  `db:"child_id" json:"childId"`
	UserID  string `db:"user_id" json:"userId"`
	Role    Role   `db:"role" json:"role"`
}
