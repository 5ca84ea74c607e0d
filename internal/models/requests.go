package models

import "time"

// Request types

// ChildRequest creates a child.
type ChildRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}

// CaregiverRequest grants a user a role on a child.
type CaregiverRequest struct {
	Role Role `json:"role" validate:"required,oneof=admin caregiver viewer"`
}

// CreateSessionRequest starts a crib session. PutDownAt defaults to now.
type CreateSessionRequest struct {
	SessionType SessionType `json:"sessionType" validate:"required,oneof=NAP NIGHT_SLEEP"`
	NapNumber   *int        `json:"napNumber,omitempty" validate:"omitempty,gte=1,lte=4"`
	PutDownAt   *time.Time  `json:"putDownAt,omitempty"`
}

// AdHocSessionRequest records sleep outside the crib.
type AdHocSessionRequest struct {
	Location Location   `json:"location" validate:"required,oneof=CAR STROLLER CARRIER SWING PLAYPEN OTHER"`
	AsleepAt time.Time  `json:"asleepAt" validate:"required"`
	WokeUpAt *time.Time `json:"wokeUpAt,omitempty"`
	Notes    *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UpdateSessionRequest applies an event, timestamp corrections, or both.
// Corrections are applied first. The event time defaults to now.
type UpdateSessionRequest struct {
	Event         *Event     `json:"event,omitempty" validate:"omitempty,oneof=put_down fell_asleep woke_up out_of_crib"`
	At            *time.Time `json:"at,omitempty"`
	PutDownAt     *time.Time `json:"putDownAt,omitempty"`
	AsleepAt      *time.Time `json:"asleepAt,omitempty"`
	WokeUpAt      *time.Time `json:"wokeUpAt,omitempty"`
	OutOfCribAt   *time.Time `json:"outOfCribAt,omitempty"`
	CryingMinutes *int       `json:"cryingMinutes,omitempty" validate:"omitempty,gte=0,lte=720"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// CycleRequest creates or edits a night waking.
type CycleRequest struct {
	WokeUpAt            *time.Time `json:"wokeUpAt,omitempty"`
	FellBackAsleepAt    *time.Time `json:"fellBackAsleepAt,omitempty"`
	ClearFellBackAsleep bool       `json:"clearFellBackAsleep,omitempty"`
	WakeType            *WakeType  `json:"wakeType,omitempty" validate:"omitempty,oneof=QUIET RESTLESS CRYING"`
}

// ScheduleRequest replaces a child's schedule. A nil config takes the
// type's defaults.
type ScheduleRequest struct {
	Type   ScheduleType    `json:"type" validate:"required,oneof=THREE_NAP TWO_NAP ONE_NAP TRANSITION"`
	Config *ScheduleConfig `json:"config,omitempty"`
}

// DayScheduleRequest asks for a day plan from an explicit wake time.
type DayScheduleRequest struct {
	WakeTime           time.Time `json:"wakeTime" validate:"required"`
	ActualNapDurations []int     `json:"actualNapDurations,omitempty" validate:"omitempty,max=4,dive,gte=0,lte=360"`
}

// PaceRequest changes a transition's target length.
type PaceRequest struct {
	Weeks int `json:"weeks" validate:"required"`
}

// TimezoneRequest sets the acting user's timezone.
type TimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required,timezone"`
}

// Response types

// SessionResponse is a session with its wake cycles.
type SessionResponse struct {
	SleepSession
	Cycles []SleepCycle `json:"cycles"`
}

// ChildResponse is a child with the caller's role.
type ChildResponse struct {
	Child
	Role Role `json:"role"`
}

// ChildrenResponse lists the children a user can see.
type ChildrenResponse struct {
	Children []ChildResponse `json:"children"`
}

// SessionsResponse lists sessions in a time range.
type SessionsResponse struct {
	Sessions []SleepSession `json:"sessions"`
}

// TimezoneResponse echoes the stored timezone.
type TimezoneResponse struct {
	Timezone string `json:"timezone"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
