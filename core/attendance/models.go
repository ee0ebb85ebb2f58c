package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/secmun/podium/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"

	// report-only marker for sessions the student never logged;
	// deliberately distinct from an explicit "absent" record
	StatusNotLogged = "NOT_LOGGED"
)

// Session lifecycle
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

var allStatuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// ValidStatus reports whether s is one of the four recordable statuses.
func ValidStatus(s string) bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ScheduleEntry is a weekly-recurring template from which Sessions are
// materialized. It is owned either by a class group (global schedule) or by a
// single member (personal schedule); exactly one of the two references is set.
type ScheduleEntry struct {
	ID           string    `json:"id"`
	ClassGroupID *string   `json:"class_group_id"`
	MemberID     *string   `json:"member_id"`
	Weekday      int       `json:"weekday"` // 0 = Sunday … 6 = Saturday
	Subject      string    `json:"subject"`
	SlotLabel    string    `json:"slot_label"`
	StartTime    string    `json:"start_time"` // "HH:MM"
	EndTime      string    `json:"end_time"`   // "HH:MM"
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Session is a materialized occurrence of a schedule entry on a specific
// calendar date.
//
// ScheduleEntryID is nil for sessions materialized from a personal schedule:
// those have no backing schedule document, and the reference is genuinely
// optional rather than a synthesized orphan id.
//
// CreatedBy is nil for system-materialized sessions (global schedule path);
// it never holds a class-group id standing in for an actor.
type Session struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"` // midnight, local
	ClassGroupID    string    `json:"classId"`
	ScheduleEntryID *string   `json:"scheduleEntryId"`
	Subject         string    `json:"subject"`
	SlotLabel       string    `json:"slotLabel"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	Status          string    `json:"status"` // open | closed
	CreatedBy       *string   `json:"createdBy"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

// Record is one attendance row per (session, student); upserts are
// last-write-wins and no history of prior statuses is kept.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	Status    string    `json:"status"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"` // UTC
}

// SessionStatus pairs a session with the acting student's recorded status
// (nil when not yet logged) for the "today" listing.
type SessionStatus struct {
	Session
	MyStatus *string `json:"status,omitempty"`
}

type MonthSummary struct {
	Month          int  `json:"month"`
	Year           int  `json:"year"`
	TotalSessions  int  `json:"totalSessions"`
	Present        int  `json:"present"`
	Percentage     int  `json:"percentage"`
	BelowThreshold bool `json:"belowEighty"`
}

type ReportRow struct {
	Date      time.Time `json:"date"`
	Subject   string    `json:"subject"`
	SlotLabel string    `json:"slot"`
	TimeRange string    `json:"time"`
	Status    string    `json:"status"` // PRESENT | ABSENT | LATE | EXCUSED | NOT_LOGGED
}

type MonthReport struct {
	Month int         `json:"month"`
	Year  int         `json:"year"`
	Rows  []ReportRow `json:"rows"`
}

// Payloads

// NewScheduleEntry creates either a class entry (ClassGroupID set) or a
// personal entry (MemberID set).
type NewScheduleEntry struct {
	ClassGroupID *string `json:"class_group_id" validate:"omitempty,uuid4"`
	MemberID     *string `json:"member_id" validate:"omitempty,uuid4"`
	Weekday      int     `json:"weekday" validate:"min=0,max=6"`
	Subject      string  `json:"subject" validate:"required"`
	SlotLabel    string  `json:"slot_label"`
	StartTime    string  `json:"start_time" validate:"required,timeofday"`
	EndTime      string  `json:"end_time" validate:"required,timeofday"`
	IsActive     *bool   `json:"is_active"`
}

func (ns *NewScheduleEntry) Validate(validate *validator.Validate) error {
	ns.Subject = core.CleanString(ns.Subject)
	ns.SlotLabel = core.CleanString(ns.SlotLabel)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if (ns.ClassGroupID == nil) == (ns.MemberID == nil) {
		return core.NewValidationError(errEntryOwner,
			core.FieldError{Field: "class_group_id", Error: errEntryOwner.Error()},
			core.FieldError{Field: "member_id", Error: errEntryOwner.Error()},
		)
	}
	if ns.EndTime <= ns.StartTime {
		return core.NewValidationError(errTimeOrder, core.FieldError{Field: "end_time", Error: errTimeOrder.Error()})
	}
	return nil
}

// UpdateScheduleEntry modifies an existing entry; owner references are fixed.
type UpdateScheduleEntry struct {
	Weekday   *int    `json:"weekday" validate:"omitempty,min=0,max=6"`
	Subject   string  `json:"subject"`
	SlotLabel *string `json:"slot_label"`
	StartTime string  `json:"start_time" validate:"omitempty,timeofday"`
	EndTime   string  `json:"end_time" validate:"omitempty,timeofday"`
	IsActive  *bool   `json:"is_active"`
}

func (us *UpdateScheduleEntry) Validate(validate *validator.Validate) error {
	us.Subject = core.CleanString(us.Subject)
	return validate.Struct(us)
}

// MarkRequest records the acting student's status for a session.
type MarkRequest struct {
	SessionID string `json:"sessionId" validate:"required,uuid4"`
	Status    string `json:"status" validate:"required"`
}

func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	mr.Status = core.CleanString(mr.Status, true /* lower */)
	if err := validate.Struct(mr); err != nil {
		return err
	}
	if !ValidStatus(mr.Status) {
		return core.NewValidationError(errUnknownStatus, core.FieldError{Field: "status", Error: errUnknownStatus.Error()})
	}
	return nil
}

// MonthQuery scopes summary/report requests.
type MonthQuery struct {
	Month int `query:"month" validate:"required,min=1,max=12"`
	Year  int `query:"year" validate:"required,min=2000,max=2100"`
}

func (mq MonthQuery) Validate(validate *validator.Validate) error {
	return validate.Struct(mq)
}

// Midnight normalizes t to local midnight.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
