package attendance

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

var (
	// errors
	ErrSessionNotFound = errors.New("session not found")
	ErrEntryNotFound   = errors.New("schedule entry not found")

	errUnknownStatus = errors.New("unknown attendance status")
	errEntryOwner    = errors.New("exactly one of class_group_id or member_id must be set")
	errTimeOrder     = errors.New("end time must be after start time")
)

type (
	Repository interface {
		// schedule entries
		CreateEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error)
		GetEntryByID(ctx context.Context, id string) (ScheduleEntry, error)
		UpdateEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error)
		DeleteEntry(ctx context.Context, id string) error
		QueryEntriesForMember(ctx context.Context, memberID string) ([]ScheduleEntry, error)
		QueryEntriesForClassGroup(ctx context.Context, classGroupID string) ([]ScheduleEntry, error)
		// QueryActiveClassEntriesByWeekday returns active class-owned entries
		// for the given weekday across all class groups.
		QueryActiveClassEntriesByWeekday(ctx context.Context, weekday int) ([]ScheduleEntry, error)

		// sessions
		// CreateSession inserts the session; a duplicate-key conflict is not
		// an error, it reports created=false (the concurrent winner stands).
		CreateSession(ctx context.Context, sess Session) (created bool, err error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		// SessionExistsForEntry checks the (date, schedule-entry) dedupe key.
		SessionExistsForEntry(ctx context.Context, date time.Time, entryID string) (bool, error)
		// SessionExistsForOwner checks the (date, creator, subject, start, end) dedupe key.
		SessionExistsForOwner(ctx context.Context, date time.Time, creatorID, subject, startTime, endTime string) (bool, error)
		QuerySessionsByClassAndRange(ctx context.Context, classGroupID string, from, to time.Time) ([]Session, error)

		// records
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		QueryRecordsForStudent(ctx context.Context, studentID string, sessionIDs []string) ([]Record, error)
	}

	Service interface {
		EnsureSessionsForDate(ctx context.Context, date time.Time, mbr member.Member) error
		SessionsForDate(ctx context.Context, date time.Time, mbr member.Member) ([]SessionStatus, error)
		Mark(ctx context.Context, sessionID string, mbr member.Member, status string) (Record, error)
		SummarizeMonth(ctx context.Context, mbr member.Member, month, year int) (MonthSummary, error)
		ReportMonth(ctx context.Context, mbr member.Member, month, year int) (MonthReport, error)
		ExportMonthXLSX(ctx context.Context, mbr member.Member, month, year int) ([]byte, error)

		CreateEntry(ctx context.Context, ns NewScheduleEntry) (ScheduleEntry, error)
		UpdateEntry(ctx context.Context, id string, us UpdateScheduleEntry) (ScheduleEntry, error)
		DeleteEntry(ctx context.Context, id string) error
		EntriesForClassGroup(ctx context.Context, classGroupID string) ([]ScheduleEntry, error)
		EntriesForMember(ctx context.Context, memberID string) ([]ScheduleEntry, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
		conf   *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:   repo,
		logger: logger,
		conf:   conf,
	}
}

// EnsureSessionsForDate materializes the attendance sessions for `date`.
//
// When the member carries a personal schedule, only that schedule is
// materialized (Branch A); otherwise every active class schedule entry for the
// weekday is (Branch B). The call is idempotent: each candidate session is
// keyed by its natural dedupe key and skipped when one already exists, and a
// concurrent double-create resolves to a single row via the storage layer's
// unique constraints.
func (svc *service) EnsureSessionsForDate(ctx context.Context, date time.Time, mbr member.Member) error {
	day := Midnight(date)
	weekday := int(day.Weekday())

	personal, err := svc.repo.QueryEntriesForMember(ctx, mbr.ID)
	if err != nil {
		return errors.Wrap(err, "querying personal schedule")
	}

	if len(personal) > 0 {
		return svc.materializePersonal(ctx, day, weekday, mbr, personal)
	}
	return svc.materializeGlobal(ctx, day, weekday)
}

func (svc *service) materializePersonal(ctx context.Context, day time.Time, weekday int, mbr member.Member, entries []ScheduleEntry) error {
	for _, entry := range entries {
		if !entry.IsActive || entry.Weekday != weekday {
			continue
		}
		// a personal schedule without a class group is a configuration gap:
		// log and skip the entry, never fail the whole day
		if mbr.ClassGroupID == nil {
			svc.logger.Warn(fmt.Sprintf(
				"member %s has a personal schedule entry %q but no class group; skipping", mbr.ID, entry.Subject))
			continue
		}

		exists, err := svc.repo.SessionExistsForOwner(ctx, day, mbr.ID, entry.Subject, entry.StartTime, entry.EndTime)
		if err != nil {
			return errors.Wrap(err, "checking session existence")
		}
		if exists {
			continue
		}

		creatorID := mbr.ID
		sess := Session{
			ID:           uuid.New().String(),
			Date:         day,
			ClassGroupID: *mbr.ClassGroupID,
			// no backing schedule document; the reference stays nil
			ScheduleEntryID: nil,
			Subject:         entry.Subject,
			SlotLabel:       entry.SlotLabel,
			StartTime:       entry.StartTime,
			EndTime:         entry.EndTime,
			Status:          SessionOpen,
			CreatedBy:       &creatorID,
			CreatedAt:       time.Now().UTC(),
		}
		if _, err := svc.repo.CreateSession(ctx, sess); err != nil {
			return errors.Wrap(err, "creating session")
		}
	}
	return nil
}

func (svc *service) materializeGlobal(ctx context.Context, day time.Time, weekday int) error {
	entries, err := svc.repo.QueryActiveClassEntriesByWeekday(ctx, weekday)
	if err != nil {
		return errors.Wrap(err, "querying class schedules")
	}

	for _, entry := range entries {
		exists, err := svc.repo.SessionExistsForEntry(ctx, day, entry.ID)
		if err != nil {
			return errors.Wrap(err, "checking session existence")
		}
		if exists {
			continue
		}

		entryID := entry.ID
		sess := Session{
			ID:              uuid.New().String(),
			Date:            day,
			ClassGroupID:    *entry.ClassGroupID,
			ScheduleEntryID: &entryID,
			Subject:         entry.Subject,
			SlotLabel:       entry.SlotLabel,
			StartTime:       entry.StartTime,
			EndTime:         entry.EndTime,
			Status:          SessionOpen,
			CreatedBy:       nil, // system-materialized
			CreatedAt:       time.Now().UTC(),
		}
		if _, err := svc.repo.CreateSession(ctx, sess); err != nil {
			return errors.Wrap(err, "creating session")
		}
	}
	return nil
}

// SessionsForDate lists the member's class sessions for the day along with the
// member's own recorded status per session.
func (svc *service) SessionsForDate(ctx context.Context, date time.Time, mbr member.Member) ([]SessionStatus, error) {
	if mbr.ClassGroupID == nil {
		return []SessionStatus{}, nil
	}

	day := Midnight(date)
	sessions, err := svc.repo.QuerySessionsByClassAndRange(ctx, *mbr.ClassGroupID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	records, err := svc.recordsBySession(ctx, mbr.ID, sessions)
	if err != nil {
		return nil, err
	}

	out := make([]SessionStatus, 0, len(sessions))
	for _, sess := range sessions {
		ss := SessionStatus{Session: sess}
		if rec, ok := records[sess.ID]; ok {
			status := rec.Status
			ss.MyStatus = &status
		}
		out = append(out, ss)
	}
	return out, nil
}

// Mark upserts the member's attendance status for a session; later writes
// overwrite status and timestamp, never append.
func (svc *service) Mark(ctx context.Context, sessionID string, mbr member.Member, status string) (Record, error) {
	if !ValidStatus(status) {
		return Record{}, core.NewValidationError(errUnknownStatus,
			core.FieldError{Field: "status", Error: errUnknownStatus.Error()})
	}

	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		StudentID: mbr.ID,
		Status:    status,
		MarkedBy:  mbr.ID,
		MarkedAt:  time.Now().UTC(),
	}
	return svc.repo.UpsertRecord(ctx, rec)
}

// SummarizeMonth aggregates the member's attendance over a calendar month.
func (svc *service) SummarizeMonth(ctx context.Context, mbr member.Member, month, year int) (MonthSummary, error) {
	summary := MonthSummary{Month: month, Year: year}

	sessions, records, err := svc.monthData(ctx, mbr, month, year)
	if err != nil {
		return MonthSummary{}, err
	}

	summary.TotalSessions = len(sessions)
	for _, rec := range records {
		if rec.Status == StatusPresent {
			summary.Present++
		}
	}
	if summary.TotalSessions > 0 {
		ratio := float64(summary.Present*100) / float64(summary.TotalSessions)
		summary.Percentage = int(math.Round(ratio))
		summary.BelowThreshold = summary.Percentage < svc.conf.AttendanceThreshold
	}
	return summary, nil
}

// ReportMonth lists every class session of the month with the member's
// recorded status, or NOT_LOGGED for sessions without a record.
func (svc *service) ReportMonth(ctx context.Context, mbr member.Member, month, year int) (MonthReport, error) {
	report := MonthReport{Month: month, Year: year, Rows: []ReportRow{}}

	sessions, records, err := svc.monthData(ctx, mbr, month, year)
	if err != nil {
		return MonthReport{}, err
	}

	bySession := make(map[string]Record, len(records))
	for _, rec := range records {
		bySession[rec.SessionID] = rec
	}

	for _, sess := range sessions {
		row := ReportRow{
			Date:      sess.Date,
			Subject:   sess.Subject,
			SlotLabel: sess.SlotLabel,
			TimeRange: sess.StartTime + " - " + sess.EndTime,
			Status:    StatusNotLogged,
		}
		if rec, ok := bySession[sess.ID]; ok {
			row.Status = strings.ToUpper(rec.Status)
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// monthData loads the month's sessions for the member's class group and the
// member's attendance records restricted to those sessions.
func (svc *service) monthData(ctx context.Context, mbr member.Member, month, year int) ([]Session, []Record, error) {
	if mbr.ClassGroupID == nil {
		return nil, nil, nil
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	sessions, err := svc.repo.QuerySessionsByClassAndRange(ctx, *mbr.ClassGroupID, from, to)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying sessions")
	}
	if len(sessions) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	records, err := svc.repo.QueryRecordsForStudent(ctx, mbr.ID, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying records")
	}
	return sessions, records, nil
}

func (svc *service) recordsBySession(ctx context.Context, studentID string, sessions []Session) (map[string]Record, error) {
	if len(sessions) == 0 {
		return map[string]Record{}, nil
	}
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	records, err := svc.repo.QueryRecordsForStudent(ctx, studentID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	bySession := make(map[string]Record, len(records))
	for _, rec := range records {
		bySession[rec.SessionID] = rec
	}
	return bySession, nil
}

// Schedule entry administration

func (svc *service) CreateEntry(ctx context.Context, ns NewScheduleEntry) (ScheduleEntry, error) {
	now := time.Now().UTC()
	entry := ScheduleEntry{
		ID:           uuid.New().String(),
		ClassGroupID: ns.ClassGroupID,
		MemberID:     ns.MemberID,
		Weekday:      ns.Weekday,
		Subject:      ns.Subject,
		SlotLabel:    ns.SlotLabel,
		StartTime:    ns.StartTime,
		EndTime:      ns.EndTime,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ns.IsActive != nil {
		entry.IsActive = *ns.IsActive
	}
	return svc.repo.CreateEntry(ctx, entry)
}

func (svc *service) UpdateEntry(ctx context.Context, id string, us UpdateScheduleEntry) (ScheduleEntry, error) {
	entry, err := svc.repo.GetEntryByID(ctx, id)
	if err != nil {
		return ScheduleEntry{}, err
	}

	if us.Weekday != nil {
		entry.Weekday = *us.Weekday
	}
	if us.Subject != "" {
		entry.Subject = us.Subject
	}
	if us.SlotLabel != nil {
		entry.SlotLabel = *us.SlotLabel
	}
	if us.StartTime != "" {
		entry.StartTime = us.StartTime
	}
	if us.EndTime != "" {
		entry.EndTime = us.EndTime
	}
	if us.IsActive != nil {
		entry.IsActive = *us.IsActive
	}
	if entry.EndTime <= entry.StartTime {
		return ScheduleEntry{}, core.NewValidationError(errTimeOrder,
			core.FieldError{Field: "end_time", Error: errTimeOrder.Error()})
	}
	entry.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateEntry(ctx, entry)
}

func (svc *service) DeleteEntry(ctx context.Context, id string) error {
	return svc.repo.DeleteEntry(ctx, id)
}

func (svc *service) EntriesForClassGroup(ctx context.Context, classGroupID string) ([]ScheduleEntry, error) {
	return svc.repo.QueryEntriesForClassGroup(ctx, classGroupID)
}

func (svc *service) EntriesForMember(ctx context.Context, memberID string) ([]ScheduleEntry, error) {
	return svc.repo.QueryEntriesForMember(ctx, memberID)
}
