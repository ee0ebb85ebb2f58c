package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/attendance"
)

const dateLayout = "2006-01-02"

type scheduleEntryRow struct {
	ID           string         `db:"id"`
	ClassGroupID sql.NullString `db:"class_group_id"`
	MemberID     sql.NullString `db:"member_id"`
	Weekday      int            `db:"weekday"`
	Subject      string         `db:"subject"`
	SlotLabel    string         `db:"slot_label"`
	StartTime    string         `db:"start_time"`
	EndTime      string         `db:"end_time"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r scheduleEntryRow) toModel() attendance.ScheduleEntry {
	entry := attendance.ScheduleEntry{
		ID:        r.ID,
		Weekday:   r.Weekday,
		Subject:   r.Subject,
		SlotLabel: r.SlotLabel,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.ClassGroupID.Valid {
		entry.ClassGroupID = &r.ClassGroupID.String
	}
	if r.MemberID.Valid {
		entry.MemberID = &r.MemberID.String
	}
	return entry
}

func entryToRow(entry attendance.ScheduleEntry) scheduleEntryRow {
	row := scheduleEntryRow{
		ID:        entry.ID,
		Weekday:   entry.Weekday,
		Subject:   entry.Subject,
		SlotLabel: entry.SlotLabel,
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
		IsActive:  entry.IsActive,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
	if entry.ClassGroupID != nil {
		row.ClassGroupID = sql.NullString{String: *entry.ClassGroupID, Valid: true}
	}
	if entry.MemberID != nil {
		row.MemberID = sql.NullString{String: *entry.MemberID, Valid: true}
	}
	return row
}

type sessionRow struct {
	ID              string         `db:"id"`
	Date            time.Time      `db:"session_date"`
	ClassGroupID    string         `db:"class_group_id"`
	ScheduleEntryID sql.NullString `db:"schedule_entry_id"`
	Subject         string         `db:"subject"`
	SlotLabel       string         `db:"slot_label"`
	StartTime       string         `db:"start_time"`
	EndTime         string         `db:"end_time"`
	Status          string         `db:"status"`
	CreatedBy       sql.NullString `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r sessionRow) toModel() attendance.Session {
	y, m, d := r.Date.Date()
	sess := attendance.Session{
		ID:           r.ID,
		Date:         time.Date(y, m, d, 0, 0, 0, 0, time.Local),
		ClassGroupID: r.ClassGroupID,
		Subject:      r.Subject,
		SlotLabel:    r.SlotLabel,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.ScheduleEntryID.Valid {
		sess.ScheduleEntryID = &r.ScheduleEntryID.String
	}
	if r.CreatedBy.Valid {
		sess.CreatedBy = &r.CreatedBy.String
	}
	return sess
}

type recordRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	StudentID string    `db:"student_id"`
	Status    string    `db:"status"`
	MarkedBy  string    `db:"marked_by"`
	MarkedAt  time.Time `db:"marked_at"`
}

const (
	entryColumns = `id, class_group_id, member_id, weekday, subject, slot_label,
start_time, end_time, is_active, created_at, updated_at`

	sessionColumns = `id, session_date, class_group_id, schedule_entry_id, subject,
slot_label, start_time, end_time, status, created_by, created_at`
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// schedule entries

func (repo *attendanceRepository) CreateEntry(ctx context.Context, entry attendance.ScheduleEntry) (attendance.ScheduleEntry, error) {
	q := `INSERT INTO schedule_entry (` + entryColumns + `) VALUES (
:id, :class_group_id, :member_id, :weekday, :subject, :slot_label,
:start_time, :end_time, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, entryToRow(entry)); err != nil {
		return attendance.ScheduleEntry{}, errors.Wrap(err, "inserting schedule entry")
	}
	return entry, nil
}

func (repo *attendanceRepository) GetEntryByID(ctx context.Context, id string) (attendance.ScheduleEntry, error) {
	var row scheduleEntryRow
	q := `SELECT ` + entryColumns + ` FROM schedule_entry WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.ScheduleEntry{}, attendance.ErrEntryNotFound
		}
		return attendance.ScheduleEntry{}, errors.Wrap(err, "getting schedule entry")
	}
	return row.toModel(), nil
}

func (repo *attendanceRepository) UpdateEntry(ctx context.Context, entry attendance.ScheduleEntry) (attendance.ScheduleEntry, error) {
	q := `UPDATE schedule_entry SET
weekday = :weekday, subject = :subject, slot_label = :slot_label,
start_time = :start_time, end_time = :end_time, is_active = :is_active,
updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, entryToRow(entry))
	if err != nil {
		return attendance.ScheduleEntry{}, errors.Wrap(err, "updating schedule entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.ScheduleEntry{}, attendance.ErrEntryNotFound
	}
	return entry, nil
}

func (repo *attendanceRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM schedule_entry WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.ErrEntryNotFound
	}
	return nil
}

func (repo *attendanceRepository) queryEntries(ctx context.Context, cond string, args ...interface{}) ([]attendance.ScheduleEntry, error) {
	var rows []scheduleEntryRow
	q := `SELECT ` + entryColumns + ` FROM schedule_entry WHERE ` + cond + ` ORDER BY weekday, start_time`
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying schedule entries")
	}
	entries := make([]attendance.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toModel())
	}
	return entries, nil
}

func (repo *attendanceRepository) QueryEntriesForMember(ctx context.Context, memberID string) ([]attendance.ScheduleEntry, error) {
	return repo.queryEntries(ctx, "member_id = $1", memberID)
}

func (repo *attendanceRepository) QueryEntriesForClassGroup(ctx context.Context, classGroupID string) ([]attendance.ScheduleEntry, error) {
	return repo.queryEntries(ctx, "class_group_id = $1", classGroupID)
}

func (repo *attendanceRepository) QueryActiveClassEntriesByWeekday(ctx context.Context, weekday int) ([]attendance.ScheduleEntry, error) {
	return repo.queryEntries(ctx, "class_group_id IS NOT NULL AND is_active AND weekday = $1", weekday)
}

// sessions

func (repo *attendanceRepository) CreateSession(ctx context.Context, sess attendance.Session) (bool, error) {
	q := `INSERT INTO session (` + sessionColumns + `) VALUES
($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT DO NOTHING`
	var entryID, createdBy interface{}
	if sess.ScheduleEntryID != nil {
		entryID = *sess.ScheduleEntryID
	}
	if sess.CreatedBy != nil {
		createdBy = *sess.CreatedBy
	}

	res, err := repo.db.ExecContext(ctx, q,
		sess.ID, sess.Date.Format(dateLayout), sess.ClassGroupID, entryID,
		sess.Subject, sess.SlotLabel, sess.StartTime, sess.EndTime,
		sess.Status, createdBy, sess.CreatedAt)
	if err != nil {
		return false, errors.Wrap(err, "inserting session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting session")
	}
	return n > 0, nil
}

func (repo *attendanceRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	var row sessionRow
	q := `SELECT ` + sessionColumns + ` FROM session WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "getting session")
	}
	return row.toModel(), nil
}

func (repo *attendanceRepository) SessionExistsForEntry(ctx context.Context, date time.Time, entryID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM session WHERE session_date = $1 AND schedule_entry_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, q, date.Format(dateLayout), entryID); err != nil {
		return false, errors.Wrap(err, "checking session existence")
	}
	return exists, nil
}

func (repo *attendanceRepository) SessionExistsForOwner(ctx context.Context, date time.Time, creatorID, subject, startTime, endTime string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM session
WHERE session_date = $1 AND created_by = $2 AND subject = $3 AND start_time = $4 AND end_time = $5)`
	if err := repo.db.GetContext(ctx, &exists, q, date.Format(dateLayout), creatorID, subject, startTime, endTime); err != nil {
		return false, errors.Wrap(err, "checking session existence")
	}
	return exists, nil
}

func (repo *attendanceRepository) QuerySessionsByClassAndRange(ctx context.Context, classGroupID string, from, to time.Time) ([]attendance.Session, error) {
	var rows []sessionRow
	q := `SELECT ` + sessionColumns + ` FROM session
WHERE class_group_id = $1 AND session_date >= $2 AND session_date < $3
ORDER BY session_date, start_time`
	if err := repo.db.SelectContext(ctx, &rows, q, classGroupID, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]attendance.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toModel())
	}
	return sessions, nil
}

// records

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	// last write wins on the (session, student) key
	q := `INSERT INTO attendance_record (id, session_id, student_id, status, marked_by, marked_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, student_id) DO UPDATE SET
status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
RETURNING id`
	var id string
	err := repo.db.GetContext(ctx, &id, q, rec.ID, rec.SessionID, rec.StudentID, rec.Status, rec.MarkedBy, rec.MarkedAt)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	rec.ID = id
	return rec, nil
}

func (repo *attendanceRepository) QueryRecordsForStudent(ctx context.Context, studentID string, sessionIDs []string) ([]attendance.Record, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var rows []recordRow
	q := `SELECT id, session_id, student_id, status, marked_by, marked_at
FROM attendance_record WHERE student_id = $1 AND session_id = ANY($2)`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, pq.Array(sessionIDs)); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		rec := attendance.Record(row)
		rec.MarkedAt = rec.MarkedAt.UTC()
		recs = append(recs, rec)
	}
	return recs, nil
}
