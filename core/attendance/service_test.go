package attendance_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/member"
	logsvc "github.com/secmun/podium/services/logger"
	dummydb "github.com/secmun/podium/storage/database/dummy"
)

var ctx = context.Background()

type fixture struct {
	svc     attendance.Service
	repo    attendance.Repository
	mbrRepo member.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := &core.Config{TestMode: true, AttendanceThreshold: 80}
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	repo := dummydb.NewAttendanceRepository(db)
	return &fixture{
		svc:     attendance.NewService(repo, logger, conf),
		repo:    repo,
		mbrRepo: dummydb.NewMemberRepository(db),
	}
}

func (f *fixture) classGroup(t *testing.T, name string) member.ClassGroup {
	t.Helper()
	cg, err := f.mbrRepo.CreateClassGroup(ctx, member.ClassGroup{ID: uuid.New().String(), Name: name})
	require.NoError(t, err)
	return cg
}

func (f *fixture) student(t *testing.T, uname string, classGroupID *string) member.Member {
	t.Helper()
	mbr := member.Member{ID: uuid.New().String(), Name: uname, Username: uname, Email: uname + "@test.cd", Role: member.RoleMember, ClassGroupID: classGroupID}
	mbr.SetActive(true)
	mbr, err := f.mbrRepo.CreateMember(ctx, mbr)
	require.NoError(t, err)
	return mbr
}

func (f *fixture) classEntry(t *testing.T, classGroupID string, weekday int, subject, start, end string) attendance.ScheduleEntry {
	t.Helper()
	entry, err := f.repo.CreateEntry(ctx, attendance.ScheduleEntry{
		ID:           uuid.New().String(),
		ClassGroupID: &classGroupID,
		Weekday:      weekday,
		Subject:      subject,
		StartTime:    start,
		EndTime:      end,
		IsActive:     true,
	})
	require.NoError(t, err)
	return entry
}

func (f *fixture) personalEntry(t *testing.T, memberID string, weekday int, subject, start, end string) attendance.ScheduleEntry {
	t.Helper()
	entry, err := f.repo.CreateEntry(ctx, attendance.ScheduleEntry{
		ID:        uuid.New().String(),
		MemberID:  &memberID,
		Weekday:   weekday,
		Subject:   subject,
		StartTime: start,
		EndTime:   end,
		IsActive:  true,
	})
	require.NoError(t, err)
	return entry
}

// a Monday
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.Local)

func Test_service_EnsureSessionsForDate_globalSchedule(t *testing.T) {
	f := newFixture(t)

	cg := f.classGroup(t, "S5 MEB")
	other := f.classGroup(t, "S6 PCM")
	mbr := f.student(t, "hero", &cg.ID)

	f.classEntry(t, cg.ID, int(monday.Weekday()), "History", "08:00", "09:00")
	f.classEntry(t, cg.ID, int(monday.Weekday()), "Geography", "09:00", "10:00")
	f.classEntry(t, other.ID, int(monday.Weekday()), "Physics", "08:00", "09:00")
	f.classEntry(t, cg.ID, (int(monday.Weekday())+2)%7, "Biology", "08:00", "09:00") // different weekday
	inactive := f.classEntry(t, cg.ID, int(monday.Weekday()), "Chemistry", "10:00", "11:00")
	inactive.IsActive = false
	_, err := f.repo.UpdateEntry(ctx, inactive)
	require.NoError(t, err)

	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))

	sessions, err := f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, ss := range sessions {
		assert.Equal(t, cg.ID, ss.ClassGroupID)
		assert.NotNil(t, ss.ScheduleEntryID)
		assert.Nil(t, ss.CreatedBy) // system-materialized
		assert.Equal(t, attendance.SessionOpen, ss.Status)
		assert.Nil(t, ss.MyStatus)
	}

	// idempotent: the worker materializes across all class groups
	otherSessions, err := f.repo.QuerySessionsByClassAndRange(ctx, other.ID, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, otherSessions, 1)

	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))
	sessions, err = f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func Test_service_EnsureSessionsForDate_personalSchedule(t *testing.T) {
	f := newFixture(t)

	cg := f.classGroup(t, "S5 MEB")
	mbr := f.student(t, "hero", &cg.ID)

	f.personalEntry(t, mbr.ID, int(monday.Weekday()), "Debate Prep", "16:00", "17:00")
	// a class entry exists too, but the personal schedule takes precedence
	f.classEntry(t, cg.ID, int(monday.Weekday()), "History", "08:00", "09:00")

	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))

	sessions, err := f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sess := sessions[0]
	assert.Equal(t, "Debate Prep", sess.Subject)
	assert.Nil(t, sess.ScheduleEntryID) // no backing schedule document
	require.NotNil(t, sess.CreatedBy)
	assert.Equal(t, mbr.ID, *sess.CreatedBy)

	// idempotent on the owner dedupe key
	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))
	sessions, err = f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func Test_service_EnsureSessionsForDate_personalWithoutClassGroup(t *testing.T) {
	f := newFixture(t)

	mbr := f.student(t, "loner", nil)
	f.personalEntry(t, mbr.ID, int(monday.Weekday()), "Solo Study", "16:00", "17:00")

	// a configuration gap is logged and skipped, never an error
	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))

	sessions, err := f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func Test_service_Mark(t *testing.T) {
	f := newFixture(t)

	cg := f.classGroup(t, "S5 MEB")
	mbr := f.student(t, "hero", &cg.ID)
	f.classEntry(t, cg.ID, int(monday.Weekday()), "History", "08:00", "09:00")
	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))
	sessions, err := f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sessID := sessions[0].ID

	_, err = f.svc.Mark(ctx, sessID, mbr, "vibing")
	assert.Error(t, err)

	_, err = f.svc.Mark(ctx, "4dd1ce4c-91b1-4fbc-a35c-1a4894eb9b55", mbr, attendance.StatusPresent)
	assert.Equal(t, attendance.ErrSessionNotFound, err)

	rec, err := f.svc.Mark(ctx, sessID, mbr, attendance.StatusPresent)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Equal(t, mbr.ID, rec.MarkedBy)

	// upsert: last write wins, same record
	rec2, err := f.svc.Mark(ctx, sessID, mbr, attendance.StatusLate)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, rec2.ID)
	assert.Equal(t, attendance.StatusLate, rec2.Status)

	records, err := f.repo.QueryRecordsForStudent(ctx, mbr.ID, []string{sessID})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// marches a student through `total` sessions in March 2026 of which `present`
// are marked present and the rest absent.
func seedMonth(t *testing.T, f *fixture, mbr member.Member, cgID string, total, present int) {
	t.Helper()
	for i := 0; i < total; i++ {
		day := monday.AddDate(0, 0, i)
		entry := f.classEntry(t, cgID, int(day.Weekday()), "History", "08:00", "09:00")
		entryID := entry.ID
		sess := attendance.Session{
			ID:              "sess-" + entry.ID,
			Date:            day,
			ClassGroupID:    cgID,
			ScheduleEntryID: &entryID,
			Subject:         entry.Subject,
			StartTime:       entry.StartTime,
			EndTime:         entry.EndTime,
			Status:          attendance.SessionOpen,
			CreatedAt:       time.Now().UTC(),
		}
		created, err := f.repo.CreateSession(ctx, sess)
		require.NoError(t, err)
		require.True(t, created)

		status := attendance.StatusAbsent
		if i < present {
			status = attendance.StatusPresent
		}
		_, err = f.svc.Mark(ctx, sess.ID, mbr, status)
		require.NoError(t, err)
	}
}

func Test_service_SummarizeMonth(t *testing.T) {
	t.Run("at threshold", func(t *testing.T) {
		f := newFixture(t)
		cg := f.classGroup(t, "S5 MEB")
		mbr := f.student(t, "hero", &cg.ID)
		seedMonth(t, f, mbr, cg.ID, 10, 8)

		sum, err := f.svc.SummarizeMonth(ctx, mbr, 3, 2026)
		require.NoError(t, err)
		assert.Equal(t, 10, sum.TotalSessions)
		assert.Equal(t, 8, sum.Present)
		assert.Equal(t, 80, sum.Percentage)
		assert.False(t, sum.BelowThreshold)
	})

	t.Run("below threshold", func(t *testing.T) {
		f := newFixture(t)
		cg := f.classGroup(t, "S5 MEB")
		mbr := f.student(t, "hero", &cg.ID)
		seedMonth(t, f, mbr, cg.ID, 10, 7)

		sum, err := f.svc.SummarizeMonth(ctx, mbr, 3, 2026)
		require.NoError(t, err)
		assert.Equal(t, 70, sum.Percentage)
		assert.True(t, sum.BelowThreshold)
	})

	t.Run("empty month", func(t *testing.T) {
		f := newFixture(t)
		cg := f.classGroup(t, "S5 MEB")
		mbr := f.student(t, "hero", &cg.ID)

		sum, err := f.svc.SummarizeMonth(ctx, mbr, 1, 2026)
		require.NoError(t, err)
		assert.Equal(t, 0, sum.TotalSessions)
		assert.Equal(t, 0, sum.Percentage)
		assert.False(t, sum.BelowThreshold)
	})

	t.Run("no class group", func(t *testing.T) {
		f := newFixture(t)
		mbr := f.student(t, "loner", nil)

		sum, err := f.svc.SummarizeMonth(ctx, mbr, 3, 2026)
		require.NoError(t, err)
		assert.Equal(t, 0, sum.TotalSessions)
	})
}

func Test_service_ReportMonth(t *testing.T) {
	f := newFixture(t)

	cg := f.classGroup(t, "S5 MEB")
	mbr := f.student(t, "hero", &cg.ID)
	f.classEntry(t, cg.ID, int(monday.Weekday()), "History", "08:00", "09:00")
	f.classEntry(t, cg.ID, int(monday.Weekday()), "Geography", "09:00", "10:00")
	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))
	sessions, err := f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	_, err = f.svc.Mark(ctx, sessions[0].ID, mbr, attendance.StatusLate)
	require.NoError(t, err)

	report, err := f.svc.ReportMonth(ctx, mbr, 3, 2026)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	statuses := map[string]string{}
	for _, row := range report.Rows {
		statuses[row.Subject] = row.Status
	}
	assert.Equal(t, "LATE", statuses[sessions[0].Subject])
	assert.Equal(t, attendance.StatusNotLogged, statuses[sessions[1].Subject])
}

func Test_service_ExportMonthXLSX(t *testing.T) {
	f := newFixture(t)

	cg := f.classGroup(t, "S5 MEB")
	mbr := f.student(t, "hero", &cg.ID)
	f.classEntry(t, cg.ID, int(monday.Weekday()), "History", "08:00", "09:00")
	require.NoError(t, f.svc.EnsureSessionsForDate(ctx, monday, mbr))
	sessions, err := f.svc.SessionsForDate(ctx, monday, mbr)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	_, err = f.svc.Mark(ctx, sessions[0].ID, mbr, attendance.StatusPresent)
	require.NoError(t, err)

	blob, err := f.svc.ExportMonthXLSX(ctx, mbr, 3, 2026)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	// round-trip through excelize to prove the workbook is readable
	wb, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(wb.GetSheetName(0))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 2) // header + one session row
}

func Test_service_entryAdministration(t *testing.T) {
	f := newFixture(t)

	cg := f.classGroup(t, "S5 MEB")

	entry, err := f.svc.CreateEntry(ctx, attendance.NewScheduleEntry{
		ClassGroupID: &cg.ID,
		Weekday:      1,
		Subject:      "History",
		StartTime:    "08:00",
		EndTime:      "09:00",
	})
	require.NoError(t, err)
	assert.True(t, entry.IsActive)

	// end before start rejected on update
	_, err = f.svc.UpdateEntry(ctx, entry.ID, attendance.UpdateScheduleEntry{EndTime: "07:00"})
	assert.Error(t, err)

	updated, err := f.svc.UpdateEntry(ctx, entry.ID, attendance.UpdateScheduleEntry{Subject: "Civics"})
	require.NoError(t, err)
	assert.Equal(t, "Civics", updated.Subject)

	entries, err := f.svc.EntriesForClassGroup(ctx, cg.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, f.svc.DeleteEntry(ctx, entry.ID))
	_, err = f.svc.UpdateEntry(ctx, entry.ID, attendance.UpdateScheduleEntry{})
	assert.Equal(t, attendance.ErrEntryNotFound, err)
}
