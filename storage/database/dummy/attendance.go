package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/secmun/podium/core/attendance"
)

type attendanceRepository struct {
	entries  *entryTable
	sessions *sessionTable
	records  *recordTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{entries: db.entry, sessions: db.session, records: db.record}
}

// schedule entries

func (repo *attendanceRepository) CreateEntry(ctx context.Context, entry attendance.ScheduleEntry) (attendance.ScheduleEntry, error) {
	repo.entries.Lock()
	defer repo.entries.Unlock()
	if entry.ID == "" {
		return attendance.ScheduleEntry{}, errEmptyID
	}
	repo.entries.table[entry.ID] = &entry
	return entry, nil
}

func (repo *attendanceRepository) GetEntryByID(ctx context.Context, id string) (attendance.ScheduleEntry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	if entry, ok := repo.entries.table[id]; ok {
		return *entry, nil
	}
	return attendance.ScheduleEntry{}, attendance.ErrEntryNotFound
}

func (repo *attendanceRepository) UpdateEntry(ctx context.Context, entry attendance.ScheduleEntry) (attendance.ScheduleEntry, error) {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	if _, ok := repo.entries.table[entry.ID]; !ok {
		return attendance.ScheduleEntry{}, attendance.ErrEntryNotFound
	}
	repo.entries.table[entry.ID] = &entry
	return entry, nil
}

func (repo *attendanceRepository) DeleteEntry(ctx context.Context, id string) error {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	if _, ok := repo.entries.table[id]; !ok {
		return attendance.ErrEntryNotFound
	}
	delete(repo.entries.table, id)
	return nil
}

func (repo *attendanceRepository) queryEntries(match func(attendance.ScheduleEntry) bool) []attendance.ScheduleEntry {
	var entries []attendance.ScheduleEntry
	for _, entry := range repo.entries.table {
		if match(*entry) {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weekday != entries[j].Weekday {
			return entries[i].Weekday < entries[j].Weekday
		}
		return entries[i].StartTime < entries[j].StartTime
	})
	return entries
}

func (repo *attendanceRepository) QueryEntriesForMember(ctx context.Context, memberID string) ([]attendance.ScheduleEntry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	return repo.queryEntries(func(e attendance.ScheduleEntry) bool {
		return e.MemberID != nil && *e.MemberID == memberID
	}), nil
}

func (repo *attendanceRepository) QueryEntriesForClassGroup(ctx context.Context, classGroupID string) ([]attendance.ScheduleEntry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	return repo.queryEntries(func(e attendance.ScheduleEntry) bool {
		return e.ClassGroupID != nil && *e.ClassGroupID == classGroupID
	}), nil
}

func (repo *attendanceRepository) QueryActiveClassEntriesByWeekday(ctx context.Context, weekday int) ([]attendance.ScheduleEntry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	return repo.queryEntries(func(e attendance.ScheduleEntry) bool {
		return e.ClassGroupID != nil && e.IsActive && e.Weekday == weekday
	}), nil
}

// sessions

func (repo *attendanceRepository) CreateSession(ctx context.Context, sess attendance.Session) (bool, error) {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()

	// enforce the same dedupe keys the unique indexes do
	for _, existing := range repo.sessions.table {
		if !sameDay(existing.Date, sess.Date) {
			continue
		}
		if sess.ScheduleEntryID != nil && existing.ScheduleEntryID != nil &&
			*existing.ScheduleEntryID == *sess.ScheduleEntryID {
			return false, nil
		}
		if sess.CreatedBy != nil && existing.CreatedBy != nil &&
			*existing.CreatedBy == *sess.CreatedBy &&
			existing.Subject == sess.Subject &&
			existing.StartTime == sess.StartTime && existing.EndTime == sess.EndTime {
			return false, nil
		}
	}
	repo.sessions.table[sess.ID] = &sess
	return true, nil
}

func (repo *attendanceRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	if sess, ok := repo.sessions.table[id]; ok {
		return *sess, nil
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) SessionExistsForEntry(ctx context.Context, date time.Time, entryID string) (bool, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	for _, sess := range repo.sessions.table {
		if sess.ScheduleEntryID != nil && *sess.ScheduleEntryID == entryID && sameDay(sess.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *attendanceRepository) SessionExistsForOwner(ctx context.Context, date time.Time, creatorID, subject, startTime, endTime string) (bool, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	for _, sess := range repo.sessions.table {
		if sess.CreatedBy != nil && *sess.CreatedBy == creatorID &&
			sameDay(sess.Date, date) && sess.Subject == subject &&
			sess.StartTime == startTime && sess.EndTime == endTime {
			return true, nil
		}
	}
	return false, nil
}

func (repo *attendanceRepository) QuerySessionsByClassAndRange(ctx context.Context, classGroupID string, from, to time.Time) ([]attendance.Session, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	var sessions []attendance.Session
	for _, sess := range repo.sessions.table {
		if sess.ClassGroupID == classGroupID && !sess.Date.Before(from) && sess.Date.Before(to) {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].StartTime < sessions[j].StartTime
	})
	return sessions, nil
}

// records

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	// last write wins on the (session, student) key
	for id, existing := range repo.records.table {
		if existing.SessionID == rec.SessionID && existing.StudentID == rec.StudentID {
			rec.ID = id
			repo.records.table[id] = &rec
			return rec, nil
		}
	}
	repo.records.table[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) QueryRecordsForStudent(ctx context.Context, studentID string, sessionIDs []string) ([]attendance.Record, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}

	var recs []attendance.Record
	for _, rec := range repo.records.table {
		if rec.StudentID == studentID && wanted[rec.SessionID] {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
