package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/member"
)

func createClassGroup(t *testing.T, name string) member.ClassGroup {
	t.Helper()
	cg, err := mbrRepo.CreateClassGroup(contextBG, member.ClassGroup{ID: uuid.New().String(), Name: name})
	if err != nil {
		t.Fatalf("CreateClassGroup() failed, %v", err)
	}
	return cg
}

func createClassEntry(t *testing.T, classGroupID, subject string, weekday int, start, end string) attendance.ScheduleEntry {
	t.Helper()
	entry, err := attRepo.CreateEntry(contextBG, attendance.ScheduleEntry{
		ID:           uuid.New().String(),
		ClassGroupID: &classGroupID,
		Weekday:      weekday,
		Subject:      subject,
		StartTime:    start,
		EndTime:      end,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("CreateEntry() failed, %v", err)
	}
	return entry
}

func Test_attendanceApi_sessionsAndMark(t *testing.T) {
	app := setup(t)

	cg := createClassGroup(t, "S5 MEB")
	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	student.ClassGroupID = &cg.ID
	student, err := mbrRepo.UpdateMember(contextBG, student)
	if err != nil {
		t.Fatalf("UpdateMember() failed, %v", err)
	}

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.Local) // a Monday
	createClassEntry(t, cg.ID, "History", int(date.Weekday()), "08:00", "09:00")
	createClassEntry(t, cg.ID, "Geography", int(date.Weekday()), "09:00", "10:00")
	createClassEntry(t, cg.ID, "Biology", (int(date.Weekday())+1)%7, "08:00", "09:00") // wrong weekday

	token := getToken(t, student)
	sessionsPath := "/v1/attendance/sessions?date=" + date.Format("2006-01-02")

	listSessions := func(t *testing.T) []attendance.SessionStatus {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, sessionsPath, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("sessions failed! code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var sessions []attendance.SessionStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
			t.Fatalf("json.Unmarshal() failed, %v", err)
		}
		return sessions
	}

	// auth required
	req, rec := newRequest(http.MethodGet, sessionsPath)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusUnauthorized)
	}

	// invalid date
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/sessions?date=lol", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// only the day's class entries are materialized, none logged yet
	sessions := listSessions(t)
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %v; want 2", len(sessions))
	}
	for _, s := range sessions {
		if s.MyStatus != nil {
			t.Errorf("MyStatus = %v; want nil", *s.MyStatus)
		}
	}

	// listing again does not duplicate
	if again := listSessions(t); len(again) != 2 {
		t.Errorf("len(sessions) after relisting = %v; want 2", len(again))
	}

	// mark the first session present
	mark := marchallObj(t, attendance.MarkRequest{SessionID: sessions[0].ID, Status: attendance.StatusPresent})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/mark", token, mark)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark failed! code = %v, body = %v", rec.Code, rec.Body.String())
	}

	// remark: last write wins, no duplicate record
	mark = marchallObj(t, attendance.MarkRequest{SessionID: sessions[0].ID, Status: attendance.StatusLate})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/mark", token, mark)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("remark failed! code = %v, body = %v", rec.Code, rec.Body.String())
	}

	// today listing reflects the student's own status
	marked := 0
	for _, s := range listSessions(t) {
		if s.ID == sessions[0].ID {
			if s.MyStatus == nil || *s.MyStatus != attendance.StatusLate {
				t.Errorf("MyStatus = %v; want %v", s.MyStatus, attendance.StatusLate)
			}
			marked++
		}
	}
	if marked != 1 {
		t.Errorf("marked sessions = %v; want 1", marked)
	}

	// unknown status rejected
	mark = marchallObj(t, attendance.MarkRequest{SessionID: sessions[0].ID, Status: "vibing"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/mark", token, mark)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// unknown session 404s
	mark = marchallObj(t, attendance.MarkRequest{SessionID: "4dd1ce4c-91b1-4fbc-a35c-1a4894eb9b55", Status: attendance.StatusPresent})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/mark", token, mark)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}
}

func Test_attendanceApi_summaryAndReport(t *testing.T) {
	app := setup(t)

	cg := createClassGroup(t, "S6 PCM")
	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	student.ClassGroupID = &cg.ID
	student, err := mbrRepo.UpdateMember(contextBG, student)
	if err != nil {
		t.Fatalf("UpdateMember() failed, %v", err)
	}

	date := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.Local)
	createClassEntry(t, cg.ID, "History", int(date.Weekday()), "08:00", "09:00")

	token := getToken(t, student)

	// materialize and mark
	req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/sessions?date="+date.Format("2006-01-02"), token)
	app.ServeHTTP(rec, req)
	var sessions []attendance.SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("json.Unmarshal() failed, %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %v; want 1", len(sessions))
	}
	mark := marchallObj(t, attendance.MarkRequest{SessionID: sessions[0].ID, Status: attendance.StatusPresent})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/mark", token, mark)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark failed! code = %v", rec.Code)
	}

	monthQS := fmt.Sprintf("month=%d&year=%d", int(date.Month()), date.Year())

	// summary: 1/1 = 100%, not below threshold
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/summary?"+monthQS, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary failed! code = %v, body = %v", rec.Code, rec.Body.String())
	}
	var sum attendance.MonthSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("json.Unmarshal() failed, %v", err)
	}
	if sum.TotalSessions != 1 || sum.Present != 1 || sum.Percentage != 100 || sum.BelowThreshold {
		t.Errorf("unexpected summary %+v", sum)
	}

	// an empty month reports zero without flagging
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/summary?month=1&year=2026", token)
	app.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("json.Unmarshal() failed, %v", err)
	}
	if sum.TotalSessions != 0 || sum.Percentage != 0 || sum.BelowThreshold {
		t.Errorf("unexpected empty-month summary %+v", sum)
	}

	// invalid month rejected
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/summary?month=13&year=2026", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// report
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/report?"+monthQS, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("report failed! code = %v", rec.Code)
	}
	var rep attendance.MonthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("json.Unmarshal() failed, %v", err)
	}
	if len(rep.Rows) != 1 {
		t.Fatalf("len(rep.Rows) = %v; want 1", len(rep.Rows))
	}

	// export
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/report/export?"+monthQS, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export failed! code = %v", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %v", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty export body")
	}
	if cd := rec.Header().Get("Content-Disposition"); cd == "" {
		t.Error("missing Content-Disposition")
	}
}

func Test_attendanceApi_entries(t *testing.T) {
	app := setup(t)

	cg := createClassGroup(t, "S4 LIT")
	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)

	entryBody := marchallObj(t, attendance.NewScheduleEntry{
		ClassGroupID: &cg.ID,
		Weekday:      1,
		Subject:      "History",
		StartTime:    "08:00",
		EndTime:      "09:00",
	})

	// secretariat required to create
	req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/entries", getToken(t, student), entryBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/entries", getToken(t, president), entryBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v, body = %v", rec.Code, rec.Body.String())
	}
	var entry attendance.ScheduleEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() failed, %v", err)
	}

	// both owners set is rejected
	bad := marchallObj(t, attendance.NewScheduleEntry{
		ClassGroupID: &cg.ID, MemberID: &student.ID,
		Weekday: 1, Subject: "History", StartTime: "08:00", EndTime: "09:00",
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/entries", getToken(t, president), bad)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// anyone authed may list a class timetable
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/entries?class_group_id="+cg.ID, getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}

	// students may not inspect another member's personal entries
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/entries?member_id="+president.ID, getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	// update
	upd := marchallObj(t, attendance.UpdateScheduleEntry{Subject: "Civics"})
	req, rec = newAuthRequest(http.MethodPut, "/v1/attendance/entries/"+entry.ID, getToken(t, president), upd)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed! code = %v, body = %v", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() failed, %v", err)
	}
	if entry.Subject != "Civics" {
		t.Errorf("Subject = %v; want Civics", entry.Subject)
	}

	// delete
	req, rec = newAuthRequest(http.MethodDelete, "/v1/attendance/entries/"+entry.ID, getToken(t, president))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete failed! code = %v", rec.Code)
	}

	// gone
	req, rec = newAuthRequest(http.MethodPut, "/v1/attendance/entries/"+entry.ID, getToken(t, president), upd)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}
}
