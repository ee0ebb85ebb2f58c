package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/secmun/podium/apps/api/echo"
	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/event"
	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
	"github.com/secmun/podium/core/notification"
	emailsvc "github.com/secmun/podium/services/email"
	logsvc "github.com/secmun/podium/services/logger"
	pushsvc "github.com/secmun/podium/services/push"
	dummydb "github.com/secmun/podium/storage/database/dummy"
)

var (
	conf *core.Config

	mbrRepo   member.Repository
	attRepo   attendance.Repository
	evtRepo   event.Repository
	finRepo   finance.Repository
	notifRepo notification.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}

	contextBG = context.Background()
)

func newTestConfig() *core.Config {
	return &core.Config{
		Debug:                     false,
		TestMode:                  true,
		Env:                       "TEST",
		AppName:                   "Podium",
		WorkDir:                   core.Getwd(),
		SecretKey:                 []byte("s3cr3t-t3st-k3y"),
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Podium", Address: "noreply@test.cd"},
		AttendanceThreshold:       80,
		Server: core.ServerConfig{
			Addr:                      ":0",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func setup(t *testing.T) *Server {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	mbrRepo = dummydb.NewMemberRepository(db)
	attRepo = dummydb.NewAttendanceRepository(db)
	evtRepo = dummydb.NewEventRepository(db)
	finRepo = dummydb.NewFinanceRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	pushSvc := pushsvc.NewConsoleServiceMock()
	pushsvc.ClearSentMessages()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)

	return NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		MemberSvc:       member.NewServiceMock(mbrRepo, mailSvc, conf),
		AttendanceSvc:   attendance.NewService(attRepo, logger, conf),
		EventSvc:        event.NewServiceMock(evtRepo, pushSvc, logger, conf),
		FinanceSvc:      finance.NewService(finRepo),
		NotificationSvc: notification.NewServiceMock(notifRepo, pushSvc),
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
	})
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, mbr member.Member) string {
	t.Helper()
	claims := GetMemberClaims(mbr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createMember(t *testing.T, name, uname, email, pwd, role string, active bool) member.Member {
	t.Helper()
	mbr := member.Member{ID: uuid.New().String(), Name: name, Username: uname, Email: email, Role: role}
	mbr.SetActive(active)
	member.DerivePermissions(&mbr)
	if err := mbr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	mbr, err := mbrRepo.CreateMember(context.Background(), mbr)
	if err != nil {
		t.Fatalf("CreateMember() failed, %v", err)
	}
	return mbr
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if ok1 && ok2 {
		return assert.ElementsMatch(t, l1, l2), nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
