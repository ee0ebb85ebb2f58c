package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/secmun/podium/apps/api/echo"
	"github.com/secmun/podium/core/member"
)

func Test_memberApi_login(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "LeHero", member.RoleMember, true)
	naughty := createMember(t, "N Dog", "ndog01", "ndog@test.cd", "woof", member.RoleMember, false)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Username: "this field is required", Password: "this field is required"}),
		},
		{
			name: "unknown member", body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, echoapi.LoginRequest{Username: naughty.Username, Password: "woof"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "LeHero"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: marchallObj(t, echoapi.LoginRequest{Username: student.Email, Password: "LeHero"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/members/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token; just check that it is not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_memberApi_refreshToken(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	naughty := createMember(t, "N Dog", "ndog01", "ndog@test.cd", "", member.RoleMember, false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   student.ID,
			Audience:  "SECMUN",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     student.Username,
		Email:        student.Email,
		RoleLabel:    student.RoleLabel,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive member not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/members/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_memberApi_register(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)

	newMbr := member.NewMember{
		Name:            "Fresh Face",
		Username:        "freshface",
		Email:           "fresh@test.cd",
		Password:        "S3cr3t!pwd",
		PasswordConfirm: "S3cr3t!pwd",
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Secretariat required", token: getToken(t, student), body: marchallObj(t, newMbr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Member created", token: getToken(t, president), body: marchallObj(t, newMbr), wantCode: http.StatusCreated},
		{
			name: "Duplicate username rejected", token: getToken(t, president), body: marchallObj(t, newMbr),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/members/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusCreated {
				var created member.Member
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if created.ID == "" || created.Username != newMbr.Username {
					t.Errorf("failed! unexpected member %+v", created)
				}
			}
		})
	}
}

func Test_memberApi_query(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	teacher := createMember(t, "Teach", "teachr", "teach@test.cd", "", member.RoleTeacher, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)
	naughty := createMember(t, "N Dog", "ndog01", "ndog@test.cd", "", member.RoleMember, false)

	path := func(search, role, label string, isActive string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if role != "" {
			v.Add("role", role)
		}
		if label != "" {
			v.Add("role_label", label)
		}
		if isActive != "" {
			v.Add("is_active", isActive)
		}
		return "/v1/members?" + v.Encode()
	}

	prezToken := getToken(t, president)
	empty := marchallObj(t, []interface{}{})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/members", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Secretariat required", path: "/v1/members", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/members", token: prezToken, wantData: marchallObj(t, []member.Member{student, teacher, president, naughty})},
		{name: "search (unknown)", path: path("lol", "", "", ""), token: prezToken, wantData: empty},
		{name: "search=her", path: path("her", "", "", ""), token: prezToken, wantData: marchallObj(t, []member.Member{student})},
		{name: "role=teacher", path: path("", member.RoleTeacher, "", ""), token: prezToken, wantData: marchallObj(t, []member.Member{teacher})},
		{name: "role_label=leadership", path: path("", "", member.LabelLeadership, ""), token: prezToken, wantData: marchallObj(t, []member.Member{president})},
		{name: "is_active=false", path: path("", "", "", "false"), token: prezToken, wantData: marchallObj(t, []member.Member{naughty})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_memberApi_detail(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	other := createMember(t, "Other", "other1", "other@test.cd", "", member.RoleMember, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/members/" + student.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Own detail", path: "/v1/members/" + student.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, student),
		},
		{
			name: "Others hidden from plain members", path: "/v1/members/" + other.ID, token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Secretariat sees all", path: "/v1/members/" + other.ID, token: getToken(t, president),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "Unknown member", path: "/v1/members/e8ac3d50-cd27-4963-9b5e-0d2eaeb0c1f3", token: getToken(t, president),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_memberApi_update(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)

	tests := []httpTest{
		{
			name: "Member may update own name", path: "/v1/members/" + student.ID, token: getToken(t, student),
			body: marchallObj(t, member.UpdateMember{Name: "New Hero"}), wantCode: http.StatusOK,
		},
		{
			name: "Member may not self-promote", path: "/v1/members/" + student.ID, token: getToken(t, student),
			body:     marchallObj(t, member.UpdateMember{Role: member.RolePresident}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Secretariat may promote", path: "/v1/members/" + student.ID, token: getToken(t, president),
			body: marchallObj(t, member.UpdateMember{Role: member.RoleUnderSecretaryGeneral}), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				if ok, _ := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData); !ok {
					t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
				}
			}
		})
	}

	// promotion recomputes the permission flags
	refreshed, err := mbrRepo.GetMember(contextBG, member.GetFilter{ID: student.ID})
	if err != nil {
		t.Fatalf("GetMember() failed, %v", err)
	}
	if refreshed.Role != member.RoleUnderSecretaryGeneral {
		t.Errorf("Role = %v; want %v", refreshed.Role, member.RoleUnderSecretaryGeneral)
	}
}

func Test_memberApi_destroy(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)

	tests := []httpTest{
		{
			name: "Secretariat required", path: "/v1/members/" + president.ID, token: getToken(t, student),
			wantCode: http.StatusNotFound, // detail of others is hidden before the permission check
		},
		{
			name: "No suicide", path: "/v1/members/" + president.ID, token: getToken(t, president),
			wantCode: http.StatusForbidden,
		},
		{
			name: "Member deleted", path: "/v1/members/" + student.ID, token: getToken(t, president),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
		})
	}

	if _, err := mbrRepo.GetMember(contextBG, member.GetFilter{ID: student.ID}); err != member.ErrNotFound {
		t.Errorf("GetMember() error = %v; want %v", err, member.ErrNotFound)
	}
}

func Test_memberApi_classGroups(t *testing.T) {
	app := setup(t)

	student := createMember(t, "Hero", "heroic", "hero@test.cd", "", member.RoleMember, true)
	president := createMember(t, "Prez", "prezzy", "prez@test.cd", "", member.RolePresident, true)

	tests := []httpTest{
		{
			name: "Secretariat required to create", method: http.MethodPost, token: getToken(t, student),
			body: marchallObj(t, echoapi.NewClassGroupRequest{Name: "S5 MEB"}), wantCode: http.StatusForbidden,
		},
		{
			name: "Class group created", method: http.MethodPost, token: getToken(t, president),
			body: marchallObj(t, echoapi.NewClassGroupRequest{Name: "S5 MEB"}), wantCode: http.StatusCreated,
		},
		{name: "Anyone authed may list", method: http.MethodGet, token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.path = "/v1/members/class-groups"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusCreated {
				var created member.ClassGroup
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if created.ID == "" || created.Name != "S5 MEB" {
					t.Errorf("failed! unexpected class group %+v", created)
				}
			}
		})
	}
}
