package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"

	. "github.com/educonnect/backend/apps/api/echo"
	"github.com/educonnect/backend/core/user"
	emailsvc "github.com/educonnect/backend/services/email"
	testutil "github.com/educonnect/backend/tests"
)

const testPassword = "S3cretW0rd!"

func Test_authApi_register(t *testing.T) {
	app := setup(t)

	body := func(name, role, email, regNum, pwd string) []byte {
		return marchallObj(t, map[string]string{
			"name":                name,
			"role":                role,
			"email":               email,
			"registration_number": regNum,
			"password":            pwd,
		})
	}

	testutil.CreateTeacher(t, app.usrRepo, "Existing Teacher", "taken@edu.test")
	testutil.CreateStudent(t, app.usrRepo, "Existing Student", "std0001")

	tests := []httpTest{
		{
			name: "Name, role and password are required", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name": "this field is required", "role": "this field is required", "password": "this field is required",
			}),
		},
		{
			name: "Unknown role is rejected", body: body("Jay Dee", "principal", "jay@edu.test", "", testPassword),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of: student, teacher"}),
		},
		{
			name: "Teachers need an email", body: body("Jay Dee", "teacher", "", "", testPassword),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "teachers sign up with an email, students with a registration number"}),
		},
		{
			name: "Teachers cannot take a registration number", body: body("Jay Dee", "teacher", "jay@edu.test", "reg0042", testPassword),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "teachers sign up with an email, students with a registration number"}),
		},
		{
			name: "Students need a registration number", body: body("Jay Dee", "student", "", "", testPassword),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"registration_number": "teachers sign up with an email, students with a registration number"}),
		},
		{
			name: "Weak password is rejected", body: body("Jay Dee", "teacher", "jay@edu.test", "", "password"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name: "Duplicate email conflicts", body: body("Jay Dee", "teacher", "taken@edu.test", "", testPassword),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "Duplicate registration number conflicts", body: body("Jay Dee", "student", "", "std0001", testPassword),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"registration_number": "a user with this registration number already exists"}),
		},
		{name: "Teacher registers", body: body("Jay Dee", "teacher", "jay@edu.test", "", testPassword), wantCode: http.StatusCreated},
		{name: "Student registers", body: body("Amina K", "student", "", "std0042", testPassword), wantCode: http.StatusCreated},
		{name: "Student registers with contact email", body: body("Moyo B", "student", "moyo@edu.test", "std0043", testPassword), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/auth/register", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var resp struct {
				Token string    `json:"token"`
				User  user.User `json:"user"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.User.ID == "" {
				t.Error("expected a persisted user")
			}
			if !resp.User.IsActive {
				t.Error("expected a new account to be active")
			}

			// the token must be usable right away
			req, rec = newAuthRequest(http.MethodGet, "/api/auth/verify", resp.Token)
			app.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("verify code = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}

	// failed registrations must not create accounts
	users, err := app.usrRepo.QueryUsers(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("QueryUsers() failed: %v", err)
	}
	if want := 5; len(users) != want { // 2 fixtures + 3 successful registrations
		t.Errorf("user count = %d, want %d", len(users), want)
	}
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, app.usrRepo, "Teacher", user.RoleTeacher, "teacher@edu.test", "", testPassword, true)
	testutil.CreateUser(t, app.usrRepo, "Student", user.RoleStudent, "", "std0001", testPassword, true)
	testutil.CreateUser(t, app.usrRepo, "Gone", user.RoleTeacher, "gone@edu.test", "", testPassword, false)

	body := func(identifier, pwd string, role ...string) []byte {
		data := map[string]string{"identifier": identifier, "password": pwd}
		if len(role) > 0 {
			data["role"] = role[0]
		}
		return marchallObj(t, data)
	}
	invalidCredentials := marchallObj(t, httpErr{Error: "invalid credentials"})

	tests := []httpTest{
		{
			name: "Identifier and password are required", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"identifier": "this field is required", "password": "this field is required"}),
		},
		{name: "Unknown email", body: body("who@edu.test", testPassword), wantCode: http.StatusUnauthorized, wantData: invalidCredentials},
		{name: "Unknown registration number", body: body("std9999", testPassword), wantCode: http.StatusUnauthorized, wantData: invalidCredentials},
		{name: "Wrong password", body: body("teacher@edu.test", "Wr0ngPass!"), wantCode: http.StatusUnauthorized, wantData: invalidCredentials},
		{name: "Role mismatch", body: body("teacher@edu.test", testPassword, "student"), wantCode: http.StatusUnauthorized, wantData: invalidCredentials},
		{
			name: "Deactivated account", body: body("gone@edu.test", testPassword),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Teacher logs in by email", body: body("teacher@edu.test", testPassword)},
		{name: "Teacher logs in with role", body: body("teacher@edu.test", testPassword, "teacher")},
		{name: "Student logs in by registration number", body: body("std0001", testPassword)},
		{name: "Identifier is case-insensitive", body: body("Teacher@EDU.Test", testPassword)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/auth/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusOK {
				return
			}
			var resp struct {
				Token string    `json:"token"`
				User  user.User `json:"user"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.User.LastLogin.IsZero() {
				t.Error("expected lastLogin to be set")
			}
		})
	}

	// two logins yield two independently valid tokens
	t.Run("Concurrent sessions", func(t *testing.T) {
		login := func() string {
			req, rec := newRequest(http.MethodPost, "/api/auth/login", body("teacher@edu.test", testPassword))
			app.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("login code = %d", rec.Code)
			}
			var resp struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			return resp.Token
		}

		token1 := login()
		time.Sleep(time.Second) // distinct iat
		token2 := login()

		for _, token := range []string{token1, token2} {
			req, rec := newAuthRequest(http.MethodGet, "/api/auth/verify", token)
			app.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("verify code = %d, want %d", rec.Code, http.StatusOK)
			}
		}
	})
}

func Test_authApi_verify(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	gone := testutil.CreateUser(t, app.usrRepo, "Gone", user.RoleTeacher, "gone@edu.test", "", testPassword, false)

	expiredClaims := GetUserClaims(teacher)
	expiredClaims.IssuedAt = time.Now().Add(-2 * time.Hour).Unix()
	expiredClaims.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expiredToken, err := GenerateToken(expiredClaims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Garbage token", token: "lol.lol.lol", wantCode: http.StatusUnauthorized},
		{name: "Expired token", token: expiredToken, wantCode: http.StatusUnauthorized},
		{
			name: "Deactivated account", token: getToken(t, gone), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Valid token", token: getToken(t, teacher), wantData: marchallObj(t, teacher)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/api/auth/verify", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")

	t.Run("Fresh token is refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/auth/token-refresh", getToken(t, teacher))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("expected a token")
		}
	})

	t.Run("Refresh window is bounded", func(t *testing.T) {
		claims := GetUserClaims(teacher)
		claims.OrigIssuedAt = time.Now().Add(-(app.conf.Server.JWTRefreshExpirationDelta + time.Hour)).Unix()
		token, err := GenerateToken(claims)
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}

		req, rec := newAuthRequest(http.MethodPost, "/api/auth/token-refresh", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}

var resetLinkRegex = regexp.MustCompile(`uid=(\S+)&token=(\S+)`)

func Test_authApi_passwordReset(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", user.RoleTeacher, "teacher@edu.test", "", testPassword, true)

	// the response never leaks whether the account exists
	for _, email := range []string{"teacher@edu.test", "unknown@edu.test"} {
		req, rec := newRequest(http.MethodPost, "/api/auth/password-reset", marchallObj(t, map[string]string{"email": email}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d", rec.Code, http.StatusOK)
		}
	}
	if want := 1; len(emailsvc.SentMessages) != want {
		t.Fatalf("sent emails = %d, want %d", len(emailsvc.SentMessages), want)
	}

	match := resetLinkRegex.FindStringSubmatch(emailsvc.SentMessages[0].TextContent)
	if match == nil {
		t.Fatalf("no reset link in email: %s", emailsvc.SentMessages[0].TextContent)
	}
	uid, token := match[1], match[2]

	newPwd := "N3wS3cret!"
	confirm := func(uid, token, pwd string) *http.Response {
		req, rec := newRequest(http.MethodPost, "/api/auth/password-reset-confirm", marchallObj(t, map[string]string{
			"uid": uid, "token": token, "password": pwd,
		}))
		app.server.ServeHTTP(rec, req)
		return rec.Result()
	}

	if res := confirm("bogus", token, newPwd); res.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus uid: code = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if res := confirm(uid, token, newPwd); res.StatusCode != http.StatusOK {
		t.Fatalf("confirm: code = %d, want %d", res.StatusCode, http.StatusOK)
	}

	// new password now logs in
	req, rec := newRequest(http.MethodPost, "/api/auth/login", marchallObj(t, map[string]string{
		"identifier": teacher.Email, "password": newPwd,
	}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("login code = %d, want %d", rec.Code, http.StatusOK)
	}

	// the token is single-use
	if res := confirm(uid, token, fmt.Sprintf("Again%s", newPwd)); res.StatusCode != http.StatusBadRequest {
		t.Errorf("token reuse: code = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}
