package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core/audit"
	"github.com/trezcool/kampus/core/user"
	testutil "github.com/trezcool/kampus/tests"
)

func Test_userApi_login(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, conf, "Jane", "Doe", "login@test.cd", "2026-00007", "S3cr3t!pwd", user.LevelStudent, true)
	testutil.CreateUser(t, usrRepo, conf, "Numb", "Locked", "locked@test.cd", "", "S3cr3t!pwd", user.LevelStudent, false)

	badCreds := marchallObj(t, httpErr{Error: "Invalid credentials or user not found"})

	tests := []httpTest{
		{
			name: "Wrong password", body: []byte(`{"email": "login@test.cd", "password": "nope"}`),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name: "Unknown user", body: []byte(`{"email": "ghost@test.cd", "password": "S3cr3t!pwd"}`),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name: "Wrong portal level", body: []byte(`{"email": "login@test.cd", "password": "S3cr3t!pwd", "user_level": "admin"}`),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name: "Deactivated account", body: []byte(`{"email": "locked@test.cd", "password": "S3cr3t!pwd"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			// failed logins never establish a session
			if c := authCookie(rec); c != nil {
				t.Errorf("unexpected auth cookie: %v", c)
			}
		})
	}

	t.Run("Missing credentials", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/login", []byte(`{"email": "login@test.cd"}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rec.Body.String(), "password") {
			t.Errorf("failed! data = %v", rec.Body.String())
		}
	})

	t.Run("Missing login identifier", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/login", []byte(`{"password": "S3cr3t!pwd"}`))
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "student_id": "this field is required"}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	success := func(t *testing.T, body []byte) {
		req, rec := newRequest(http.MethodPost, "/login", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		var resp LoginResponseBody
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("expected a token")
		}
		if resp.User.ID != usr.ID || resp.User.Email != usr.Email {
			t.Errorf("user = %+v; want %v (%v)", resp.User, usr.ID, usr.Email)
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Error("response leaks password material")
		}

		c := authCookie(rec)
		if c == nil {
			t.Fatal("expected the auth cookie to be set")
		}
		if c.Value != resp.Token {
			t.Error("cookie token differs from body token")
		}
		if !c.HttpOnly {
			t.Error("auth cookie must be HTTP-only")
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Errorf("sameSite = %v; want Lax", c.SameSite)
		}

		// the credential is valid for exactly the configured window
		claims := new(echoapi.Claims)
		if _, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(conf.SecretKey), nil
		}); err != nil {
			t.Fatalf("parsing token: %v", err)
		}
		if got := time.Duration(claims.ExpiresAt-claims.IssuedAt) * time.Second; got != conf.TokenExpirationDelta {
			t.Errorf("token validity = %v; want %v", got, conf.TokenExpirationDelta)
		}
		tokenExpiry := time.Unix(claims.ExpiresAt, 0)
		if d := c.Expires.Sub(tokenExpiry); d < -time.Minute || d > time.Minute {
			t.Errorf("cookie expiry = %v; want ~%v", c.Expires, tokenExpiry)
		}
	}

	t.Run("Login by email", func(t *testing.T) {
		success(t, []byte(`{"email": "login@test.cd", "password": "S3cr3t!pwd"}`))
	})

	t.Run("Login by student number", func(t *testing.T) {
		success(t, []byte(`{"student_id": "2026-00007", "password": "S3cr3t!pwd"}`))
	})
}

// LoginResponseBody mirrors the login payload for assertions.
type LoginResponseBody struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func Test_userApi_register(t *testing.T) {
	auditCount := func() int { return len(auditRepo.Events()) }

	t.Run("Success", func(t *testing.T) {
		before := auditCount()
		req, rec := newRequest(http.MethodPost, "/register", []byte(`{
			"email": "newkid@test.cd",
			"password": "Ch4ng3M3!pwd",
			"first_name": "New",
			"last_name": "Kid",
			"mobile_number": "+243991234567"
		}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var resp struct {
			Message   string `json:"message"`
			StudentID string `json:"student_id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.StudentID == "" {
			t.Error("expected a student number")
		}

		// registering does not log the user in
		if c := authCookie(rec); c != nil {
			t.Errorf("unexpected auth cookie: %v", c)
		}

		// exactly one audit record, with the success action
		events := auditRepo.Events()
		if got := len(events) - before; got != 1 {
			t.Fatalf("audit records = %v; want 1", got)
		}
		if last := events[len(events)-1]; last.Action != audit.ActionRegisterSuccess {
			t.Errorf("audit action = %v; want %v", last.Action, audit.ActionRegisterSuccess)
		}
	})

	t.Run("Missing fields", func(t *testing.T) {
		before := auditCount()
		req, rec := newRequest(http.MethodPost, "/register", []byte(`{"email": "halfway@test.cd"}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
		for _, fld := range []string{"password", "first_name", "last_name", "mobile_number"} {
			if !strings.Contains(rec.Body.String(), fld) {
				t.Errorf("missing field %q not reported; data = %v", fld, rec.Body.String())
			}
		}

		events := auditRepo.Events()
		if got := len(events) - before; got != 1 {
			t.Fatalf("audit records = %v; want 1", got)
		}
		last := events[len(events)-1]
		if last.Action != audit.ActionRegisterAttempt {
			t.Errorf("audit action = %v; want %v", last.Action, audit.ActionRegisterAttempt)
		}
		if !strings.Contains(last.Details, "password") {
			t.Errorf("audit details = %v; want the missing fields listed", last.Details)
		}
	})

	t.Run("Duplicate email", func(t *testing.T) {
		body := []byte(`{
			"email": "newkid@test.cd",
			"password": "Ch4ng3M3!pwd",
			"first_name": "New",
			"last_name": "Kid",
			"mobile_number": "+243991234567"
		}`)
		req, rec := newRequest(http.MethodPost, "/register", body)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "a user with this email already exists"}`),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_userApi_logout(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/logout")
	app.ServeHTTP(rec, req)

	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: []byte(`{"message": "Logged out"}`),
	}
	checkCodeAndData(t, tt, rec)

	c := authCookie(rec)
	if c == nil {
		t.Fatal("expected the auth cookie to be cleared")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cookie not cleared: value=%q maxAge=%d", c.Value, c.MaxAge)
	}
}
