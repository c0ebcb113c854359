package tests

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	. "github.com/jorgefranciscopaz/E-Learning-English-Platform/apps/api/echo"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/testutil"
)

const pwd = "Bl4ckb0ard!"

func Test_userApi_register(t *testing.T) {
	resetDB()
	testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", pwd, access.RoleStudent, true)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":         reqMsg,
				"password":         "password must contain at least 8 characters",
				"password_confirm": reqMsg,
			}),
		},
		{
			name: "invalid fields", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{Username: "no way", Email: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, map[string]string{
				"username": "only alphanumeric characters and underscores are allowed",
				"email":    "email must be a valid email address",
				"password": "password cannot be entirely numeric",
			}),
		},
		{
			name: "password mismatch", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Username: "newkid", Password: pwd, PasswordConfirm: "lol"}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "username taken", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Username: "HERO", Password: pwd, PasswordConfirm: pwd}),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "email taken", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Username: "newkid", Email: "hero@test.com", Password: pwd, PasswordConfirm: pwd}),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/register"
	}
	runTests(t, tests)

	t.Run("registered as student", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{Username: "NewKid", Email: "newkid@test.com", Role: "admin", Password: pwd, PasswordConfirm: pwd})
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.ServeHTTP(rec, req)
		checkCode(t, httpTest{wantCode: http.StatusCreated}, rec)

		var usr user.User
		unmarshall(t, rec, &usr)
		if usr.Username != "newkid" || usr.Role != access.RoleStudent || !usr.IsActive {
			t.Errorf("failed! user = %+v; want active student newkid", usr)
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Errorf("failed! password leaked: %s", rec.Body.String())
		}
	})
}

func Test_userApi_login(t *testing.T) {
	resetDB()
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", pwd, access.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.com", pwd, access.RoleStudent, false)

	invalidCreds := marchallObj(t, httpErr{Error: "invalid credentials"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, LoginRequest{Username: "this field is required", Password: "this field is required"}),
		},
		{name: "unknown user", wantCode: http.StatusBadRequest, body: marchallObj(t, LoginRequest{Username: "lol", Password: pwd}), wantData: invalidCreds},
		{name: "wrong password", wantCode: http.StatusBadRequest, body: marchallObj(t, LoginRequest{Username: "hero", Password: "lol"}), wantData: invalidCreds},
		{
			name: "inactive user", wantCode: http.StatusForbidden, body: marchallObj(t, LoginRequest{Username: "ndog", Password: pwd}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/login"
	}
	runTests(t, tests)

	for _, uname := range []string{"hero", " HERO@test.com "} {
		t.Run("valid credentials: "+uname, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, LoginRequest{Username: uname, Password: pwd}))
			app.ServeHTTP(rec, req)
			checkCode(t, httpTest{wantCode: http.StatusOK}, rec)

			var resp LoginResponse
			unmarshall(t, rec, &resp)
			if resp.Token == "" {
				t.Fatal("failed! empty token")
			}
			if resp.User == nil || resp.User.ID != student.ID || resp.User.LastLogin.IsZero() {
				t.Errorf("failed! user = %+v; want %s with last login", resp.User, student.ID)
			}

			// the token opens the authed endpoints
			req, rec = newAuthRequest(http.MethodGet, "/v1/auth/profile", resp.Token)
			app.ServeHTTP(rec, req)
			checkCode(t, httpTest{wantCode: http.StatusOK}, rec)
		})
	}
}

func Test_userApi_profile(t *testing.T) {
	resetDB()
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", pwd, access.RoleStudent, true)
	naughty := testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.com", pwd, access.RoleStudent, false)
	ghost := user.User{ID: "2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a", Username: "ghost", Role: access.RoleStudent}

	wrongKeyConf := *conf
	wrongKeyConf.SecretKey = "lol"
	forged, err := GenerateToken(&wrongKeyConf, GetUserClaims(&wrongKeyConf, student))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Forged token", token: forged, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "Garbage token", token: "lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{
			name: "Unknown user", token: getToken(t, ghost), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Profile", token: getToken(t, student), wantData: marchallObj(t, student)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].path = "/v1/auth/profile"
	}
	runTests(t, tests)
}

func Test_userApi_logout(t *testing.T) {
	resetDB()
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", pwd, access.RoleStudent, true)
	token := getToken(t, student)
	otherToken := getToken(t, student)

	runTests(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/auth/logout", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Logged out", method: http.MethodPost, path: "/v1/auth/logout", token: token,
			wantData: marchallObj(t, SuccessResponse{Success: "Successfully logged out."}),
		},
		{
			name: "Token revoked", method: http.MethodGet, path: "/v1/auth/profile", token: token, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "token has been revoked"}),
		},
		{name: "Other sessions live on", method: http.MethodGet, path: "/v1/auth/profile", token: otherToken, wantData: marchallObj(t, student)},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	resetDB()
	naughty := testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.com", "", access.RoleStudent, false)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", "", access.RoleStudent, true)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        "0b6f1c1e-5d4e-4a43-9d55-6a0f0b7f9a11",
			Issuer:    conf.AppName,
			Subject:   student.ID,
			Audience:  "Portal",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     student.Username,
		Role:         student.Role,
		IsStudent:    true,
	}
	unrefreshableToken, err := GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/token-refresh"
	}
	runTests(t, tests)

	t.Run("Token refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCode(t, httpTest{wantCode: http.StatusOK}, rec)

		// cannot guess new token.. just check that it works
		var resp LoginResponse
		unmarshall(t, rec, &resp)
		if resp.Token == "" {
			t.Fatal("failed! empty token")
		}
		if resp.User != nil {
			t.Errorf("failed! user = %+v; want none", resp.User)
		}
		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/profile", resp.Token)
		app.ServeHTTP(rec, req)
		checkCode(t, httpTest{wantCode: http.StatusOK}, rec)
	})
}

func Test_userApi_resetPassword(t *testing.T) {
	resetDB()
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", pwd, access.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.com", pwd, access.RoleStudent, false)
	successData := marchallObj(t, SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex := regexp.MustCompile("/password-reset/.+/.+")

	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{name: "unknown email", body: marchallObj(t, PasswordResetRequest{Email: "lol@test.com"}), wantData: successData, extra: false},
		{name: "inactive user", body: marchallObj(t, PasswordResetRequest{Email: "ndog@test.com"}), wantData: successData, extra: false},
		{name: "known email", body: marchallObj(t, PasswordResetRequest{Email: " HERO@test.com"}), wantData: successData, extra: true},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/password-reset"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			mailSvc.Reset()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			emailSent, ok := tt.extra.(bool)
			if !ok {
				return
			}
			sent := mailSvc.Sent()
			if !emailSent {
				if len(sent) > 0 {
					t.Errorf("failed! len(SentMessages) = %d; want 0", len(sent))
				}
				return
			}
			if len(sent) != 1 {
				t.Fatalf("failed! len(SentMessages) = %d; want 1", len(sent))
			}
			msg := sent[0]
			if msg.To[0].Address != student.Email {
				t.Errorf("failed! To = %v; want %v", msg.To[0], student.Email)
			}
			if !strings.Contains(msg.TextContent, student.FullName()) {
				t.Errorf("failed! text content does not contain recipient's name \"%s\"", student.FullName())
			}
			if !pathRegex.MatchString(msg.TextContent) {
				t.Errorf("failed! text content does not match pathRegex %v", pathRegex)
			}
			if !pathRegex.MatchString(msg.HTMLContent) {
				t.Errorf("failed! HTML content does not match pathRegex %v", pathRegex)
			}
		})
	}
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	resetDB()
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", "lol", access.RoleStudent, true)
	svc := user.NewService(usrRepo, mailSvc, conf)
	validUID, validToken, err := svc.MakeResetToken(student)
	if err != nil {
		t.Fatalf("MakeResetToken(): %v", err)
	}
	newPwd := "LolC@t123"

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: newPwd, PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "!!", Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
		{
			name: "valid token",
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token used", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/password-reset-confirm"
	}
	runTests(t, tests)

	refreshed, err := usrRepo.GetUserByID(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed, %v", err)
	}
	if err = refreshed.CheckPassword(newPwd); err != nil {
		t.Errorf("failed to update new password: %v", err)
	}
}

func Test_userApi_query(t *testing.T) {
	resetDB()

	now := time.Now()
	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.com", "", access.RoleAdmin, true, now)
	teacher := testutil.CreateUser(t, usrRepo, "teacher", "teacher@test.com", "", access.RoleTeacher, true, now.Add(time.Hour))
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", "", access.RoleStudent, true, now.Add(2*time.Hour))
	naughty := testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.com", "", access.RoleStudent, false, now.Add(3*time.Hour))

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/users?" + v.Encode()
	}
	pg := func(total int) core.Pagination {
		pages := (total + core.DefaultPageLimit - 1) / core.DefaultPageLimit
		return core.Pagination{Total: total, Page: 1, Pages: pages, Limit: core.DefaultPageLimit}
	}
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/users", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallPage(t, pg(4), admin, teacher, student, naughty)},
		// filtering
		{name: "search (unknown)", path: path("search", "lol"), token: adminToken, wantData: marchallPage(t, pg(0))},
		{name: "search=HER", path: path("search", "HER"), token: adminToken, wantData: marchallPage(t, pg(2), teacher, student)},
		{name: "role (unknown)", path: path("role", "lol"), token: adminToken, wantData: marchallPage(t, pg(0))},
		{name: "role=estudiante", path: path("role", "estudiante"), token: adminToken, wantData: marchallPage(t, pg(2), student, naughty)},
		{
			name: "role=admin,teacher", path: path("role", "admin", "role", "teacher"), token: adminToken,
			wantData: marchallPage(t, pg(2), admin, teacher),
		},
		{name: "is_active=false", path: path("is_active", "false"), token: adminToken, wantData: marchallPage(t, pg(1), naughty)},
		// ordering
		{
			name: "order by -created_at", path: path("ordering", "-created_at"), token: adminToken,
			wantData: marchallPage(t, pg(4), naughty, student, teacher, admin),
		},
		{
			name: "order by username", path: path("ordering", "username"), token: adminToken,
			wantData: marchallPage(t, pg(4), admin, student, naughty, teacher),
		},
		// pagination
		{
			name: "page 2", path: path("page", "2", "limit", "3"), token: adminToken,
			wantData: marchallPage(t, core.Pagination{Total: 4, Page: 2, Pages: 2, Limit: 3}, naughty),
		},
		{
			name: "invalid page", path: path("page", "lol", "limit", "-1"), token: adminToken,
			wantData: marchallPage(t, pg(4), admin, teacher, student, naughty),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runTests(t, tests)
}

func Test_userApi_crud(t *testing.T) {
	resetDB()
	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.com", "", access.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "teacher", "teacher@test.com", "", access.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", "", access.RoleStudent, true)
	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)
	testutil.CreateClass(t, classRepo, "1A", teacher.ID, student.ID)

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{Username: "teach2", Role: "docente", Password: pwd, PasswordConfirm: pwd})

		req, rec := newAuthRequest(http.MethodPost, "/v1/users", studentToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/users", adminToken, body)
		app.ServeHTTP(rec, req)
		checkCode(t, httpTest{wantCode: http.StatusCreated}, rec)
		var usr user.User
		unmarshall(t, rec, &usr)
		if usr.Role != access.RoleTeacher {
			t.Errorf("failed! role = %v; want %v", usr.Role, access.RoleTeacher)
		}
	})

	fname := "Superhero"
	renamed := student
	renamed.FirstName = fname

	runTests(t, []httpTest{
		{name: "retrieve self", method: http.MethodGet, path: "/v1/users/" + student.ID, token: studentToken, wantData: marchallObj(t, student)},
		{
			name: "retrieve other (student)", method: http.MethodGet, path: "/v1/users/" + teacher.ID, token: studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "retrieve (teacher)", method: http.MethodGet, path: "/v1/users/" + student.ID, token: getToken(t, teacher), wantData: marchallObj(t, student)},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/v1/users/2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "update own role", method: http.MethodPut, path: "/v1/users/" + student.ID, token: studentToken,
			body: marchallObj(t, map[string]string{"role": "admin"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "update invalid role", method: http.MethodPut, path: "/v1/users/" + student.ID, token: adminToken,
			body: marchallObj(t, map[string]string{"role": "parent"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "delete with dependents", method: http.MethodDelete, path: "/v1/users/" + student.ID, token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "user is referenced by classes, enrollments, progress or reports"}),
		},
		{name: "delete cascade", method: http.MethodDelete, path: "/v1/users/" + teacher.ID + "?cascade=true", token: adminToken, wantCode: http.StatusNoContent},
	})

	t.Run("update own name", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, marchallObj(t, map[string]string{"first_name": " " + fname + " "}))
		app.ServeHTTP(rec, req)
		checkCode(t, httpTest{wantCode: http.StatusOK}, rec)
		var usr user.User
		unmarshall(t, rec, &usr)
		if usr.FirstName != fname || usr.Username != student.Username {
			t.Errorf("failed! user = %+v; want %+v", usr, renamed)
		}
	})

	t.Run("deactivated users are locked out", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, adminToken, marchallObj(t, map[string]bool{"is_active": false}))
		app.ServeHTTP(rec, req)
		checkCode(t, httpTest{wantCode: http.StatusOK}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/profile", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}, rec)
	})
}
