package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/testutil"
)

// doJSON performs the request, checks the code and decodes the response into v when given.
func doJSON(t *testing.T, method, path, token string, body interface{}, wantCode int, v interface{}) {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.ServeHTTP(rec, req)
	if rec.Code != wantCode {
		t.Fatalf("%s %s failed! code = %v; wantCode %v; body %s", method, path, rec.Code, wantCode, rec.Body.String())
	}
	if v != nil {
		unmarshall(t, rec, v)
	}
}

func Test_curriculumApi(t *testing.T) {
	resetDB()
	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.com", "", access.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "teacher", "teacher@test.com", "", access.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "hero", "hero@test.com", "", access.RoleStudent, true)
	adminToken, teacherToken, studentToken := getToken(t, admin), getToken(t, teacher), getToken(t, student)

	// levels
	var lvl curriculum.Level
	doJSON(t, http.MethodPost, "/v1/levels", adminToken, curriculum.NewLevel{Code: " A1 ", Name: "Beginner"}, http.StatusCreated, &lvl)
	if lvl.Code != "A1" || lvl.ID == "" {
		t.Fatalf("failed! level = %+v", lvl)
	}

	// modules
	var mod curriculum.Module
	doJSON(t, http.MethodPost, "/v1/modules", teacherToken,
		curriculum.NewModule{LevelID: lvl.ID, Slug: "Greetings", Title: "Greetings", Order: 1}, http.StatusCreated, &mod)
	if mod.Slug != "greetings" || mod.Level == nil || mod.Level.Code != "A1" {
		t.Fatalf("failed! module = %+v", mod)
	}

	// lessons
	content := json.RawMessage(`{"type": "quiz", "questions": [{"q": "Hello?", "a": ["Hi", "Bye"]}]}`)
	var lsn curriculum.Lesson
	doJSON(t, http.MethodPost, "/v1/lessons", teacherToken,
		curriculum.NewLesson{ModuleID: mod.ID, Title: "Say hello", Order: 1, Content: content}, http.StatusCreated, &lsn)
	if ok, _ := jsonBytesEqual(lsn.Content, content); !ok {
		t.Errorf("failed! content = %s; want %s", lsn.Content, content)
	}
	if lsn.Module == nil || lsn.Module.Level == nil || lsn.Module.Level.ID != lvl.ID {
		t.Errorf("failed! lesson context = %+v", lsn.Module)
	}

	pg1 := core.Pagination{Total: 1, Page: 1, Pages: 1, Limit: core.DefaultPageLimit}
	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/levels", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Unknown route", method: http.MethodGet, path: "/v1/lol", token: studentToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Not Found"})},
		{
			name: "Create level (teacher)", method: http.MethodPost, path: "/v1/levels", token: teacherToken,
			body: marchallObj(t, curriculum.NewLevel{Code: "A2", Name: "Elementary"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Create level (required)", method: http.MethodPost, path: "/v1/levels", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": "this field is required", "name": "this field is required"}),
		},
		{
			name: "Create level (duplicate)", method: http.MethodPost, path: "/v1/levels", token: adminToken,
			body: marchallObj(t, curriculum.NewLevel{Code: "A1", Name: "Again"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "a level with this code already exists"}),
		},
		{
			name: "Create module (student)", method: http.MethodPost, path: "/v1/modules", token: studentToken,
			body: marchallObj(t, curriculum.NewModule{LevelID: lvl.ID, Slug: "colors", Title: "Colors", Order: 2}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Create module (bad slug)", method: http.MethodPost, path: "/v1/modules", token: teacherToken,
			body: marchallObj(t, curriculum.NewModule{LevelID: lvl.ID, Slug: "my colors", Title: "Colors", Order: 2}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"slug": "only lowercase letters, digits and hyphens are allowed"}),
		},
		{
			name: "Create module (order taken)", method: http.MethodPost, path: "/v1/modules", token: teacherToken,
			body: marchallObj(t, curriculum.NewModule{LevelID: lvl.ID, Slug: "colors", Title: "Colors", Order: 1}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "a module with this order already exists in the level"}),
		},
		{
			name: "Create module (unknown level)", method: http.MethodPost, path: "/v1/modules", token: teacherToken,
			body: marchallObj(t, curriculum.NewModule{LevelID: "2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a", Slug: "colors", Title: "Colors", Order: 2}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"level_id": "level not found"}),
		},
		{
			name: "Create lesson (order taken)", method: http.MethodPost, path: "/v1/lessons", token: teacherToken,
			body: marchallObj(t, curriculum.NewLesson{ModuleID: mod.ID, Title: "Again", Order: 1}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "a lesson with this order already exists in the module"}),
		},
		{
			name: "Retrieve level (unknown)", method: http.MethodGet, path: "/v1/levels/2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "level not found"}),
		},
		{name: "Retrieve lesson", method: http.MethodGet, path: "/v1/lessons/" + lsn.ID, token: studentToken, wantData: marchallObj(t, lsn)},
		{name: "Query lessons", method: http.MethodGet, path: "/v1/lessons?level_id=" + lvl.ID, token: studentToken, wantData: marchallPage(t, pg1, lsn)},
		{
			name: "Query lessons (other module)", method: http.MethodGet, path: "/v1/lessons?module_id=2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a", token: studentToken,
			wantData: marchallPage(t, core.Pagination{Page: 1, Limit: core.DefaultPageLimit}),
		},
		{
			name: "Delete level with modules", method: http.MethodDelete, path: "/v1/levels/" + lvl.ID, token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "cannot delete a level that has modules"}),
		},
		{
			name: "Delete module with lessons", method: http.MethodDelete, path: "/v1/modules/" + mod.ID, token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "cannot delete a module that has lessons"}),
		},
		{
			name: "Delete lesson (teacher)", method: http.MethodDelete, path: "/v1/lessons/" + lsn.ID, token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	runTests(t, tests)

	t.Run("Level lists its modules in order", func(t *testing.T) {
		var mod2 curriculum.Module
		doJSON(t, http.MethodPost, "/v1/modules", adminToken,
			curriculum.NewModule{LevelID: lvl.ID, Slug: "colors", Title: "Colors", Order: 2}, http.StatusCreated, &mod2)

		var got curriculum.Level
		doJSON(t, http.MethodGet, "/v1/levels/"+lvl.ID, studentToken, nil, http.StatusOK, &got)
		if len(got.Modules) != 2 || got.Modules[0].ID != mod.ID || got.Modules[1].ID != mod2.ID {
			t.Errorf("failed! modules = %+v", got.Modules)
		}

		var list struct {
			Data       []curriculum.Module `json:"data"`
			Pagination core.Pagination     `json:"pagination"`
		}
		doJSON(t, http.MethodGet, "/v1/modules?level_id="+lvl.ID, studentToken, nil, http.StatusOK, &list)
		if len(list.Data) != 2 || list.Pagination.Total != 2 {
			t.Errorf("failed! modules = %+v", list)
		}

		// order collisions are rejected
		doJSON(t, http.MethodPut, "/v1/modules/"+mod2.ID, teacherToken, map[string]int{"order": 1}, http.StatusBadRequest, nil)
		doJSON(t, http.MethodDelete, "/v1/modules/"+mod2.ID, adminToken, nil, http.StatusNoContent, nil)
	})

	t.Run("Update lesson content", func(t *testing.T) {
		var got curriculum.Lesson
		doJSON(t, http.MethodPut, "/v1/lessons/"+lsn.ID, teacherToken, map[string]string{"title": "Say hi"}, http.StatusOK, &got)
		if got.Title != "Say hi" {
			t.Errorf("failed! title = %s", got.Title)
		}
		if ok, _ := jsonBytesEqual(got.Content, content); !ok {
			t.Errorf("failed! content changed: %s", got.Content)
		}

		var cleared curriculum.Lesson
		doJSON(t, http.MethodPut, "/v1/lessons/"+lsn.ID, teacherToken, map[string]interface{}{"content": nil}, http.StatusOK, &cleared)
		if string(cleared.Content) != "null" {
			t.Errorf("failed! content = %s; want null", cleared.Content)
		}
	})

	t.Run("Lessons with progress are kept", func(t *testing.T) {
		var lsn2 curriculum.Lesson
		doJSON(t, http.MethodPost, "/v1/lessons", teacherToken,
			curriculum.NewLesson{ModuleID: mod.ID, Title: "Say bye", Order: 2}, http.StatusCreated, &lsn2)

		completed := true
		doJSON(t, http.MethodPost, "/v1/progress", studentToken, progress.RecordProgress{LessonID: lsn2.ID, Completed: &completed}, http.StatusCreated, nil)
		doJSON(t, http.MethodDelete, "/v1/lessons/"+lsn2.ID, adminToken, nil, http.StatusBadRequest, nil)

		doJSON(t, http.MethodDelete, "/v1/lessons/"+lsn.ID, adminToken, nil, http.StatusNoContent, nil)
		doJSON(t, http.MethodGet, "/v1/lessons/"+lsn.ID, studentToken, nil, http.StatusNotFound, nil)
	})

	t.Run("Lesson order is unique per module only", func(t *testing.T) {
		var colors curriculum.Module
		doJSON(t, http.MethodPost, "/v1/modules", teacherToken,
			curriculum.NewModule{LevelID: lvl.ID, Slug: "colors", Title: "Colors", Order: 2}, http.StatusCreated, &colors)
		var red curriculum.Lesson
		doJSON(t, http.MethodPost, "/v1/lessons", teacherToken,
			curriculum.NewLesson{ModuleID: colors.ID, Title: "Red", Order: 1}, http.StatusCreated, &red)
		if red.ModuleID != colors.ID || red.Order != 1 {
			t.Errorf("failed! lesson = %+v", red)
		}
		doJSON(t, http.MethodPost, "/v1/lessons", teacherToken,
			curriculum.NewLesson{ModuleID: colors.ID, Title: "Blue", Order: 1}, http.StatusBadRequest, nil)
	})

	t.Run("Page past the end", func(t *testing.T) {
		var got struct {
			Data       []curriculum.Level `json:"data"`
			Pagination core.Pagination    `json:"pagination"`
		}
		doJSON(t, http.MethodGet, "/v1/levels?page=184467440737095517&limit=100", studentToken, nil, http.StatusOK, &got)
		if len(got.Data) != 0 || got.Pagination.Total != 1 || got.Pagination.Limit != 100 {
			t.Errorf("failed! page = %+v", got)
		}
	})
}
