package sqlxrepos_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database"
	sqlxrepos "github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database/sqlx"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/testutil"
)

var page = core.Page{Number: 1, Limit: 10}

type repos struct {
	users      user.Repository
	curriculum curriculum.Repository
	classes    class.Repository
	progress   progress.Repository
	reports    report.Repository
}

// prepareDB connects to TEST_DATABASE_URL, applies the migrations and empties every table.
func prepareDB(t *testing.T) repos {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	truncate(t, db)

	return repos{
		users:      sqlxrepos.NewUserRepository(db),
		curriculum: sqlxrepos.NewCurriculumRepository(db),
		classes:    sqlxrepos.NewClassRepository(db),
		progress:   sqlxrepos.NewProgressRepository(db),
		reports:    sqlxrepos.NewReportRepository(db),
	}
}

func truncate(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec(`TRUNCATE reports, progress, class_students, classes, lessons, modules, levels, users`)
	require.NoError(t, err)
}

func TestUserRepository(t *testing.T) {
	r := prepareDB(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, r.users, "hero", "hero@test.com", "Bl4ckb0ard!", access.RoleStudent, true)
	assert.NotEmpty(t, usr.ID)

	_, err := r.users.CreateUser(ctx, user.User{Username: "hero", Role: access.RoleStudent})
	assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))
	_, err = r.users.CreateUser(ctx, user.User{Username: "other", Email: "hero@test.com", Role: access.RoleStudent})
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

	got, err := r.users.GetUserByUsernameOrEmail(ctx, "hero@test.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("Bl4ckb0ard!"))

	testutil.CreateUser(t, r.users, "sidekick", "", "", access.RoleTeacher, false)
	users, total, err := r.users.QueryUsers(ctx, user.QueryFilter{Search: "HER"}, nil, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, usr.ID, users[0].ID)

	_, err = r.users.GetUserByID(ctx, "2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestCurriculumRepository(t *testing.T) {
	r := prepareDB(t)
	ctx := context.Background()

	lvl := testutil.CreateLevel(t, r.curriculum, "A1", "Beginner")
	_, err := r.curriculum.CreateLevel(ctx, curriculum.Level{Code: "A1", Name: "Dup"})
	assert.Equal(t, curriculum.ErrLevelCodeExists, errors.Cause(err))

	mod := testutil.CreateModule(t, r.curriculum, lvl.ID, "greetings", 1)
	_, err = r.curriculum.CreateModule(ctx, curriculum.Module{LevelID: lvl.ID, Slug: "greetings", Title: "X", Order: 2})
	assert.Equal(t, curriculum.ErrModuleSlugExists, errors.Cause(err))
	_, err = r.curriculum.CreateModule(ctx, curriculum.Module{LevelID: lvl.ID, Slug: "colors", Title: "X", Order: 1})
	assert.Equal(t, curriculum.ErrModuleOrderExists, errors.Cause(err))

	content := json.RawMessage(`{"type":"quiz","questions":[{"q":"hello?","a":"hola"}]}`)
	lsn := testutil.CreateLesson(t, r.curriculum, mod.ID, "Hello", 1, content)
	assert.JSONEq(t, string(content), string(lsn.Content))
	_, err = r.curriculum.CreateLesson(ctx, curriculum.Lesson{ModuleID: mod.ID, Title: "Dup", Order: 1})
	assert.Equal(t, curriculum.ErrLessonOrderExists, errors.Cause(err))

	// the same order in another module is fine
	colors := testutil.CreateModule(t, r.curriculum, lvl.ID, "colors", 2)
	red, err := r.curriculum.CreateLesson(ctx, curriculum.Lesson{ModuleID: colors.ID, Title: "Red", Order: 1})
	require.NoError(t, err)
	assert.Equal(t, colors.ID, red.ModuleID)

	got, err := r.curriculum.GetLesson(ctx, lsn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Module)
	require.NotNil(t, got.Module.Level)
	assert.Equal(t, "A1", got.Module.Level.Code)

	assert.Equal(t, curriculum.ErrLevelHasModules, errors.Cause(r.curriculum.DeleteLevel(ctx, lvl.ID)))
	assert.Equal(t, curriculum.ErrModuleHasLessons, errors.Cause(r.curriculum.DeleteModule(ctx, mod.ID)))

	kid := testutil.CreateUser(t, r.users, "kid", "", "", access.RoleStudent, true)
	_, _, err = r.progress.Upsert(ctx, progress.Entry{StudentID: kid.ID, LessonID: lsn.ID, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, curriculum.ErrLessonHasProgress, errors.Cause(r.curriculum.DeleteLesson(ctx, lsn.ID)))
}

func TestClassRepository(t *testing.T) {
	r := prepareDB(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, r.users, "teacher", "", "", access.RoleTeacher, true)
	kid := testutil.CreateUser(t, r.users, "kid", "", "", access.RoleStudent, true)
	c1 := testutil.CreateClass(t, r.classes, "1A", teacher.ID, kid.ID)
	c2 := testutil.CreateClass(t, r.classes, "2A", teacher.ID)
	require.Len(t, c1.Students, 1)
	require.NotNil(t, c1.Teacher)

	_, err := r.classes.CreateClass(ctx, class.Class{Code: "1A", Name: "Dup", TeacherID: teacher.ID})
	assert.Equal(t, class.ErrCodeExists, errors.Cause(err))

	_, err = r.classes.Enroll(ctx, c2.ID, kid.ID)
	assert.Equal(t, class.ErrAlreadyEnrolled, errors.Cause(err), "one class per student")

	assert.Equal(t, class.ErrNotEnrolled, errors.Cause(r.classes.Unenroll(ctx, c2.ID, kid.ID)))
	assert.Equal(t, class.ErrHasDependents, errors.Cause(r.classes.DeleteClass(ctx, c1.ID, false)))
	assert.Equal(t, user.ErrHasDependents, errors.Cause(r.users.DeleteUser(ctx, teacher.ID, false)))

	require.NoError(t, r.classes.DeleteClass(ctx, c1.ID, true))
	_, err = r.classes.GetClass(ctx, c1.ID)
	assert.Equal(t, class.ErrNotFound, errors.Cause(err))

	_, err = r.classes.Enroll(ctx, c2.ID, kid.ID)
	assert.NoError(t, err)
}

func TestProgressRepository(t *testing.T) {
	r := prepareDB(t)
	ctx := context.Background()

	kid := testutil.CreateUser(t, r.users, "kid", "", "", access.RoleStudent, true)
	lvl := testutil.CreateLevel(t, r.curriculum, "A1", "Beginner")
	mod := testutil.CreateModule(t, r.curriculum, lvl.ID, "greetings", 1)
	l1 := testutil.CreateLesson(t, r.curriculum, mod.ID, "Hello", 1)
	l2 := testutil.CreateLesson(t, r.curriculum, mod.ID, "Goodbye", 2)

	score := 80.0
	now := time.Now().UTC()
	p, created, err := r.progress.Upsert(ctx, progress.Entry{
		StudentID: kid.ID, LessonID: l1.ID, Completed: true, Score: &score, CompletedAt: &now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, p.CompletedAt)
	require.NotNil(t, p.Lesson)

	// a non-completing write keeps the score and the completion time
	p, created, err = r.progress.Upsert(ctx, progress.Entry{StudentID: kid.ID, LessonID: l1.ID, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, p.Completed)
	require.NotNil(t, p.Score)
	assert.Equal(t, score, *p.Score)
	assert.NotNil(t, p.CompletedAt)

	_, _, err = r.progress.Upsert(ctx, progress.Entry{StudentID: kid.ID, LessonID: "2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a", UpdatedAt: now})
	assert.Equal(t, progress.ErrLessonNotFound, errors.Cause(err))

	score2 := 50.0
	_, _, err = r.progress.Upsert(ctx, progress.Entry{StudentID: kid.ID, LessonID: l2.ID, Completed: true, Score: &score2, CompletedAt: &now, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)

	sum, err := r.progress.Summarize(ctx, kid.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.InProgress)
	require.NotNil(t, sum.AverageScore)
	assert.InDelta(t, 65.0, *sum.AverageScore, 0.001)

	total, err := r.progress.CountLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	recent, err := r.progress.RecentProgress(ctx, kid.ID, progress.RecentActivityLimit)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, l2.ID, recent[0].LessonID)

	rows, count, err := r.progress.QueryProgress(ctx, kid.ID, progress.QueryFilter{}, page)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, rows, 2)

	require.NoError(t, r.progress.DeleteProgress(ctx, kid.ID, l1.ID))
	assert.Equal(t, progress.ErrNotFound, errors.Cause(r.progress.DeleteProgress(ctx, kid.ID, l1.ID)))
}

func TestReportRepository(t *testing.T) {
	r := prepareDB(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, r.users, "teacher", "", "", access.RoleTeacher, true)
	c := testutil.CreateClass(t, r.classes, "1A", teacher.ID)

	snapshot := json.RawMessage(`{"students":3,"average":71.5}`)
	rep, err := r.reports.CreateReport(ctx, report.Report{
		ClassID:     &c.ID,
		GeneratedBy: &teacher.ID,
		Snapshot:    snapshot,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(rep.Snapshot))

	unknown := "2f1c8a8e-6a54-4b34-9a57-8f2d1c3e4b5a"
	_, err = r.reports.CreateReport(ctx, report.Report{StudentID: &unknown, Snapshot: snapshot, CreatedAt: time.Now().UTC()})
	assert.Equal(t, report.ErrStudentNotFound, errors.Cause(err))

	reports, total, err := r.reports.QueryReports(ctx, report.QueryFilter{ClassID: c.ID}, nil, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, reports, 1)
	assert.Equal(t, rep.ID, reports[0].ID)

	// reports pin their class until a cascading delete
	assert.Equal(t, class.ErrHasDependents, errors.Cause(r.classes.DeleteClass(ctx, c.ID, false)))
	require.NoError(t, r.classes.DeleteClass(ctx, c.ID, true))
	_, err = r.reports.GetReport(ctx, rep.ID)
	assert.Equal(t, report.ErrNotFound, errors.Cause(err))
}
