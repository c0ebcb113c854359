package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
)

const (
	progressFrom = "progress p JOIN lessons ls ON ls.id = p.lesson_id " +
		"JOIN modules m ON m.id = ls.module_id JOIN levels l ON l.id = m.level_id"
	progressColumns = "p.student_id, p.lesson_id, p.completed, p.score, p.completed_at, p.created_at, p.updated_at, " +
		"ls.title AS lesson_title, ls.position AS lesson_position, ls.module_id, " +
		"m.slug AS module_slug, m.title AS module_title, m.level_id, l.code AS level_code, l.name AS level_name"

	// xmax is 0 on freshly inserted tuples
	upsertProgress = `INSERT INTO progress (student_id, lesson_id, completed, score, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, lesson_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			score = COALESCE(EXCLUDED.score, progress.score),
			completed_at = COALESCE(EXCLUDED.completed_at, progress.completed_at),
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`
)

var progressWriteErrors = constraintErrors{
	"progress_lesson_id_fkey":  progress.ErrLessonNotFound,
	"progress_student_id_fkey": progress.ErrStudentNotFound,
}

type progressRow struct {
	StudentID      string       `db:"student_id"`
	LessonID       string       `db:"lesson_id"`
	Completed      bool         `db:"completed"`
	Score          null.Float64 `db:"score"`
	CompletedAt    null.Time    `db:"completed_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
	LessonTitle    string       `db:"lesson_title"`
	LessonPosition int          `db:"lesson_position"`
	ModuleID       string       `db:"module_id"`
	ModuleSlug     string       `db:"module_slug"`
	ModuleTitle    string       `db:"module_title"`
	LevelID        string       `db:"level_id"`
	LevelCode      string       `db:"level_code"`
	LevelName      string       `db:"level_name"`
}

func (r progressRow) toProgress() progress.Progress {
	p := progress.Progress{
		StudentID: r.StudentID,
		LessonID:  r.LessonID,
		Completed: r.Completed,
		Score:     r.Score.Ptr(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Lesson: &curriculum.LessonRef{
			ID:    r.LessonID,
			Title: r.LessonTitle,
			Order: r.LessonPosition,
			Module: &curriculum.ModuleRef{
				ID:    r.ModuleID,
				Slug:  r.ModuleSlug,
				Title: r.ModuleTitle,
				Level: &curriculum.LevelRef{ID: r.LevelID, Code: r.LevelCode, Name: r.LevelName},
			},
		},
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time.UTC()
		p.CompletedAt = &t
	}
	return p
}

func toProgressSlice(rows []progressRow) []progress.Progress {
	ps := make([]progress.Progress, 0, len(rows))
	for _, r := range rows {
		ps = append(ps, r.toProgress())
	}
	return ps
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

// Upsert relies on the (student_id, lesson_id) primary key: concurrent writes of the same pair
// never produce two rows.
func (repo progressRepository) Upsert(ctx context.Context, e progress.Entry) (progress.Progress, bool, error) {
	if !isUUID(e.LessonID) {
		return progress.Progress{}, false, progress.ErrLessonNotFound
	}

	var completedAt null.Time
	if e.CompletedAt != nil {
		completedAt = null.TimeFrom(e.CompletedAt.UTC())
	}
	var inserted bool
	err := repo.db.GetContext(ctx, &inserted, repo.db.Rebind(upsertProgress),
		e.StudentID, e.LessonID, e.Completed, null.Float64FromPtr(e.Score), completedAt,
		e.UpdatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return progress.Progress{}, false, translate(err, "upserting progress", progressWriteErrors)
	}

	p, err := repo.get(ctx, e.StudentID, e.LessonID)
	if err != nil {
		return progress.Progress{}, false, err
	}
	return p, inserted, nil
}

func (repo progressRepository) get(ctx context.Context, studentID, lessonID string) (progress.Progress, error) {
	var row progressRow
	q := repo.db.Rebind(`SELECT ` + progressColumns + ` FROM ` + progressFrom + ` WHERE p.student_id = ? AND p.lesson_id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, studentID, lessonID); err != nil {
		return progress.Progress{}, trapNoRowsErr(err, progress.ErrNotFound, "finding progress")
	}
	return row.toProgress(), nil
}

func (repo progressRepository) QueryProgress(
	ctx context.Context,
	studentID string,
	filter progress.QueryFilter,
	page core.Page,
) ([]progress.Progress, int, error) {
	if !isUUID(studentID) {
		return []progress.Progress{}, 0, nil
	}
	var where whereClause
	where.add("p.student_id = ?", studentID)
	if filter.ModuleID != "" {
		if !isUUID(filter.ModuleID) {
			return []progress.Progress{}, 0, nil
		}
		where.add("ls.module_id = ?", filter.ModuleID)
	}
	if filter.LevelID != "" {
		if !isUUID(filter.LevelID) {
			return []progress.Progress{}, 0, nil
		}
		where.add("m.level_id = ?", filter.LevelID)
	}
	if filter.Completed != nil {
		where.add("p.completed = ?", *filter.Completed)
	}

	var rows []progressRow
	order := " ORDER BY p.updated_at DESC, p.lesson_id"
	total, err := selectPage(ctx, repo.db, &rows, progressFrom, where, order, page, progressColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying progress")
	}
	return toProgressSlice(rows), total, nil
}

func (repo progressRepository) Summarize(ctx context.Context, studentID string) (progress.Summary, error) {
	var row struct {
		Completed    int          `db:"completed"`
		InProgress   int          `db:"in_progress"`
		AverageScore null.Float64 `db:"average_score"`
	}
	q := repo.db.Rebind(`SELECT
			COUNT(*) FILTER (WHERE completed) AS completed,
			COUNT(*) FILTER (WHERE NOT completed) AS in_progress,
			AVG(score) AS average_score
		FROM progress WHERE student_id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, studentID); err != nil {
		return progress.Summary{}, errors.Wrap(err, "summarizing progress")
	}
	return progress.Summary{
		Completed:    row.Completed,
		InProgress:   row.InProgress,
		AverageScore: row.AverageScore.Ptr(),
	}, nil
}

func (repo progressRepository) RecentProgress(ctx context.Context, studentID string, limit int) ([]progress.Progress, error) {
	var rows []progressRow
	q := repo.db.Rebind(`SELECT ` + progressColumns + ` FROM ` + progressFrom +
		` WHERE p.student_id = ? ORDER BY p.updated_at DESC, p.lesson_id LIMIT ?`)
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, limit); err != nil {
		return nil, errors.Wrap(err, "selecting recent progress")
	}
	return toProgressSlice(rows), nil
}

func (repo progressRepository) CountLessons(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM lessons`); err != nil {
		return 0, errors.Wrap(err, "counting lessons")
	}
	return n, nil
}

func (repo progressRepository) DeleteProgress(ctx context.Context, studentID, lessonID string) error {
	if !isUUID(lessonID) {
		return progress.ErrNotFound
	}
	q := repo.db.Rebind(`DELETE FROM progress WHERE student_id = ? AND lesson_id = ?`)
	res, err := repo.db.ExecContext(ctx, q, studentID, lessonID)
	if err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return progress.ErrNotFound
	}
	return nil
}
