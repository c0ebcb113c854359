package inmemdb

import (
	"context"
	"sort"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

// withLesson must be called with the lock held.
func (repo *progressRepository) withLesson(p progress.Progress) progress.Progress {
	lsn := repo.db.lessons[p.LessonID]
	mod := repo.db.modules[lsn.ModuleID]
	p.Lesson = &curriculum.LessonRef{
		ID:    lsn.ID,
		Title: lsn.Title,
		Order: lsn.Order,
		Module: &curriculum.ModuleRef{
			ID:    mod.ID,
			Slug:  mod.Slug,
			Title: mod.Title,
			Level: repo.db.levels[mod.LevelID].Ref(),
		},
	}
	return p
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func (repo *progressRepository) Upsert(ctx context.Context, e progress.Entry) (progress.Progress, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons[e.LessonID]; !ok {
		return progress.Progress{}, false, progress.ErrLessonNotFound
	}
	if _, ok := repo.db.users[e.StudentID]; !ok {
		return progress.Progress{}, false, progress.ErrStudentNotFound
	}

	key := progressKey{studentID: e.StudentID, lessonID: e.LessonID}
	p, exists := repo.db.progress[key]
	if !exists {
		p = progress.Progress{StudentID: e.StudentID, LessonID: e.LessonID, CreatedAt: e.UpdatedAt}
	}
	p.Completed = e.Completed
	if e.Score != nil {
		p.Score = copyFloat(e.Score)
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		p.CompletedAt = &t
	}
	p.UpdatedAt = e.UpdatedAt
	p.Lesson = nil
	repo.db.progress[key] = p
	return repo.withLesson(p), !exists, nil
}

// rows returns the student's rows, most recently updated first. It must be called with the lock held.
func (repo *progressRepository) rows(studentID string, match func(p progress.Progress) bool) []progress.Progress {
	rows := make([]progress.Progress, 0)
	for key, p := range repo.db.progress {
		if key.studentID != studentID || (match != nil && !match(p)) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return rows[i].LessonID < rows[j].LessonID
	})
	return rows
}

func (repo *progressRepository) QueryProgress(
	ctx context.Context,
	studentID string,
	filter progress.QueryFilter,
	page core.Page,
) ([]progress.Progress, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.rows(studentID, func(p progress.Progress) bool {
		lsn := repo.db.lessons[p.LessonID]
		if filter.ModuleID != "" && lsn.ModuleID != filter.ModuleID {
			return false
		}
		if filter.LevelID != "" && repo.db.modules[lsn.ModuleID].LevelID != filter.LevelID {
			return false
		}
		return filter.Completed == nil || p.Completed == *filter.Completed
	})

	total := len(rows)
	rows = paginate(rows, page)
	for i := range rows {
		rows[i] = repo.withLesson(rows[i])
	}
	return rows, total, nil
}

func (repo *progressRepository) Summarize(ctx context.Context, studentID string) (progress.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var (
		sum    progress.Summary
		total  float64
		scored int
	)
	for key, p := range repo.db.progress {
		if key.studentID != studentID {
			continue
		}
		if p.Completed {
			sum.Completed++
		} else {
			sum.InProgress++
		}
		if p.Score != nil {
			total += *p.Score
			scored++
		}
	}
	if scored > 0 {
		avg := total / float64(scored)
		sum.AverageScore = &avg
	}
	return sum, nil
}

func (repo *progressRepository) RecentProgress(ctx context.Context, studentID string, limit int) ([]progress.Progress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.rows(studentID, nil)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i] = repo.withLesson(rows[i])
	}
	return rows, nil
}

func (repo *progressRepository) CountLessons(ctx context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.lessons), nil
}

func (repo *progressRepository) DeleteProgress(ctx context.Context, studentID, lessonID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := progressKey{studentID: studentID, lessonID: lessonID}
	if _, ok := repo.db.progress[key]; !ok {
		return progress.ErrNotFound
	}
	delete(repo.db.progress, key)
	return nil
}
