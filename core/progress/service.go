package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("progress not found")
	ErrLessonNotFound  = core.NewNotFoundError("lesson not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
)

type (
	Repository interface {
		// Upsert atomically inserts or updates the row of (e.StudentID, e.LessonID).
		// It fails with ErrLessonNotFound when the lesson does not exist, and reports whether the row was created.
		// The returned row carries its lesson context.
		Upsert(ctx context.Context, e Entry) (Progress, bool, error)
		// QueryProgress returns a student's rows, most recently updated first.
		QueryProgress(ctx context.Context, studentID string, filter QueryFilter, page core.Page) ([]Progress, int, error)
		Summarize(ctx context.Context, studentID string) (Summary, error)
		RecentProgress(ctx context.Context, studentID string, limit int) ([]Progress, error)
		CountLessons(ctx context.Context) (int, error)
		// DeleteProgress fails with ErrNotFound when the row does not exist.
		DeleteProgress(ctx context.Context, studentID, lessonID string) error
	}

	Service struct {
		repo  Repository
		users user.Finder
	}
)

func NewService(repo Repository, users user.Finder) *Service {
	return &Service{repo: repo, users: users}
}

// Record upserts the acting student's progress on a lesson and reports whether the row was created.
// Re-submitting replaces completed and, when given, score. completed_at is set on every completing write
// and is never cleared by a later non-completing one.
func (svc *Service) Record(ctx context.Context, actor access.Actor, rp RecordProgress) (Progress, bool, error) {
	if err := access.Check(actor, access.RecordProgress, access.Target{UserID: actor.ID}); err != nil {
		return Progress{}, false, err
	}

	now := time.Now().UTC()
	e := Entry{
		StudentID: actor.ID,
		LessonID:  rp.LessonID,
		Completed: rp.Completed != nil && *rp.Completed,
		Score:     rp.Score,
		UpdatedAt: now,
	}
	if e.Completed {
		e.CompletedAt = &now
	}
	return svc.repo.Upsert(ctx, e)
}

func (svc *Service) checkStudent(ctx context.Context, actor access.Actor, studentID string) error {
	if err := access.Check(actor, access.ViewProgress, access.Target{UserID: studentID}); err != nil {
		return err
	}
	if studentID == actor.ID && actor.IsStudent() {
		return nil
	}
	usr, err := svc.users.GetUserByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ErrStudentNotFound
		}
		return errors.Wrap(err, "finding student")
	}
	if !usr.IsStudent() {
		return ErrStudentNotFound
	}
	return nil
}

// ListForStudent returns a student's progress, most recently updated first.
func (svc *Service) ListForStudent(
	ctx context.Context,
	actor access.Actor,
	studentID string,
	filter QueryFilter,
	page core.Page,
) ([]Progress, core.Pagination, error) {
	if err := svc.checkStudent(ctx, actor, studentID); err != nil {
		return nil, core.Pagination{}, err
	}
	rows, total, err := svc.repo.QueryProgress(ctx, studentID, filter, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying progress")
	}
	return rows, core.NewPagination(total, page), nil
}

// Stats computes a student's statistics from the ledger. Nothing is cached.
// total_lessons counts every lesson of the curriculum.
func (svc *Service) Stats(ctx context.Context, actor access.Actor, studentID string) (Stats, error) {
	if err := svc.checkStudent(ctx, actor, studentID); err != nil {
		return Stats{}, err
	}

	total, err := svc.repo.CountLessons(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting lessons")
	}
	sum, err := svc.repo.Summarize(ctx, studentID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "summarizing progress")
	}
	recent, err := svc.repo.RecentProgress(ctx, studentID, RecentActivityLimit)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying recent progress")
	}
	if recent == nil {
		recent = []Progress{}
	}

	stats := Stats{
		TotalLessons:      total,
		CompletedLessons:  sum.Completed,
		InProgressLessons: sum.InProgress,
		RecentActivity:    recent,
	}
	if total > 0 {
		stats.CompletionPercentage = core.Round2(float64(sum.Completed) / float64(total) * 100)
	}
	if sum.AverageScore != nil {
		avg := core.Round2(*sum.AverageScore)
		stats.AverageScore = &avg
	}
	return stats, nil
}

// Reset deletes the acting student's progress on a lesson.
func (svc *Service) Reset(ctx context.Context, actor access.Actor, lessonID string) error {
	if err := access.Check(actor, access.RecordProgress, access.Target{UserID: actor.ID}); err != nil {
		return err
	}
	return svc.repo.DeleteProgress(ctx, actor.ID, lessonID)
}
