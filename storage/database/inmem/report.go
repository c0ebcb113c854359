package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// withClassTeacher returns a copy of r that shares no memory with the stored row.
// It must be called with the lock held.
func (repo *reportRepository) withClassTeacher(r report.Report) report.Report {
	r.ClassID = copyString(r.ClassID)
	r.StudentID = copyString(r.StudentID)
	r.GeneratedBy = copyString(r.GeneratedBy)
	r.Snapshot = cloneBytes(r.Snapshot)
	r.ClassTeacherID = ""
	if r.ClassID != nil {
		r.ClassTeacherID = repo.db.classes[*r.ClassID].TeacherID
	}
	return r
}

func (repo *reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if r.ClassID != nil {
		if _, ok := repo.db.classes[*r.ClassID]; !ok {
			return report.Report{}, report.ErrClassNotFound
		}
	}
	if r.StudentID != nil {
		if _, ok := repo.db.users[*r.StudentID]; !ok {
			return report.Report{}, report.ErrStudentNotFound
		}
	}

	r.ID = uuid.New().String()
	r = repo.withClassTeacher(r)
	repo.db.reports = append(repo.db.reports, r)
	return repo.withClassTeacher(r), nil
}

func reportField(r report.Report, field string) interface{} {
	if field == "created_at" {
		return r.CreatedAt
	}
	return nil
}

func (repo *reportRepository) QueryReports(
	ctx context.Context,
	filter report.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]report.Report, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reports := make([]report.Report, 0, len(repo.db.reports))
	for _, r := range repo.db.reports {
		r = repo.withClassTeacher(r)
		if filter.ClassID != "" && (r.ClassID == nil || *r.ClassID != filter.ClassID) {
			continue
		}
		if filter.StudentID != "" && (r.StudentID == nil || *r.StudentID != filter.StudentID) {
			continue
		}
		if filter.VisibleTo != "" &&
			r.ClassTeacherID != filter.VisibleTo &&
			(r.GeneratedBy == nil || *r.GeneratedBy != filter.VisibleTo) {
			continue
		}
		reports = append(reports, r)
	}
	sortByOrdering(reports, ordering, reportField)
	return paginate(reports, page), len(reports), nil
}

func (repo *reportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.reports {
		if r.ID == id {
			return repo.withClassTeacher(r), nil
		}
	}
	return report.Report{}, report.ErrNotFound
}
