package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
)

const (
	reportFrom    = "reports r LEFT JOIN classes c ON c.id = r.class_id"
	reportColumns = "r.id, r.class_id, r.student_id, r.snapshot, r.generated_by, r.created_at, c.teacher_id AS class_teacher_id"
)

var (
	reportWriteErrors = constraintErrors{
		"reports_student_id_fkey": report.ErrStudentNotFound,
		"reports_class_id_fkey":   report.ErrClassNotFound,
	}

	reportOrderColumns = map[string]string{
		"created_at": "r.created_at",
	}
)

type reportRow struct {
	ID             string      `db:"id"`
	ClassID        null.String `db:"class_id"`
	StudentID      null.String `db:"student_id"`
	Snapshot       []byte      `db:"snapshot"`
	GeneratedBy    null.String `db:"generated_by"`
	CreatedAt      time.Time   `db:"created_at"`
	ClassTeacherID null.String `db:"class_teacher_id"`
}

func (r reportRow) toReport() report.Report {
	return report.Report{
		ID:             r.ID,
		ClassID:        r.ClassID.Ptr(),
		StudentID:      r.StudentID.Ptr(),
		Snapshot:       json.RawMessage(r.Snapshot),
		GeneratedBy:    r.GeneratedBy.Ptr(),
		CreatedAt:      r.CreatedAt.UTC(),
		ClassTeacherID: r.ClassTeacherID.String,
	}
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

// CreateReport stores the snapshot as JSON text, which keeps it byte for byte.
func (repo reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	if r.StudentID != nil && !isUUID(*r.StudentID) {
		return report.Report{}, report.ErrStudentNotFound
	}
	id := uuid.New().String()
	q := repo.db.Rebind(`INSERT INTO reports (id, class_id, student_id, snapshot, generated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		id, null.StringFromPtr(r.ClassID), null.StringFromPtr(r.StudentID), string(r.Snapshot),
		null.StringFromPtr(r.GeneratedBy), r.CreatedAt.UTC(),
	)
	if err != nil {
		return report.Report{}, translate(err, "inserting report", reportWriteErrors)
	}
	return repo.GetReport(ctx, id)
}

func (repo reportRepository) QueryReports(
	ctx context.Context,
	filter report.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]report.Report, int, error) {
	var where whereClause
	for col, val := range map[string]string{
		"r.class_id":   filter.ClassID,
		"r.student_id": filter.StudentID,
	} {
		if val == "" {
			continue
		}
		if !isUUID(val) {
			return []report.Report{}, 0, nil
		}
		where.add(col+" = ?", val)
	}
	if filter.VisibleTo != "" {
		where.add("(c.teacher_id = ? OR r.generated_by = ?)", filter.VisibleTo, filter.VisibleTo)
	}

	var rows []reportRow
	order := orderClause(ordering, reportOrderColumns, "r.created_at, r.id")
	total, err := selectPage(ctx, repo.db, &rows, reportFrom, where, order, page, reportColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying reports")
	}
	reports := make([]report.Report, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, r.toReport())
	}
	return reports, total, nil
}

func (repo reportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	if !isUUID(id) {
		return report.Report{}, report.ErrNotFound
	}
	var row reportRow
	q := repo.db.Rebind(`SELECT ` + reportColumns + ` FROM ` + reportFrom + ` WHERE r.id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return report.Report{}, trapNoRowsErr(err, report.ErrNotFound, "finding report")
	}
	return row.toReport(), nil
}
