// Package report stores write-once snapshots of class and student aggregates.
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("report not found")
	ErrStudentNotFound  = core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
	ErrClassNotFound    = core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class not found"})
	ErrSnapshotRequired = core.NewValidationError(nil, core.FieldError{Field: "snapshot", Error: "this field is required"})
)

// Report is an immutable snapshot. It is never updated once written.
type Report struct {
	ID          string          `json:"id"`
	ClassID     *string         `json:"class_id"`
	StudentID   *string         `json:"student_id"`
	Snapshot    json.RawMessage `json:"snapshot"`
	GeneratedBy *string         `json:"generated_by"`
	CreatedAt   time.Time       `json:"created_at"`

	// owner of the class the report is about, if any
	ClassTeacherID string `json:"-"`
}

func (r Report) Target() access.Target {
	t := access.Target{OwnerID: r.ClassTeacherID}
	if r.GeneratedBy != nil {
		t.CreatorID = *r.GeneratedBy
	}
	return t
}

// NewReport is the payload of a report generation. The snapshot is stored verbatim.
type NewReport struct {
	ClassID   string          `json:"class_id" validate:"omitempty,uuid"`
	StudentID string          `json:"student_id" validate:"omitempty,uuid"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.ClassID = core.CleanString(nr.ClassID, true /* lower */)
	nr.StudentID = core.CleanString(nr.StudentID, true /* lower */)
	if err := validate.Struct(nr); err != nil {
		return err
	}
	if len(nr.Snapshot) == 0 || string(nr.Snapshot) == "null" {
		return ErrSnapshotRequired
	}
	return nil
}

type QueryFilter struct {
	ClassID   string
	StudentID string
	// VisibleTo restricts the reports to those of the teacher's classes or generated by them.
	VisibleTo string
}

type (
	Repository interface {
		// CreateReport fails with ErrStudentNotFound when the student does not exist.
		CreateReport(ctx context.Context, r Report) (Report, error)
		QueryReports(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Report, int, error)
		GetReport(ctx context.Context, id string) (Report, error)
	}

	// ClassFinder looks classes up by ID.
	ClassFinder interface {
		GetClass(ctx context.Context, id string) (class.Class, error)
	}

	Service struct {
		repo    Repository
		classes ClassFinder
	}
)

func NewService(repo Repository, classes ClassFinder) *Service {
	return &Service{repo: repo, classes: classes}
}

// Generate writes a new snapshot. Teachers may only report on their own classes.
func (svc *Service) Generate(ctx context.Context, actor access.Actor, nr NewReport) (Report, error) {
	r := Report{
		Snapshot:    nr.Snapshot,
		GeneratedBy: &actor.ID,
		CreatedAt:   time.Now().UTC(),
	}

	var target access.Target
	if nr.ClassID != "" {
		c, err := svc.classes.GetClass(ctx, nr.ClassID)
		if err != nil {
			if errors.Cause(err) == class.ErrNotFound {
				return Report{}, ErrClassNotFound
			}
			return Report{}, errors.Wrap(err, "finding class")
		}
		target.OwnerID = c.TeacherID
		r.ClassID = &c.ID
		r.ClassTeacherID = c.TeacherID
	}
	if err := access.Check(actor, access.GenerateReport, target); err != nil {
		return Report{}, err
	}
	if nr.StudentID != "" {
		r.StudentID = &nr.StudentID
	}
	return svc.repo.CreateReport(ctx, r)
}

// List returns the reports visible to actor in the requested order (creation order by default).
func (svc *Service) List(
	ctx context.Context,
	actor access.Actor,
	filter QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]Report, core.Pagination, error) {
	if err := access.Check(actor, access.ListReports, access.Target{}); err != nil {
		return nil, core.Pagination{}, err
	}
	filter.VisibleTo = ""
	if actor.IsTeacher() {
		filter.VisibleTo = actor.ID
	}
	reports, total, err := svc.repo.QueryReports(ctx, filter, ordering, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying reports")
	}
	return reports, core.NewPagination(total, page), nil
}

func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Report, error) {
	r, err := svc.repo.GetReport(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if err = access.Check(actor, access.ViewReport, r.Target()); err != nil {
		return Report{}, err
	}
	return r, nil
}
