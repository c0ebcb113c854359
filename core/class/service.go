package class

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
	ErrNotFound        = core.NewNotFoundError("class not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrNotEnrolled     = core.NewNotFoundError("student not enrolled in this class")
	ErrCodeExists      = core.NewConflictError("a class with this code already exists")
	ErrAlreadyEnrolled = core.NewConflictError("student is already enrolled in a class")
	ErrHasDependents   = core.NewConflictError("class still has enrolled students or reports")
	ErrNotAStudent     = core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	ErrTeacherRequired = core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "this field is required"})
	ErrTeacherNotFound = core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "teacher not found"})
	ErrNotATeacher     = core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
)

type (
	Repository interface {
		CreateClass(ctx context.Context, c Class) (Class, error)
		QueryClasses(ctx context.Context, filter QueryFilter, page core.Page) ([]Class, int, error)
		// GetClass returns the class with its teacher and enrolled students.
		GetClass(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		// DeleteClass fails with ErrHasDependents while the class has enrollments or reports, unless cascade is set.
		DeleteClass(ctx context.Context, id string, cascade bool) error
		// Enroll fails with ErrAlreadyEnrolled when the student holds an enrollment in any class.
		Enroll(ctx context.Context, classID, studentID string) (Enrollment, error)
		// Unenroll fails with ErrNotEnrolled when no enrollment exists for the exact (class, student) pair.
		Unenroll(ctx context.Context, classID, studentID string) error
	}

	Service struct {
		repo  Repository
		users user.Finder
	}
)

func NewService(repo Repository, users user.Finder) *Service {
	return &Service{repo: repo, users: users}
}

func (svc *Service) findTeacher(ctx context.Context, id string) error {
	usr, err := svc.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ErrTeacherNotFound
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return ErrNotATeacher
	}
	return nil
}

// Create creates a class. Teachers own the classes they create; admins must name the owning teacher.
func (svc *Service) Create(ctx context.Context, actor access.Actor, nc NewClass) (Class, error) {
	if err := access.Check(actor, access.CreateClass, access.Target{}); err != nil {
		return Class{}, err
	}

	teacherID := nc.TeacherID
	if actor.IsTeacher() {
		teacherID = actor.ID
	} else if teacherID == "" {
		return Class{}, ErrTeacherRequired
	}
	if err := svc.findTeacher(ctx, teacherID); err != nil {
		return Class{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, Class{
		Code:      nc.Code,
		Name:      nc.Name,
		TeacherID: teacherID,
		Grade:     nc.Grade,
		Section:   nc.Section,
		Schedule:  nc.Schedule,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Query lists classes. Teachers only see their own classes.
func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter, page core.Page) ([]Class, core.Pagination, error) {
	if err := access.Check(actor, access.ListClasses, access.Target{}); err != nil {
		return nil, core.Pagination{}, err
	}
	if actor.IsTeacher() {
		filter.TeacherID = actor.ID
	}
	classes, total, err := svc.repo.QueryClasses(ctx, filter, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying classes")
	}
	return classes, core.NewPagination(total, page), nil
}

func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Class, error) {
	c, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if err = access.Check(actor, access.ViewClass, c.Target()); err != nil {
		return Class{}, err
	}
	return c, nil
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, uc UpdateClass) (Class, error) {
	c, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if err = access.Check(actor, access.ManageClass, c.Target()); err != nil {
		return Class{}, err
	}

	if uc.TeacherID != nil && *uc.TeacherID != c.TeacherID {
		if !actor.IsAdmin() {
			return Class{}, access.ErrForbidden
		}
		if err = svc.findTeacher(ctx, *uc.TeacherID); err != nil {
			return Class{}, err
		}
		c.TeacherID = *uc.TeacherID
	}
	if uc.Code != nil {
		c.Code = *uc.Code
	}
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Grade != nil {
		c.Grade = *uc.Grade
	}
	if uc.Section != nil {
		c.Section = *uc.Section
	}
	if uc.Schedule != nil {
		c.Schedule = *uc.Schedule
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

// Delete removes a class. With cascade, its enrollments and reports are removed as well.
func (svc *Service) Delete(ctx context.Context, actor access.Actor, id string, cascade bool) error {
	c, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if err = access.Check(actor, access.ManageClass, c.Target()); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id, cascade)
}

// Enroll adds a student to a class. A student belongs to at most one class system-wide:
// moving a student takes an Unenroll followed by an Enroll.
func (svc *Service) Enroll(ctx context.Context, actor access.Actor, classID, studentID string) (Enrollment, error) {
	c, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return Enrollment{}, err
	}
	student, err := svc.users.GetUserByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Enrollment{}, ErrStudentNotFound
		}
		return Enrollment{}, errors.Wrap(err, "finding student")
	}
	if !student.IsStudent() {
		return Enrollment{}, ErrNotAStudent
	}
	if err = access.Check(actor, access.ManageClass, c.Target()); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.Enroll(ctx, c.ID, student.ID)
}

func (svc *Service) Unenroll(ctx context.Context, actor access.Actor, classID, studentID string) error {
	c, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if err = access.Check(actor, access.ManageClass, c.Target()); err != nil {
		return err
	}
	return svc.repo.Unenroll(ctx, c.ID, studentID)
}
