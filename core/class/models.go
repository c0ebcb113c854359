package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

type (
	Class struct {
		ID        string    `json:"id"`
		Code      string    `json:"code"`
		Name      string    `json:"name"`
		TeacherID string    `json:"teacher_id"`
		Grade     string    `json:"grade"`
		Section   string    `json:"section"`
		Schedule  string    `json:"schedule"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
		Teacher   *Member   `json:"teacher,omitempty"`
		Students  []Member  `json:"students"`
	}

	// Member is the public view of a class teacher or student.
	Member struct {
		ID         string     `json:"id"`
		Username   string     `json:"username"`
		Email      string     `json:"email"`
		FirstName  string     `json:"first_name"`
		LastName   string     `json:"last_name"`
		EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
	}

	Enrollment struct {
		ClassID   string    `json:"class_id"`
		StudentID string    `json:"student_id"`
		CreatedAt time.Time `json:"created_at"`
	}
)

// Target returns the authorization target of the class.
func (c Class) Target() access.Target {
	ids := make([]string, 0, len(c.Students))
	for _, s := range c.Students {
		ids = append(ids, s.ID)
	}
	return access.Target{OwnerID: c.TeacherID, MemberIDs: ids}
}

func NewMember(usr user.User) Member {
	return Member{
		ID:        usr.ID,
		Username:  usr.Username,
		Email:     usr.Email,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
	}
}

// NewClass contains information needed to create a new Class.
// TeacherID is required when an admin creates the class; a teacher always owns the classes they create.
type NewClass struct {
	Code      string `json:"code" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=200"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
	Grade     string `json:"grade" validate:"max=50"`
	Section   string `json:"section" validate:"max=50"`
	Schedule  string `json:"schedule" validate:"max=200"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code)
	nc.Name = core.CleanString(nc.Name)
	nc.TeacherID = core.CleanString(nc.TeacherID, true /* lower */)
	nc.Grade = core.CleanString(nc.Grade)
	nc.Section = core.CleanString(nc.Section)
	nc.Schedule = core.CleanString(nc.Schedule)
	return validate.Struct(nc)
}

// UpdateClass defines what may be changed on a Class. Nil fields are left unchanged.
// Only admins may hand a class over to another teacher.
type UpdateClass struct {
	Code      *string `json:"code" validate:"omitempty,notblank,max=50"`
	Name      *string `json:"name" validate:"omitempty,notblank,max=200"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid"`
	Grade     *string `json:"grade" validate:"omitempty,max=50"`
	Section   *string `json:"section" validate:"omitempty,max=50"`
	Schedule  *string `json:"schedule" validate:"omitempty,max=200"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	for _, s := range []*string{uc.Code, uc.Name, uc.TeacherID, uc.Grade, uc.Section, uc.Schedule} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(uc)
}

type EnrollStudent struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
}

func (es *EnrollStudent) Validate(validate *validator.Validate) error {
	es.StudentID = core.CleanString(es.StudentID, true /* lower */)
	return validate.Struct(es)
}

type QueryFilter struct {
	TeacherID string
	Grade     string
}
