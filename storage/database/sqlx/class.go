package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
)

const (
	classFrom    = "classes c JOIN users t ON t.id = c.teacher_id"
	classColumns = "c.id, c.code, c.name, c.teacher_id, c.grade, c.section, c.schedule, c.created_at, c.updated_at, " +
		"t.username AS teacher_username, t.email AS teacher_email, " +
		"t.first_name AS teacher_first_name, t.last_name AS teacher_last_name"
)

var (
	classWriteErrors = constraintErrors{
		"classes_code_key":        class.ErrCodeExists,
		"classes_teacher_id_fkey": class.ErrTeacherNotFound,
	}
	classDeleteErrors = constraintErrors{
		"class_students_class_id_fkey": class.ErrHasDependents,
		"reports_class_id_fkey":        class.ErrHasDependents,
	}
	enrollErrors = constraintErrors{
		"class_students_pkey":            class.ErrAlreadyEnrolled,
		"class_students_student_id_key":  class.ErrAlreadyEnrolled,
		"class_students_class_id_fkey":   class.ErrNotFound,
		"class_students_student_id_fkey": class.ErrStudentNotFound,
	}
)

type (
	classRow struct {
		ID               string      `db:"id"`
		Code             string      `db:"code"`
		Name             string      `db:"name"`
		TeacherID        string      `db:"teacher_id"`
		Grade            null.String `db:"grade"`
		Section          null.String `db:"section"`
		Schedule         null.String `db:"schedule"`
		CreatedAt        time.Time   `db:"created_at"`
		UpdatedAt        time.Time   `db:"updated_at"`
		TeacherUsername  string      `db:"teacher_username"`
		TeacherEmail     null.String `db:"teacher_email"`
		TeacherFirstName string      `db:"teacher_first_name"`
		TeacherLastName  string      `db:"teacher_last_name"`
	}

	memberRow struct {
		ClassID    string      `db:"class_id"`
		ID         string      `db:"id"`
		Username   string      `db:"username"`
		Email      null.String `db:"email"`
		FirstName  string      `db:"first_name"`
		LastName   string      `db:"last_name"`
		EnrolledAt time.Time   `db:"enrolled_at"`
	}
)

func (r classRow) toClass() class.Class {
	return class.Class{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		TeacherID: r.TeacherID,
		Grade:     r.Grade.String,
		Section:   r.Section.String,
		Schedule:  r.Schedule.String,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Teacher: &class.Member{
			ID:        r.TeacherID,
			Username:  r.TeacherUsername,
			Email:     r.TeacherEmail.String,
			FirstName: r.TeacherFirstName,
			LastName:  r.TeacherLastName,
		},
		Students: []class.Member{},
	}
}

func (r memberRow) toMember() class.Member {
	enrolledAt := r.EnrolledAt.UTC()
	return class.Member{
		ID:         r.ID,
		Username:   r.Username,
		Email:      r.Email.String,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		EnrolledAt: &enrolledAt,
	}
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

// students returns the enrolled students of the given classes, in enrollment order.
func (repo classRepository) students(ctx context.Context, classIDs []string) (map[string][]class.Member, error) {
	var rows []memberRow
	q := repo.db.Rebind(`SELECT cs.class_id, u.id, u.username, u.email, u.first_name, u.last_name, cs.created_at AS enrolled_at
		FROM class_students cs JOIN users u ON u.id = cs.student_id
		WHERE cs.class_id = ANY(?)
		ORDER BY cs.created_at, u.username`)
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(classIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting class students")
	}
	members := make(map[string][]class.Member, len(classIDs))
	for _, r := range rows {
		members[r.ClassID] = append(members[r.ClassID], r.toMember())
	}
	return members, nil
}

func (repo classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	id := uuid.New().String()
	q := repo.db.Rebind(`INSERT INTO classes (id, code, name, teacher_id, grade, section, schedule, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		id, c.Code, c.Name, c.TeacherID, nullString(c.Grade), nullString(c.Section), nullString(c.Schedule),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return class.Class{}, translate(err, "inserting class", classWriteErrors)
	}
	return repo.GetClass(ctx, id)
}

func (repo classRepository) QueryClasses(ctx context.Context, filter class.QueryFilter, page core.Page) ([]class.Class, int, error) {
	var where whereClause
	if filter.TeacherID != "" {
		if !isUUID(filter.TeacherID) {
			return []class.Class{}, 0, nil
		}
		where.add("c.teacher_id = ?", filter.TeacherID)
	}
	if filter.Grade != "" {
		where.add("c.grade = ?", filter.Grade)
	}

	var rows []classRow
	total, err := selectPage(ctx, repo.db, &rows, classFrom, where, " ORDER BY c.code, c.id", page, classColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying classes")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	members, err := repo.students(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		c := r.toClass()
		if m, ok := members[r.ID]; ok {
			c.Students = m
		}
		classes = append(classes, c)
	}
	return classes, total, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	if !isUUID(id) {
		return class.Class{}, class.ErrNotFound
	}
	var row classRow
	q := repo.db.Rebind(`SELECT ` + classColumns + ` FROM ` + classFrom + ` WHERE c.id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}

	c := row.toClass()
	members, err := repo.students(ctx, []string{id})
	if err != nil {
		return class.Class{}, err
	}
	if m, ok := members[id]; ok {
		c.Students = m
	}
	return c, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	q := repo.db.Rebind(`UPDATE classes SET
			code = ?, name = ?, teacher_id = ?, grade = ?, section = ?, schedule = ?, updated_at = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		c.Code, c.Name, c.TeacherID, nullString(c.Grade), nullString(c.Section), nullString(c.Schedule),
		c.UpdatedAt.UTC(), c.ID,
	)
	if err != nil {
		return class.Class{}, translate(err, "updating class", classWriteErrors)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return repo.GetClass(ctx, c.ID)
}

func (repo classRepository) DeleteClass(ctx context.Context, id string, cascade bool) error {
	if !isUUID(id) {
		return class.ErrNotFound
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if cascade {
			for _, stmt := range []string{
				"DELETE FROM class_students WHERE class_id = ?",
				"DELETE FROM reports WHERE class_id = ?",
			} {
				if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
					return errors.Wrap(err, "deleting class dependents")
				}
			}
		}

		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM classes WHERE id = ?"), id)
		if err != nil {
			return translate(err, "deleting class", classDeleteErrors)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return class.ErrNotFound
		}
		return nil
	})
}

// Enroll relies on the unique index on class_students.student_id to reject a second enrollment,
// concurrent ones included.
func (repo classRepository) Enroll(ctx context.Context, classID, studentID string) (class.Enrollment, error) {
	e := class.Enrollment{ClassID: classID, StudentID: studentID, CreatedAt: time.Now().UTC()}
	q := repo.db.Rebind(`INSERT INTO class_students (class_id, student_id, created_at) VALUES (?, ?, ?)`)
	if _, err := repo.db.ExecContext(ctx, q, e.ClassID, e.StudentID, e.CreatedAt); err != nil {
		return class.Enrollment{}, translate(err, "inserting enrollment", enrollErrors)
	}
	return e, nil
}

func (repo classRepository) Unenroll(ctx context.Context, classID, studentID string) error {
	if !isUUID(classID) || !isUUID(studentID) {
		return class.ErrNotEnrolled
	}
	q := repo.db.Rebind(`DELETE FROM class_students WHERE class_id = ? AND student_id = ?`)
	res, err := repo.db.ExecContext(ctx, q, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotEnrolled
	}
	return nil
}
