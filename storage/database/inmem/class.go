package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

// the helpers below must be called with the lock held

func (repo *classRepository) withMembers(c class.Class) class.Class {
	teacher := class.NewMember(repo.db.users[c.TeacherID])
	c.Teacher = &teacher

	c.Students = []class.Member{}
	for _, e := range repo.db.enrollments {
		if e.ClassID != c.ID {
			continue
		}
		m := class.NewMember(repo.db.users[e.StudentID])
		enrolledAt := e.CreatedAt
		m.EnrolledAt = &enrolledAt
		c.Students = append(c.Students, m)
	}
	sort.Slice(c.Students, func(i, j int) bool {
		ti, tj := *c.Students[i].EnrolledAt, *c.Students[j].EnrolledAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return c.Students[i].Username < c.Students[j].Username
	})
	return c
}

func (repo *classRepository) checkClass(c class.Class) error {
	for _, other := range repo.db.classes {
		if other.ID != c.ID && other.Code == c.Code {
			return class.ErrCodeExists
		}
	}
	if _, ok := repo.db.users[c.TeacherID]; !ok {
		return class.ErrTeacherNotFound
	}
	return nil
}

func (repo *classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = uuid.New().String()
	if err := repo.checkClass(c); err != nil {
		return class.Class{}, err
	}
	c.Teacher, c.Students = nil, nil
	repo.db.classes[c.ID] = c
	return repo.withMembers(c), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter class.QueryFilter, page core.Page) ([]class.Class, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Grade != "" && c.Grade != filter.Grade {
			continue
		}
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Code < classes[j].Code })

	total := len(classes)
	classes = paginate(classes, page)
	for i := range classes {
		classes[i] = repo.withMembers(classes[i])
	}
	return classes, total, nil
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	c, ok := repo.db.classes[id]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	return repo.withMembers(c), nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.classes[c.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	if err := repo.checkClass(c); err != nil {
		return class.Class{}, err
	}
	c.CreatedAt = orig.CreatedAt
	c.Teacher, c.Students = nil, nil
	repo.db.classes[c.ID] = c
	return repo.withMembers(c), nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string, cascade bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return class.ErrNotFound
	}

	hasDependents := false
	for _, e := range repo.db.enrollments {
		if e.ClassID == id {
			hasDependents = true
			break
		}
	}
	for _, r := range repo.db.reports {
		if r.ClassID != nil && *r.ClassID == id {
			hasDependents = true
			break
		}
	}
	if hasDependents {
		if !cascade {
			return class.ErrHasDependents
		}
		for sid, e := range repo.db.enrollments {
			if e.ClassID == id {
				delete(repo.db.enrollments, sid)
			}
		}
		kept := repo.db.reports[:0]
		for _, r := range repo.db.reports {
			if r.ClassID == nil || *r.ClassID != id {
				kept = append(kept, r)
			}
		}
		repo.db.reports = kept
	}

	delete(repo.db.classes, id)
	return nil
}

func (repo *classRepository) Enroll(ctx context.Context, classID, studentID string) (class.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return class.Enrollment{}, class.ErrNotFound
	}
	if _, ok := repo.db.users[studentID]; !ok {
		return class.Enrollment{}, class.ErrStudentNotFound
	}
	if _, ok := repo.db.enrollments[studentID]; ok {
		return class.Enrollment{}, class.ErrAlreadyEnrolled
	}

	e := class.Enrollment{ClassID: classID, StudentID: studentID, CreatedAt: time.Now().UTC()}
	repo.db.enrollments[studentID] = e
	return e, nil
}

func (repo *classRepository) Unenroll(ctx context.Context, classID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.enrollments[studentID]
	if !ok || e.ClassID != classID {
		return class.ErrNotEnrolled
	}
	delete(repo.db.enrollments, studentID)
	return nil
}
