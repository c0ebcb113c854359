package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func userField(u user.User, field string) interface{} {
	switch field {
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "first_name":
		return u.FirstName
	case "last_name":
		return u.LastName
	case "role":
		return string(u.Role)
	case "is_active":
		return u.IsActive
	case "created_at":
		return u.CreatedAt
	case "updated_at":
		return u.UpdatedAt
	case "last_login":
		return u.LastLogin
	}
	return nil
}

// checkUniqueness must be called with the lock held.
func (repo *userRepository) checkUniqueness(usr user.User) error {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if u.Username == usr.Username {
			return user.ErrUsernameExists
		}
		if usr.Email != "" && u.Email == usr.Email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.New().String()
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	usr.PasswordHash = cloneBytes(usr.PasswordHash)
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) find(match func(u user.User) bool) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.find(func(u user.User) bool { return u.Email == email })
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.find(func(u user.User) bool { return u.Username == username || u.Email == username })
}

func (repo *userRepository) QueryUsers(
	ctx context.Context,
	filter user.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]user.User, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.FirstName), search) &&
			!strings.Contains(strings.ToLower(u.LastName), search) {
			continue
		}
		if len(filter.Roles) > 0 {
			found := false
			for _, r := range filter.Roles {
				if u.Role == r {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	sortByOrdering(users, ordering, userField)
	return paginate(users, page), len(users), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	usr.CreatedAt = orig.CreatedAt
	usr.PasswordHash = cloneBytes(usr.PasswordHash)
	repo.db.users[usr.ID] = usr
	return usr, nil
}

// hasDependents must be called with the lock held.
func (repo *userRepository) hasDependents(id string) bool {
	if _, ok := repo.db.enrollments[id]; ok {
		return true
	}
	for _, c := range repo.db.classes {
		if c.TeacherID == id {
			return true
		}
	}
	for key := range repo.db.progress {
		if key.studentID == id {
			return true
		}
	}
	for _, r := range repo.db.reports {
		if (r.StudentID != nil && *r.StudentID == id) || (r.GeneratedBy != nil && *r.GeneratedBy == id) {
			return true
		}
	}
	return false
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string, cascade bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	if !cascade {
		if repo.hasDependents(id) {
			return user.ErrHasDependents
		}
		delete(repo.db.users, id)
		return nil
	}

	delete(repo.db.enrollments, id)
	for key := range repo.db.progress {
		if key.studentID == id {
			delete(repo.db.progress, key)
		}
	}

	owned := make(map[string]bool)
	for cid, c := range repo.db.classes {
		if c.TeacherID == id {
			owned[cid] = true
			delete(repo.db.classes, cid)
		}
	}
	for sid, e := range repo.db.enrollments {
		if owned[e.ClassID] {
			delete(repo.db.enrollments, sid)
		}
	}

	kept := repo.db.reports[:0]
	for _, r := range repo.db.reports {
		if (r.StudentID != nil && *r.StudentID == id) || (r.ClassID != nil && owned[*r.ClassID]) {
			continue
		}
		if r.GeneratedBy != nil && *r.GeneratedBy == id {
			r.GeneratedBy = nil
		}
		kept = append(kept, r)
	}
	repo.db.reports = kept

	delete(repo.db.users, id)
	return nil
}
