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
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

const userColumns = "id, username, email, first_name, last_name, role, password_hash, is_active, created_at, updated_at, last_login"

var (
	userUniqueErrors = constraintErrors{
		"users_username_key": user.ErrUsernameExists,
		"users_email_key":    user.ErrEmailExists,
	}
	userDeleteErrors = constraintErrors{
		"classes_teacher_id_fkey":        user.ErrHasDependents,
		"class_students_student_id_fkey": user.ErrHasDependents,
		"progress_student_id_fkey":       user.ErrHasDependents,
		"reports_student_id_fkey":        user.ErrHasDependents,
		"reports_generated_by_fkey":      user.ErrHasDependents,
	}

	userOrderColumns = map[string]string{
		"username":   "username",
		"email":      "email",
		"first_name": "first_name",
		"last_name":  "last_name",
		"role":       "role",
		"is_active":  "is_active",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Email        null.String `db:"email"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	Role         string      `db:"role"`
	PasswordHash []byte      `db:"password_hash"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        null.NewString(usr.Email, usr.Email != ""),
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Role:         string(usr.Role),
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email.String,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         access.Role(r.Role),
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) getOne(ctx context.Context, msg, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, msg)
	}
	return row.toUser(), nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :email, :first_name, :last_name, :role, :password_hash, :is_active, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr)); err != nil {
		return user.User{}, translate(err, "inserting user", userUniqueErrors)
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !isUUID(id) {
		return user.User{}, user.ErrNotFound
	}
	return repo.getOne(ctx, "finding user by ID", "id = ?", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, "finding user by email", "email = ?", email)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getOne(ctx, "finding user by username or email", "username = ? OR email = ?", username, username)
}

func (repo userRepository) QueryUsers(
	ctx context.Context,
	filter user.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]user.User, int, error) {
	var where whereClause
	// users with Username, Email, FirstName or LastName matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where.add("(username ILIKE ? OR email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?)", val, val, val, val)
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, string(r))
		}
		where.add("role = ANY(?)", pq.Array(roles))
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}

	var rows []userRow
	order := orderClause(ordering, userOrderColumns, "created_at, id")
	total, err := selectPage(ctx, repo.db, &rows, "users", where, order, page, userColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, total, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET
			username = :username, email = :email, first_name = :first_name, last_name = :last_name,
			role = :role, password_hash = :password_hash, is_active = :is_active,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		return user.User{}, translate(err, "updating user", userUniqueErrors)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) DeleteUser(ctx context.Context, id string, cascade bool) error {
	if !isUUID(id) {
		return user.ErrNotFound
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if cascade {
			stmts := []string{
				"DELETE FROM class_students WHERE student_id = ?",
				"DELETE FROM progress WHERE student_id = ?",
				"DELETE FROM reports WHERE student_id = ?",
				"DELETE FROM reports WHERE class_id IN (SELECT id FROM classes WHERE teacher_id = ?)",
				"DELETE FROM class_students WHERE class_id IN (SELECT id FROM classes WHERE teacher_id = ?)",
				"DELETE FROM classes WHERE teacher_id = ?",
				"UPDATE reports SET generated_by = NULL WHERE generated_by = ?",
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
					return errors.Wrap(err, "deleting user dependents")
				}
			}
		}

		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM users WHERE id = ?"), id)
		if err != nil {
			return translate(err, "deleting user", userDeleteErrors)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}
