package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrUsernameExists     = core.NewValidationError(nil, core.FieldError{Field: "username", Error: "a user with this username already exists"})
	ErrEmailExists        = core.NewValidationError(nil, core.FieldError{Field: "email", Error: "a user with this email already exists"})
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
	ErrAccountDeactivated = core.NewForbiddenError("account deactivated")
	ErrHasDependents      = core.NewConflictError("user is referenced by classes, enrollments, progress or reports")
)

type (
	// Finder looks Users up by ID.
	Finder interface {
		GetUserByID(ctx context.Context, id string) (User, error)
	}

	Repository interface {
		Finder
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields and returns the requested page
		// along with the total count of matching users.
		// QueryFilter.Search does a case-insensitive match on one of User.Username, User.Email, User.FirstName or User.LastName.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser fails with ErrHasDependents when the user is still referenced, unless cascade is set.
		// With cascade, the user's enrollments, progress, owned classes and reports about them are removed,
		// and the reports they generated are kept without author.
		DeleteUser(ctx context.Context, id string, cascade bool) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: conf.SecretKey,
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) create(ctx context.Context, nu NewUser, role access.Role) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Create creates a User of any role. Role defaults to student.
func (svc *Service) Create(ctx context.Context, actor access.Actor, nu NewUser) (User, error) {
	if err := access.Check(actor, access.CreateUser, access.Target{}); err != nil {
		return User{}, err
	}
	role := access.RoleStudent
	if r, ok := access.ParseRole(nu.Role); ok {
		role = r
	}
	return svc.create(ctx, nu, role)
}

// Register is the public sign-up: it always creates a student.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, access.RoleStudent)
}

// Authenticate checks the credentials of an active User and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Query(
	ctx context.Context,
	actor access.Actor,
	filter QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]User, core.Pagination, error) {
	if err := access.Check(actor, access.ListUsers, access.Target{}); err != nil {
		return nil, core.Pagination{}, err
	}
	filter.Clean()
	users, total, err := svc.repo.QueryUsers(ctx, filter, ordering, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying users")
	}
	return users, core.NewPagination(total, page), nil
}

// Retrieve returns the User with the given ID if actor may see them.
func (svc *Service) Retrieve(ctx context.Context, actor access.Actor, id string) (User, error) {
	if err := access.Check(actor, access.ViewUser, access.Target{UserID: id}); err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByID(ctx, id)
}

// Update saves the changes of a validated UpdateUser on usr.
// Only admins may change usernames, roles and activation.
func (svc *Service) Update(ctx context.Context, actor access.Actor, usr User, uu UpdateUser) (User, error) {
	if err := access.Check(actor, access.UpdateUser, access.Target{UserID: usr.ID}); err != nil {
		return User{}, err
	}
	if !actor.IsAdmin() && (uu.Role != "" || uu.IsActive != nil || uu.Username != usr.Username) {
		return User{}, access.ErrForbidden
	}

	usr, err := uu.apply(usr)
	if err != nil {
		return User{}, errors.Wrap(err, "applying changes")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword sets the password of the User with the given username or email.
func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// Delete removes a User. See Repository.DeleteUser for the cascade semantics.
func (svc *Service) Delete(ctx context.Context, actor access.Actor, id string, cascade bool) error {
	if err := access.Check(actor, access.DeleteUser, access.Target{UserID: id}); err != nil {
		return err
	}
	return svc.repo.DeleteUser(ctx, id, cascade)
}

// RequestPasswordReset mails a password reset link to the active User with the given email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrAccountDeactivated
	}

	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":     usr.FullName(),
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    token,
		},
	})
	return nil
}

// ResetPassword sets a new password given a valid reset token.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return errInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return errInvalidToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return err
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// MakeResetToken returns a password reset UID and token for usr.
func (svc *Service) MakeResetToken(usr User) (uid, token string, err error) {
	token, err = svc.tokens.makeToken(usr)
	return EncodeUID(usr), token, err
}
