package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
)

var (
	// errors
	ErrNotFound               = errors.New("user not found")
	ErrEmailExists            = errors.New("Email is already registered.")
	ErrAuthenticationFailed   = errors.New("Invalid email or password.")
	errDefaultPasswordMissing = errors.New("no default password configured")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		CountUsersByRole(ctx context.Context, role string) (int, error)
		// UpdateUser saves the name, email, role and password hash of an existing User.
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo            Repository
		defaultPassword string
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, defaultPassword: conf.DefaultStudentPassword}
}

// Register creates a new STUDENT User. The default password is used when none is provided.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return User{}, core.NewValidationError(ErrEmailExists)
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by email")
	}
	return svc.create(ctx, nu, RoleStudent)
}

func (svc *Service) create(ctx context.Context, nu NewUser, role string) (User, error) {
	pwd := nu.Password
	if pwd == "" {
		if svc.defaultPassword == "" {
			return User{}, errDefaultPasswordMissing
		}
		pwd = svc.defaultPassword
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     core.CleanString(nu.Email, true /* lower */),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if errors.Cause(err) == ErrEmailExists {
		return User{}, core.NewValidationError(ErrEmailExists)
	}
	return usr, errors.Wrap(err, "creating user")
}

// Authenticate returns the User matching the credentials, ErrAuthenticationFailed otherwise.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(creds.Email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// SetPassword rehashes the password of the User with the given ID.
func (svc *Service) SetPassword(ctx context.Context, id, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// AddTeacher creates a TEACHER or promotes the User with the same email, resetting their password.
func (svc *Service) AddTeacher(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.GetByEmail(ctx, nu.Email)
	switch {
	case errors.Cause(err) == ErrNotFound:
		return svc.create(ctx, nu, RoleTeacher)
	case err != nil:
		return User{}, errors.Wrap(err, "finding user by email")
	}

	if nu.Name != "" {
		usr.Name = nu.Name
	}
	usr.Role = RoleTeacher
	usr.UpdatedAt = time.Now().UTC()
	if nu.Password != "" {
		if err = usr.SetPassword(nu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// EnsureTeacher creates the bootstrap TEACHER from `nu` unless one TEACHER at least already exists.
// It reports whether a User was created.
func (svc *Service) EnsureTeacher(ctx context.Context, nu NewUser) (bool, error) {
	count, err := svc.repo.CountUsersByRole(ctx, RoleTeacher)
	if err != nil {
		return false, errors.Wrap(err, "counting teachers")
	}
	if count > 0 {
		return false, nil
	}
	if _, err = svc.create(ctx, nu, RoleTeacher); err != nil {
		return false, errors.Wrap(err, "creating default teacher")
	}
	return true, nil
}
