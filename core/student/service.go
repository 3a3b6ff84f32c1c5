package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("Student not found.")
	ErrEmailExists = errors.New("Student with this email already exists.")
	ErrEmailOwned  = errors.New("Email belongs to an account that cannot own this student.")
)

type (
	Repository interface {
		// CreateStudent saves `st`. When `usr` is not nil, it is created first and becomes the owner of `st`.
		CreateStudent(ctx context.Context, st Student, usr *user.User) (Student, error)
		// QueryStudents returns the students matching `filter`, oldest first unless `ordering` says otherwise.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		// UpdateStudent saves the profile fields of `st`; its group is left untouched.
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		// DeleteStudent removes the Student and its group membership.
		// Its owner goes along when it is a STUDENT User owning no other profile.
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo            Repository
		usrRepo         user.Repository
		defaultPassword string
	}
)

func NewService(repo Repository, usrRepo user.Repository, conf *core.Config) *Service {
	return &Service{repo: repo, usrRepo: usrRepo, defaultPassword: conf.DefaultStudentPassword}
}

// Create saves a new Student. An existing STUDENT User with the same email and no profile becomes its owner,
// otherwise a STUDENT User is created along.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.repo.GetStudentByEmail(ctx, ns.Email); err == nil {
		return Student{}, core.NewValidationError(ErrEmailExists)
	} else if errors.Cause(err) != ErrNotFound {
		return Student{}, errors.Wrap(err, "finding student by email")
	}

	now := time.Now().UTC()
	st := Student{
		Name:       ns.Name,
		Email:      ns.Email,
		CGPA:       float64(ns.CGPA),
		Skills:     ns.Skills,
		Department: ns.Department,
		Year:       ns.Year,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if st.Skills == nil {
		st.Skills = []string{}
	}

	var newUsr *user.User
	existing, err := svc.usrRepo.GetUserByEmail(ctx, ns.Email)
	switch {
	case err == nil:
		// an existing owner must be a STUDENT without a profile yet
		if !existing.IsStudent() {
			return Student{}, core.NewValidationError(ErrEmailOwned)
		}
		if _, err := svc.repo.GetStudentByUserID(ctx, existing.ID); err == nil {
			return Student{}, core.NewValidationError(ErrEmailOwned)
		} else if errors.Cause(err) != ErrNotFound {
			return Student{}, errors.Wrap(err, "finding student by owner")
		}
		st.UserID = existing.ID
	case errors.Cause(err) == user.ErrNotFound:
		pwd := ns.Password
		if pwd == "" {
			pwd = svc.defaultPassword
		}
		newUsr = &user.User{
			Name:      ns.Name,
			Email:     ns.Email,
			Role:      user.RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = newUsr.SetPassword(pwd); err != nil {
			return Student{}, errors.Wrap(err, "hashing password")
		}
	default:
		return Student{}, errors.Wrap(err, "finding user by email")
	}

	st, err = svc.repo.CreateStudent(ctx, st, newUsr)
	if err != nil {
		if cause := errors.Cause(err); cause == ErrEmailExists || cause == user.ErrEmailExists {
			return Student{}, core.NewValidationError(ErrEmailExists)
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, core.FilterOrderings(ordering, OrderingFields...))
}

// QueryAll returns every Student, oldest first.
func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, nil, nil)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// GetForUser returns the profile of `usr`, looked up by owner then by email.
func (svc *Service) GetForUser(ctx context.Context, usr user.User) (Student, error) {
	st, err := svc.repo.GetStudentByUserID(ctx, usr.ID)
	if errors.Cause(err) == ErrNotFound {
		return svc.repo.GetStudentByEmail(ctx, usr.Email)
	}
	return st, err
}

// Update merges `us` into the Student with the given ID. A provided password is set on the owning User.
func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}

	if us.Email != nil && *us.Email != st.Email {
		if other, err := svc.repo.GetStudentByEmail(ctx, *us.Email); err == nil && other.ID != st.ID {
			return Student{}, core.NewValidationError(ErrEmailExists)
		} else if err != nil && errors.Cause(err) != ErrNotFound {
			return Student{}, errors.Wrap(err, "finding student by email")
		}
	}

	st = us.apply(st)
	st.UpdatedAt = time.Now().UTC()
	st, err = svc.repo.UpdateStudent(ctx, st)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Student{}, core.NewValidationError(ErrEmailExists)
		}
		return Student{}, errors.Wrap(err, "updating student")
	}

	if us.Password != "" {
		usr, err := svc.usrRepo.GetUserByID(ctx, st.UserID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return st, nil
			}
			return Student{}, errors.Wrap(err, "finding owner")
		}
		if err = usr.SetPassword(us.Password); err != nil {
			return Student{}, errors.Wrap(err, "hashing password")
		}
		usr.UpdatedAt = st.UpdatedAt
		if _, err = svc.usrRepo.UpdateUser(ctx, usr); err != nil {
			return Student{}, errors.Wrap(err, "updating owner password")
		}
	}
	return st, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}
