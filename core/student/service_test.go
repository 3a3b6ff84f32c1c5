package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
	dummydb "github.com/trezcool/kikundi/storage/database/dummy"
	"github.com/trezcool/kikundi/tests"
)

type env struct {
	svc     *student.Service
	repo    student.Repository
	usrRepo user.Repository
}

func setup(t *testing.T) env {
	t.Helper()
	db := dummydb.Open()
	repo := dummydb.NewStudentRepository(db)
	usrRepo := dummydb.NewUserRepository(db)
	return env{
		svc:     student.NewService(repo, usrRepo, testutil.NewConfig()),
		repo:    repo,
		usrRepo: usrRepo,
	}
}

func ids(students []student.Student) []string {
	out := make([]string, 0, len(students))
	for _, st := range students {
		out = append(out, st.ID)
	}
	return out
}

func TestService_Create(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	t.Run("new owner", func(t *testing.T) {
		st, err := e.svc.Create(ctx, student.NewStudent{Name: "Amani", Email: "amani@test.cd", CGPA: 3.4, Skills: []string{"go"}})
		require.NoError(t, err)
		assert.NotEmpty(t, st.ID)
		assert.Equal(t, 3.4, st.CGPA)
		assert.Empty(t, st.GroupID)

		usr, err := e.usrRepo.GetUserByID(ctx, st.UserID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.NoError(t, usr.CheckPassword("password123"))
	})

	t.Run("existing user becomes owner", func(t *testing.T) {
		usr := testutil.CreateUser(t, e.usrRepo, "Baraka", "baraka@test.cd", "baraka-pwd", user.RoleStudent)
		st, err := e.svc.Create(ctx, student.NewStudent{Name: "Baraka", Email: "baraka@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, st.UserID)
		assert.Equal(t, []string{}, st.Skills)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := e.svc.Create(ctx, student.NewStudent{Name: "Other", Email: "amani@test.cd"})
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, student.ErrEmailExists.Error(), err.Error())
	})

	t.Run("teacher email", func(t *testing.T) {
		teacher := testutil.CreateUser(t, e.usrRepo, "Mwalimu", "mwalimu@test.cd", "teach-pwd", user.RoleTeacher)
		_, err := e.svc.Create(ctx, student.NewStudent{Name: "Mwalimu", Email: "mwalimu@test.cd"})
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, student.ErrEmailOwned.Error(), err.Error())

		students, err := e.svc.QueryAll(ctx)
		require.NoError(t, err)
		for _, st := range students {
			assert.NotEqual(t, teacher.ID, st.UserID)
		}
	})

	t.Run("email of an owner with a profile", func(t *testing.T) {
		st, err := e.svc.Create(ctx, student.NewStudent{Name: "Chiku", Email: "chiku@test.cd"})
		require.NoError(t, err)
		email := "chiku.new@test.cd"
		_, err = e.svc.Update(ctx, st.ID, student.UpdateStudent{Email: &email})
		require.NoError(t, err)

		_, err = e.svc.Create(ctx, student.NewStudent{Name: "Chiku", Email: "chiku@test.cd"})
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, student.ErrEmailOwned.Error(), err.Error())
	})
}

func TestService_Query(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	s0 := testutil.CreateStudent(t, e.repo, "chiku", "chiku@test.cd", 3.0, "go")
	s1 := testutil.CreateStudent(t, e.repo, "Amani", "amani@test.cd", 3.5, "sql")
	s2 := testutil.CreateStudent(t, e.repo, "Baraka", "baraka@test.cd", 3.0, "Go")

	tests := []struct {
		name     string
		filter   *student.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{s0.ID, s1.ID, s2.ID}},
		{name: "skill", filter: &student.QueryFilter{Skill: "go"}, want: []string{s0.ID, s2.ID}},
		{name: "by name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{s1.ID, s2.ID, s0.ID}},
		{name: "by cgpa desc, ties by creation", ordering: []core.DBOrdering{{Field: "cgpa"}}, want: []string{s1.ID, s0.ID, s2.ID}},
		{name: "unknown ordering ignored", ordering: []core.DBOrdering{{Field: "password"}}, want: []string{s0.ID, s1.ID, s2.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestService_GetForUser(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, e.repo, "Dalila", "dalila@test.cd", 2.8)

	owner, err := e.usrRepo.GetUserByID(ctx, st.UserID)
	require.NoError(t, err)
	got, err := e.svc.GetForUser(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	// matched by email when not owner
	got, err = e.svc.GetForUser(ctx, user.User{ID: "other", Email: "dalila@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	_, err = e.svc.GetForUser(ctx, user.User{ID: "other", Email: "lol@test.cd"})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_Update(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, e.repo, "Eshe", "eshe@test.cd", 2.8, "go")
	other := testutil.CreateStudent(t, e.repo, "Faraji", "faraji@test.cd", 3.1)

	t.Run("not found", func(t *testing.T) {
		_, err := e.svc.Update(ctx, "lol", student.UpdateStudent{})
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	})

	t.Run("email taken", func(t *testing.T) {
		email := other.Email
		_, err := e.svc.Update(ctx, st.ID, student.UpdateStudent{Email: &email})
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("partial update", func(t *testing.T) {
		dept := "Mathematics"
		gpa := student.GPA(3.6)
		updated, err := e.svc.Update(ctx, st.ID, student.UpdateStudent{Department: &dept, CGPA: &gpa, Password: "brand-new-pwd"})
		require.NoError(t, err)
		assert.Equal(t, "Eshe", updated.Name)
		assert.Equal(t, "Mathematics", updated.Department)
		assert.Equal(t, 3.6, updated.CGPA)
		assert.Equal(t, []string{"go"}, updated.Skills)

		usr, err := e.usrRepo.GetUserByID(ctx, st.UserID)
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("brand-new-pwd"))
	})
}

func TestService_Delete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, e.repo, "Gasira", "gasira@test.cd", 2.8)

	require.NoError(t, e.svc.Delete(ctx, st.ID))

	_, err := e.svc.GetByID(ctx, st.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	_, err = e.usrRepo.GetUserByID(ctx, st.UserID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	assert.Equal(t, student.ErrNotFound, errors.Cause(e.svc.Delete(ctx, st.ID)))
}

func TestService_Delete_keepsTeacher(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	usrSvc := user.NewService(e.usrRepo, testutil.NewConfig())

	st, err := e.svc.Create(ctx, student.NewStudent{Name: "Neema", Email: "neema@test.cd"})
	require.NoError(t, err)
	_, err = usrSvc.AddTeacher(ctx, user.NewUser{Email: "neema@test.cd"})
	require.NoError(t, err)

	require.NoError(t, e.svc.Delete(ctx, st.ID))
	count, err := e.usrRepo.CountUsersByRole(ctx, user.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
