package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
)

// Repos are the repositories of one storage engine.
type Repos struct {
	Users    user.Repository
	Students student.Repository
	Groups   group.Repository
}

func studentIDs(students []student.Student) []string {
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids
}

// RunRepositoryTests checks the behaviour every storage engine shares.
// `newRepos` must return repositories over an empty store.
func RunRepositoryTests(t *testing.T, newRepos func(t *testing.T) Repos) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		r := newRepos(t)
		usr := CreateUser(t, r.Users, "Amani", "amani@test.cd", "amani-pwd", user.RoleTeacher)
		assert.NotEmpty(t, usr.ID)

		_, err := r.Users.CreateUser(ctx, user.User{
			Name: "Other", Email: "amani@test.cd", Role: user.RoleStudent, PasswordHash: []byte("x"),
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

		got, err := r.Users.GetUserByEmail(ctx, "amani@test.cd")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
		assert.NoError(t, got.CheckPassword("amani-pwd"))

		_, err = r.Users.GetUserByID(ctx, "lol")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))

		count, err := r.Users.CountUsersByRole(ctx, user.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got.Name = "Mrs Amani"
		got.Role = user.RoleStudent
		got.UpdatedAt = time.Now().UTC()
		updated, err := r.Users.UpdateUser(ctx, got)
		require.NoError(t, err)
		assert.Equal(t, "Mrs Amani", updated.Name)
		assert.Equal(t, user.RoleStudent, updated.Role)

		require.NoError(t, r.Users.DeleteUser(ctx, usr.ID))
		_, err = r.Users.GetUserByID(ctx, usr.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("students", func(t *testing.T) {
		r := newRepos(t)
		s0 := CreateStudent(t, r.Students, "Chiku", "chiku@test.cd", 3.0, "go", "sql")
		s1 := CreateStudent(t, r.Students, "amani", "amani@test.cd", 3.5)
		s2 := CreateStudent(t, r.Students, "Baraka", "baraka@test.cd", 3.0, "Go")

		assert.Equal(t, []string{}, s1.Skills)
		assert.NotEmpty(t, s0.UserID)

		now := time.Now().UTC()
		dup := student.Student{UserID: s0.UserID, Name: "Dup", Email: "chiku@test.cd", Skills: []string{}, CreatedAt: now, UpdatedAt: now}
		_, err := r.Students.CreateStudent(ctx, dup, nil)
		assert.Equal(t, student.ErrEmailExists, errors.Cause(err))

		byOwner, err := r.Students.GetStudentByUserID(ctx, s2.UserID)
		require.NoError(t, err)
		assert.Equal(t, s2.ID, byOwner.ID)
		byEmail, err := r.Students.GetStudentByEmail(ctx, "amani@test.cd")
		require.NoError(t, err)
		assert.Equal(t, s1.ID, byEmail.ID)
		_, err = r.Students.GetStudentByID(ctx, "lol")
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))

		yes := true
		tests := []struct {
			name     string
			filter   *student.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all", want: []string{s0.ID, s1.ID, s2.ID}},
			{name: "search", filter: &student.QueryFilter{Search: "AMANI"}, want: []string{s1.ID}},
			{name: "skill", filter: &student.QueryFilter{Skill: "GO"}, want: []string{s0.ID, s2.ID}},
			{name: "search percent is literal", filter: &student.QueryFilter{Search: "%"}, want: []string{}},
			{name: "search underscore is literal", filter: &student.QueryFilter{Search: "b_raka"}, want: []string{}},
			{name: "ungrouped", filter: &student.QueryFilter{Ungrouped: &yes}, want: []string{s0.ID, s1.ID, s2.ID}},
			{name: "name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{s1.ID, s2.ID, s0.ID}},
			{name: "cgpa ties", ordering: []core.DBOrdering{{Field: "cgpa"}}, want: []string{s1.ID, s0.ID, s2.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := r.Students.QueryStudents(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, studentIDs(got))
			})
		}

		s0.Department = "Mathematics"
		s0.Skills = []string{"rust"}
		s0.UpdatedAt = time.Now().UTC()
		updated, err := r.Students.UpdateStudent(ctx, s0)
		require.NoError(t, err)
		assert.Equal(t, "Mathematics", updated.Department)
		assert.Equal(t, []string{"rust"}, updated.Skills)

		s0.Email = s1.Email
		_, err = r.Students.UpdateStudent(ctx, s0)
		assert.Equal(t, student.ErrEmailExists, errors.Cause(err))

		require.NoError(t, r.Students.DeleteStudent(ctx, s2.ID))
		_, err = r.Students.GetStudentByID(ctx, s2.ID)
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
		_, err = r.Users.GetUserByID(ctx, s2.UserID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		assert.Equal(t, student.ErrNotFound, errors.Cause(r.Students.DeleteStudent(ctx, s2.ID)))
	})

	t.Run("owners", func(t *testing.T) {
		r := newRepos(t)
		now := time.Now().UTC()
		profile := func(owner, email string) student.Student {
			st, err := r.Students.CreateStudent(ctx, student.Student{
				UserID: owner, Name: email, Email: email, Skills: []string{}, CreatedAt: now, UpdatedAt: now,
			}, nil)
			require.NoError(t, err)
			return st
		}

		teacher := CreateUser(t, r.Users, "Mwalimu", "mwalimu@test.cd", "teach-pwd", user.RoleTeacher)
		st := profile(teacher.ID, "mwalimu@test.cd")
		require.NoError(t, r.Students.DeleteStudent(ctx, st.ID))
		_, err := r.Users.GetUserByID(ctx, teacher.ID)
		assert.NoError(t, err, "teacher deleted along with a student profile")

		first := CreateStudent(t, r.Students, "Amani", "amani@test.cd", 3.0)
		second := profile(first.UserID, "amani.juma@test.cd")
		require.NoError(t, r.Students.DeleteStudent(ctx, first.ID))
		_, err = r.Users.GetUserByID(ctx, first.UserID)
		assert.NoError(t, err, "owner of another profile deleted")
		got, err := r.Students.GetStudentByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, first.UserID, got.UserID)

		require.NoError(t, r.Students.DeleteStudent(ctx, second.ID))
		_, err = r.Users.GetUserByID(ctx, first.UserID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("groups", func(t *testing.T) {
		r := newRepos(t)
		s0 := CreateStudent(t, r.Students, "Chiku", "chiku@test.cd", 3.0)
		s1 := CreateStudent(t, r.Students, "Amani", "amani@test.cd", 3.5)
		s2 := CreateStudent(t, r.Students, "Baraka", "baraka@test.cd", 2.0)

		_, err := r.Groups.GetGroupByMember(ctx, s0.ID)
		assert.Equal(t, group.ErrNotFound, errors.Cause(err))

		now := time.Now().UTC()
		saved, err := r.Groups.ReplaceGroups(ctx, []group.Group{
			{Name: "Team 1", MemberIDs: []string{s1.ID, s0.ID}, AINotes: "Balanced.", CreatedAt: now},
			{Name: "Team 2", MemberIDs: []string{s2.ID}, CreatedAt: now},
		})
		require.NoError(t, err)
		require.Len(t, saved, 2)

		groups, err := r.Groups.QueryGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, saved[0].ID, groups[0].ID)
		assert.Equal(t, []string{s1.ID, s0.ID}, groups[0].MemberIDs)
		assert.Equal(t, "Balanced.", groups[0].AINotes)
		assert.Equal(t, "", groups[1].AINotes)

		g, err := r.Groups.GetGroupByMember(ctx, s0.ID)
		require.NoError(t, err)
		assert.Equal(t, saved[0].ID, g.ID)
		st, err := r.Students.GetStudentByID(ctx, s2.ID)
		require.NoError(t, err)
		assert.Equal(t, saved[1].ID, st.GroupID)

		no := false
		grouped, err := r.Students.QueryStudents(ctx, &student.QueryFilter{Ungrouped: &no}, nil)
		require.NoError(t, err)
		assert.Len(t, grouped, 3)

		// deleting a member drops it from its group
		require.NoError(t, r.Students.DeleteStudent(ctx, s0.ID))
		groups, err = r.Groups.QueryGroups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{s1.ID}, groups[0].MemberIDs)

		saved, err = r.Groups.ReplaceGroups(ctx, []group.Group{
			{Name: "Solo", MemberIDs: []string{s2.ID}, CreatedAt: now},
		})
		require.NoError(t, err)
		groups, err = r.Groups.QueryGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, saved[0].ID, groups[0].ID)

		st, err = r.Students.GetStudentByID(ctx, s1.ID)
		require.NoError(t, err)
		assert.Empty(t, st.GroupID)
	})
}
