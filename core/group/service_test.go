package group_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
	"github.com/trezcool/kikundi/core/student"
	emailsvc "github.com/trezcool/kikundi/services/email"
	dummydb "github.com/trezcool/kikundi/storage/database/dummy"
	"github.com/trezcool/kikundi/tests"
)

type fakeAnnotator struct {
	notes       map[string]string
	err         error
	roster      []group.RosterEntry
	groups      []group.Proposal
	hadDeadline bool
}

func (a *fakeAnnotator) Annotate(ctx context.Context, roster []group.RosterEntry, groups []group.Proposal) (map[string]string, error) {
	_, a.hadDeadline = ctx.Deadline()
	a.roster, a.groups = roster, groups
	return a.notes, a.err
}

type env struct {
	svc    *group.Service
	stRepo student.Repository
	mailer *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T, annotator group.Annotator, notify bool) env {
	t.Helper()

	conf := testutil.NewConfig()
	conf.NotifyGroupMembers = notify

	db := dummydb.Open()
	stRepo := dummydb.NewStudentRepository(db)
	mailer := emailsvc.NewConsoleServiceMock(conf)
	svc := group.NewService(group.Deps{
		Repo:      dummydb.NewGroupRepository(db),
		Students:  student.NewService(stRepo, dummydb.NewUserRepository(db), conf),
		Annotator: annotator,
		Mailer:    mailer,
		Logger:    testutil.NewLogger(conf),
	}, conf)
	return env{svc: svc, stRepo: stRepo, mailer: mailer}
}

func (e env) roster(t *testing.T, gpas ...float64) []student.Student {
	t.Helper()
	names := []string{"Amani", "Baraka", "Chiku", "Dalila", "Eshe", "Faraji", "Gasira"}
	students := make([]student.Student, 0, len(gpas))
	for i, gpa := range gpas {
		students = append(students, testutil.CreateStudent(t, e.stRepo, names[i], names[i]+"@test.cd", gpa, "go"))
	}
	return students
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "not a validation error: %v", err)
	return verr.Error()
}

func TestService_Replace(t *testing.T) {
	e := setup(t, nil, false)
	ctx := context.Background()
	sts := e.roster(t, 3.0, 3.5, 2.0)

	t.Run("unknown member", func(t *testing.T) {
		_, err := e.svc.Replace(ctx, []group.NewGroup{{Name: "A", MemberIDs: []string{sts[0].ID, "lol"}}})
		assert.Equal(t, "unknown student: lol", validationMessage(t, err))
	})

	t.Run("duplicate member", func(t *testing.T) {
		_, err := e.svc.Replace(ctx, []group.NewGroup{
			{Name: "A", MemberIDs: []string{sts[0].ID}},
			{Name: "B", MemberIDs: []string{sts[0].ID, sts[1].ID}},
		})
		assert.Equal(t, "student "+sts[0].ID+" is listed more than once", validationMessage(t, err))
	})

	t.Run("success", func(t *testing.T) {
		saved, err := e.svc.Replace(ctx, []group.NewGroup{
			{Name: "A", MemberIDs: []string{sts[1].ID, sts[0].ID}, AINotes: "Strong pair."},
			{Name: "Empty"},
		})
		require.NoError(t, err)
		require.Len(t, saved, 2)
		assert.NotEmpty(t, saved[0].ID)
		assert.Equal(t, []string{sts[1].ID, sts[0].ID}, saved[0].MemberIDs)
		assert.Equal(t, "Strong pair.", saved[0].AINotes)
		assert.Equal(t, []string{}, saved[1].MemberIDs)

		groups, err := e.svc.Query(ctx)
		require.NoError(t, err)
		assert.Len(t, groups, 2)

		for i, wantGroup := range []string{saved[0].ID, saved[0].ID, ""} {
			st, err := e.stRepo.GetStudentByID(ctx, sts[i].ID)
			require.NoError(t, err)
			assert.Equal(t, wantGroup, st.GroupID)
		}
	})

	t.Run("replace again", func(t *testing.T) {
		saved, err := e.svc.Replace(ctx, []group.NewGroup{{Name: "C", MemberIDs: []string{sts[2].ID}}})
		require.NoError(t, err)

		groups, err := e.svc.Query(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, saved[0].ID, groups[0].ID)

		st, err := e.stRepo.GetStudentByID(ctx, sts[0].ID)
		require.NoError(t, err)
		assert.Empty(t, st.GroupID)
	})
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid size", func(t *testing.T) {
		e := setup(t, nil, false)
		e.roster(t, 3.0, 3.5)
		_, err := e.svc.Generate(ctx, 1)
		assert.Equal(t, group.ErrInvalidGroupSize.Error(), validationMessage(t, err))
	})

	t.Run("insufficient population", func(t *testing.T) {
		e := setup(t, nil, false)
		e.roster(t, 3.0, 3.5)
		_, err := e.svc.Generate(ctx, 3)
		assert.Equal(t, group.ErrInsufficientPopulation.Error(), validationMessage(t, err))

		groups, err := e.svc.Query(ctx)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("not configured falls back", func(t *testing.T) {
		e := setup(t, nil, false)
		sts := e.roster(t, 3.0, 3.9, 2.0, 3.5, 2.5)

		groups, err := e.svc.Generate(ctx, 2)
		require.NoError(t, err)
		require.Len(t, groups, 3)
		assert.Equal(t, []string{sts[1].ID, sts[4].ID}, groups[0].MemberIDs)
		assert.Equal(t, []string{sts[3].ID, sts[2].ID}, groups[1].MemberIDs)
		assert.Equal(t, []string{sts[0].ID}, groups[2].MemberIDs)
		for i, g := range groups {
			assert.Equal(t, group.TeamName(i), g.Name)
			assert.Equal(t, group.FallbackNote, g.AINotes)
		}
	})

	t.Run("annotated", func(t *testing.T) {
		annotator := &fakeAnnotator{notes: map[string]string{"Team 1": " Go heavy. ", "Team 2": ""}}
		e := setup(t, annotator, false)
		sts := e.roster(t, 3.0, 3.9, 2.0, 3.5)

		groups, err := e.svc.Generate(ctx, 2)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "Go heavy.", groups[0].AINotes)
		assert.Equal(t, group.FallbackNote, groups[1].AINotes)

		assert.True(t, annotator.hadDeadline, "annotation without deadline")
		require.Len(t, annotator.roster, len(sts))
		assert.Equal(t, group.RosterEntry{ID: sts[0].ID, Skills: []string{"go"}, CGPA: 3.0}, annotator.roster[0])
		assert.Equal(t, []group.Proposal{
			{Name: "Team 1", MemberIDs: []string{sts[1].ID, sts[0].ID}},
			{Name: "Team 2", MemberIDs: []string{sts[3].ID, sts[2].ID}},
		}, annotator.groups)
	})

	t.Run("annotation failure falls back", func(t *testing.T) {
		annotator := &fakeAnnotator{err: errors.Wrap(group.ErrAnnotationFailed, "boom")}
		e := setup(t, annotator, false)
		e.roster(t, 3.0, 3.9)

		groups, err := e.svc.Generate(ctx, 2)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, group.FallbackNote, groups[0].AINotes)
	})

	t.Run("members notified", func(t *testing.T) {
		e := setup(t, nil, true)
		sts := e.roster(t, 3.0, 3.9, 2.0)

		_, err := e.svc.Generate(ctx, 3)
		require.NoError(t, err)

		sent := e.mailer.SentMessages()
		require.Len(t, sent, len(sts))
		assert.Equal(t, "Your group: Team 1", sent[0].Subject)
		assert.Equal(t, sts[1].Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].BodyStr, "Your teammates: Amani, Chiku.")
		assert.Contains(t, sent[0].BodyStr, group.FallbackNote)
	})
}

func TestService_Refine(t *testing.T) {
	ctx := context.Background()
	roster := []group.RosterEntry{{ID: "a", CGPA: 3}, {ID: "b", CGPA: 2}}
	proposals := []group.Proposal{{Name: "Team 1", MemberIDs: []string{"a", "b"}}}

	t.Run("not configured", func(t *testing.T) {
		e := setup(t, nil, false)
		_, err := e.svc.Refine(ctx, roster, proposals)
		assert.Equal(t, group.ErrAnnotatorNotConfigured, err)
	})

	t.Run("notes", func(t *testing.T) {
		annotator := &fakeAnnotator{notes: map[string]string{"Team 1": "Balanced."}}
		e := setup(t, annotator, false)
		notes, err := e.svc.Refine(ctx, roster, proposals)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Team 1": "Balanced."}, notes)
		assert.Equal(t, roster, annotator.roster)

		groups, err := e.svc.Query(ctx)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})
}

func TestService_MembershipOf(t *testing.T) {
	e := setup(t, nil, false)
	ctx := context.Background()
	sts := e.roster(t, 3.0, 3.5, 2.0)

	m, err := e.svc.MembershipOf(ctx, sts[0])
	require.NoError(t, err)
	assert.Nil(t, m.Group)
	assert.Equal(t, []student.Student{}, m.Teammates)

	saved, err := e.svc.Replace(ctx, []group.NewGroup{{Name: "A", MemberIDs: []string{sts[2].ID, sts[0].ID, sts[1].ID}}})
	require.NoError(t, err)

	m, err = e.svc.MembershipOf(ctx, sts[0])
	require.NoError(t, err)
	require.NotNil(t, m.Group)
	assert.Equal(t, saved[0].ID, m.Group.ID)
	require.Len(t, m.Teammates, 2)
	assert.Equal(t, sts[2].ID, m.Teammates[0].ID)
	assert.Equal(t, sts[1].ID, m.Teammates[1].ID)
}
