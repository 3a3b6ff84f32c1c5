package group

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("Group not found.")

	errUnknownMember   = "unknown student: %s"
	errDuplicateMember = "student %s is listed more than once"
)

type (
	Repository interface {
		// QueryGroups returns the current groups in creation order.
		QueryGroups(ctx context.Context) ([]Group, error)
		GetGroupByMember(ctx context.Context, studentID string) (Group, error)
		// ReplaceGroups atomically discards every existing Group, saves `groups`
		// and rewrites the group reference of every Student: members point to their new Group, others to none.
		ReplaceGroups(ctx context.Context, groups []Group) ([]Group, error)
	}

	// StudentLister is the roster source used for formation and membership checks.
	StudentLister interface {
		QueryAll(ctx context.Context) ([]student.Student, error)
	}

	Deps struct {
		Repo      Repository
		Students  StudentLister
		Annotator Annotator // nil when not configured
		Mailer    core.EmailService
		Logger    core.Logger
	}

	Service struct {
		repo              Repository
		students          StudentLister
		annotator         Annotator
		mailer            core.EmailService
		logger            core.Logger
		annotationTimeout time.Duration
		notifyMembers     bool
	}
)

func NewService(deps Deps, conf *core.Config) *Service {
	return &Service{
		repo:              deps.Repo,
		students:          deps.Students,
		annotator:         deps.Annotator,
		mailer:            deps.Mailer,
		logger:            deps.Logger,
		annotationTimeout: conf.Gemini.Timeout,
		notifyMembers:     conf.NotifyGroupMembers && deps.Mailer != nil,
	}
}

func (svc *Service) Query(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryGroups(ctx)
}

// Replace discards the current groups in favour of `groups`.
// Every member must be a known Student belonging to a single group.
func (svc *Service) Replace(ctx context.Context, groups []NewGroup) ([]Group, error) {
	roster, err := svc.students.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	known := make(map[string]bool, len(roster))
	for _, st := range roster {
		known[st.ID] = true
	}
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			if !known[id] {
				msg := fmt.Sprintf(errUnknownMember, id)
				return nil, core.NewValidationError(errors.New(msg))
			}
			if seen[id] {
				msg := fmt.Sprintf(errDuplicateMember, id)
				return nil, core.NewValidationError(errors.New(msg))
			}
			seen[id] = true
		}
	}
	return svc.replace(ctx, groups, roster)
}

func (svc *Service) replace(ctx context.Context, groups []NewGroup, roster []student.Student) ([]Group, error) {
	now := time.Now().UTC()
	toSave := make([]Group, 0, len(groups))
	for _, g := range groups {
		memberIDs := g.MemberIDs
		if memberIDs == nil {
			memberIDs = []string{}
		}
		toSave = append(toSave, Group{
			Name:      g.Name,
			MemberIDs: memberIDs,
			AINotes:   g.AINotes,
			CreatedAt: now,
		})
	}

	saved, err := svc.repo.ReplaceGroups(ctx, toSave)
	if err != nil {
		return nil, errors.Wrap(err, "replacing groups")
	}
	if svc.notifyMembers {
		svc.mailer.SendMessages(assignmentMessages(saved, roster)...)
	}
	return saved, nil
}

// Generate splits the whole roster into groups of `size` students, annotates them when possible
// and replaces the current groups.
// An annotation failure is logged and every group then gets FallbackNote.
func (svc *Service) Generate(ctx context.Context, size int) ([]Group, error) {
	roster, err := svc.students.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	formed, err := Form(roster, size)
	if err != nil {
		return nil, core.NewValidationError(err)
	}

	groups := make([]NewGroup, 0, len(formed))
	for _, f := range formed {
		groups = append(groups, NewGroup{Name: f.Name, MemberIDs: f.MemberIDs()})
	}

	notes, err := svc.annotate(ctx, RosterOf(roster), ProposalsOf(formed))
	if err != nil && errors.Cause(err) != ErrAnnotatorNotConfigured {
		svc.logger.Warn("annotating groups: falling back to default notes", err)
	}
	ApplyNotes(groups, notes)

	return svc.replace(ctx, groups, roster)
}

// Refine annotates groups proposed by the client. Nothing is persisted.
func (svc *Service) Refine(ctx context.Context, roster []RosterEntry, groups []Proposal) (map[string]string, error) {
	return svc.annotate(ctx, roster, groups)
}

func (svc *Service) annotate(ctx context.Context, roster []RosterEntry, groups []Proposal) (map[string]string, error) {
	if svc.annotator == nil {
		return nil, ErrAnnotatorNotConfigured
	}
	if svc.annotationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.annotationTimeout)
		defer cancel()
	}
	return svc.annotator.Annotate(ctx, roster, groups)
}

// Membership is the view a Student has of their group.
type Membership struct {
	Group     *Group            `json:"group"`
	Teammates []student.Student `json:"teammates"`
}

// MembershipOf returns the Group of `st` and its other members, in group order.
// Group is nil for a Student not assigned yet.
func (svc *Service) MembershipOf(ctx context.Context, st student.Student) (Membership, error) {
	m := Membership{Teammates: []student.Student{}}

	g, err := svc.repo.GetGroupByMember(ctx, st.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return m, nil
		}
		return m, errors.Wrap(err, "finding group by member")
	}
	m.Group = &g

	roster, err := svc.students.QueryAll(ctx)
	if err != nil {
		return m, errors.Wrap(err, "querying students")
	}
	byID := make(map[string]student.Student, len(roster))
	for _, s := range roster {
		byID[s.ID] = s
	}
	for _, id := range g.MemberIDs {
		if mate, ok := byID[id]; ok && id != st.ID {
			m.Teammates = append(m.Teammates, mate)
		}
	}
	return m, nil
}
