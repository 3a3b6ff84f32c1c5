package group

import (
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core/student"
)

const MinGroupSize = 2

var (
	// errors
	ErrInvalidGroupSize       = errors.New("group size must be at least 2")
	ErrInsufficientPopulation = errors.New("not enough students to form a single group of this size")
	ErrInvalidGPA             = errors.New("student cgpa is not a number")
)

// Formed is a group produced by Form, not persisted yet.
type Formed struct {
	Name    string
	Members []student.Student
}

// MemberIDs returns the IDs of the members, in rank order.
func (f Formed) MemberIDs() []string {
	ids := make([]string, 0, len(f.Members))
	for _, st := range f.Members {
		ids = append(ids, st.ID)
	}
	return ids
}

// TeamName returns the positional name of the i-th (0 based) group.
func TeamName(i int) string {
	return "Team " + strconv.Itoa(i+1)
}

// Form partitions `roster` into ceil(N/size) groups balanced by GPA.
// Students are ranked by descending GPA, ties keeping their roster order, then dealt round-robin:
// rank i joins group i % numGroups.
// `roster` is not modified and nothing is returned on error.
func Form(roster []student.Student, size int) ([]Formed, error) {
	if size < MinGroupSize {
		return nil, ErrInvalidGroupSize
	}
	for _, st := range roster {
		if math.IsNaN(st.CGPA) || math.IsInf(st.CGPA, 0) {
			return nil, errors.Wrapf(ErrInvalidGPA, "student %s", st.ID)
		}
	}
	n := len(roster)
	if n < size {
		return nil, ErrInsufficientPopulation
	}

	ranked := make([]student.Student, n)
	copy(ranked, roster)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].CGPA > ranked[j].CGPA })

	numGroups := (n + size - 1) / size
	groups := make([]Formed, numGroups)
	for i := range groups {
		groups[i] = Formed{
			Name:    TeamName(i),
			Members: make([]student.Student, 0, size),
		}
	}
	for i, st := range ranked {
		b := i % numGroups
		groups[b].Members = append(groups[b].Members, st)
	}
	return groups, nil
}
