package group

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kikundi/core/student"
)

func TestApplyNotes(t *testing.T) {
	tests := []struct {
		name  string
		notes map[string]string
		want  []string
	}{
		{name: "nil notes", want: []string{FallbackNote, FallbackNote}},
		{
			name:  "partial notes",
			notes: map[string]string{"Team 1": "Backend heavy.", "Team 3": "unused"},
			want:  []string{"Backend heavy.", FallbackNote},
		},
		{
			name:  "blank note",
			notes: map[string]string{"Team 1": "  ", "Team 2": "\tMixed skills.\n"},
			want:  []string{FallbackNote, "Mixed skills."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := []NewGroup{{Name: "Team 1"}, {Name: "Team 2", AINotes: "stale"}}
			ApplyNotes(groups, tt.notes)
			assert.Equal(t, tt.want, []string{groups[0].AINotes, groups[1].AINotes})
		})
	}
}

func TestRosterOf(t *testing.T) {
	students := []student.Student{
		{ID: "a", Name: "Amani", Email: "amani@test.cd", UserID: "u1", CGPA: 3.2, Skills: []string{"go", "sql"}},
		{ID: "b", Name: "Baraka", CGPA: 2.1},
	}
	assert.Equal(t, []RosterEntry{
		{ID: "a", Skills: []string{"go", "sql"}, CGPA: 3.2},
		{ID: "b", Skills: []string{}, CGPA: 2.1},
	}, RosterOf(students))
}

func TestProposalsOf(t *testing.T) {
	formed := []Formed{
		{Name: "Team 1", Members: []student.Student{{ID: "a"}, {ID: "c"}}},
		{Name: "Team 2", Members: []student.Student{{ID: "b"}}},
	}
	assert.Equal(t, []Proposal{
		{Name: "Team 1", MemberIDs: []string{"a", "c"}},
		{Name: "Team 2", MemberIDs: []string{"b"}},
	}, ProposalsOf(formed))
}

func TestAssignmentMessages(t *testing.T) {
	roster := []student.Student{
		{ID: "a", Name: "Amani", Email: "amani@test.cd"},
		{ID: "b", Name: "Baraka", Email: "baraka@test.cd"},
		{ID: "c", Name: "Chiku"},
	}
	groups := []Group{
		{Name: "Team 1", MemberIDs: []string{"a", "b", "c"}, AINotes: "Well balanced."},
		{Name: "Team 2", MemberIDs: []string{"ghost"}},
	}

	messages := assignmentMessages(groups, roster)
	if assert.Len(t, messages, 2) {
		assert.Equal(t, "Your group: Team 1", messages[0].Subject)
		assert.Equal(t, "amani@test.cd", messages[0].To[0].Address)
		assert.Equal(t,
			"Hello Amani,\n\nYou have been assigned to Team 1.\n\nYour teammates: Baraka, Chiku.\n\nWell balanced.",
			messages[0].BodyStr,
		)
		assert.Equal(t, "baraka@test.cd", messages[1].To[0].Address)
		assert.Contains(t, messages[1].BodyStr, "Your teammates: Amani, Chiku.")
	}
}

func TestGroup_HasMember(t *testing.T) {
	g := Group{MemberIDs: []string{"a", "b"}}
	assert.True(t, g.HasMember("b"))
	assert.False(t, g.HasMember("c"))
}
