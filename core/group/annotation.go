package group

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core/student"
)

const FallbackNote = "Balanced by academic performance."

var (
	// errors
	ErrAnnotatorNotConfigured = errors.New(
		"AI service not configured. Add GEMINI_API_KEY to the server environment (get one at https://aistudio.google.com/apikey)",
	)
	ErrAnnotationFailed = errors.New("AI refinement failed.")
)

type (
	// RosterEntry is the part of a Student shared with the annotation service. No identity or credential.
	RosterEntry struct {
		ID     string   `json:"id" validate:"required"`
		Skills []string `json:"skills"`
		CGPA   float64  `json:"cgpa"`
	}

	Proposal struct {
		Name      string   `json:"name" validate:"nonblank"`
		MemberIDs []string `json:"memberIds"`
	}

	// Annotator returns a one sentence note per group name.
	// Any error is recoverable: callers fall back to FallbackNote.
	Annotator interface {
		Annotate(ctx context.Context, roster []RosterEntry, groups []Proposal) (map[string]string, error)
	}
)

func RosterOf(students []student.Student) []RosterEntry {
	roster := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		skills := st.Skills
		if skills == nil {
			skills = []string{}
		}
		roster = append(roster, RosterEntry{ID: st.ID, Skills: skills, CGPA: st.CGPA})
	}
	return roster
}

func ProposalsOf(formed []Formed) []Proposal {
	proposals := make([]Proposal, 0, len(formed))
	for _, f := range formed {
		proposals = append(proposals, Proposal{Name: f.Name, MemberIDs: f.MemberIDs()})
	}
	return proposals
}

// ApplyNotes sets the note of every group from `notes`, keyed by group name.
// Groups without a non-blank note get FallbackNote. `notes` may be nil.
func ApplyNotes(groups []NewGroup, notes map[string]string) {
	for i := range groups {
		note := strings.TrimSpace(notes[groups[i].Name])
		if note == "" {
			note = FallbackNote
		}
		groups[i].AINotes = note
	}
}
