package group

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kikundi/core"
)

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"memberIds"`
	AINotes   string    `json:"aiNotes"`
	CreatedAt time.Time `json:"-"` // UTC
}

// HasMember reports whether the Student with the given ID belongs to the Group.
func (g Group) HasMember(studentID string) bool {
	for _, id := range g.MemberIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewGroup contains information needed to create a Group.
// Client-side IDs are provisional: the store assigns canonical ones.
type NewGroup struct {
	Name      string   `json:"name" validate:"nonblank"`
	MemberIDs []string `json:"memberIds"`
	AINotes   string   `json:"aiNotes"`
}

// ReplaceRequest holds the complete set of groups replacing the current one.
type ReplaceRequest struct {
	Groups []NewGroup `json:"groups" validate:"required,dive"`
}

func (rr *ReplaceRequest) Validate(validate *validator.Validate) error {
	for i := range rr.Groups {
		rr.Groups[i].Name = core.CleanString(rr.Groups[i].Name)
		rr.Groups[i].AINotes = core.CleanString(rr.Groups[i].AINotes)
		if rr.Groups[i].MemberIDs == nil {
			rr.Groups[i].MemberIDs = []string{}
		}
	}
	return validate.Struct(rr)
}

// GenerateRequest asks for the current roster to be split into groups of GroupSize students.
type GenerateRequest struct {
	GroupSize int `json:"groupSize" validate:"required,min=2,max=10"`
}

func (gr *GenerateRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(gr)
}

// RefineRequest is the payload sent by clients that form groups themselves and want them annotated.
type RefineRequest struct {
	Students []RosterEntry `json:"students" validate:"required"`
	Groups   []Proposal    `json:"groups" validate:"required,dive"`
}

func (rr *RefineRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(rr)
}
