package student

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
)

var (
	errInvalidGPA = errors.New("cgpa must be a number")
	errBlankField = errors.New("this field cannot be blank")
)

type Student struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CGPA       float64   `json:"cgpa"`
	Skills     []string  `json:"skills"`
	Department string    `json:"department"`
	Year       string    `json:"year"`
	GroupID    string    `json:"groupId,omitempty"`
	CreatedAt  time.Time `json:"-"` // UTC
	UpdatedAt  time.Time `json:"-"` // UTC
}

// HasSkill reports whether the Student lists `skill`, ignoring case.
func (st Student) HasSkill(skill string) bool {
	for _, s := range st.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// GPA accepts both JSON numbers and numeric strings, as sent by html forms.
// An empty string or null decodes to 0.
type GPA float64

func (g *GPA) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*g = 0
			return nil
		}
		data = []byte(s)
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return errInvalidGPA
	}
	*g = GPA(f)
	return nil
}

// NewStudent contains information needed to create a new Student.
// An empty Password is replaced by the configured default.
type NewStudent struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	CGPA       GPA      `json:"cgpa" validate:"gte=0"`
	Skills     []string `json:"skills"`
	Department string   `json:"department"`
	Year       string   `json:"year"`
	Password   string   `json:"password"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Skills = core.CleanStrings(ns.Skills)
	if ns.Skills == nil {
		ns.Skills = []string{}
	}
	ns.Department = core.CleanString(ns.Department)
	ns.Year = core.CleanString(ns.Year)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// nil fields are left untouched.
type UpdateStudent struct {
	Name       *string  `json:"name"`
	Email      *string  `json:"email" validate:"omitempty,email"`
	CGPA       *GPA     `json:"cgpa" validate:"omitempty,gte=0"`
	Skills     []string `json:"skills"`
	Department *string  `json:"department"`
	Year       *string  `json:"year"`
	Password   string   `json:"password"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower ...bool) *string {
		if s == nil {
			return nil
		}
		c := core.CleanString(*s, lower...)
		return &c
	}
	us.Name = clean(us.Name)
	us.Email = clean(us.Email, true /* lower */)
	us.Skills = core.CleanStrings(us.Skills)
	us.Department = clean(us.Department)
	us.Year = clean(us.Year)

	var blanks []core.FieldError
	if us.Name != nil && *us.Name == "" {
		blanks = append(blanks, core.FieldError{Field: "name", Error: errBlankField.Error()})
	}
	if us.Email != nil && *us.Email == "" {
		blanks = append(blanks, core.FieldError{Field: "email", Error: errBlankField.Error()})
	}
	if blanks != nil {
		return core.NewValidationError(errBlankField, blanks...)
	}
	return validate.Struct(us)
}

// apply merges the provided fields into `st`.
func (us UpdateStudent) apply(st Student) Student {
	if us.Name != nil {
		st.Name = *us.Name
	}
	if us.Email != nil {
		st.Email = *us.Email
	}
	if us.CGPA != nil {
		st.CGPA = float64(*us.CGPA)
	}
	if us.Skills != nil {
		st.Skills = us.Skills
	}
	if us.Department != nil {
		st.Department = *us.Department
	}
	if us.Year != nil {
		st.Year = *us.Year
	}
	return st
}

// QueryFilter applies AND operation on available fields.
// Search does a case-insensitive match on one of Student.Name or Student.Email.
type QueryFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	Year       string `query:"year"`
	Skill      string `query:"skill"`
	Ungrouped  *bool  `query:"ungrouped"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Department == "" && qf.Year == "" && qf.Skill == "" && qf.Ungrouped == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.Year = core.CleanString(qf.Year)
	qf.Skill = core.CleanString(qf.Skill)
}

// Match reports whether `st` satisfies the filter.
func (qf *QueryFilter) Match(st Student) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(st.Name), search) && !strings.Contains(st.Email, search) {
			return false
		}
	}
	if qf.Department != "" && !strings.EqualFold(st.Department, qf.Department) {
		return false
	}
	if qf.Year != "" && !strings.EqualFold(st.Year, qf.Year) {
		return false
	}
	if qf.Skill != "" && !st.HasSkill(qf.Skill) {
		return false
	}
	if qf.Ungrouped != nil && *qf.Ungrouped != (st.GroupID == "") {
		return false
	}
	return true
}

// OrderingFields are the fields students may be ordered by.
var OrderingFields = []string{"name", "email", "cgpa", "created_at"}
