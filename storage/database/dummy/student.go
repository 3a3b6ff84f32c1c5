package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (row *studentRow) value() student.Student {
	st := row.Student
	st.Skills = copyStrings(st.Skills)
	return st
}

// findStudent returns the first row matching `pred`. Lock must be held.
func (db *DB) findStudent(pred func(st *student.Student) bool) *studentRow {
	for _, row := range db.students {
		if pred(&row.Student) {
			return row
		}
	}
	return nil
}

// sortedStudents returns every row in insertion order. Lock must be held.
func (db *DB) sortedStudents() []*studentRow {
	rows := make([]*studentRow, 0, len(db.students))
	for _, row := range db.students {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	return rows
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student, usr *user.User) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.findStudent(func(s *student.Student) bool { return s.Email == st.Email }) != nil {
		return student.Student{}, student.ErrEmailExists
	}
	if usr != nil {
		created, err := repo.db.createUser(*usr)
		if err != nil {
			return student.Student{}, err
		}
		st.UserID = created.ID
	}

	id, seq := repo.db.next()
	st.ID = id
	st.GroupID = ""
	st.Skills = copyStrings(st.Skills)
	row := &studentRow{seq: seq, Student: st}
	repo.db.students[id] = row
	return row.value(), nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, row := range repo.db.sortedStudents() {
		if filter.Match(row.Student) {
			students = append(students, row.value())
		}
	}

	// apply the orderings from the least significant one
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		less := studentLess(ord.Field)
		if less == nil {
			continue
		}
		sort.SliceStable(students, func(a, b int) bool {
			if ord.Ascending {
				return less(students[a], students[b])
			}
			return less(students[b], students[a])
		})
	}
	return students, nil
}

func studentLess(field string) func(a, b student.Student) bool {
	switch field {
	case "name":
		return func(a, b student.Student) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "email":
		return func(a, b student.Student) bool { return a.Email < b.Email }
	case "cgpa":
		return func(a, b student.Student) bool { return a.CGPA < b.CGPA }
	case "created_at":
		return func(a, b student.Student) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	return nil
}

func (repo *studentRepository) get(pred func(st *student.Student) bool) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if row := repo.db.findStudent(pred); row != nil {
		return row.value(), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	row, ok := repo.db.students[id]
	repo.db.RUnlock()
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return row.value(), nil
}

func (repo *studentRepository) GetStudentByEmail(_ context.Context, email string) (student.Student, error) {
	return repo.get(func(st *student.Student) bool { return st.Email == email })
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string) (student.Student, error) {
	return repo.get(func(st *student.Student) bool { return st.UserID == userID })
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.students[st.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if other := repo.db.findStudent(func(s *student.Student) bool { return s.Email == st.Email }); other != nil && other.ID != st.ID {
		return student.Student{}, student.ErrEmailExists
	}

	row.Name = st.Name
	row.Email = st.Email
	row.CGPA = st.CGPA
	row.Skills = copyStrings(st.Skills)
	row.Department = st.Department
	row.Year = st.Year
	row.UpdatedAt = st.UpdatedAt
	return row.value(), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	for _, g := range repo.db.groups {
		members := make([]string, 0, len(g.MemberIDs))
		for _, mid := range g.MemberIDs {
			if mid != id {
				members = append(members, mid)
			}
		}
		g.MemberIDs = members
	}
	delete(repo.db.students, id)
	if owner, ok := repo.db.users[row.UserID]; ok && owner.IsStudent() {
		if repo.db.findStudent(func(s *student.Student) bool { return s.UserID == row.UserID }) == nil {
			delete(repo.db.users, row.UserID)
		}
	}
	return nil
}
