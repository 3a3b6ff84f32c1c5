package pgrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
)

const (
	studentColumns         = "id, user_id, name, email, cgpa, skills, department, year, group_id, created_at, updated_at"
	studentEmailConstraint = "students_email_key"
)

var studentOrderingColumns = map[string]string{
	"name":       "lower(name)",
	"email":      "email",
	"cgpa":       "cgpa",
	"created_at": "created_at",
}

type studentRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Name       string         `db:"name"`
	Email      string         `db:"email"`
	CGPA       float64        `db:"cgpa"`
	Skills     pq.StringArray `db:"skills"`
	Department string         `db:"department"`
	Year       string         `db:"year"`
	GroupID    null.String    `db:"group_id"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (row studentRow) student() student.Student {
	skills := []string(row.Skills)
	if skills == nil {
		skills = []string{}
	}
	return student.Student{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		Email:      row.Email,
		CGPA:       row.CGPA,
		Skills:     skills,
		Department: row.Department,
		Year:       row.Year,
		GroupID:    row.GroupID.String,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) *studentRepository {
	return &studentRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student, usr *user.User) (student.Student, error) {
	st.ID = uuid.New().String()
	if st.Skills == nil {
		st.Skills = []string{}
	}

	err := withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		if usr != nil {
			created, err := insertUser(ctx, tx, *usr)
			if err != nil {
				return err
			}
			st.UserID = created.ID
		}

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO students (id, user_id, name, email, cgpa, skills, department, year, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			st.ID, st.UserID, st.Name, st.Email, st.CGPA, pq.Array(st.Skills), st.Department, st.Year,
			st.CreatedAt.UTC(), st.UpdatedAt.UTC(),
		)
		if isUniqueViolation(err, studentEmailConstraint) {
			return student.ErrEmailExists
		}
		return errors.Wrap(err, "inserting student")
	})
	if err != nil {
		return student.Student{}, err
	}
	return repo.GetStudentByID(ctx, st.ID)
}

// likeEscaper makes LIKE patterns match their input literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
			conds = append(conds, `(name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\')`)
			args = append(args, pattern, pattern)
		}
		if filter.Department != "" {
			conds = append(conds, "lower(department) = lower(?)")
			args = append(args, filter.Department)
		}
		if filter.Year != "" {
			conds = append(conds, "lower(year) = lower(?)")
			args = append(args, filter.Year)
		}
		if filter.Skill != "" {
			conds = append(conds, "EXISTS (SELECT 1 FROM unnest(skills) AS s WHERE lower(s) = lower(?))")
			args = append(args, filter.Skill)
		}
		if filter.Ungrouped != nil {
			if *filter.Ungrouped {
				conds = append(conds, "group_id IS NULL")
			} else {
				conds = append(conds, "group_id IS NOT NULL")
			}
		}
	}

	q := "SELECT " + studentColumns + " FROM students"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := studentOrderingColumns[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderBy = append(orderBy, "seq ASC")
	q += " ORDER BY " + strings.Join(orderBy, ", ")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo studentRepository) get(ctx context.Context, where string, arg interface{}) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE "+where, arg); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "selecting student")
	}
	return row.student(), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo studentRepository) GetStudentByUserID(ctx context.Context, userID string) (student.Student, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	return repo.get(ctx, "user_id = $1 ORDER BY seq LIMIT 1", userID)
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if _, err := uuid.Parse(st.ID); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	if st.Skills == nil {
		st.Skills = []string{}
	}
	res, err := repo.db.ExecContext(
		ctx,
		`UPDATE students SET name = $2, email = $3, cgpa = $4, skills = $5, department = $6, year = $7, updated_at = $8
		WHERE id = $1`,
		st.ID, st.Name, st.Email, st.CGPA, pq.Array(st.Skills), st.Department, st.Year, st.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, studentEmailConstraint) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudentByID(ctx, st.ID)
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) error {
	st, err := repo.GetStudentByID(ctx, id)
	if err != nil {
		return err
	}
	return withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		// group_members rows go along through ON DELETE CASCADE
		if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = $1", st.ID); err != nil {
			return errors.Wrap(err, "deleting student")
		}
		_, err := tx.ExecContext(
			ctx,
			"DELETE FROM users WHERE id = $1 AND role = $2 AND NOT EXISTS (SELECT 1 FROM students WHERE user_id = $1)",
			st.UserID, user.RoleStudent,
		)
		return errors.Wrap(err, "deleting owner")
	})
}
