package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
)

const groupColumns = "id, name, ai_notes, created_at"

type (
	groupRow struct {
		ID        string      `db:"id"`
		Name      string      `db:"name"`
		AINotes   null.String `db:"ai_notes"`
		CreatedAt time.Time   `db:"created_at"`
	}

	memberRow struct {
		GroupID   string `db:"group_id"`
		StudentID string `db:"student_id"`
	}
)

func (row groupRow) group(memberIDs []string) group.Group {
	if memberIDs == nil {
		memberIDs = []string{}
	}
	return group.Group{
		ID:        row.ID,
		Name:      row.Name,
		MemberIDs: memberIDs,
		AINotes:   row.AINotes.String,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type groupRepository struct {
	db core.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db core.DB) *groupRepository {
	return &groupRepository{db: db}
}

// members returns the member IDs of each group, in group order.
func (repo groupRepository) members(ctx context.Context, groupIDs ...string) (map[string][]string, error) {
	var rows []memberRow
	err := repo.db.SelectContext(
		ctx, &rows,
		"SELECT group_id, student_id FROM group_members WHERE group_id = ANY($1) ORDER BY group_id, position",
		pq.Array(groupIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting group members")
	}
	members := make(map[string][]string, len(groupIDs))
	for _, row := range rows {
		members[row.GroupID] = append(members[row.GroupID], row.StudentID)
	}
	return members, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context) ([]group.Group, error) {
	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+groupColumns+" FROM groups ORDER BY seq"); err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	members, err := repo.members(ctx, ids...)
	if err != nil {
		return nil, err
	}

	groups := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.group(members[row.ID]))
	}
	return groups, nil
}

func (repo groupRepository) GetGroupByMember(ctx context.Context, studentID string) (group.Group, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return group.Group{}, group.ErrNotFound
	}

	var row groupRow
	err := repo.db.GetContext(
		ctx, &row,
		`SELECT g.id, g.name, g.ai_notes, g.created_at FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.student_id = $1`,
		studentID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(err, "selecting group")
	}

	members, err := repo.members(ctx, row.ID)
	if err != nil {
		return group.Group{}, err
	}
	return row.group(members[row.ID]), nil
}

func (repo groupRepository) ReplaceGroups(ctx context.Context, groups []group.Group) ([]group.Group, error) {
	saved := make([]group.Group, 0, len(groups))

	err := withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		if _, err := tx.ExecContext(ctx, "UPDATE students SET group_id = NULL WHERE group_id IS NOT NULL"); err != nil {
			return errors.Wrap(err, "clearing student groups")
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM groups"); err != nil {
			return errors.Wrap(err, "deleting groups")
		}

		for _, g := range groups {
			g.ID = uuid.New().String()
			notes := null.NewString(g.AINotes, g.AINotes != "")
			_, err := tx.ExecContext(
				ctx,
				"INSERT INTO groups ("+groupColumns+") VALUES ($1, $2, $3, $4)",
				g.ID, g.Name, notes, g.CreatedAt.UTC(),
			)
			if err != nil {
				return errors.Wrap(err, "inserting group")
			}

			for pos, sid := range g.MemberIDs {
				_, err = tx.ExecContext(
					ctx,
					"INSERT INTO group_members (group_id, student_id, position) VALUES ($1, $2, $3)",
					g.ID, sid, pos,
				)
				if err != nil {
					return errors.Wrap(err, "inserting group member")
				}
			}
			if len(g.MemberIDs) > 0 {
				_, err = tx.ExecContext(
					ctx,
					"UPDATE students SET group_id = $1 WHERE id = ANY($2)",
					g.ID, pq.Array(g.MemberIDs),
				)
				if err != nil {
					return errors.Wrap(err, "setting student groups")
				}
			}

			memberIDs := make([]string, len(g.MemberIDs))
			copy(memberIDs, g.MemberIDs)
			g.MemberIDs = memberIDs
			saved = append(saved, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
