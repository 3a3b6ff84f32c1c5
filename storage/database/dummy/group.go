package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/kikundi/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func (row *groupRow) value() group.Group {
	g := row.Group
	g.MemberIDs = copyStrings(g.MemberIDs)
	return g
}

func (repo *groupRepository) QueryGroups(_ context.Context) ([]group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]*groupRow, 0, len(repo.db.groups))
	for _, row := range repo.db.groups {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	groups := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.value())
	}
	return groups, nil
}

func (repo *groupRepository) GetGroupByMember(_ context.Context, studentID string) (group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, row := range repo.db.groups {
		if row.HasMember(studentID) {
			return row.value(), nil
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) ReplaceGroups(_ context.Context, groups []group.Group) ([]group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.groups = make(map[string]*groupRow, len(groups))
	for _, st := range repo.db.students {
		st.GroupID = ""
	}

	saved := make([]group.Group, 0, len(groups))
	for _, g := range groups {
		id, seq := repo.db.next()
		g.ID = id
		g.MemberIDs = copyStrings(g.MemberIDs)
		row := &groupRow{seq: seq, Group: g}
		repo.db.groups[id] = row

		for _, mid := range g.MemberIDs {
			if st, ok := repo.db.students[mid]; ok {
				st.GroupID = id
			}
		}
		saved = append(saved, row.value())
	}
	return saved, nil
}
