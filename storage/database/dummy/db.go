package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/kikundi/core/group"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
)

type (
	// DB is an in-memory store. A single lock guards every table,
	// so operations spanning tables (student deletion, group replacement) are atomic.
	DB struct {
		sync.RWMutex
		seq      int
		users    map[string]*userRow
		students map[string]*studentRow
		groups   map[string]*groupRow
	}

	userRow struct {
		seq int
		user.User
	}

	studentRow struct {
		seq int
		student.Student
	}

	groupRow struct {
		seq int
		group.Group
	}
)

func Open() *DB {
	return &DB{
		users:    make(map[string]*userRow),
		students: make(map[string]*studentRow),
		groups:   make(map[string]*groupRow),
	}
}

// Reset drops every record.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.users = make(map[string]*userRow)
	db.students = make(map[string]*studentRow)
	db.groups = make(map[string]*groupRow)
}

// next returns a new identifier along with its insertion rank. Lock must be held.
func (db *DB) next() (string, int) {
	db.seq++
	return uuid.New().String(), db.seq
}

func copyStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	cp := make([]string, len(ss))
	copy(cp, ss)
	return cp
}
