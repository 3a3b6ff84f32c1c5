package dummydb

import (
	"context"

	"github.com/trezcool/kikundi/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// findUserByEmail returns the row of the User with `email`. Lock must be held.
func (db *DB) findUserByEmail(email string) *userRow {
	for _, row := range db.users {
		if row.Email == email {
			return row
		}
	}
	return nil
}

// createUser inserts `usr`. Lock must be held.
func (db *DB) createUser(usr user.User) (user.User, error) {
	if db.findUserByEmail(usr.Email) != nil {
		return user.User{}, user.ErrEmailExists
	}
	id, seq := db.next()
	usr.ID = id
	db.users[id] = &userRow{seq: seq, User: usr}
	return usr, nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.db.createUser(usr)
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if row, ok := repo.db.users[id]; ok {
		return row.User, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if row := repo.db.findUserByEmail(email); row != nil {
		return row.User, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CountUsersByRole(_ context.Context, role string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, row := range repo.db.users {
		if row.Role == role {
			count++
		}
	}
	return count, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if other := repo.db.findUserByEmail(usr.Email); other != nil && other.ID != usr.ID {
		return user.User{}, user.ErrEmailExists
	}
	usr.CreatedAt = row.CreatedAt
	row.User = usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.users, id)
	return nil
}
