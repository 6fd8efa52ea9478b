package dummydb

import (
	"sync"

	"github.com/trezcool/kampus/core/audit"
	"github.com/trezcool/kampus/core/user"
)

type (
	DB struct {
		user  *userTable
		audit *auditTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	auditTable struct {
		sync.RWMutex
		table []audit.Event
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:  &userTable{table: make(map[string]*user.User)},
		audit: &auditTable{},
	}
	return db, nil
}
