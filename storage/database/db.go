package database

import (
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
)

// Open opens the store connection pool. The pool is the process's only
// shared mutable resource; it is created once here and injected into the
// repositories.
func Open(conf *core.Config) (*sqlx.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = conf.Database.User
	cfg.Passwd = conf.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = conf.Database.Address()
	cfg.DBName = conf.Database.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sqlx.Open(conf.Database.Engine, cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "opening DB")
	}
	return db, nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}
