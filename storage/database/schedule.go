package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/schedule"
)

type scheduleRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB, conf *core.Config) *scheduleRepository {
	return &scheduleRepository{db: db, timeout: conf.Database.Timeout}
}

// CallProcedure invokes one named stored procedure and returns its first
// result set as generic rows. The connection is released on every path.
func (repo scheduleRepository) CallProcedure(ctx context.Context, name string, args ...interface{}) ([]map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.timeout)
	defer cancel()

	query := "CALL " + name + "(" + placeholders(len(args)) + ")"
	rows, err := repo.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", name)
	}
	defer func() { _ = rows.Close() }()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err = rows.MapScan(row); err != nil {
			return nil, errors.Wrapf(err, "scanning %s result", name)
		}
		normalizeRow(row)
		results = append(results, row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s result", name)
	}
	return results, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// normalizeRow turns driver []byte values into strings so the rows
// serialize as JSON text instead of base64.
func normalizeRow(row map[string]interface{}) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}
