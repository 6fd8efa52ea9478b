package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/audit"
)

type auditRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB, conf *core.Config) *auditRepository {
	return &auditRepository{db: db, timeout: conf.Database.Timeout}
}

func (repo auditRepository) CreateEvent(ctx context.Context, ev audit.Event) error {
	ctx, cancel := context.WithTimeout(ctx, repo.timeout)
	defer cancel()

	_, err := repo.db.ExecContext(ctx, "CALL sp_add_audit_event(?, ?, ?, ?, ?)",
		ev.ID, ev.Action, ev.Actor, ev.Details, ev.CreatedAt)
	return errors.Wrap(err, "inserting audit event")
}
