package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEvent(_ context.Context, ev audit.Event) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = append(repo.db.table, ev)
	return nil
}

// Events returns a snapshot of recorded events, for assertions.
func (repo *auditRepository) Events() []audit.Event {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]audit.Event, len(repo.db.table))
	copy(events, repo.db.table)
	return events
}

// FailingAuditRepository always fails, to exercise the recorder's
// log-and-continue policy.
type FailingAuditRepository struct{}

var _ audit.Repository = (*FailingAuditRepository)(nil)

func (FailingAuditRepository) CreateEvent(context.Context, audit.Event) error {
	return errors.New("audit store unavailable")
}
