package dummydb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/schedule"
)

// ProcedureFunc fakes one stored procedure.
type ProcedureFunc func(args ...interface{}) ([]map[string]interface{}, error)

// ScheduleRepository fakes the procedure store with an in-memory table of
// procedure implementations. Calling an unknown procedure fails the same
// way the store does for a missing routine.
type ScheduleRepository struct {
	mu    sync.RWMutex
	procs map[string]ProcedureFunc
	Calls []string
}

var _ schedule.Repository = (*ScheduleRepository)(nil) // interface compliance check

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{procs: make(map[string]ProcedureFunc)}
}

func (repo *ScheduleRepository) Stub(name string, fn ProcedureFunc) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.procs[name] = fn
}

// StubRows stubs a procedure returning fixed rows.
func (repo *ScheduleRepository) StubRows(name string, rows []map[string]interface{}) {
	repo.Stub(name, func(...interface{}) ([]map[string]interface{}, error) {
		return rows, nil
	})
}

func (repo *ScheduleRepository) CallProcedure(_ context.Context, name string, args ...interface{}) ([]map[string]interface{}, error) {
	repo.mu.Lock()
	repo.Calls = append(repo.Calls, name)
	fn, ok := repo.procs[name]
	repo.mu.Unlock()

	if !ok {
		return nil, errors.Errorf("PROCEDURE %s does not exist", name)
	}
	return fn(args...)
}
