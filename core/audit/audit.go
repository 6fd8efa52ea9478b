package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kampus/core"
)

// Common actions recorded by the account flows.
const (
	ActionRegisterAttempt = "register_attempt"
	ActionRegisterSuccess = "register_success"
	ActionLoginFailed     = "login_failed"
)

type (
	// Event is an append-only record of an action taken by an actor.
	Event struct {
		ID        string    `json:"id"`
		Action    string    `json:"action"`
		Actor     string    `json:"actor_identifier"`
		Details   string    `json:"details"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// Result describes the outcome of recording one event. A failed
	// Result carries the reason and the original event so the caller can
	// decide what to do with it; recording is best-effort and never
	// blocks the primary operation.
	Result struct {
		OK     bool
		Reason string
		Event  Event
	}

	Repository interface {
		CreateEvent(ctx context.Context, ev Event) error
	}

	Recorder struct {
		repo   Repository
		logger core.Logger
	}
)

func NewRecorder(repo Repository, logger core.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends ev to the audit trail. It never returns an error and
// never panics: storage failures are logged and folded into the Result.
func (r *Recorder) Record(ctx context.Context, ev Event) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("audit: recording %q panicked: %v", ev.Action, rec))
			res = Result{Reason: fmt.Sprint(rec), Event: ev}
		}
	}()

	ev.ID = uuid.New().String()
	ev.CreatedAt = time.Now().UTC()

	if err := r.repo.CreateEvent(ctx, ev); err != nil {
		r.logger.Error(fmt.Sprintf("audit: recording %q: %v", ev.Action, err), err)
		return Result{Reason: err.Error(), Event: ev}
	}
	return Result{OK: true, Event: ev}
}
