package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
)

// ErrPermissionDenied is returned by handlers whose action requires a
// higher access level than the request identity carries.
var ErrPermissionDenied = errors.New("permission denied")

// Identity is the per-request identity decoded from a verified credential.
// It is rebuilt on every request and never cached server-side.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Level  string
}

type (
	// Handler implements one action: it validates/transforms the raw
	// payload and performs a single logical unit of work.
	Handler func(ctx context.Context, payload json.RawMessage, id Identity) (interface{}, error)

	// Actions is the closed action table a domain package exports.
	Actions map[string]Handler
)

// Registry maps (domain, action) pairs to handlers. It is built once at
// boot and read-only thereafter.
type Registry struct {
	domains map[string]Actions
}

func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]Actions)}
}

// Register adds a domain's action table. Registering the same
// (domain, action) pair twice fails so that wiring mistakes surface at
// boot, not at request time.
func (r *Registry) Register(domain string, actions Actions) error {
	existing, ok := r.domains[domain]
	if !ok {
		existing = make(Actions, len(actions))
		r.domains[domain] = existing
	}
	for name, h := range actions {
		if _, dup := existing[name]; dup {
			return errors.Errorf("dispatch: duplicate registration of %s.%s", domain, name)
		}
		existing[name] = h
	}
	return nil
}

func (r *Registry) Resolve(domain, action string) (Handler, error) {
	actions, ok := r.domains[domain]
	if !ok {
		return nil, core.NewNotFoundError("domain not found")
	}
	h, ok := actions[action]
	if !ok {
		return nil, core.NewNotFoundError("action %s not found in domain %s", action, domain)
	}
	return h, nil
}

// Request is the uniform dispatch request body. The legacy front-end sends
// `domain_selector`/`action_name`; `domain`/`action` are accepted as
// aliases. Payload is passed through to the handler unmodified.
type Request struct {
	DomainSelector string          `json:"domain_selector"`
	ActionName     string          `json:"action_name"`
	DomainAlias    string          `json:"domain"`
	ActionAlias    string          `json:"action"`
	Payload        json.RawMessage `json:"payload"`
}

func (r Request) Domain() string {
	if r.DomainSelector != "" {
		return r.DomainSelector
	}
	return r.DomainAlias
}

func (r Request) Action() string {
	if r.ActionName != "" {
		return r.ActionName
	}
	return r.ActionAlias
}

// Envelope is the uniform response shape: exactly one of Data/Error is
// populated and Success mirrors whether the handler completed.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`

	status int
}

// Status is the HTTP status the transport should write the envelope with.
func (e Envelope) Status() int {
	if e.status == 0 {
		return http.StatusOK
	}
	return e.status
}

func okEnvelope(data interface{}) Envelope {
	return Envelope{Success: true, Data: data, status: http.StatusOK}
}

func errEnvelope(status int, msg string, details ...string) Envelope {
	env := Envelope{Success: false, Error: msg, status: status}
	if len(details) > 0 {
		env.Details = details[0]
	}
	return env
}

// Dispatcher resolves and invokes action handlers, normalizing every
// outcome into exactly one Envelope. Handler errors and panics never
// escape past it.
type Dispatcher struct {
	reg    *Registry
	logger core.Logger
}

func NewDispatcher(reg *Registry, logger core.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request, id Identity) (env Envelope) {
	domain, action := req.Domain(), req.Action()
	if domain == "" || action == "" {
		return errEnvelope(http.StatusBadRequest, "Missing domain_selector or action_name")
	}

	h, err := d.reg.Resolve(domain, action)
	if err != nil {
		return errEnvelope(http.StatusNotFound, err.Error())
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error(fmt.Sprintf("dispatch: %s.%s panicked: %v", domain, action, rec))
			env = errEnvelope(http.StatusInternalServerError, "internal error", fmt.Sprint(rec))
		}
	}()

	res, err := h(ctx, req.Payload, id)
	if err != nil {
		return d.errToEnvelope(domain, action, err)
	}
	return okEnvelope(res)
}

func (d *Dispatcher) errToEnvelope(domain, action string, err error) Envelope {
	switch cause := errors.Cause(err).(type) {
	case *core.ValidationError:
		env := errEnvelope(http.StatusBadRequest, cause.Error())
		if len(cause.Fields) > 0 {
			fldErrs := make([]string, 0, len(cause.Fields))
			for _, fErr := range cause.Fields {
				fldErrs = append(fldErrs, fErr.Field+": "+fErr.Error)
			}
			env.Details = strings.Join(fldErrs, "; ")
		}
		return env
	case *core.NotFoundError:
		return errEnvelope(http.StatusNotFound, cause.Error())
	default:
		if errors.Cause(err) == ErrPermissionDenied {
			return errEnvelope(http.StatusForbidden, ErrPermissionDenied.Error())
		}
		d.logger.Error(fmt.Sprintf("dispatch: %s.%s: %v", domain, action, err), err)
		return errEnvelope(http.StatusInternalServerError, "internal error", err.Error())
	}
}
