package schedule

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dispatch"
	"github.com/trezcool/kampus/core/user"
)

// Dispatch domains served by this package.
const (
	Domain      = "schedulesModel"
	UsersDomain = "usersModel"
)

type (
	// Repository invokes one named stored procedure per call and returns
	// its first result set.
	Repository interface {
		CallProcedure(ctx context.Context, name string, args ...interface{}) ([]map[string]interface{}, error)
	}

	// Service adapts dispatch payloads onto stored procedures. Handlers
	// do no business logic beyond shape validation; the procedures own
	// the query logic.
	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Actions is the closed table for the scheduling domain.
func (svc *Service) Actions() dispatch.Actions {
	return dispatch.Actions{
		"getTransactionType":      svc.getTransactionType,
		"getAvailability":         svc.getAvailability,
		"addAvailability":         svc.addAvailability,
		"updateAvailability":      svc.updateAvailability,
		"deleteAvailability":      svc.deleteAvailability,
		"getAppointments":         svc.getAppointments,
		"addAppointment":          svc.addAppointment,
		"updateAppointmentStatus": svc.updateAppointmentStatus,
		"deleteAppointment":       svc.deleteAppointment,
		"getAppointmentReport":    svc.getAppointmentReport,
		"getSummaryReport":        svc.getSummaryReport,
	}
}

// UserActions is the closed table for the admin-console user domain.
func (svc *Service) UserActions() dispatch.Actions {
	return dispatch.Actions{
		"getUsers":      svc.getUsers,
		"setUserStatus": svc.setUserStatus,
	}
}

// decode binds payload into params and applies shape validation,
// converting validator errors into field-level validation errors.
func (svc *Service) decode(payload json.RawMessage, params interface{}) error {
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, params); err != nil {
			return core.NewValidationError(errors.New("malformed payload"))
		}
	}
	if err := svc.validate.Struct(params); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			flds := make([]core.FieldError, 0, len(vErrs))
			for _, vErr := range vErrs {
				flds = append(flds, core.FieldError{Field: vErr.Field(), Error: vErr.Tag()})
			}
			return core.NewValidationError(errors.New("invalid payload"), flds...)
		}
		return err
	}
	return nil
}

func requireAdmin(id dispatch.Identity) error {
	if id.Level == user.LevelAdmin || id.Level == user.LevelSudo {
		return nil
	}
	return dispatch.ErrPermissionDenied
}
