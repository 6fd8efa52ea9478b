package schedule

import (
	"context"
	"encoding/json"

	"github.com/trezcool/kampus/core/dispatch"
)

// Availability slots

type availabilityFilter struct {
	TransactionTypeID *int   `json:"transaction_type_id"`
	DateFrom          string `json:"date_from"`
	DateTo            string `json:"date_to"`
}

type newAvailability struct {
	TransactionTypeID int    `json:"transaction_type_id" validate:"required"`
	Date              string `json:"date" validate:"required"`
	StartTime         string `json:"start_time" validate:"required"`
	EndTime           string `json:"end_time" validate:"required"`
	Slots             int    `json:"slots" validate:"required,min=1"`
}

type availabilityUpdate struct {
	AvailabilityID int    `json:"availability_id" validate:"required"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Slots          int    `json:"slots"`
}

type availabilityRef struct {
	AvailabilityID int `json:"availability_id" validate:"required"`
}

func (svc *Service) getTransactionType(ctx context.Context, _ json.RawMessage, _ dispatch.Identity) (interface{}, error) {
	return svc.repo.CallProcedure(ctx, "sp_get_transaction_types")
}

func (svc *Service) getAvailability(ctx context.Context, payload json.RawMessage, _ dispatch.Identity) (interface{}, error) {
	var params availabilityFilter
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_get_availability", params.TransactionTypeID, params.DateFrom, params.DateTo)
}

func (svc *Service) addAvailability(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	var params newAvailability
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_add_availability",
		params.TransactionTypeID, params.Date, params.StartTime, params.EndTime, params.Slots, id.UserID)
}

func (svc *Service) updateAvailability(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	var params availabilityUpdate
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_update_availability",
		params.AvailabilityID, params.Date, params.StartTime, params.EndTime, params.Slots, id.UserID)
}

func (svc *Service) deleteAvailability(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	var params availabilityRef
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_delete_availability", params.AvailabilityID, id.UserID)
}

// Appointments

type newAppointment struct {
	AvailabilityID int    `json:"availability_id" validate:"required"`
	Purpose        string `json:"purpose" validate:"required"`
}

type appointmentStatusUpdate struct {
	AppointmentID int    `json:"appointment_id" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=PENDING APPROVED DECLINED COMPLETED"`
}

type appointmentRef struct {
	AppointmentID int `json:"appointment_id" validate:"required"`
}

func (svc *Service) getAppointments(ctx context.Context, _ json.RawMessage, id dispatch.Identity) (interface{}, error) {
	// admins see every appointment, students only their own
	if err := requireAdmin(id); err == nil {
		return svc.repo.CallProcedure(ctx, "sp_get_appointments", nil)
	}
	return svc.repo.CallProcedure(ctx, "sp_get_appointments", id.UserID)
}

func (svc *Service) addAppointment(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	var params newAppointment
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_add_appointment", params.AvailabilityID, params.Purpose, id.UserID)
}

func (svc *Service) updateAppointmentStatus(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	var params appointmentStatusUpdate
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_update_appointment_status", params.AppointmentID, params.Status, id.UserID)
}

func (svc *Service) deleteAppointment(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	var params appointmentRef
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	// the procedure rejects deletes of appointments the caller does not own
	return svc.repo.CallProcedure(ctx, "sp_delete_appointment", params.AppointmentID, id.UserID)
}

// Reports

type reportRange struct {
	DateFrom string `json:"date_from" validate:"required"`
	DateTo   string `json:"date_to" validate:"required"`
}

func (svc *Service) getAppointmentReport(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	var params reportRange
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_get_appointment_report", params.DateFrom, params.DateTo)
}

func (svc *Service) getSummaryReport(ctx context.Context, _ json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_get_summary_report")
}

// Admin console user listing

type userStatusUpdate struct {
	UserID   string `json:"user_id" validate:"required"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

func (svc *Service) getUsers(ctx context.Context, _ json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_get_users")
}

func (svc *Service) setUserStatus(ctx context.Context, payload json.RawMessage, id dispatch.Identity) (interface{}, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	var params userStatusUpdate
	if err := svc.decode(payload, &params); err != nil {
		return nil, err
	}
	return svc.repo.CallProcedure(ctx, "sp_set_user_status", params.UserID, *params.IsActive, id.UserID)
}
