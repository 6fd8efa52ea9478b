package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/audit"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("Invalid credentials or user not found")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// GetUserByLogin matches either the email or the student ID.
		GetUserByLogin(ctx context.Context, login string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		auditor  *audit.Recorder
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	auditor *audit.Recorder,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		auditor:  auditor,
		mailSvc:  mailSvc,
		validate: validate,
		conf:     conf,
	}
}

// RegistrationResult carries the created account along with the outcome of
// the best-effort audit write; an audit failure never rolls the account back.
type RegistrationResult struct {
	User  User
	Audit audit.Result
}

// Register validates and persists a new account, then records an audit
// event and mails the verification code. The persist and the audit/mail
// steps are deliberately not atomic: once the account is committed, the
// side channels may fail without affecting it.
func (svc *Service) Register(ctx context.Context, reg Registration) (RegistrationResult, error) {
	if err := reg.Validate(svc.validate); err != nil {
		details := "registration rejected"
		if missing := MissingFields(err); len(missing) > 0 {
			details = "missing fields: " + strings.Join(missing, ", ")
		} else if vErrs, ok := err.(validator.ValidationErrors); ok {
			flds := make([]string, 0, len(vErrs))
			for _, vErr := range vErrs {
				flds = append(flds, vErr.Field())
			}
			details = "invalid fields: " + strings.Join(flds, ", ")
		}
		svc.auditor.Record(ctx, audit.Event{
			Action:  audit.ActionRegisterAttempt,
			Actor:   reg.Email,
			Details: details,
		})
		return RegistrationResult{}, err
	}

	if err := svc.checkUniqueness(ctx, reg.Email); err != nil {
		svc.auditor.Record(ctx, audit.Event{
			Action:  audit.ActionRegisterAttempt,
			Actor:   reg.Email,
			Details: "duplicate email",
		})
		return RegistrationResult{}, err
	}

	now := time.Now().UTC()
	usr := User{
		StudentID:        newStudentID(now),
		FirstName:        reg.FirstName,
		MiddleName:       reg.MiddleName,
		LastName:         reg.LastName,
		Email:            reg.Email,
		MobileNumber:     reg.MobileNumber,
		Level:            LevelStudent,
		VerificationCode: newOTP(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(reg.Password, svc.conf.HashSecret); err != nil {
		return RegistrationResult{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return RegistrationResult{}, errors.Wrap(err, "creating user")
	}

	res := RegistrationResult{User: usr}
	res.Audit = svc.auditor.Record(ctx, audit.Event{
		Action:  audit.ActionRegisterSuccess,
		Actor:   usr.Email,
		Details: "student " + usr.StudentID,
	})
	svc.sendVerificationEmail(usr)
	return res, nil
}

// Authenticate performs exactly one stored credential check. On no match
// it fails without creating any identity context; the failure is recorded
// in the audit trail.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	usr, err := svc.repo.GetUserByLogin(ctx, creds.Login())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, svc.failLogin(ctx, creds, "unknown login")
		}
		return User{}, errors.Wrap(err, "finding user by login")
	}
	if err = usr.CheckPassword(creds.Password, svc.conf.HashSecret); err != nil {
		return User{}, svc.failLogin(ctx, creds, "wrong password")
	}
	if creds.Level != "" && creds.Level != usr.Level {
		return User{}, svc.failLogin(ctx, creds, "wrong portal")
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.repo.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// failLogin records the failed attempt and returns the uniform
// authentication error; the detail stays in the audit trail only.
func (svc *Service) failLogin(ctx context.Context, creds Credentials, reason string) error {
	svc.auditor.Record(ctx, audit.Event{
		Action:  audit.ActionLoginFailed,
		Actor:   creds.Login(),
		Details: reason,
	})
	return ErrAuthenticationFailed
}

func (svc *Service) checkUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) sendVerificationEmail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject: "Verify your email address",
		BodyStr: fmt.Sprintf(
			"Hi %s,\r\n\r\nYour %s verification code is: %s\r\n\r\nYour student number is %s.",
			usr.FirstName, svc.conf.AppName, usr.VerificationCode, usr.StudentID,
		),
	})
}

// newOTP returns a 6-digit one-time code.
func newOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// rand.Reader failing means the host entropy source is broken
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// newStudentID derives a student number from the registration year and a
// random suffix, e.g. "2026-04517".
func newStudentID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%d-%05d", now.Year(), n.Int64())
}
