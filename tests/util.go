package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

// NopLogger discards everything; Fatal panics so tests notice.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(msg string, _ ...interface{}) {
	panic(msg)
}

// NewValidator returns a fully initialized validator + translator pair.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser persists a user through the repo with a known password.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	conf *core.Config,
	firstName, lastName, email, studentID, pwd, level string,
	isActive bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		StudentID:    studentID,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		MobileNumber: "+243123456789",
		Level:        level,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	usr.SetActive(isActive)
	if err := usr.SetPassword(pwd, conf.HashSecret); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
