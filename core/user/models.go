package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kampus/core"
)

// Access levels
const (
	LevelStudent = "STUDENT"
	LevelAdmin   = "ADMIN"
	LevelSudo    = "SUDO"
)

var AllLevels = []string{LevelStudent, LevelAdmin, LevelSudo}

type User struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id,omitempty"`
	FirstName    string    `json:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobile_number,omitempty"`
	Level        string    `json:"user_level"`
	IsActive     *bool     `json:"is_active,omitempty"`
	PasswordHash []byte    `json:"-"`
	// OTP mailed on registration for email verification; never returned to clients.
	VerificationCode string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
	LastLogin        time.Time `json:"last_login"` // UTC
}

// Name is the display name.
func (u User) Name() string {
	return core.CleanString(strings.Join([]string{u.FirstName, u.MiddleName, u.LastName}, " "))
}

func (u User) IsAdmin() bool {
	return u.Level == LevelAdmin || u.Level == LevelSudo
}

func (u User) IsStudent() bool {
	return u.Level == LevelStudent
}

func (u *User) SetActive(active bool) { u.IsActive = &active }

// keyedHash peppers the raw password with the hashing secret so the
// at-rest transform is keyed; the result feeds bcrypt which adds the salt.
// The raw password never reaches the store.
func keyedHash(pwd, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(pwd))
	return mac.Sum(nil)
}

func (u *User) SetPassword(pwd, secret string) error {
	hash, err := bcrypt.GenerateFromPassword(keyedHash(pwd, secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd, secret string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, keyedHash(pwd, secret))
}

// Registration contains information needed to create a new account.
type Registration struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	MiddleName   string `json:"middle_name"`
	MobileNumber string `json:"mobile_number" validate:"required,mobilenum"`
}

func (reg *Registration) Validate(validate *validator.Validate) error {
	reg.Email = core.CleanString(reg.Email, true /* lower */)
	reg.FirstName = core.CleanString(reg.FirstName)
	reg.LastName = core.CleanString(reg.LastName)
	reg.MiddleName = core.CleanString(reg.MiddleName)
	reg.MobileNumber = core.CleanString(reg.MobileNumber)
	return validate.Struct(reg)
}

// MissingFields lists the required fields err reports as absent;
// used to describe failed attempts in the audit trail.
func MissingFields(err error) []string {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	var missing []string
	for _, vErr := range vErrs {
		if vErr.Tag() == "required" {
			missing = append(missing, vErr.Field())
		}
	}
	return missing
}

// Credentials is a login request.
type Credentials struct {
	Email     string `json:"email" validate:"required_without=StudentID,omitempty,email"`
	StudentID string `json:"student_id" validate:"required_without=Email"`
	Password  string `json:"password" validate:"required"`
	Level     string `json:"user_level"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.StudentID = core.CleanString(c.StudentID)
	c.Level = strings.ToUpper(core.CleanString(c.Level))
	return validate.Struct(c)
}

func (c Credentials) Login() string {
	if c.Email != "" {
		return c.Email
	}
	return c.StudentID
}

// PublicUser is the minimal identity payload returned on login;
// it never carries password material.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name(), Email: u.Email}
}
