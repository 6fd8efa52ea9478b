package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

type userRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB, conf *core.Config) *userRepository {
	return &userRepository{db: db, timeout: conf.Database.Timeout}
}

// userRow is the scan target for the user procedures' result set.
type userRow struct {
	ID               string      `db:"id"`
	StudentID        null.String `db:"student_id"`
	FirstName        null.String `db:"first_name"`
	MiddleName       null.String `db:"middle_name"`
	LastName         null.String `db:"last_name"`
	Email            null.String `db:"email"`
	MobileNumber     null.String `db:"mobile_number"`
	Level            null.String `db:"user_level"`
	IsActive         null.Bool   `db:"is_active"`
	PasswordHash     null.Bytes  `db:"password_hash"`
	VerificationCode null.String `db:"verification_code"`
	CreatedAt        null.Time   `db:"created_at"`
	UpdatedAt        null.Time   `db:"updated_at"`
	LastLogin        null.Time   `db:"last_login"`
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:               row.ID,
		StudentID:        row.StudentID.String,
		FirstName:        row.FirstName.String,
		MiddleName:       row.MiddleName.String,
		LastName:         row.LastName.String,
		Email:            row.Email.String,
		MobileNumber:     row.MobileNumber.String,
		Level:            row.Level.String,
		IsActive:         row.IsActive.Ptr(),
		PasswordHash:     row.PasswordHash.Bytes,
		VerificationCode: row.VerificationCode.String,
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
		LastLogin:        row.LastLogin.Time,
	}
}

func (repo userRepository) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, repo.timeout)
}

// trapNoRowsErr maps "no rows" to user.ErrNotFound.
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) getOne(ctx context.Context, proc string, args ...interface{}) (user.User, error) {
	ctx, cancel := repo.callCtx(ctx)
	defer cancel()

	var row userRow
	if err := repo.db.GetContext(ctx, &row, "CALL "+proc, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "calling "+proc)
	}
	return row.toUser(), nil
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	ctx, cancel := repo.callCtx(ctx)
	defer cancel()

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, "CALL sp_check_email_exists(?)", email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	ctx, cancel := repo.callCtx(ctx)
	defer cancel()

	usr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, "CALL sp_create_user(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		usr.ID, usr.StudentID, usr.FirstName, usr.MiddleName, usr.LastName,
		usr.Email, usr.MobileNumber, usr.Level, usr.PasswordHash, usr.VerificationCode)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getOne(ctx, "sp_get_user_by_id(?)", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, "sp_get_user_by_email(?)", email)
}

func (repo userRepository) GetUserByLogin(ctx context.Context, login string) (user.User, error) {
	return repo.getOne(ctx, "sp_get_user_by_login(?)", login)
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	ctx, cancel := repo.callCtx(ctx)
	defer cancel()

	usr.LastLogin = time.Now().UTC()
	if _, err := repo.db.ExecContext(ctx, "CALL sp_set_last_login(?, ?)", usr.ID, usr.LastLogin); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}

	ctx, cancel := repo.callCtx(ctx)
	defer cancel()

	usr.UpdatedAt = time.Now().UTC()
	_, err := repo.db.ExecContext(ctx, "CALL sp_update_user(?, ?, ?, ?, ?, ?, ?, ?)",
		usr.ID, usr.FirstName, usr.MiddleName, usr.LastName,
		usr.MobileNumber, usr.Level, usr.IsActive, usr.PasswordHash)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}
