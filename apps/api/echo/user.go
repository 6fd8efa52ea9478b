package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
	conf     *core.Config
}

// registerUserAPI wires the public account endpoints. Login and
// registration deliberately live outside the guarded group: they are the
// only actions reachable without a credential.
func registerUserAPI(app *echo.Echo, svc *user.Service, validate *validator.Validate, conf *core.Config) {
	api := userApi{svc: svc, validate: validate, conf: conf}

	app.POST("/login", api.login)
	app.POST("/register", api.register)
	app.GET("/logout", api.logout)
}

type LoginResponse struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    user.PublicUser `json:"user"`
}

func (api *userApi) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := creds.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrAuthenticationFailed:
			return errAuthenticationFailed
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	setAuthCookie(ctx, token, api.conf)

	return ctx.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    usr.Public(),
	})
}

func (api *userApi) register(ctx echo.Context) error {
	var reg user.Registration
	if err := ctx.Bind(&reg); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}

	res, err := api.svc.Register(ctx.Request().Context(), reg)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, echo.Map{
		"message":    "Registration successful. Check your email for your verification code.",
		"user":       res.User.Public(),
		"student_id": res.User.StudentID,
	})
}

func (api *userApi) logout(ctx echo.Context) error {
	clearAuthCookie(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}
