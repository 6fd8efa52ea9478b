package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dispatch"
	"github.com/trezcool/kampus/core/user"
)

const (
	tokenContextKey = "userToken"
	authCookieName  = "token"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Level string `json:"user_level,omitempty"`
}

// newJWTConfig builds the cookie-based auth guard. The credential rides
// an HTTP-only cookie: absence is a 401, an invalid or expired token is a
// 403 and the bad cookie is cleared.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + authCookieName,
		ErrorHandlerWithContext: func(err error, ctx echo.Context) error {
			if err == middleware.ErrJWTMissing {
				return errUnauthenticated
			}
			clearAuthCookie(ctx)
			return errTokenInvalid
		},
	}
}

// GetUserClaims maps an authenticated user onto token claims with the
// configured validity window.
func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.TokenExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  usr.Name(),
		Email: usr.Email,
		Level: usr.Level,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthenticated
}

// contextIdentity rebuilds the per-request identity from the verified
// claims; it is never cached across requests.
func contextIdentity(ctx echo.Context) (dispatch.Identity, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return dispatch.Identity{}, err
	}
	return dispatch.Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Level:  claims.Level,
	}, nil
}

func setAuthCookie(ctx echo.Context, token string, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(conf.TokenExpirationDelta),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
