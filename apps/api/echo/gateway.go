package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/dispatch"
	"github.com/trezcool/kampus/core/user"
)

type gatewayApi struct {
	dispatcher *dispatch.Dispatcher
}

// registerGatewayAPI wires the guarded dispatch endpoints. The scope in
// the path mirrors the front-end console issuing the call; the admin
// scope additionally requires an admin identity up front.
func registerGatewayAPI(app *echo.Echo, jwt echo.MiddlewareFunc, dispatcher *dispatch.Dispatcher) {
	api := gatewayApi{dispatcher: dispatcher}

	g := app.Group("/scheduling-system", jwt)
	g.POST("/student", api.dispatch)
	g.POST("/admin", api.dispatch, adminMiddleware())
}

// dispatch forwards the request body to the command registry and writes
// the resulting envelope; the dispatcher guarantees exactly one envelope
// per call, whatever the handler does.
func (api *gatewayApi) dispatch(ctx echo.Context) error {
	var req dispatch.Request
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to dispatch.Request")
	}

	id, err := contextIdentity(ctx)
	if err != nil {
		return err
	}

	env := api.dispatcher.Dispatch(ctx.Request().Context(), req, id)
	if ctx.Response().Committed {
		return nil
	}
	return ctx.JSON(env.Status(), env)
}

// adminMiddleware only lets admin-level identities through.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := contextIdentity(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			if id.Level == user.LevelAdmin || id.Level == user.LevelSudo {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
